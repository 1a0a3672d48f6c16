package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Log          LogConfig          `yaml:"log"`
	Integrations IntegrationsConfig `yaml:"integrations"`
}

// ServerConfig は gRPC / HTTP サーバーに関する設定です。
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	HTTPAddr   string `yaml:"http_addr"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	SSLMode            string        `yaml:"ssl_mode"`
	MaxOpenConns       int           `yaml:"max_open_conns"`
	MaxIdleConns       int           `yaml:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time"`
	ApplicationName    string        `yaml:"application_name"`
	ConnectAttempts    int           `yaml:"connect_attempts"`
}

// RedisConfig はコンプライアンス集計キャッシュ用 Redis の設定です。
type RedisConfig struct {
	Addr             string        `yaml:"addr"`
	Password         string        `yaml:"password"`
	DB               int           `yaml:"db"`
	ComplianceTTL    time.Duration `yaml:"-"`
	ComplianceTTLRaw string        `yaml:"compliance_ttl"`
}

// LogConfig はロガーの設定です。
type LogConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	ServiceName string `yaml:"service_name"`
}

// IntegrationsConfig は外部 API 連携の設定です。
type IntegrationsConfig struct {
	NFe   EndpointConfig `yaml:"nfe"`
	OCR   EndpointConfig `yaml:"ocr"`
	Email EmailConfig    `yaml:"email"`
}

// EndpointConfig は外部 API ひとつ分の接続設定です。
type EndpointConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Token      string        `yaml:"token"`
	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
	RetryCount int           `yaml:"retry_count"`
}

// EmailConfig はトランザクションメール API の設定です。
type EmailConfig struct {
	EndpointConfig `yaml:",inline"`
	From           string `yaml:"from"`
}

const (
	defaultHTTPAddr      = ":8080"
	defaultComplianceTTL = 5 * time.Minute
	defaultTimeout       = 15 * time.Second
	defaultConnectTries  = 5
)

// Load は指定されたパスから設定ファイルを読み込みます。
// 同じディレクトリの .env と環境変数で秘密情報を上書きします。
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	overrideString(&c.Database.Password, "DB_PASSWORD")
	overrideString(&c.Redis.Password, "REDIS_PASSWORD")
	overrideString(&c.Integrations.NFe.Token, "NFE_API_TOKEN")
	overrideString(&c.Integrations.OCR.Token, "OCR_API_TOKEN")
	overrideString(&c.Integrations.Email.Token, "EMAIL_API_TOKEN")
}

func overrideString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c *Config) validateAndNormalize() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("config: server.listen_addr must be set")
	}
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = defaultHTTPAddr
	}

	if err := c.Database.validateAndNormalize(); err != nil {
		return err
	}

	ttl, err := parseDurationAllowEmpty(c.Redis.ComplianceTTLRaw)
	if err != nil {
		return fmt.Errorf("config: redis.compliance_ttl: %w", err)
	}
	if ttl == 0 {
		ttl = defaultComplianceTTL
	}
	c.Redis.ComplianceTTL = ttl

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.ServiceName == "" {
		c.Log.ServiceName = "stockly"
	}

	if err := c.Integrations.NFe.normalize("integrations.nfe"); err != nil {
		return err
	}
	if err := c.Integrations.OCR.normalize("integrations.ocr"); err != nil {
		return err
	}
	if err := c.Integrations.Email.normalize("integrations.email"); err != nil {
		return err
	}

	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.ApplicationName == "" {
		d.ApplicationName = "stockly"
	}
	if d.ConnectAttempts <= 0 {
		d.ConnectAttempts = defaultConnectTries
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	return nil
}

func (e *EndpointConfig) normalize(field string) error {
	timeout, err := parseDurationAllowEmpty(e.TimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: %s.timeout: %w", field, err)
	}
	if timeout == 0 {
		timeout = defaultTimeout
	}
	e.Timeout = timeout
	if e.RetryCount < 0 {
		return fmt.Errorf("config: %s.retry_count must not be negative", field)
	}
	return nil
}

// Enabled は base_url が設定されているかを返します。
func (e EndpointConfig) Enabled() bool {
	return strings.TrimSpace(e.BaseURL) != ""
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// DSN は pgx / golang-migrate 用の接続文字列を返します。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}
