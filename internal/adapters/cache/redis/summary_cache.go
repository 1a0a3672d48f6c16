// Package redis はコンプライアンス集計を Redis にキャッシュするアダプタです。
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/ogurasousui/stockly/internal/core/compliance"
	"github.com/ogurasousui/stockly/internal/platform/config"
)

const summaryKeyPrefix = "stockly:compliance:summary:"

// NewClient は設定から Redis クライアントを生成します。
func NewClient(cfg config.RedisConfig) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// SummaryCache は組織ごとのコンプライアンス集計を TTL 付きで保持します。
// compliance.SummaryCache と shared.Invalidator を満たします。
type SummaryCache struct {
	client *goredis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewSummaryCache は SummaryCache を生成します。
func NewSummaryCache(client *goredis.Client, ttl time.Duration, logger *zap.Logger) *SummaryCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryCache{client: client, ttl: ttl, logger: logger}
}

// GetSummary はキャッシュ済みの集計を返します。存在しなければ ok は false です。
func (c *SummaryCache) GetSummary(ctx context.Context, organizationID string) (*compliance.Summary, bool, error) {
	raw, err := c.client.Get(ctx, summaryKey(organizationID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis: get summary: %w", err)
	}

	var summary compliance.Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		// 壊れたエントリはミスとして扱い、次回の SetSummary で上書きします。
		c.logger.Warn("discarding malformed compliance summary",
			zap.String("organization_id", organizationID),
			zap.Error(err),
		)
		return nil, false, nil
	}
	return &summary, true, nil
}

// SetSummary は集計を保存します。
func (c *SummaryCache) SetSummary(ctx context.Context, organizationID string, summary *compliance.Summary) error {
	if summary == nil {
		return nil
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("redis: encode summary: %w", err)
	}
	if err := c.client.Set(ctx, summaryKey(organizationID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set summary: %w", err)
	}
	return nil
}

// Invalidate は組織の集計を破棄します。
func (c *SummaryCache) Invalidate(ctx context.Context, organizationID string) error {
	if err := c.client.Del(ctx, summaryKey(organizationID)).Err(); err != nil {
		c.logger.Warn("failed to invalidate compliance summary",
			zap.String("organization_id", organizationID),
			zap.Error(err),
		)
		return fmt.Errorf("redis: invalidate summary: %w", err)
	}
	return nil
}

// Ping は接続を確認します。
func (c *SummaryCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func summaryKey(organizationID string) string {
	return summaryKeyPrefix + organizationID
}
