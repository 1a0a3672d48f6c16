// Package httpapi は帳票ダウンロードと NF-e XML アップロードの HTTP 窓口です。
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/ogurasousui/stockly/internal/core/analytics"
	"github.com/ogurasousui/stockly/internal/core/compliance"
	"github.com/ogurasousui/stockly/internal/core/nfe"
	"github.com/ogurasousui/stockly/internal/core/product"
	"github.com/ogurasousui/stockly/internal/core/stock"
)

const maxUploadSize = "10M"

// ComplianceEvaluator は compliance.Service が満たします。
type ComplianceEvaluator interface {
	Evaluate(ctx context.Context, organizationID string) (*compliance.Report, error)
}

// ProductCatalog は product.Service が満たします。
type ProductCatalog interface {
	Catalog(ctx context.Context, organizationID string) ([]*product.Product, error)
}

// StockReader は stock.Service が満たします。
type StockReader interface {
	Balances(ctx context.Context, organizationID string, productID *string) ([]*stock.Balance, error)
	ListLocations(ctx context.Context, organizationID string) ([]*stock.Location, error)
}

// ABCAnalyzer は analytics.Service が満たします。
type ABCAnalyzer interface {
	ABC(ctx context.Context, in analytics.PeriodInput) (*analytics.ABCResult, error)
}

// InvoiceImporter は nfe.Service が満たします。
type InvoiceImporter interface {
	ImportXML(ctx context.Context, in nfe.ImportXMLInput) (*nfe.ImportResult, error)
}

// HealthCheck は依存先ひとつ分の疎通確認です。
type HealthCheck func(ctx context.Context) error

// Dependencies は HTTP ハンドラが使うユースケースです。
type Dependencies struct {
	Compliance ComplianceEvaluator
	Products   ProductCatalog
	Stock      StockReader
	Analytics  ABCAnalyzer
	Invoices   InvoiceImporter
	Health     map[string]HealthCheck
	Now        func() time.Time
}

type handler struct {
	deps   Dependencies
	logger *zap.Logger
}

// NewRouter はルーティングとミドルウェアを登録した echo インスタンスを返します。
func NewRouter(deps Dependencies, logger *zap.Logger) *echo.Echo {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	h := &handler{deps: deps, logger: logger}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = h.errorHandler

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				logger.Warn("http request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("http request", fields...)
			return nil
		},
	}))

	e.GET("/healthz", h.health)

	org := e.Group("/api/v1/organizations/:org")
	reports := org.Group("/reports")
	reports.GET("/compliance.xlsx", h.complianceReport)
	reports.GET("/stock.xlsx", h.stockReport)
	reports.GET("/abc.xlsx", h.abcReport)
	org.POST("/invoices/xml", h.importInvoiceXML, middleware.BodyLimit(maxUploadSize))

	return e
}

func (h *handler) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.deps.Health))
	healthy := true
	for name, check := range h.deps.Health {
		if err := check(ctx); err != nil {
			h.logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			checks[name] = "down"
			healthy = false
			continue
		}
		checks[name] = "up"
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, envelope{Success: healthy, Data: checks})
}
