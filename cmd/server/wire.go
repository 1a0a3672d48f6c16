package main

import (
	"context"

	goredis "github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	rediscache "github.com/ogurasousui/stockly/internal/adapters/cache/redis"
	"github.com/ogurasousui/stockly/internal/adapters/grpc/handler"
	"github.com/ogurasousui/stockly/internal/adapters/httpapi"
	"github.com/ogurasousui/stockly/internal/adapters/integration"
	"github.com/ogurasousui/stockly/internal/adapters/repository/postgres"
	"github.com/ogurasousui/stockly/internal/core/analytics"
	"github.com/ogurasousui/stockly/internal/core/compliance"
	"github.com/ogurasousui/stockly/internal/core/employee"
	"github.com/ogurasousui/stockly/internal/core/epi"
	"github.com/ogurasousui/stockly/internal/core/nfe"
	"github.com/ogurasousui/stockly/internal/core/notification"
	"github.com/ogurasousui/stockly/internal/core/organization"
	"github.com/ogurasousui/stockly/internal/core/product"
	"github.com/ogurasousui/stockly/internal/core/purchasing"
	"github.com/ogurasousui/stockly/internal/core/shared"
	"github.com/ogurasousui/stockly/internal/core/stock"
	"github.com/ogurasousui/stockly/internal/core/supplier"
	"github.com/ogurasousui/stockly/internal/core/user"
	"github.com/ogurasousui/stockly/internal/platform/config"
	pg "github.com/ogurasousui/stockly/internal/platform/db/postgres"
)

// application は起動時に組み立てたサービスとアダプタの集合です。
type application struct {
	logger     *zap.Logger
	pool       *pgxpool.Pool
	redis      *goredis.Client
	cache      *rediscache.SummaryCache
	registrars []handler.Registrar

	compliance *compliance.Service
	products   *product.Service
	stock      *stock.Service
	analytics  *analytics.Service
	invoices   *nfe.Service
}

func wire(cfg *config.Config, pool *pgxpool.Pool, zl *zap.Logger) *application {
	tx := pg.NewTransactionManager(pool)
	clock := shared.RealClock{}

	redisClient := rediscache.NewClient(cfg.Redis)
	cache := rediscache.NewSummaryCache(redisClient, cfg.Redis.ComplianceTTL, zl)

	organizationRepo := postgres.NewOrganizationRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	employeeRepo := postgres.NewEmployeeRepository(pool)
	epiRepo := postgres.NewEPIRepository(pool)
	requirementRepo := postgres.NewRequirementRepository(pool)
	deliveryRepo := postgres.NewDeliveryRepository(pool)
	termRepo := postgres.NewTermRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	locationRepo := postgres.NewLocationRepository(pool)
	movementRepo := postgres.NewMovementRepository(pool)
	balanceRepo := postgres.NewBalanceRepository(pool)
	supplierRepo := postgres.NewSupplierRepository(pool)
	evaluationRepo := postgres.NewEvaluationRepository(pool)
	performanceRepo := postgres.NewPerformanceRepository(pool)
	orderRepo := postgres.NewPurchaseOrderRepository(pool)
	importRepo := postgres.NewNFeImportRepository(pool)

	organizationSvc := organization.NewService(organizationRepo, clock, tx)
	userSvc := user.NewService(userRepo, clock, tx)
	employeeSvc := employee.NewService(employeeRepo, clock, tx, cache)
	epiSvc := epi.NewService(epi.Repositories{
		EPIs:         epiRepo,
		Requirements: requirementRepo,
		Deliveries:   deliveryRepo,
		Terms:        termRepo,
		Employees:    employeeRepo,
	}, clock, tx, cache)

	var alerts compliance.AlertSender
	if cfg.Integrations.Email.Enabled() {
		alerts = notification.NewComplianceNotifier(integration.NewMailer(cfg.Integrations.Email, zl))
	} else {
		zl.Warn("email integration is not configured; compliance alerts are disabled")
	}
	complianceSvc := compliance.NewService(compliance.Sources{
		Employees:    employeeRepo,
		EPIs:         epiRepo,
		Requirements: requirementRepo,
		Deliveries:   deliveryRepo,
	}, clock, tx, cache, alerts)

	productSvc := product.NewService(productRepo, clock, tx)
	stockSvc := stock.NewService(stock.Repositories{
		Locations: locationRepo,
		Movements: movementRepo,
		Balances:  balanceRepo,
		Products:  productRepo,
	}, clock, tx)
	supplierSvc := supplier.NewService(supplier.Repositories{
		Suppliers:    supplierRepo,
		Evaluations:  evaluationRepo,
		Performances: performanceRepo,
	}, clock, tx)
	purchasingSvc := purchasing.NewService(purchasing.Dependencies{
		Orders:       orderRepo,
		Suppliers:    supplierRepo,
		Stock:        stockSvc,
		EPIStock:     epiSvc,
		Performances: supplierSvc,
	}, clock, tx)
	analyticsSvc := analytics.NewService(analytics.Sources{
		Movements: movementRepo,
		Products:  productRepo,
		Balances:  balanceRepo,
	}, tx)

	deps := nfe.Dependencies{
		Imports:  importRepo,
		Products: productRepo,
		Stock:    stockSvc,
	}
	if cfg.Integrations.NFe.Enabled() {
		deps.Gateway = integration.NewNFeGateway(cfg.Integrations.NFe, zl)
	}
	if cfg.Integrations.OCR.Enabled() {
		deps.OCR = integration.NewOCRClient(cfg.Integrations.OCR, zl)
	}
	invoiceSvc := nfe.NewService(deps, clock, tx)

	return &application{
		logger: zl,
		pool:   pool,
		redis:  redisClient,
		cache:  cache,
		registrars: []handler.Registrar{
			handler.NewOrganizationHandler(organizationSvc),
			handler.NewUserHandler(userSvc),
			handler.NewEmployeeHandler(employeeSvc),
			handler.NewEPIHandler(epiSvc),
			handler.NewComplianceHandler(complianceSvc),
			handler.NewProductHandler(productSvc),
			handler.NewStockHandler(stockSvc),
			handler.NewSupplierHandler(supplierSvc),
			handler.NewPurchasingHandler(purchasingSvc),
			handler.NewAnalyticsHandler(analyticsSvc),
			handler.NewInvoiceHandler(invoiceSvc),
		},
		compliance: complianceSvc,
		products:   productSvc,
		stock:      stockSvc,
		analytics:  analyticsSvc,
		invoices:   invoiceSvc,
	}
}

func (a *application) router() *echo.Echo {
	return httpapi.NewRouter(httpapi.Dependencies{
		Compliance: a.compliance,
		Products:   a.products,
		Stock:      a.stock,
		Analytics:  a.analytics,
		Invoices:   a.invoices,
		Health: map[string]httpapi.HealthCheck{
			"postgres": func(ctx context.Context) error { return a.pool.Ping(ctx) },
			"redis":    a.cache.Ping,
		},
	}, a.logger)
}
