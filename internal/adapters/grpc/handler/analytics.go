package handler

import (
	"context"

	"google.golang.org/grpc"

	"github.com/ogurasousui/stockly/internal/core/analytics"
)

// AnalyticsHandler は stockly.v1.AnalyticsService の gRPC 実装です。
type AnalyticsHandler struct {
	svc analytics.UseCase
}

// NewAnalyticsHandler は AnalyticsHandler を生成します。
func NewAnalyticsHandler(svc analytics.UseCase) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// Register は AnalyticsService を登録します。
func (h *AnalyticsHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(newServiceDesc("AnalyticsService", map[string]unaryMethod{
		"ABC":      h.abc,
		"Forecast": h.forecast,
		"Turnover": h.turnover,
	}), h)
}

func (h *AnalyticsHandler) abc(ctx context.Context, req *request) (object, error) {
	in := analytics.PeriodInput{
		OrganizationID: req.str("organization_id"),
		From:           req.timestamp("from"),
		To:             req.timestamp("to"),
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	result, err := h.svc.ABC(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{
		"total_value": decValue(result.TotalValue),
		"items": listValue(result.Items, func(it *analytics.ABCItem) object {
			return object{
				"product_id":       it.ProductID,
				"sku":              it.SKU,
				"name":             it.Name,
				"quantity":         decValue(it.Quantity),
				"value":            decValue(it.Value),
				"share":            it.Share,
				"cumulative_share": it.CumulativeShare,
				"class":            string(it.Class),
			}
		}),
		"classes": listValue(result.Classes, func(c analytics.ClassSummary) object {
			return object{
				"class": string(c.Class),
				"count": c.Count,
				"value": decValue(c.Value),
				"share": c.Share,
			}
		}),
	}, nil
}

func (h *AnalyticsHandler) forecast(ctx context.Context, req *request) (object, error) {
	in := analytics.ForecastInput{
		OrganizationID: req.str("organization_id"),
		ProductID:      req.str("product_id"),
		From:           req.timestamp("from"),
		To:             req.timestamp("to"),
		Periods:        req.integer("periods"),
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	f, err := h.svc.Forecast(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{
		"history":   listValue(f.History, periodObject),
		"slope":     f.Slope,
		"intercept": f.Intercept,
		"values":    listValue(f.Values, periodObject),
	}, nil
}

func (h *AnalyticsHandler) turnover(ctx context.Context, req *request) (object, error) {
	in := analytics.TurnoverInput{
		OrganizationID: req.str("organization_id"),
		ProductID:      req.optStr("product_id"),
		From:           req.timestamp("from"),
		To:             req.timestamp("to"),
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	items, err := h.svc.Turnover(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"items": listValue(items, func(t *analytics.Turnover) object {
		var coverage interface{}
		if t.CoverageDays != nil {
			coverage = *t.CoverageDays
		}
		return object{
			"product_id":                t.ProductID,
			"consumed":                  decValue(t.Consumed),
			"average_stock":             decValue(t.AverageStock),
			"current_stock":             decValue(t.CurrentStock),
			"rate":                      t.Rate,
			"average_daily_consumption": t.AverageDailyConsumption,
			"coverage_days":             coverage,
		}
	})}, nil
}

func periodObject(p analytics.Period) object {
	return object{
		"month":    p.Start.UTC().Format("2006-01"),
		"quantity": p.Quantity,
	}
}
