package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ogurasousui/stockly/internal/adapters/report/excel"
	"github.com/ogurasousui/stockly/internal/core/analytics"
)

const (
	dateLayout        = "2006-01-02"
	defaultABCPeriod  = 90 * 24 * time.Hour
	reportStampLayout = "20060102"
)

func (h *handler) complianceReport(c echo.Context) error {
	org := c.Param("org")
	report, err := h.deps.Compliance.Evaluate(c.Request().Context(), org)
	if err != nil {
		return err
	}
	data, err := excel.Compliance(report)
	if err != nil {
		return err
	}
	return h.attachment(c, "conformidade-epi", data)
}

func (h *handler) stockReport(c echo.Context) error {
	ctx := c.Request().Context()
	org := c.Param("org")

	products, err := h.deps.Products.Catalog(ctx, org)
	if err != nil {
		return err
	}
	locations, err := h.deps.Stock.ListLocations(ctx, org)
	if err != nil {
		return err
	}
	balances, err := h.deps.Stock.Balances(ctx, org, nil)
	if err != nil {
		return err
	}

	data, err := excel.Stock(excel.StockRows(products, locations, balances))
	if err != nil {
		return err
	}
	return h.attachment(c, "estoque", data)
}

// abcReport は from / to (YYYY-MM-DD, 両端を含む) の期間で分析します。
// 省略時は直近 90 日です。
func (h *handler) abcReport(c echo.Context) error {
	now := h.deps.Now().UTC()
	to, err := parseDateParam(c.QueryParam("to"), now)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid 'to' date, expected YYYY-MM-DD")
	}
	from, err := parseDateParam(c.QueryParam("from"), to.Add(-defaultABCPeriod))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid 'from' date, expected YYYY-MM-DD")
	}

	result, err := h.deps.Analytics.ABC(c.Request().Context(), analytics.PeriodInput{
		OrganizationID: c.Param("org"),
		From:           from,
		To:             to,
	})
	if err != nil {
		return err
	}
	data, err := excel.ABC(result)
	if err != nil {
		return err
	}
	return h.attachment(c, "curva-abc", data)
}

func (h *handler) attachment(c echo.Context, name string, data []byte) error {
	filename := fmt.Sprintf("%s-%s.xlsx", name, h.deps.Now().UTC().Format(reportStampLayout))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, excel.ContentType, data)
}

func parseDateParam(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	return time.ParseInLocation(dateLayout, raw, time.UTC)
}
