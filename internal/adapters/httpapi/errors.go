package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ogurasousui/stockly/internal/core/analytics"
	"github.com/ogurasousui/stockly/internal/core/nfe"
	"github.com/ogurasousui/stockly/internal/core/product"
	"github.com/ogurasousui/stockly/internal/core/shared"
	"github.com/ogurasousui/stockly/internal/core/stock"
)

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrInvalidOrganizationID),
		errors.Is(err, analytics.ErrInvalidPeriod),
		errors.Is(err, nfe.ErrInvalidXML),
		errors.Is(err, nfe.ErrInvalidAccessKey),
		errors.Is(err, nfe.ErrInvalidLocation),
		errors.Is(err, stock.ErrInvalidQuantity),
		errors.Is(err, stock.ErrInvalidUnitCost):
		return http.StatusBadRequest
	case errors.Is(err, stock.ErrLocationNotFound),
		errors.Is(err, product.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, nfe.ErrAlreadyImported):
		return http.StatusConflict
	case errors.Is(err, stock.ErrProductInactive):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// errorHandler はすべてのエラーを {"success":false,"error":...} で返します。
// 500 の場合は内部のメッセージを隠します。
func (h *handler) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := statusFor(err)
	message := err.Error()

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if msg, ok := he.Message.(string); ok {
			message = msg
		} else {
			message = http.StatusText(code)
		}
	}

	if code >= http.StatusInternalServerError {
		h.logger.Error("http handler error", zap.String("path", c.Path()), zap.Error(err))
		message = http.StatusText(code)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, envelope{Success: false, Error: message})
	}
	if err != nil {
		h.logger.Warn("write error response", zap.Error(err))
	}
}
