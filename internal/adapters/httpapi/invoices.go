package httpapi

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ogurasousui/stockly/internal/core/nfe"
)

type importedLineResponse struct {
	Line       int    `json:"line"`
	Code       string `json:"code"`
	EAN        string `json:"ean,omitempty"`
	ProductID  string `json:"product_id"`
	MatchedBy  string `json:"matched_by"`
	MovementID string `json:"movement_id"`
	Quantity   string `json:"quantity"`
}

type unmatchedLineResponse struct {
	Line        int    `json:"line"`
	Code        string `json:"code"`
	EAN         string `json:"ean,omitempty"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
}

type importResponse struct {
	ID          string                  `json:"id"`
	AccessKey   string                  `json:"access_key"`
	Number      string                  `json:"number"`
	Series      string                  `json:"series"`
	EmitterCNPJ string                  `json:"emitter_cnpj"`
	EmitterName string                  `json:"emitter_name"`
	BatchID     string                  `json:"batch_id"`
	LocationID  string                  `json:"location_id"`
	TotalValue  string                  `json:"total_value"`
	ImportedAt  time.Time               `json:"imported_at"`
	Imported    []importedLineResponse  `json:"imported"`
	Unmatched   []unmatchedLineResponse `json:"unmatched"`
}

// importInvoiceXML は multipart の file フィールド、または本文そのものを NF-e XML として受け付けます。
func (h *handler) importInvoiceXML(c echo.Context) error {
	locationID := strings.TrimSpace(c.QueryParam("location_id"))
	if locationID == "" {
		locationID = strings.TrimSpace(c.FormValue("location_id"))
	}
	if locationID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "location_id is required")
	}

	body, closeBody, err := xmlBody(c)
	if err != nil {
		return err
	}
	defer closeBody()

	result, err := h.deps.Invoices.ImportXML(c.Request().Context(), nfe.ImportXMLInput{
		OrganizationID: c.Param("org"),
		LocationID:     locationID,
		XML:            body,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, envelope{Success: true, Data: toImportResponse(result)})
}

func xmlBody(c echo.Context) (io.Reader, func(), error) {
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return nil, nil, err
		}
		return f, func() { _ = f.Close() }, nil
	}
	return c.Request().Body, func() {}, nil
}

func toImportResponse(result *nfe.ImportResult) importResponse {
	imp := result.Import
	resp := importResponse{
		ID:          imp.ID,
		AccessKey:   imp.AccessKey,
		Number:      imp.Number,
		Series:      imp.Series,
		EmitterCNPJ: imp.EmitterCNPJ,
		EmitterName: imp.EmitterName,
		BatchID:     imp.BatchID,
		LocationID:  imp.LocationID,
		TotalValue:  imp.TotalValue.StringFixed(2),
		ImportedAt:  imp.ImportedAt,
		Imported:    make([]importedLineResponse, 0, len(result.Imported)),
		Unmatched:   make([]unmatchedLineResponse, 0, len(result.Unmatched)),
	}
	for _, l := range result.Imported {
		resp.Imported = append(resp.Imported, importedLineResponse{
			Line:       l.Item.Line,
			Code:       l.Item.Code,
			EAN:        l.Item.EAN,
			ProductID:  l.ProductID,
			MatchedBy:  l.MatchedBy,
			MovementID: l.MovementID,
			Quantity:   l.Item.Quantity.String(),
		})
	}
	for _, it := range result.Unmatched {
		resp.Unmatched = append(resp.Unmatched, unmatchedLineResponse{
			Line:        it.Line,
			Code:        it.Code,
			EAN:         it.EAN,
			Description: it.Description,
			Quantity:    it.Quantity.String(),
		})
	}
	return resp
}
