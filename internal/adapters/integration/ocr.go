package integration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ogurasousui/stockly/internal/core/nfe"
	"github.com/ogurasousui/stockly/internal/platform/config"
	"github.com/ogurasousui/stockly/internal/platform/format"
)

const ocrServiceName = "ocr"

// OCRClient は DANFE 画像を読み取るビジョン API のクライアントです。nfe.OCR を満たします。
type OCRClient struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewOCRClient は OCRClient を生成します。
func NewOCRClient(cfg config.EndpointConfig, logger *zap.Logger) *OCRClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OCRClient{http: newRestClient(cfg), logger: logger}
}

type danfeResponse struct {
	AccessKey   string           `json:"access_key"`
	Number      string           `json:"number"`
	Series      string           `json:"series"`
	EmitterCNPJ string           `json:"emitter_cnpj"`
	EmitterName string           `json:"emitter_name"`
	IssuedAt    string           `json:"issued_at"`
	TotalValue  *decimal.Decimal `json:"total_value"`
	Confidence  float64          `json:"confidence"`
}

// ExtractFromDANFE は画像を送信し、読み取れたヘッダ項目を返します。
// アクセスキーは数字以外を除去して返します。検証は呼び出し側で行います。
func (c *OCRClient) ExtractFromDANFE(ctx context.Context, image []byte, contentType string) (*nfe.DANFEExtraction, error) {
	var body danfeResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(image).
		SetResult(&body).
		Post("/v1/danfe/extract")
	logCall(c.logger, ocrServiceName, "extract_danfe", resp, err)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", nfe.ErrGatewayUnavailable, err)
	}
	if resp.IsError() {
		apiErr := newAPIError(ocrServiceName, resp)
		if resp.StatusCode() >= 500 {
			return nil, fmt.Errorf("%w: %v", nfe.ErrGatewayUnavailable, apiErr)
		}
		return nil, apiErr
	}

	extraction := &nfe.DANFEExtraction{
		AccessKey:   format.OnlyDigits(body.AccessKey),
		Number:      strings.TrimSpace(body.Number),
		Series:      strings.TrimSpace(body.Series),
		EmitterCNPJ: format.OnlyDigits(body.EmitterCNPJ),
		EmitterName: strings.TrimSpace(body.EmitterName),
		IssuedAt:    parseIssuedAt(body.IssuedAt),
		TotalValue:  body.TotalValue,
		Confidence:  body.Confidence,
	}
	return extraction, nil
}

func parseIssuedAt(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}
