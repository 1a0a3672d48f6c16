package integration

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/ogurasousui/stockly/internal/core/nfe"
	"github.com/ogurasousui/stockly/internal/platform/config"
)

const nfeServiceName = "nfe-gateway"

// NFeGateway は NF-e 配信 API のクライアントです。nfe.Gateway を満たします。
type NFeGateway struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewNFeGateway は NFeGateway を生成します。
func NewNFeGateway(cfg config.EndpointConfig, logger *zap.Logger) *NFeGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NFeGateway{http: newRestClient(cfg), logger: logger}
}

// Lookup はアクセスキーに対応する NF-e XML (nfeProc) を取得します。
func (g *NFeGateway) Lookup(ctx context.Context, accessKey string) ([]byte, error) {
	resp, err := g.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/xml").
		SetPathParam("key", accessKey).
		Get("/v1/nfe/{key}/xml")
	logCall(g.logger, nfeServiceName, "lookup", resp, err)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", nfe.ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, nfe.ErrInvoiceNotFound
	case resp.StatusCode() >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: %v", nfe.ErrGatewayUnavailable, newAPIError(nfeServiceName, resp))
	case resp.IsError():
		return nil, newAPIError(nfeServiceName, resp)
	}
	return resp.Body(), nil
}

type manifestRequest struct {
	Event string `json:"event"`
}

// Manifest は受領者の意思表示イベントを登録します。
func (g *NFeGateway) Manifest(ctx context.Context, accessKey string, event nfe.ManifestEvent) error {
	resp, err := g.http.R().
		SetContext(ctx).
		SetPathParam("key", accessKey).
		SetBody(manifestRequest{Event: string(event)}).
		Post("/v1/nfe/{key}/manifest")
	logCall(g.logger, nfeServiceName, "manifest", resp, err)
	if err != nil {
		return fmt.Errorf("%w: %v", nfe.ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nfe.ErrInvoiceNotFound
	case resp.StatusCode() >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %v", nfe.ErrGatewayUnavailable, newAPIError(nfeServiceName, resp))
	case resp.IsError():
		return newAPIError(nfeServiceName, resp)
	}
	return nil
}
