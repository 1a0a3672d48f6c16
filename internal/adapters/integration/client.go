// Package integration は外部 API (NF-e 配信、OCR、メール配信) への resty クライアントです。
package integration

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/ogurasousui/stockly/internal/platform/config"
)

const (
	retryWaitTime    = 500 * time.Millisecond
	retryMaxWaitTime = 5 * time.Second
)

// newRestClient はエンドポイント設定から resty クライアントを構築します。
// 通信エラーと 5xx のみ再試行します。
func newRestClient(cfg config.EndpointConfig) *resty.Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(retryWaitTime).
		SetRetryMaxWaitTime(retryMaxWaitTime).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Accept", "application/json")

	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}
	return client
}

// apiError は 2xx 以外の応答を表します。
type apiError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Service, e.StatusCode, e.Body)
}

func newAPIError(service string, resp *resty.Response) *apiError {
	body := resp.String()
	if len(body) > 256 {
		body = body[:256]
	}
	return &apiError{Service: service, StatusCode: resp.StatusCode(), Body: body}
}

func logCall(logger *zap.Logger, service, operation string, resp *resty.Response, err error) {
	fields := []zap.Field{
		zap.String("service", service),
		zap.String("operation", operation),
	}
	if resp != nil {
		fields = append(fields,
			zap.Int("status_code", resp.StatusCode()),
			zap.Duration("duration", resp.Time()),
		)
	}
	if err != nil {
		logger.Warn("integration call failed", append(fields, zap.Error(err))...)
		return
	}
	logger.Debug("integration call finished", fields...)
}
