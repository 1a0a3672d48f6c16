package integration

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/ogurasousui/stockly/internal/core/notification"
	"github.com/ogurasousui/stockly/internal/platform/config"
)

const emailServiceName = "email"

// Mailer はトランザクションメール API のクライアントです。notification.Mailer を満たします。
type Mailer struct {
	http   *resty.Client
	from   string
	logger *zap.Logger
}

// NewMailer は Mailer を生成します。
func NewMailer(cfg config.EmailConfig, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{http: newRestClient(cfg.EndpointConfig), from: cfg.From, logger: logger}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
	Tags    []string `json:"tags,omitempty"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// Send はメッセージを検証して送信します。
func (m *Mailer) Send(ctx context.Context, msg notification.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	var result sendResponse
	resp, err := m.http.R().
		SetContext(ctx).
		SetBody(sendRequest{
			From:    m.from,
			To:      msg.To,
			Subject: msg.Subject,
			Text:    msg.Text,
			Tags:    msg.Tags,
		}).
		SetResult(&result).
		Post("/v1/messages")
	logCall(m.logger, emailServiceName, "send", resp, err)
	if err != nil {
		return fmt.Errorf("email: send: %w", err)
	}
	if resp.IsError() {
		return newAPIError(emailServiceName, resp)
	}

	m.logger.Info("email sent",
		zap.String("message_id", result.ID),
		zap.Int("recipients", len(msg.To)),
	)
	return nil
}
