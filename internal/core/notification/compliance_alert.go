package notification

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/ogurasousui/stockly/internal/core/compliance"
)

const complianceAlertTag = "compliance-alert"

var complianceAlertTemplate = template.Must(template.New("compliance_alert").Funcs(template.FuncMap{
	"join":    strings.Join,
	"percent": func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"date":    func(t time.Time) string { return t.UTC().Format("02/01/2006 15:04") },
}).Parse(`Relatório de conformidade de EPI
Avaliado em: {{ date .EvaluatedAt }} (UTC)

Colaboradores avaliados: {{ .Summary.TotalEmployees }}
Em conformidade: {{ .Summary.CompliantEmployees }}
Pendentes: {{ .Summary.NonCompliantEmployees }}
Conformidade geral: {{ percent .Summary.OverallComplianceRate }}

Colaboradores com pendências:
{{ range .NonCompliant }}
- {{ .EmployeeName }}{{ if .Department }} ({{ .Department }}{{ if .Position }} / {{ .Position }}{{ end }}){{ end }}
{{- if .MissingCategories }}
    Sem entrega: {{ join .MissingCategories ", " }}
{{- end }}
{{- if .ExpiredCategories }}
    Vencidos: {{ join .ExpiredCategories ", " }}
{{- end }}
{{ end }}`))

// ComplianceNotifier は未充足通知をメールとして送ります。compliance.AlertSender を満たします。
type ComplianceNotifier struct {
	mailer Mailer
}

// NewComplianceNotifier は ComplianceNotifier を生成します。
func NewComplianceNotifier(mailer Mailer) *ComplianceNotifier {
	return &ComplianceNotifier{mailer: mailer}
}

// SendComplianceAlert は通知を描画して送信します。
func (n *ComplianceNotifier) SendComplianceAlert(ctx context.Context, alert compliance.Alert) error {
	msg, err := RenderComplianceAlert(alert)
	if err != nil {
		return err
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("notification: send compliance alert: %w", err)
	}
	return nil
}

// RenderComplianceAlert は未充足の社員と不足・期限切れのカテゴリを列挙したメッセージを作ります。
func RenderComplianceAlert(alert compliance.Alert) (Message, error) {
	var body bytes.Buffer
	if err := complianceAlertTemplate.Execute(&body, alert); err != nil {
		return Message{}, fmt.Errorf("notification: render compliance alert: %w", err)
	}

	subject := fmt.Sprintf("[Stockly] %d colaborador(es) com EPI pendente", len(alert.NonCompliant))
	return Message{
		To:      alert.Recipients,
		Subject: subject,
		Text:    body.String(),
		Tags:    []string{complianceAlertTag, alert.OrganizationID},
	}, nil
}
