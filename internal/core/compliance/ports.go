package compliance

import (
	"context"
	"time"

	"github.com/ogurasousui/stockly/internal/core/employee"
	"github.com/ogurasousui/stockly/internal/core/epi"
)

// EmployeeSource は在籍中の社員を読み込みます。
type EmployeeSource interface {
	ListActive(ctx context.Context, organizationID string) ([]*employee.Employee, error)
}

// EPISource は EPI 種別を全件読み込みます。
type EPISource interface {
	ListAll(ctx context.Context, organizationID string) ([]*epi.EPI, error)
}

// RequirementSource は EPI 要件を全件読み込みます。
type RequirementSource interface {
	List(ctx context.Context, organizationID string) ([]*epi.Requirement, error)
}

// DeliverySource は使用中の支給記録を読み込みます。
type DeliverySource interface {
	ListInUse(ctx context.Context, organizationID string) ([]*epi.Delivery, error)
}

// SnapshotTransactor は一貫したスナップショットで fn を実行します。
type SnapshotTransactor interface {
	WithinSnapshot(ctx context.Context, fn func(context.Context) error) error
}

// SummaryCache は組織ごとの集計結果をキャッシュします。
type SummaryCache interface {
	GetSummary(ctx context.Context, organizationID string) (*Summary, bool, error)
	SetSummary(ctx context.Context, organizationID string, summary *Summary) error
}

// Alert は未充足社員の通知内容です。
type Alert struct {
	OrganizationID string
	Recipients     []string
	EvaluatedAt    time.Time
	Summary        Summary
	NonCompliant   []EmployeeStatus
}

// AlertSender は未充足通知を配信します。
type AlertSender interface {
	SendComplianceAlert(ctx context.Context, alert Alert) error
}
