package compliance

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/ogurasousui/stockly/internal/core/shared"
)

// Sources は判定用スナップショットの読み込み元です。
type Sources struct {
	Employees    EmployeeSource
	EPIs         EPISource
	Requirements RequirementSource
	Deliveries   DeliverySource
}

// Service はコンプライアンス判定のユースケースをまとめます。
type Service struct {
	sources Sources
	clock   shared.Clock
	tx      SnapshotTransactor
	cache   SummaryCache
	alerts  AlertSender
}

// UseCase はコンプライアンスユースケースの公開インターフェースです。
type UseCase interface {
	Evaluate(ctx context.Context, organizationID string) (*Report, error)
	Summary(ctx context.Context, organizationID string) (*Summary, error)
	EmployeeStatus(ctx context.Context, organizationID, employeeID string) (*EmployeeStatus, error)
	NotifyNonCompliant(ctx context.Context, in NotifyInput) (int, error)
}

// NewService は Service を生成します。cache と alerts は nil を許容します。
func NewService(sources Sources, clock shared.Clock, tx SnapshotTransactor, cache SummaryCache, alerts AlertSender) *Service {
	if clock == nil {
		clock = shared.RealClock{}
	}
	if tx == nil {
		tx = directSnapshot{}
	}
	return &Service{sources: sources, clock: clock, tx: tx, cache: cache, alerts: alerts}
}

// NotifyInput は未充足通知の入力です。
type NotifyInput struct {
	OrganizationID string
	Recipients     []string
}

// Evaluate は組織のスナップショットを読み込み、全在籍社員を判定します。
// 4 種類のデータは同じ repeatable read トランザクションで読むため、読み取りスキューは起きません。
func (s *Service) Evaluate(ctx context.Context, organizationID string) (*Report, error) {
	orgID, err := shared.NormalizeOrganizationID(organizationID)
	if err != nil {
		return nil, err
	}

	var in Input
	if err := s.tx.WithinSnapshot(ctx, func(txCtx context.Context) error {
		employees, err := s.sources.Employees.ListActive(txCtx, orgID)
		if err != nil {
			return err
		}
		epis, err := s.sources.EPIs.ListAll(txCtx, orgID)
		if err != nil {
			return err
		}
		requirements, err := s.sources.Requirements.List(txCtx, orgID)
		if err != nil {
			return err
		}
		deliveries, err := s.sources.Deliveries.ListInUse(txCtx, orgID)
		if err != nil {
			return err
		}
		in = Input{Employees: employees, EPIs: epis, Requirements: requirements, Deliveries: deliveries}
		return nil
	}); err != nil {
		return nil, err
	}

	report := Resolve(in, s.clock.Now())
	report.OrganizationID = orgID
	return report, nil
}

// Summary は集計を返します。キャッシュがあればそれを使い、なければ判定して格納します。
// 期限到来による状態変化は書き込みを伴わないため、キャッシュ済みの集計は最大で TTL の間だけ古い値になり得ます。
func (s *Service) Summary(ctx context.Context, organizationID string) (*Summary, error) {
	orgID, err := shared.NormalizeOrganizationID(organizationID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cached, ok, err := s.cache.GetSummary(ctx, orgID); err == nil && ok {
			return cached, nil
		}
	}

	report, err := s.Evaluate(ctx, orgID)
	if err != nil {
		return nil, err
	}

	summary := report.Summary
	if s.cache != nil {
		// キャッシュ書き込みの失敗は判定結果に影響させません。
		_ = s.cache.SetSummary(ctx, orgID, &summary)
	}
	return &summary, nil
}

// EmployeeStatus は社員ひとり分の判定結果を返します。
func (s *Service) EmployeeStatus(ctx context.Context, organizationID, employeeID string) (*EmployeeStatus, error) {
	id := strings.TrimSpace(employeeID)
	if id == "" {
		return nil, ErrEmployeeNotEvaluated
	}

	report, err := s.Evaluate(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	for i := range report.Statuses {
		if report.Statuses[i].EmployeeID == id {
			st := report.Statuses[i]
			return &st, nil
		}
	}
	return nil, ErrEmployeeNotEvaluated
}

// NotifyNonCompliant は未充足の社員一覧を通知し、通知対象の人数を返します。
// 未充足者がいない場合は送信しません。
func (s *Service) NotifyNonCompliant(ctx context.Context, in NotifyInput) (int, error) {
	if s.alerts == nil {
		return 0, ErrAlertsDisabled
	}

	recipients, err := normalizeRecipients(in.Recipients)
	if err != nil {
		return 0, err
	}

	report, err := s.Evaluate(ctx, in.OrganizationID)
	if err != nil {
		return 0, err
	}
	if len(report.NonCompliant) == 0 {
		return 0, nil
	}

	if err := s.alerts.SendComplianceAlert(ctx, Alert{
		OrganizationID: report.OrganizationID,
		Recipients:     recipients,
		EvaluatedAt:    report.EvaluatedAt,
		Summary:        report.Summary,
		NonCompliant:   report.NonCompliant,
	}); err != nil {
		return 0, err
	}
	return len(report.NonCompliant), nil
}

func normalizeRecipients(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		trimmed := strings.TrimSpace(r)
		if trimmed == "" {
			continue
		}
		addr, err := mail.ParseAddress(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", trimmed, ErrInvalidRecipient)
		}
		email := strings.ToLower(addr.Address)
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	if len(out) == 0 {
		return nil, ErrNoRecipients
	}
	return out, nil
}

type directSnapshot struct{}

func (directSnapshot) WithinSnapshot(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}
