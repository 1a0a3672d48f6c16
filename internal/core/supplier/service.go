package supplier

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ogurasousui/stockly/internal/core/shared"
	"github.com/ogurasousui/stockly/internal/platform/format"
)

// Repositories は仕入先ユースケースの永続化ポートです。
type Repositories struct {
	Suppliers    Repository
	Evaluations  EvaluationRepository
	Performances PerformanceRepository
}

// Service は仕入先と評価のユースケースをまとめます。
type Service struct {
	suppliers    Repository
	evaluations  EvaluationRepository
	performances PerformanceRepository
	clock        shared.Clock
	tx           shared.TransactionManager
}

// UseCase は仕入先ユースケースの公開インターフェースです。
type UseCase interface {
	CreateSupplier(ctx context.Context, in CreateSupplierInput) (*Supplier, error)
	GetSupplier(ctx context.Context, in GetSupplierInput) (*Supplier, error)
	ListSuppliers(ctx context.Context, in ListSuppliersInput) (*ListSuppliersResult, error)
	UpdateSupplier(ctx context.Context, in UpdateSupplierInput) (*Supplier, error)
	DeleteSupplier(ctx context.Context, in DeleteSupplierInput) error
	Evaluate(ctx context.Context, in EvaluateInput) (*Evaluation, error)
	RecordPerformance(ctx context.Context, in RecordPerformanceInput) (*Performance, error)
	Scorecard(ctx context.Context, in GetSupplierInput) (*Scorecard, error)
}

// NewService は Service を生成します。
func NewService(repos Repositories, clock shared.Clock, tx shared.TransactionManager) *Service {
	if clock == nil {
		clock = shared.RealClock{}
	}
	if tx == nil {
		tx = shared.NoopTransactionManager{}
	}
	return &Service{
		suppliers:    repos.Suppliers,
		evaluations:  repos.Evaluations,
		performances: repos.Performances,
		clock:        clock,
		tx:           tx,
	}
}

// CreateSupplierInput は仕入先登録の入力です。
type CreateSupplierInput struct {
	OrganizationID string
	Name           string
	CNPJ           string
	Email          *string
	Phone          *string
}

// UpdateSupplierInput は仕入先更新の入力です。
type UpdateSupplierInput struct {
	OrganizationID string
	ID             string
	Name           *string
	CNPJ           *string
	Email          *string
	Phone          *string
	Status         *Status
}

// GetSupplierInput は仕入先取得の入力です。
type GetSupplierInput struct {
	OrganizationID string
	ID             string
}

// DeleteSupplierInput は仕入先削除の入力です。
type DeleteSupplierInput struct {
	OrganizationID string
	ID             string
}

// ListSuppliersInput は仕入先一覧の入力です。
type ListSuppliersInput struct {
	OrganizationID string
	Status         *Status
	PageSize       int
	PageToken      string
}

// ListSuppliersResult は仕入先一覧の結果です。
type ListSuppliersResult struct {
	Suppliers     []*Supplier
	NextPageToken string
}

// EvaluateInput は仕入先評価の入力です。
type EvaluateInput struct {
	OrganizationID string
	SupplierID     string
	Quality        int
	Delivery       int
	Price          int
	Service        int
	Comment        *string
}

// RecordPerformanceInput は納入実績記録の入力です。
type RecordPerformanceInput struct {
	OrganizationID   string
	SupplierID       string
	PurchaseOrderID  string
	ExpectedDate     *time.Time
	ReceivedDate     time.Time
	OrderedQuantity  decimal.Decimal
	ReceivedQuantity decimal.Decimal
}

// CreateSupplier は仕入先を登録します。
func (s *Service) CreateSupplier(ctx context.Context, in CreateSupplierInput) (*Supplier, error) {
	orgID, err := shared.NormalizeOrganizationID(in.OrganizationID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrInvalidName
	}
	cnpj, err := normalizeCNPJ(in.CNPJ)
	if err != nil {
		return nil, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	phone, err := normalizePhone(in.Phone)
	if err != nil {
		return nil, err
	}

	var created *Supplier
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensureCNPJNotExists(txCtx, orgID, cnpj); err != nil {
			return err
		}
		now := s.clock.Now()
		result, err := s.suppliers.Create(txCtx, &Supplier{
			OrganizationID: orgID,
			Name:           name,
			CNPJ:           cnpj,
			Email:          email,
			Phone:          phone,
			Status:         StatusActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateSupplier は仕入先を更新します。
func (s *Service) UpdateSupplier(ctx context.Context, in UpdateSupplierInput) (*Supplier, error) {
	orgID, id, err := normalizeKeys(in.OrganizationID, in.ID)
	if err != nil {
		return nil, err
	}

	var updated *Supplier
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.suppliers.FindByID(txCtx, orgID, id)
		if err != nil {
			return err
		}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return ErrInvalidName
			}
			existing.Name = name
		}
		if in.CNPJ != nil {
			cnpj, err := normalizeCNPJ(*in.CNPJ)
			if err != nil {
				return err
			}
			if cnpj != existing.CNPJ {
				if err := s.ensureCNPJNotExists(txCtx, orgID, cnpj); err != nil {
					return err
				}
				existing.CNPJ = cnpj
			}
		}
		if in.Email != nil {
			email, err := normalizeEmail(in.Email)
			if err != nil {
				return err
			}
			existing.Email = email
		}
		if in.Phone != nil {
			phone, err := normalizePhone(in.Phone)
			if err != nil {
				return err
			}
			existing.Phone = phone
		}
		if in.Status != nil {
			if !isValidStatus(*in.Status) {
				return ErrInvalidStatus
			}
			existing.Status = *in.Status
		}
		existing.UpdatedAt = s.clock.Now()

		result, err := s.suppliers.Update(txCtx, existing)
		if err != nil {
			return err
		}
		updated = result
		return nil
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

// GetSupplier は仕入先を取得します。
func (s *Service) GetSupplier(ctx context.Context, in GetSupplierInput) (*Supplier, error) {
	orgID, id, err := normalizeKeys(in.OrganizationID, in.ID)
	if err != nil {
		return nil, err
	}

	var found *Supplier
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.suppliers.FindByID(txCtx, orgID, id)
		if err != nil {
			return err
		}
		found = result
		return nil
	}); err != nil {
		return nil, err
	}
	return found, nil
}

// DeleteSupplier は仕入先を削除します。
func (s *Service) DeleteSupplier(ctx context.Context, in DeleteSupplierInput) error {
	orgID, id, err := normalizeKeys(in.OrganizationID, in.ID)
	if err != nil {
		return err
	}
	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.suppliers.Delete(txCtx, orgID, id)
	})
}

// ListSuppliers は仕入先一覧を取得します。
func (s *Service) ListSuppliers(ctx context.Context, in ListSuppliersInput) (*ListSuppliersResult, error) {
	orgID, err := shared.NormalizeOrganizationID(in.OrganizationID)
	if err != nil {
		return nil, err
	}
	limit, err := shared.NormalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}
	offset, err := shared.ParsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}
	if in.Status != nil && !isValidStatus(*in.Status) {
		return nil, ErrInvalidStatus
	}

	result := &ListSuppliersResult{}
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		suppliers, token, err := s.suppliers.List(txCtx, ListSuppliersFilter{
			OrganizationID: orgID,
			Status:         in.Status,
			Limit:          limit,
			Offset:         offset,
		})
		if err != nil {
			return err
		}
		result.Suppliers = suppliers
		result.NextPageToken = token
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// Evaluate は仕入先の評価を登録します。
func (s *Service) Evaluate(ctx context.Context, in EvaluateInput) (*Evaluation, error) {
	orgID, supplierID, err := normalizeKeys(in.OrganizationID, in.SupplierID)
	if err != nil {
		return nil, err
	}
	for _, score := range []int{in.Quality, in.Delivery, in.Price, in.Service} {
		if score < 1 || score > 5 {
			return nil, ErrInvalidScore
		}
	}

	var created *Evaluation
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if _, err := s.suppliers.FindByID(txCtx, orgID, supplierID); err != nil {
			return err
		}
		result, err := s.evaluations.Create(txCtx, &Evaluation{
			OrganizationID: orgID,
			SupplierID:     supplierID,
			Quality:        in.Quality,
			Delivery:       in.Delivery,
			Price:          in.Price,
			Service:        in.Service,
			Comment:        shared.NormalizeOptionalString(in.Comment),
			EvaluatedAt:    s.clock.Now(),
		})
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}
	return created, nil
}

// RecordPerformance は納入実績を記録します。受領日が予定日以前であれば期日内です。
func (s *Service) RecordPerformance(ctx context.Context, in RecordPerformanceInput) (*Performance, error) {
	orgID, supplierID, err := normalizeKeys(in.OrganizationID, in.SupplierID)
	if err != nil {
		return nil, err
	}
	orderID := strings.TrimSpace(in.PurchaseOrderID)
	if orderID == "" {
		return nil, fmt.Errorf("purchase order id: %w", ErrInvalidID)
	}
	if in.OrderedQuantity.IsNegative() || in.ReceivedQuantity.IsNegative() {
		return nil, ErrInvalidQuantity
	}

	received := shared.TruncateDate(&in.ReceivedDate)
	expected := shared.TruncateDate(in.ExpectedDate)

	var created *Performance
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if _, err := s.suppliers.FindByID(txCtx, orgID, supplierID); err != nil {
			return err
		}
		result, err := s.performances.Create(txCtx, &Performance{
			OrganizationID:   orgID,
			SupplierID:       supplierID,
			PurchaseOrderID:  orderID,
			ExpectedDate:     expected,
			ReceivedDate:     *received,
			OnTime:           expected == nil || !received.After(*expected),
			OrderedQuantity:  in.OrderedQuantity,
			ReceivedQuantity: in.ReceivedQuantity,
			CreatedAt:        s.clock.Now(),
		})
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}
	return created, nil
}

// Scorecard は評価と納入実績を集計します。
func (s *Service) Scorecard(ctx context.Context, in GetSupplierInput) (*Scorecard, error) {
	orgID, supplierID, err := normalizeKeys(in.OrganizationID, in.ID)
	if err != nil {
		return nil, err
	}

	var card *Scorecard
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		if _, err := s.suppliers.FindByID(txCtx, orgID, supplierID); err != nil {
			return err
		}
		evaluations, err := s.evaluations.ListBySupplier(txCtx, orgID, supplierID)
		if err != nil {
			return err
		}
		performances, err := s.performances.ListBySupplier(txCtx, orgID, supplierID)
		if err != nil {
			return err
		}
		card = BuildScorecard(supplierID, evaluations, performances)
		return nil
	}); err != nil {
		return nil, err
	}
	return card, nil
}

// BuildScorecard は評価と納入実績から Scorecard を組み立てます。
// 納入実績がない場合の期日内率と充足率は 0 です。
func BuildScorecard(supplierID string, evaluations []*Evaluation, performances []*Performance) *Scorecard {
	card := &Scorecard{SupplierID: supplierID}

	var quality, delivery, price, service int
	for _, e := range evaluations {
		card.EvaluationCount++
		quality += e.Quality
		delivery += e.Delivery
		price += e.Price
		service += e.Service
		if card.LastEvaluatedAt == nil || e.EvaluatedAt.After(*card.LastEvaluatedAt) {
			at := e.EvaluatedAt
			card.LastEvaluatedAt = &at
		}
	}
	if n := float64(card.EvaluationCount); n > 0 {
		card.AverageQuality = float64(quality) / n
		card.AverageDelivery = float64(delivery) / n
		card.AveragePrice = float64(price) / n
		card.AverageService = float64(service) / n
		card.OverallAverage = (card.AverageQuality + card.AverageDelivery + card.AveragePrice + card.AverageService) / 4
	}

	onTime := 0
	ordered := decimal.Zero
	received := decimal.Zero
	for _, p := range performances {
		card.DeliveryCount++
		if p.OnTime {
			onTime++
		}
		ordered = ordered.Add(p.OrderedQuantity)
		received = received.Add(p.ReceivedQuantity)
		if card.LastDeliveryDate == nil || p.ReceivedDate.After(*card.LastDeliveryDate) {
			at := p.ReceivedDate
			card.LastDeliveryDate = &at
		}
	}
	if card.DeliveryCount > 0 {
		card.OnTimeRate = float64(onTime) / float64(card.DeliveryCount) * 100
	}
	if ordered.IsPositive() {
		rate := received.Div(ordered).Mul(decimal.NewFromInt(100))
		if rate.GreaterThan(decimal.NewFromInt(100)) {
			rate = decimal.NewFromInt(100)
		}
		card.FillRate = rate.InexactFloat64()
	}
	return card
}

func (s *Service) ensureCNPJNotExists(ctx context.Context, orgID, cnpj string) error {
	existing, err := s.suppliers.FindByCNPJ(ctx, orgID, cnpj)
	if err != nil && !errors.Is(err, ErrSupplierNotFound) {
		return err
	}
	if existing != nil {
		return ErrCNPJAlreadyExists
	}
	return nil
}

func normalizeKeys(rawOrgID, rawID string) (string, string, error) {
	orgID, err := shared.NormalizeOrganizationID(rawOrgID)
	if err != nil {
		return "", "", err
	}
	id := strings.TrimSpace(rawID)
	if id == "" {
		return "", "", fmt.Errorf("id: %w", ErrInvalidID)
	}
	return orgID, id, nil
}

func normalizeCNPJ(raw string) (string, error) {
	digits := format.OnlyDigits(raw)
	if !format.ValidCNPJ(digits) {
		return "", ErrInvalidCNPJ
	}
	return digits, nil
}

func normalizeEmail(raw *string) (*string, error) {
	trimmed := shared.NormalizeOptionalString(raw)
	if trimmed == nil {
		return nil, nil
	}
	addr, err := mail.ParseAddress(*trimmed)
	if err != nil {
		return nil, ErrInvalidEmail
	}
	lower := strings.ToLower(addr.Address)
	return &lower, nil
}

// normalizePhone は固定 (10 桁) または携帯 (11 桁) の番号を数字のみで保持します。
func normalizePhone(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	digits := format.OnlyDigits(*raw)
	if digits == "" {
		return nil, nil
	}
	if len(digits) != 10 && len(digits) != 11 {
		return nil, ErrInvalidPhone
	}
	return &digits, nil
}

func isValidStatus(status Status) bool {
	switch status {
	case StatusActive, StatusInactive:
		return true
	default:
		return false
	}
}
