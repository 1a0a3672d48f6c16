package epi

import "time"

// EPI は個人用保護具の種別を表します。Category が要件との結合キーです。
type EPI struct {
	ID             string
	OrganizationID string
	Name           string
	Category       string
	CANumber       *string
	ValidityDays   int
	StockQuantity  int
	MinimumStock   int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsLowStock は在庫が最低在庫を下回っているかを返します。
func (e *EPI) IsLowStock() bool {
	return e.StockQuantity < e.MinimumStock
}

// ExpiryFor は支給日から有効期限を算出します。有効日数が 0 の場合は期限なしです。
func (e *EPI) ExpiryFor(deliveredAt time.Time) *time.Time {
	if e.ValidityDays <= 0 {
		return nil
	}
	expiry := deliveredAt.AddDate(0, 0, e.ValidityDays)
	return &expiry
}

// Requirement は部署または役職に対して EPI カテゴリを必須とするルールです。
type Requirement struct {
	ID             string
	OrganizationID string
	Category       string
	Department     *string
	Position       *string
	Mandatory      bool
	Notes          *string
	CreatedAt      time.Time
}

// Matches は部署または役職のどちらかが一致すればルールが適用されると判定します。
// 部署と役職の両方を持つルールでも AND ではなく OR で評価します。
func (r *Requirement) Matches(department, position string) bool {
	if r == nil {
		return false
	}
	if r.Department != nil && department != "" && *r.Department == department {
		return true
	}
	if r.Position != nil && position != "" && *r.Position == position {
		return true
	}
	return false
}

// MatchRequirements は社員の部署・役職に適用される要件を抽出します。
func MatchRequirements(requirements []*Requirement, department, position string) []*Requirement {
	var matched []*Requirement
	for _, r := range requirements {
		if r.Matches(department, position) {
			matched = append(matched, r)
		}
	}
	return matched
}

// DeliveryStatus は支給記録の状態です。
type DeliveryStatus string

const (
	DeliveryStatusInUse    DeliveryStatus = "in_use"
	DeliveryStatusReturned DeliveryStatus = "returned"
	DeliveryStatusExpired  DeliveryStatus = "expired"
)

// Delivery は EPI を社員へ支給した記録です。
type Delivery struct {
	ID             string
	OrganizationID string
	EPIID          string
	EmployeeID     string
	Quantity       int
	DeliveredAt    time.Time
	ExpiresAt      *time.Time
	Status         DeliveryStatus
	ReturnedAt     *time.Time
	TermID         *string
	Notes          *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsExpiredAt は有効期限が now より厳密に前かどうかを返します。
func (d *Delivery) IsExpiredAt(now time.Time) bool {
	return d.ExpiresAt != nil && d.ExpiresAt.Before(now)
}

// DeliveryTerm は複数の支給をまとめた受領書 (Termo de Entrega) です。
type DeliveryTerm struct {
	ID             string
	OrganizationID string
	Number         string
	EmployeeID     string
	DeliveryIDs    []string
	IssuedAt       time.Time
}
