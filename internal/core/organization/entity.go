package organization

import "time"

// Status は組織 (テナント) の状態を表します。
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Organization はテナントとなる組織エンティティです。
type Organization struct {
	ID        string
	Name      string
	Code      string
	CNPJ      *string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}
