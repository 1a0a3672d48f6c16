package employee

import "time"

// Status は社員の状態を表します。
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Employee は社員エンティティです。
// Department と Position は EPI 要件との突き合わせに使われます。
type Employee struct {
	ID             string
	OrganizationID string
	Name           string
	Document       *string
	Department     string
	Position       string
	Email          *string
	Status         Status
	HiredAt        *time.Time
	TerminatedAt   *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsActive は在籍中かどうかを返します。
func (e *Employee) IsActive() bool {
	return e != nil && e.Status == StatusActive
}
