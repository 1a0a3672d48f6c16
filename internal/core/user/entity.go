package user

import "time"

// Status はユーザーの状態を表します。
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Role は組織内での権限を表します。
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleOperator Role = "operator"
)

// User はユーザーエンティティです。
// Email はシステム全体で一意です。
type User struct {
	ID             string
	OrganizationID string
	Email          string
	Name           string
	Role           Role
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
