package employee

import "errors"

var (
	ErrInvalidID             = errors.New("employee: invalid id")
	ErrInvalidName           = errors.New("employee: invalid name")
	ErrInvalidDocument       = errors.New("employee: invalid cpf")
	ErrInvalidEmail          = errors.New("employee: invalid email")
	ErrInvalidStatus         = errors.New("employee: invalid status")
	ErrInvalidDateRange      = errors.New("employee: invalid employment period")
	ErrEmployeeNotFound      = errors.New("employee: not found")
	ErrOrganizationNotFound  = errors.New("employee: organization not found")
	ErrDocumentAlreadyExists = errors.New("employee: cpf already exists")
)
