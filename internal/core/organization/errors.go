package organization

import "errors"

var (
	// ErrOrganizationNotFound は組織が存在しない場合に返却されます。
	ErrOrganizationNotFound = errors.New("organization: not found")
	// ErrCodeAlreadyExists はコード重複時に返却されます。
	ErrCodeAlreadyExists = errors.New("organization: code already exists")
	// ErrInvalidName は組織名が不正な場合に返却されます。
	ErrInvalidName = errors.New("organization: invalid name")
	// ErrInvalidCode は組織コードが不正な場合に返却されます。
	ErrInvalidCode = errors.New("organization: invalid code")
	// ErrInvalidCNPJ は CNPJ のチェックディジットが一致しない場合に返却されます。
	ErrInvalidCNPJ = errors.New("organization: invalid cnpj")
	// ErrInvalidStatus はステータスが不正な場合に返却されます。
	ErrInvalidStatus = errors.New("organization: invalid status")
	// ErrInvalidID は ID が不正な場合に返却されます。
	ErrInvalidID = errors.New("organization: invalid id")
)
