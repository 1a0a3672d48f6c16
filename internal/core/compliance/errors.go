package compliance

import "errors"

var (
	// ErrEmployeeNotEvaluated は社員が判定対象 (在籍中) に含まれない場合に返却されます。
	ErrEmployeeNotEvaluated = errors.New("compliance: employee is not active or does not exist")
	// ErrNoRecipients は通知先が指定されていない場合に返却されます。
	ErrNoRecipients = errors.New("compliance: no recipients")
	// ErrInvalidRecipient は通知先のメールアドレスが不正な場合に返却されます。
	ErrInvalidRecipient = errors.New("compliance: invalid recipient")
	// ErrAlertsDisabled は通知手段が設定されていない場合に返却されます。
	ErrAlertsDisabled = errors.New("compliance: alerts are not configured")
)
