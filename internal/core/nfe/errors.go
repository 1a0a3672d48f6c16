package nfe

import "errors"

var (
	ErrInvalidAccessKey   = errors.New("nfe: invalid access key")
	ErrInvalidXML         = errors.New("nfe: invalid xml")
	ErrAlreadyImported    = errors.New("nfe: invoice already imported")
	ErrAccessKeyMismatch  = errors.New("nfe: access key does not match the requested invoice")
	ErrInvalidManifest    = errors.New("nfe: invalid manifest event")
	ErrInvalidLocation    = errors.New("nfe: invalid location")
	ErrEmptyImage         = errors.New("nfe: empty image")
	ErrInvoiceNotFound    = errors.New("nfe: invoice not found")
	ErrGatewayUnavailable = errors.New("nfe: gateway unavailable")
)
