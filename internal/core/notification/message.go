package notification

import (
	"context"
	"errors"
	"net/mail"
	"strings"
)

var (
	ErrNoRecipients     = errors.New("notification: at least one recipient is required")
	ErrInvalidRecipient = errors.New("notification: invalid recipient")
	ErrEmptySubject     = errors.New("notification: subject is required")
	ErrEmptyBody        = errors.New("notification: body is required")
)

// Message はトランザクションメール 1 通分です。
type Message struct {
	To      []string
	Subject string
	Text    string
	Tags    []string
}

// Validate は宛先・件名・本文を検証します。
func (m Message) Validate() error {
	if len(m.To) == 0 {
		return ErrNoRecipients
	}
	for _, to := range m.To {
		if _, err := mail.ParseAddress(to); err != nil {
			return ErrInvalidRecipient
		}
	}
	if strings.TrimSpace(m.Subject) == "" {
		return ErrEmptySubject
	}
	if strings.TrimSpace(m.Text) == "" {
		return ErrEmptyBody
	}
	return nil
}

// Mailer はメール配信 API です。
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
