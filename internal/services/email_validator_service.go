package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
)

type EmailValidator interface {
	Validate(ctx context.Context, email string) error
}

// LocalValidator is the offline fallback used when the external reputation
// service is disabled: syntax check only.
type LocalValidator struct{}

func NewLocalValidator() *LocalValidator { return &LocalValidator{} }

func (*LocalValidator) Validate(_ context.Context, email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return errors.New("malformed email")
	}
	at := strings.LastIndex(addr.Address, "@")
	if at < 0 || !strings.Contains(addr.Address[at+1:], ".") {
		return errors.New("email domain looks invalid")
	}
	return nil
}
