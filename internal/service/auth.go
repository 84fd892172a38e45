package service

import (
	"context"
	"crypto/subtle"

	"github.com/lumistudy/tutorai/internal/domain"
)

// StaticTokenValidator checks bearer tokens against a single configured
// token.
type StaticTokenValidator struct {
	token string
}

func NewStaticTokenValidator(token string) *StaticTokenValidator {
	return &StaticTokenValidator{token: token}
}

func (v *StaticTokenValidator) ValidateToken(ctx context.Context, token string) error {
	if token == "" {
		return domain.ErrMissingAPIToken
	}
	if subtle.ConstantTimeCompare([]byte(v.token), []byte(token)) != 1 {
		return domain.ErrInvalidAPIToken
	}
	return nil
}
