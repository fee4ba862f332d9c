package providers

import (
	"context"
	"errors"
)

// ErrInvalidToken is returned when a login token is rejected.
var ErrInvalidToken = errors.New("invalid token")

type AuthProvider interface {
	VerifyToken(ctx context.Context, idToken string) (*TokenClaims, error)
}

type TokenClaims struct {
	UID string `json:"uid"`
	// Name is a display name asserted by the identity provider, if any.
	Name string `json:"name,omitempty"`
}
