package providers

import (
	"context"
	"fmt"
	"strings"
)

var _ AuthProvider = &TrustedAuthProvider{}

// TrustedAuthProvider accepts the token as the player's uid. It is meant for
// deployments where the host bridge has already authenticated the player.
type TrustedAuthProvider struct{}

func NewTrustedAuthProvider() *TrustedAuthProvider {
	return &TrustedAuthProvider{}
}

func (p *TrustedAuthProvider) VerifyToken(ctx context.Context, idToken string) (*TokenClaims, error) {
	uid := strings.TrimSpace(idToken)
	if uid == "" {
		return nil, fmt.Errorf("empty token: %w", ErrInvalidToken)
	}
	return &TokenClaims{
		UID: uid,
	}, nil
}
