package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrustedAuthProvider(t *testing.T) {
	p := NewTrustedAuthProvider()

	claims, err := p.VerifyToken(context.Background(), " player-1 ")
	require.NoError(t, err)
	assert.Equal(t, "player-1", claims.UID)

	_, err = p.VerifyToken(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClaimsFromFirebase(t *testing.T) {
	tests := []struct {
		name     string
		claims   map[string]interface{}
		wantName string
	}{
		{name: "no name claim", claims: map[string]interface{}{}, wantName: ""},
		{name: "name claim", claims: map[string]interface{}{"name": " Ann "}, wantName: "Ann"},
		{name: "non-string name", claims: map[string]interface{}{"name": 7}, wantName: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := claimsFromFirebase("uid-1", tt.claims)
			assert.Equal(t, "uid-1", c.UID)
			assert.Equal(t, tt.wantName, c.Name)
		})
	}
}

func TestNewFirebaseAuthProvider_RequiresProject(t *testing.T) {
	_, err := NewFirebaseAuthProvider(context.Background(), NewFirebaseAuthProviderOptions{})
	assert.Error(t, err)
}
