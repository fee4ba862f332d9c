package providers

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/auth"
	"google.golang.org/api/option"
)

var _ AuthProvider = &FirebaseAuthProvider{}

// FirebaseAuthProvider maps Firebase ID tokens to players. The Firebase uid
// becomes the player's uid and the "name" claim, when present, the default
// display name.
type FirebaseAuthProvider struct {
	auth         *auth.Client
	checkRevoked bool
}

type NewFirebaseAuthProviderOptions struct {
	ProjectID string
	APIKey    string
	// CheckRevoked also rejects tokens revoked since they were issued. It
	// costs one Firebase round trip per login.
	CheckRevoked bool
}

func NewFirebaseAuthProvider(ctx context.Context, opts NewFirebaseAuthProviderOptions) (*FirebaseAuthProvider, error) {
	if opts.ProjectID == "" {
		return nil, fmt.Errorf("firebase project id is required")
	}

	var clientOpts []option.ClientOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: opts.ProjectID}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %v", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get firebase auth client: %v", err)
	}

	return &FirebaseAuthProvider{
		auth:         client,
		checkRevoked: opts.CheckRevoked,
	}, nil
}

func (p *FirebaseAuthProvider) VerifyToken(ctx context.Context, idToken string) (*TokenClaims, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return nil, fmt.Errorf("empty token: %w", ErrInvalidToken)
	}

	var (
		token *auth.Token
		err   error
	)
	if p.checkRevoked {
		token, err = p.auth.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	} else {
		token, err = p.auth.VerifyIDToken(ctx, idToken)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to verify firebase token: %v: %w", err, ErrInvalidToken)
	}

	return claimsFromFirebase(token.UID, token.Claims), nil
}

func claimsFromFirebase(uid string, claims map[string]interface{}) *TokenClaims {
	tc := &TokenClaims{UID: uid}
	if name, ok := claims["name"].(string); ok {
		tc.Name = strings.TrimSpace(name)
	}
	return tc
}
