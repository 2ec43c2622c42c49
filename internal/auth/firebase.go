package auth

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// TokenVerifier is the slice of the Firebase Admin auth client used to
// check ID tokens. *fbauth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseVerifier validates Firebase ID tokens with the Admin SDK, which
// fetches and caches Google's signing certificates.
type FirebaseVerifier struct {
	tokens TokenVerifier
	logger zerolog.Logger
}

type FirebaseOption func(*FirebaseVerifier)

func WithLogger(logger zerolog.Logger) FirebaseOption {
	return func(v *FirebaseVerifier) {
		v.logger = logger
	}
}

// NewFirebaseVerifier builds an Admin SDK auth client for projectID.
// Verifying ID tokens needs only the public certificates, so no service
// account credentials are loaded. FIREBASE_AUTH_EMULATOR_HOST switches the
// client to the local emulator.
func NewFirebaseVerifier(ctx context.Context, projectID string, opts ...FirebaseOption) (*FirebaseVerifier, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, option.WithoutAuthentication())
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return NewTokenVerifier(client, opts...), nil
}

// NewTokenVerifier wraps an existing Admin SDK client.
func NewTokenVerifier(tokens TokenVerifier, opts ...FirebaseOption) *FirebaseVerifier {
	v := &FirebaseVerifier{tokens: tokens, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (Identity, error) {
	if strings.TrimSpace(idToken) == "" {
		return Identity{}, ErrMissingToken
	}

	token, err := v.tokens.VerifyIDToken(ctx, idToken)
	if err != nil {
		v.logger.Debug().Err(err).Msg("rejected id token")
		return Identity{}, ErrInvalidToken
	}
	if token.UID == "" {
		return Identity{}, ErrInvalidToken
	}

	return identityFromToken(token), nil
}

func identityFromToken(token *fbauth.Token) Identity {
	email, _ := token.Claims["email"].(string)
	verified, _ := token.Claims["email_verified"].(bool)
	name, _ := token.Claims["name"].(string)

	return Identity{
		UID:           token.UID,
		Email:         strings.ToLower(strings.TrimSpace(email)),
		EmailVerified: verified,
		Name:          name,
	}
}
