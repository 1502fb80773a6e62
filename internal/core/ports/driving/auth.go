package driving

import (
	"context"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
)

// Credentials are what a caller presents on an authorised request.
// Either field may be empty; a known session wins over the token.
type Credentials struct {
	AccessToken string
	SessionID   string
}

// AuthService signs callers in and authorises requests.
type AuthService interface {
	// Authenticate validates an access token (and an ID token, when given)
	// with a provider and creates a session.
	Authenticate(ctx context.Context, provider, accessToken, idToken string) (*domain.Session, error)

	// Authorize returns the caller's identity, or domain.ErrAuthInvalid.
	Authorize(ctx context.Context, creds Credentials) (*domain.Identity, error)
}
