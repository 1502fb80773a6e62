package driven

import (
	"context"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
)

// TokenValidator decides whether an access token is valid.
type TokenValidator interface {
	// Validate returns the token's identity, or domain.ErrAuthInvalid.
	Validate(ctx context.Context, accessToken string) (*domain.Identity, error)
}

// IDTokenVerifier checks a signed identity token.
type IDTokenVerifier interface {
	// Verify returns the identity the token asserts, or domain.ErrAuthInvalid.
	Verify(ctx context.Context, idToken string) (*domain.Identity, error)
}
