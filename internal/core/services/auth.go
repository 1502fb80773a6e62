package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driving"
	"github.com/custodia-labs/foldertalk/internal/logger"
)

// Ensure AuthService implements the interface.
var _ driving.AuthService = (*AuthService)(nil)

// ProviderGoogle is the only identity provider.
const ProviderGoogle = "google"

// AuthService signs callers in with a provider token and authorises
// later requests by session or token.
type AuthService struct {
	validator driven.TokenValidator
	verifier  driven.IDTokenVerifier
	sessions  driven.SessionStore

	now   func() time.Time
	newID func() string
}

// NewAuthService creates a new auth service. verifier may be nil, in which
// case ID tokens are ignored.
func NewAuthService(
	validator driven.TokenValidator,
	verifier driven.IDTokenVerifier,
	sessions driven.SessionStore,
) *AuthService {
	return &AuthService{
		validator: validator,
		verifier:  verifier,
		sessions:  sessions,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Authenticate validates the caller's tokens and creates a session.
func (s *AuthService) Authenticate(ctx context.Context, provider, accessToken, idToken string) (*domain.Session, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider != ProviderGoogle {
		return nil, fmt.Errorf("%w: auth provider %q", domain.ErrUnsupportedType, provider)
	}

	identity, err := s.validator.Validate(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("validate access token: %w", err)
	}

	if idToken != "" {
		if s.verifier == nil {
			logger.Debug("ID token ignored: no verifier configured")
		} else {
			claimed, err := s.verifier.Verify(ctx, idToken)
			if err != nil {
				return nil, fmt.Errorf("verify id token: %w", err)
			}
			if claimed.Subject != identity.Subject {
				return nil, fmt.Errorf("%w: id token subject does not match access token", domain.ErrAuthInvalid)
			}
			if identity.Email == "" {
				identity.Email = claimed.Email
			}
			if identity.Name == "" {
				identity.Name = claimed.Name
			}
		}
	}

	session := &domain.Session{
		ID:        s.newID(),
		Provider:  provider,
		Identity:  *identity,
		CreatedAt: s.now(),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	logger.Info("Signed in %s with %s", identity.Email, provider)
	return session, nil
}

// Authorize resolves the caller of a request. A known session wins; an
// unknown session falls back to the access token when one is given.
func (s *AuthService) Authorize(ctx context.Context, creds driving.Credentials) (*domain.Identity, error) {
	if creds.SessionID != "" {
		session, err := s.sessions.Get(ctx, creds.SessionID)
		switch {
		case err == nil:
			identity := session.Identity
			return &identity, nil
		case !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("get session: %w", err)
		case creds.AccessToken == "":
			return nil, fmt.Errorf("%w: unknown session", domain.ErrAuthInvalid)
		}
	}

	if creds.AccessToken == "" {
		return nil, domain.ErrAuthRequired
	}
	return s.validator.Validate(ctx, creds.AccessToken)
}
