package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/foldertalk/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driving"
)

var ana = domain.Identity{Subject: "sub-ana", Email: "ana@example.com", Name: "Ana"}

func newAuthService(verifier *mockVerifier) (*AuthService, *mockValidator) {
	validator := &mockValidator{identities: map[string]domain.Identity{"good": ana}}
	var svc *AuthService
	if verifier == nil {
		svc = NewAuthService(validator, nil, memory.NewSessionStore())
	} else {
		svc = NewAuthService(validator, verifier, memory.NewSessionStore())
	}
	svc.newID = func() string { return "session-1" }
	svc.now = func() time.Time { return time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC) }
	return svc, validator
}

func TestAuthService_Authenticate(t *testing.T) {
	svc, _ := newAuthService(nil)

	session, err := svc.Authenticate(context.Background(), "Google", "good", "")
	require.NoError(t, err)
	assert.Equal(t, "session-1", session.ID)
	assert.Equal(t, ProviderGoogle, session.Provider)
	assert.Equal(t, ana, session.Identity)

	identity, err := svc.Authorize(context.Background(), driving.Credentials{SessionID: "session-1"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", identity.Email)
}

func TestAuthService_Authenticate_Errors(t *testing.T) {
	svc, _ := newAuthService(nil)
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, "github", "good", "")
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	_, err = svc.Authenticate(ctx, "google", "bad", "")
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)

	_, err = svc.Authenticate(ctx, "google", "", "")
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
}

func TestAuthService_Authenticate_IDToken(t *testing.T) {
	verifier := &mockVerifier{identities: map[string]domain.Identity{
		"id-ana":   {Subject: "sub-ana", Email: "ana@example.com"},
		"id-other": {Subject: "sub-other"},
	}}

	tests := []struct {
		name    string
		idToken string
		wantErr error
	}{
		{name: "matching subject", idToken: "id-ana"},
		{name: "different subject", idToken: "id-other", wantErr: domain.ErrAuthInvalid},
		{name: "bad signature", idToken: "forged", wantErr: domain.ErrAuthInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newAuthService(verifier)
			session, err := svc.Authenticate(context.Background(), "google", "good", tt.idToken)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "sub-ana", session.Identity.Subject)
		})
	}
}

func TestAuthService_Authenticate_IDTokenIgnoredWithoutVerifier(t *testing.T) {
	svc, _ := newAuthService(nil)
	_, err := svc.Authenticate(context.Background(), "google", "good", "anything")
	assert.NoError(t, err)
}

func TestAuthService_Authorize(t *testing.T) {
	svc, validator := newAuthService(nil)
	ctx := context.Background()

	t.Run("access token", func(t *testing.T) {
		identity, err := svc.Authorize(ctx, driving.Credentials{AccessToken: "good"})
		require.NoError(t, err)
		assert.Equal(t, "sub-ana", identity.Subject)
	})

	t.Run("invalid token", func(t *testing.T) {
		_, err := svc.Authorize(ctx, driving.Credentials{AccessToken: "bad"})
		assert.ErrorIs(t, err, domain.ErrAuthInvalid)
	})

	t.Run("no credentials", func(t *testing.T) {
		_, err := svc.Authorize(ctx, driving.Credentials{})
		assert.ErrorIs(t, err, domain.ErrAuthRequired)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := svc.Authorize(ctx, driving.Credentials{SessionID: "nope"})
		assert.ErrorIs(t, err, domain.ErrAuthInvalid)
	})

	t.Run("unknown session falls back to token", func(t *testing.T) {
		identity, err := svc.Authorize(ctx, driving.Credentials{SessionID: "nope", AccessToken: "good"})
		require.NoError(t, err)
		assert.Equal(t, "sub-ana", identity.Subject)
	})

	t.Run("known session skips validation", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "google", "good", "")
		require.NoError(t, err)

		before := validator.calls
		identity, err := svc.Authorize(ctx, driving.Credentials{SessionID: "session-1", AccessToken: "bad"})
		require.NoError(t, err)
		assert.Equal(t, "sub-ana", identity.Subject)
		assert.Equal(t, before, validator.calls)
	})

	t.Run("validator outage is not an auth failure", func(t *testing.T) {
		validator.err = errors.New("userinfo unreachable")
		defer func() { validator.err = nil }()

		_, err := svc.Authorize(ctx, driving.Credentials{AccessToken: "good"})
		require.Error(t, err)
		assert.False(t, errors.Is(err, domain.ErrAuthInvalid))
	})
}
