package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/custodia-labs/foldertalk/internal/connectors/google"
	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
	"github.com/custodia-labs/foldertalk/internal/metrics"
)

const tokenCacheName = "token"

// UserInfoFetcher fetches the profile of an access token's holder.
type UserInfoFetcher interface {
	Get(ctx context.Context, accessToken string) (*google.UserInfo, error)
}

// GoogleValidator validates access tokens with Google's userinfo endpoint.
type GoogleValidator struct {
	userinfo UserInfoFetcher
	cache    *expirable.LRU[string, domain.Identity]
	timeout  time.Duration
}

var _ driven.TokenValidator = (*GoogleValidator)(nil)

// ValidatorConfig configures a GoogleValidator.
type ValidatorConfig struct {
	// CacheSize is the number of validated tokens kept; zero disables caching.
	CacheSize int
	// CacheTTL is how long a validated token is trusted without re-checking.
	CacheTTL time.Duration
	// Timeout bounds each userinfo call.
	Timeout time.Duration
}

// NewGoogleValidator creates a validator.
func NewGoogleValidator(userinfo UserInfoFetcher, cfg ValidatorConfig) *GoogleValidator {
	v := &GoogleValidator{userinfo: userinfo, timeout: cfg.Timeout}
	if cfg.CacheSize > 0 {
		v.cache = expirable.NewLRU[string, domain.Identity](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return v
}

// Validate returns the identity behind an access token.
func (v *GoogleValidator) Validate(ctx context.Context, accessToken string) (*domain.Identity, error) {
	if accessToken == "" {
		return nil, domain.ErrAuthRequired
	}

	// Tokens are bearer secrets, so only their hash is kept.
	key := hashToken(accessToken)
	if v.cache != nil {
		id, ok := v.cache.Get(key)
		metrics.CacheLookup(tokenCacheName, ok)
		if ok {
			return &id, nil
		}
	}

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	info, err := v.userinfo.Get(ctx, accessToken)
	if err != nil {
		if errors.Is(err, google.ErrUnauthorized) {
			return nil, fmt.Errorf("%w: access token rejected", domain.ErrAuthInvalid)
		}
		return nil, fmt.Errorf("validate access token: %w", err)
	}

	id := domain.Identity{Subject: info.ID, Email: info.Email, Name: info.Name}
	if v.cache != nil {
		v.cache.Add(key, id)
	}
	return &id, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
