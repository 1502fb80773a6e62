package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
)

// providerSource serves tokens from a driven.TokenProvider. Tokens carry
// no expiry, so oauth2 never tries to refresh them.
type providerSource struct {
	ctx      context.Context
	provider driven.TokenProvider
}

// NewTokenSource returns an oauth2.TokenSource for option.WithTokenSource.
// ctx outlives the call that created it, so pass a detached context.
func NewTokenSource(ctx context.Context, provider driven.TokenProvider) oauth2.TokenSource {
	return providerSource{ctx: ctx, provider: provider}
}

func (p providerSource) Token() (*oauth2.Token, error) {
	token, err := p.provider.GetToken(p.ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAuthRequired, err)
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

// StaticToken is a caller-supplied access token. User tokens are never
// refreshed here.
type StaticToken string

// GetToken implements driven.TokenProvider.
func (s StaticToken) GetToken(context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("%w: empty access token", domain.ErrAuthRequired)
	}
	return string(s), nil
}
