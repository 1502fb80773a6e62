package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
	"github.com/custodia-labs/foldertalk/internal/logger"
)

// GoogleJWKSURL is where Google publishes its ID token signing keys.
const GoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

// googleIssuers are the two issuer spellings Google uses.
var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

type googleClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// IDTokenVerifier checks Google ID tokens (RS256) for one OAuth client.
type IDTokenVerifier struct {
	keys     keyfunc.Keyfunc
	audience string
	leeway   time.Duration
}

var _ driven.IDTokenVerifier = (*IDTokenVerifier)(nil)

// VerifierConfig configures NewIDTokenVerifier.
type VerifierConfig struct {
	// JWKSURL defaults to GoogleJWKSURL.
	JWKSURL string
	// ClientID is the expected audience.
	ClientID string
	// RefreshInterval is how often the key set is re-fetched.
	RefreshInterval time.Duration
	// Timeout bounds key set fetches.
	Timeout time.Duration
	// Leeway tolerates clock skew on exp and iat.
	Leeway time.Duration
}

// NewIDTokenVerifier fetches the key set in the background. Startup does not
// fail when Google is unreachable; verification fails until keys arrive.
func NewIDTokenVerifier(cfg VerifierConfig) (*IDTokenVerifier, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("id token verifier: client id is required")
	}
	url := cfg.JWKSURL
	if url == "" {
		url = GoogleJWKSURL
	}

	storage, err := jwkset.NewStorageFromHTTP(url, jwkset.HTTPClientStorageOptions{
		Client:                    &http.Client{Timeout: cfg.Timeout},
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           cfg.RefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Warn("refresh JWKS from %s: %v", url, err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("create keyfunc: %w", err)
	}

	return NewIDTokenVerifierWithKeyfunc(k, cfg.ClientID, cfg.Leeway), nil
}

// NewIDTokenVerifierWithKeyfunc uses a caller-supplied key source.
func NewIDTokenVerifierWithKeyfunc(k keyfunc.Keyfunc, clientID string, leeway time.Duration) *IDTokenVerifier {
	return &IDTokenVerifier{keys: k, audience: clientID, leeway: leeway}
}

// Verify implements driven.IDTokenVerifier.
func (v *IDTokenVerifier) Verify(ctx context.Context, idToken string) (*domain.Identity, error) {
	claims := &googleClaims{}
	token, err := jwt.ParseWithClaims(idToken, claims, v.keys.KeyfuncCtx(ctx),
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil {
		logger.Debug("id token rejected: %v", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrAuthInvalid, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: id token invalid", domain.ErrAuthInvalid)
	}

	if !validIssuer(claims.Issuer) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", domain.ErrAuthInvalid, claims.Issuer)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: id token has no subject", domain.ErrAuthInvalid)
	}

	return &domain.Identity{Subject: claims.Subject, Email: claims.Email, Name: claims.Name}, nil
}

func validIssuer(iss string) bool {
	for _, want := range googleIssuers {
		if iss == want {
			return true
		}
	}
	return false
}
