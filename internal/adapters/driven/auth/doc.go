// Package auth verifies Google credentials presented by API callers.
//
// GoogleValidator checks OAuth access tokens against the userinfo endpoint
// and caches positive results for a short TTL. IDTokenVerifier checks signed
// ID tokens against Google's published JWKS.
package auth
