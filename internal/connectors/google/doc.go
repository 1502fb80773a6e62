// Package google provides shared infrastructure for Google API access.
//
// It contains:
//   - an oauth2.TokenSource over caller-supplied access tokens
//   - Drive service construction
//   - a userinfo client used to validate access tokens
//   - error mapping for common Google API failures (401, 403, 404, 429)
//   - per-token rate limiting to stay within Google API quotas
//
// # OAuth2 Scopes
//
// Callers are expected to hold a token granted these scopes:
//   - https://www.googleapis.com/auth/drive.readonly
//   - https://www.googleapis.com/auth/userinfo.email
//   - https://www.googleapis.com/auth/userinfo.profile
package google
