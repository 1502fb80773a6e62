package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DefaultUserInfoURL is Google's OAuth2 userinfo endpoint.
const DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// UserInfo contains the user's basic profile information from Google.
type UserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// NewDriveService creates a Google Drive API service using the provided TokenSource.
// Extra options are appended, which lets tests point the client at a fake endpoint.
func NewDriveService(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*drive.Service, error) {
	all := append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	return drive.NewService(ctx, all...)
}

// UserInfoClient fetches profiles from the userinfo endpoint.
type UserInfoClient struct {
	url     string
	client  *http.Client
	limiter *RateLimiter
}

// NewUserInfoClient creates a client. An empty URL uses DefaultUserInfoURL
// and a nil client uses http.DefaultClient.
func NewUserInfoClient(url string, client *http.Client) *UserInfoClient {
	if url == "" {
		url = DefaultUserInfoURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &UserInfoClient{
		url:     url,
		client:  client,
		limiter: NewRateLimiter(UserInfoRequestsPerSecond, defaultBurst),
	}
}

// Get fetches the profile of the token holder.
// Returns ErrUnauthorized when Google rejects the token.
func (c *UserInfoClient) Get(ctx context.Context, accessToken string) (*UserInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		c.limiter.Backoff(0)
		return nil, ErrRateLimited
	default:
		return nil, fmt.Errorf("user info request failed with status %d", resp.StatusCode)
	}

	var userInfo UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}

	return &userInfo, nil
}

// GetUserInfo fetches the user's profile using the default endpoint.
func GetUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	return NewUserInfoClient("", nil).Get(ctx, accessToken)
}
