package api

import (
	"context"
	"net/http"
)

const RefreshCookie = "refresh_token"

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Role         string `json:"role"`
	Username     string `json:"username"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

func (c *Client) Login(ctx context.Context, cred Credentials) (AuthResponse, error) {
	return c.authCall(ctx, "/auth/login", cred)
}

func (c *Client) Register(ctx context.Context, r Registration) (AuthResponse, error) {
	return c.authCall(ctx, "/auth/register", r)
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (AuthResponse, error) {
	out, err := c.authCall(ctx, "/auth/refresh", refreshReq{RefreshToken: refreshToken})
	if err == nil && out.RefreshToken == "" {
		out.RefreshToken = refreshToken
	}
	return out, err
}

func (c *Client) Logout(ctx context.Context, accessToken string) error {
	_, err := c.WithTokens(StaticToken(accessToken)).do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
	return err
}

// authCall picks the refresh token from the JSON body or, failing that, from
// the refresh cookie.
func (c *Client) authCall(ctx context.Context, path string, body any) (AuthResponse, error) {
	var out AuthResponse
	resp, err := c.do(ctx, http.MethodPost, path, nil, body, &out)
	if err != nil {
		return out, err
	}
	if out.RefreshToken == "" {
		for _, ck := range resp.Cookies() {
			if ck.Name == RefreshCookie {
				out.RefreshToken = ck.Value
			}
		}
	}
	return out, nil
}
