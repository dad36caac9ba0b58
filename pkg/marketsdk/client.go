package marketsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the public and self-service endpoints.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Livez(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	return &out, c.get(ctx, "/livez", "", &out)
}

func (c *Client) JWKS(ctx context.Context) (*JWKSResponse, error) {
	var out JWKSResponse
	return &out, c.get(ctx, "/.well-known/jwks.json", "", &out)
}

func (c *Client) ListChambers(ctx context.Context) ([]ChamberResponse, error) {
	var out ChamberListResponse
	if err := c.get(ctx, "/v1/chambers", "", &out); err != nil {
		return nil, err
	}
	return out.Chambers, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	var out UserResponse
	err := c.postForm(ctx, "/v1/users/register", "", url.Values{
		"email":      {req.Email},
		"password":   {req.Password},
		"name":       {req.Name},
		"company":    {req.Company},
		"phone":      {req.Phone},
		"chamber_id": {req.ChamberID},
		"role":       {req.Role},
	}, http.StatusCreated, &out)
	return &out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	var out TokenResponse
	err := c.postForm(ctx, "/v1/auth/login", "", url.Values{
		"email":    {email},
		"password": {password},
	}, http.StatusOK, &out)
	return &out, err
}

// Me returns the account behind accessToken.
func (c *Client) Me(ctx context.Context, accessToken string) (*MeResponse, error) {
	var out MeResponse
	return &out, c.get(ctx, "/v1/me", accessToken, &out)
}

// RequestPasswordReset asks for a reset code. The answer never says whether
// the claims matched an account.
func (c *Client) RequestPasswordReset(ctx context.Context, claims ResetClaims) (*ResetRequestResponse, error) {
	var out ResetRequestResponse
	err := c.postForm(ctx, "/v1/password-reset/request", "", claimsForm(claims), http.StatusAccepted, &out)
	return &out, err
}

// VerifyPasswordReset checks a code without consuming it.
func (c *Client) VerifyPasswordReset(ctx context.Context, claims ResetClaims, code string) error {
	form := claimsForm(claims)
	form.Set("code", code)
	var out StatusResponse
	return c.postForm(ctx, "/v1/password-reset/verify", "", form, http.StatusOK, &out)
}

// ConfirmPasswordReset sets a new password with a code.
func (c *Client) ConfirmPasswordReset(ctx context.Context, claims ResetClaims, code, newPassword string) error {
	form := claimsForm(claims)
	form.Set("code", code)
	form.Set("new_password", newPassword)
	form.Set("new_password_confirm", newPassword)
	var out StatusResponse
	return c.postForm(ctx, "/v1/password-reset/confirm", "", form, http.StatusOK, &out)
}

func claimsForm(c ResetClaims) url.Values {
	return url.Values{
		"full_name":  {c.FullName},
		"company":    {c.Company},
		"phone":      {c.Phone},
		"chamber_id": {c.ChamberID},
	}
}

func (c *Client) get(ctx context.Context, path, token string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.do(req, http.StatusOK, target)
}

func (c *Client) postForm(ctx context.Context, path, token string, form url.Values, expected int, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.do(req, expected, target)
}

func (c *Client) do(req *http.Request, expected int, target any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != expected {
		return parseErrorResponse(resp, body)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
