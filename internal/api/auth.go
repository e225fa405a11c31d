package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/ppiankov/ghitriage/internal/model"
	"github.com/ppiankov/ghitriage/internal/validate"
)

// Login exchanges credentials for a token. A 401 is InvalidCredentials,
// a 403 is AccountInactive; any other failure is a RequestError.
func (c *Client) Login(ctx context.Context, username, password string) (*model.TokenResponse, error) {
	if err := validate.Credentials(username, password); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var out model.TokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   c.endpoint("auth", "login"),
		form:   form,
		noAuth: true,
	}, &out)
	if err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			switch reqErr.Status {
			case http.StatusUnauthorized:
				return nil, &AuthError{Kind: InvalidCredentials, Status: reqErr.Status, Message: reqErr.Message}
			case http.StatusForbidden:
				return nil, &AuthError{Kind: AccountInactive, Status: reqErr.Status, Message: reqErr.Message}
			}
		}
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, &RequestError{
			Method:  http.MethodPost,
			Path:    c.endpoint("auth", "login"),
			Status:  http.StatusOK,
			Message: "login response carried no access token",
		}
	}
	return &out, nil
}

// CurrentUser resolves the user owning token. An empty token uses the session's.
func (c *Client) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	var out model.User
	if err := c.do(ctx, request{
		method: http.MethodGet,
		path:   c.endpoint("auth", "me"),
		token:  token,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshToken trades the current session token for a fresh one
func (c *Client) RefreshToken(ctx context.Context) (*model.TokenResponse, error) {
	var out model.TokenResponse
	if err := c.do(ctx, request{
		method: http.MethodPost,
		path:   c.endpoint("auth", "refresh"),
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout tells the backend the token is being discarded. The backend keeps
// no token state, so this is informational only.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   c.endpoint("auth", "logout"),
		token:  token,
	}, nil)
}
