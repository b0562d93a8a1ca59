package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/shopdesk/shopdesk-go/internal/apperrors"
	domainauth "github.com/shopdesk/shopdesk-go/internal/domain/auth"
	"github.com/shopdesk/shopdesk-go/internal/ports"
)

// Endpoint paths for the auth surface.
const (
	loginPath  = "/auth/login"
	renewPath  = "/auth/refresh"
	mePath     = "/auth/me"
	logoutPath = "/auth/logout"
)

var _ ports.AuthAPI = (*Client)(nil)

// loginResponse is the wire shape of a successful login: the token pair plus
// the user fields at the top level.
type loginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	profilePayload
}

type profilePayload struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Company   string `json:"company"`
}

func (p profilePayload) toDomain() domainauth.UserProfile {
	return domainauth.UserProfile{
		ID:        p.ID,
		Username:  p.Username,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Company:   p.Company,
	}
}

// Login exchanges credentials for a token pair. The call is public: no
// Authorization header, no renewal hop. A 400/401 means the credentials were
// rejected; that is local to the login flow, never a session-wide event.
func (c *Client) Login(ctx context.Context, username, password string) (ports.LoginResult, error) {
	body := struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{Username: username, Password: password}

	var resp loginResponse
	err := c.Do(ctx, RequestSpec{
		Method: http.MethodPost,
		Path:   loginPath,
		Body:   body,
		Out:    &resp,
		Public: true,
	})
	if err != nil {
		var apiErr *apperrors.Error
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnauthorized) {
			return ports.LoginResult{}, apperrors.InvalidCredentials("username or password rejected").WithStatus(apiErr.Status)
		}
		return ports.LoginResult{}, err
	}

	profile := resp.toDomain()
	return ports.LoginResult{
		Access:  resp.Access,
		Renewal: resp.Refresh,
		User:    &profile,
	}, nil
}

// Renew exchanges the renewal credential for a fresh access credential. The
// refresh field is optional in the response: backends that rotate return a
// new one, backends that do not leave it empty. Transient network failures
// are retried with exponential backoff inside the caller's deadline; a
// rejection from the backend is permanent.
func (c *Client) Renew(ctx context.Context, renewal string) (ports.RenewResult, error) {
	body := struct {
		Refresh string `json:"refresh"`
	}{Refresh: renewal}

	operation := func() (ports.RenewResult, error) {
		var resp struct {
			Access  string `json:"access"`
			Refresh string `json:"refresh"`
		}
		err := c.Do(ctx, RequestSpec{
			Method: http.MethodPost,
			Path:   renewPath,
			Body:   body,
			Out:    &resp,
			Public: true,
		})
		if err != nil {
			if apperrors.IsNetwork(err) {
				return ports.RenewResult{}, err
			}
			return ports.RenewResult{}, backoff.Permanent(err)
		}
		return ports.RenewResult{Access: resp.Access, Renewal: resp.Refresh}, nil
	}

	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(15*time.Second),
	)
	if err != nil {
		var apiErr *apperrors.Error
		if errors.As(err, &apiErr) && apiErr.Code != apperrors.CodeNetwork {
			return ports.RenewResult{}, apperrors.RenewalExpired("renewal credential rejected").WithStatus(apiErr.Status)
		}
		return ports.RenewResult{}, err
	}
	return result, nil
}

// Me fetches the signed-in user's profile. Protected call, subject to the
// standard retry-once policy.
func (c *Client) Me(ctx context.Context) (domainauth.UserProfile, error) {
	var resp profilePayload
	err := c.Do(ctx, RequestSpec{
		Method: http.MethodGet,
		Path:   mePath,
		Out:    &resp,
	})
	if err != nil {
		return domainauth.UserProfile{}, err
	}
	return resp.toDomain(), nil
}

// Logout asks the backend to invalidate the renewal credential. Callers
// treat failures as best-effort.
func (c *Client) Logout(ctx context.Context) error {
	return c.Do(ctx, RequestSpec{
		Method: http.MethodPost,
		Path:   logoutPath,
	})
}
