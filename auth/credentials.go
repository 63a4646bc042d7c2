package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/ivyedsg/repify-web/apiclient"
	apperrors "github.com/ivyedsg/repify-web/internal/errors"
	"github.com/ivyedsg/repify-web/sessions"
	"github.com/rs/zerolog"
)

// LoginAPI is the part of the remote API used to exchange credentials.
type LoginAPI interface {
	Login(ctx context.Context, email, password string) (*apiclient.LoginResponse, error)
}

// CredentialExchange turns an email and password into an authenticated user.
type CredentialExchange struct {
	api       LoginAPI
	validator *Validator
}

func NewCredentialExchange(api LoginAPI) *CredentialExchange {
	return &CredentialExchange{
		api:       api,
		validator: NewValidator(),
	}
}

// Authorize validates the credentials and makes a single login call.
// Every failure is reported as ErrInvalidCredentials; the cause is only logged.
func (c *CredentialExchange) Authorize(ctx context.Context, email, password string) (*sessions.User, error) {
	email = strings.TrimSpace(email)
	if err := c.validator.ValidateUserCredentials(email, password); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("Rejected login input")
		return nil, apperrors.ErrInvalidCredentials
	}

	resp, err := c.api.Login(ctx, email, password)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Credential exchange failed")
		return nil, apperrors.ErrInvalidCredentials
	}

	user, err := userFromLogin(resp)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Credential exchange returned an unusable payload")
		return nil, apperrors.ErrInvalidCredentials
	}
	return user, nil
}

func userFromLogin(resp *apiclient.LoginResponse) (*sessions.User, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: empty login response", apperrors.ErrInvalidResponse)
	}
	if resp.Access == "" || resp.Refresh == "" {
		return nil, fmt.Errorf("%w: login response is missing tokens", apperrors.ErrInvalidResponse)
	}
	return &sessions.User{
		ID:           string(resp.ID),
		Email:        resp.Email,
		University:   resp.University,
		Career:       resp.Career,
		AccessToken:  resp.Access,
		RefreshToken: resp.Refresh,
	}, nil
}
