package middleware

import (
	"errors"
	"strings"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/authz"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/repository"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/errs"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/response"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/utils"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const ContextKeyPrincipal = "principal"

// IsLoggedIn verifies the bearer token and stores it under utils.ContextKeyUser.
func IsLoggedIn(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return response.WriteErrorResponse(c, errs.ErrNotLoggedIn, nil)
			}

			token, err := utils.ParseJWTToken(strings.TrimSpace(raw), jwtSecret)
			if err != nil || !token.Valid {
				log.Ctx(c.Request().Context()).Info().Err(err).Str("component", "IsLoggedIn").Msg("rejected token")
				return response.WriteErrorResponse(c, errs.ErrNotLoggedIn, nil)
			}

			c.Set(utils.ContextKeyUser, token)
			return next(c)
		}
	}
}

// Authorizer resolves the caller's role from the user profile store on every
// request, so a role change applies to the very next call.
type Authorizer struct {
	users repository.UserRepository
}

func CreateAuthorizer(users repository.UserRepository) *Authorizer {
	return &Authorizer{users: users}
}

// Require rejects the request before the handler runs unless the caller may
// perform action.
func (a *Authorizer) Require(action authz.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, name := utils.ExtractTokenUser(c)
			if userID == "" {
				return response.WriteErrorResponse(c, errs.ErrNotLoggedIn, nil)
			}

			principal := authz.Principal{UserID: userID, Name: name}
			profile, err := a.users.GetUserProfile(c.Request().Context(), userID)
			switch {
			case err == nil:
				principal.Role = profile.Role
			case errors.Is(err, errs.ErrNotFound):
			default:
				log.Error().Err(err).Str("component", "Authorize").Str("user_id", userID).Msg("")
				return response.WriteErrorResponse(c, errs.ErrInternalServer, nil)
			}

			if !authz.Authorize(principal, action) {
				return response.WriteErrorResponse(c, errs.ErrForbidden, nil)
			}

			c.Set(ContextKeyPrincipal, principal)
			return next(c)
		}
	}
}
