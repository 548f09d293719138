package echoapi

import (
	"crypto/subtle"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/woolzip/backend/core"
	"github.com/woolzip/backend/core/user"
)

// syncUserMiddleware mirrors the token's profile claims into the users table
// so joins always have a row to hit, whatever the auth provider did last.
func syncUserMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if _, err = svc.Sync(ctx.Request().Context(), claims.Subject, claims.DisplayName, claims.Email); err != nil {
				return errors.Wrap(err, "syncing user profile")
			}
			return next(ctx)
		}
	}
}

// cronAuthMiddleware guards the sweep trigger with a shared bearer secret.
func cronAuthMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if conf.Quiz.CronSecret == "" {
				return core.NewAPIError("misconfigured", "cron secret is not configured")
			}
			header := ctx.Request().Header.Get(echo.HeaderAuthorization)
			token := strings.TrimPrefix(header, "Bearer ")
			if subtle.ConstantTimeCompare([]byte(token), []byte(conf.Quiz.CronSecret)) != 1 {
				return errUnauthorized
			}
			return next(ctx)
		}
	}
}

// queryTokenMiddleware copies a ?token= query parameter into the
// Authorization header. Browsers cannot set headers on websocket dials.
func queryTokenMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if tok := ctx.QueryParam("token"); tok != "" && ctx.Request().Header.Get(echo.HeaderAuthorization) == "" {
				ctx.Request().Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
			}
			return next(ctx)
		}
	}
}
