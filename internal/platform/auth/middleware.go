package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/siratop/sistema-clinica/internal/platform/apperr"
)

// Resolver turns an authenticated account into an Identity. It returns an
// error wrapping apperr.ErrNotAuthorized for disabled or deleted accounts.
type Resolver interface {
	Resolve(ctx context.Context, accountID uuid.UUID) (Identity, error)
}

// SessionMiddleware resolves the request's Identity from the session token.
// Requests without a usable session continue as anonymous; a session that
// points at a disabled account is cleared.
func SessionMiddleware(sessions *SessionManager, resolver Resolver, logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if IsPublicPath(c.Request().URL.Path) {
				return next(c)
			}

			tokenStr, err := tokenFrom(c)
			if err != nil {
				SetIdentity(c, Identity{})
				return next(c)
			}

			accountID, err := sessions.Parse(tokenStr)
			if err != nil {
				sessions.Logout(c)
				SetIdentity(c, Identity{})
				return next(c)
			}

			id, err := resolver.Resolve(c.Request().Context(), accountID)
			if err != nil {
				if errors.Is(err, apperr.ErrNotAuthorized) || errors.Is(err, apperr.ErrNotFound) {
					logger.Info().Str("account_id", accountID.String()).Msg("session dropped for inactive account")
					sessions.Logout(c)
					SetIdentity(c, Identity{})
					return next(c)
				}
				return err
			}

			SetIdentity(c, id)
			return next(c)
		}
	}
}
