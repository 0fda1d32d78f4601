package middleware // middleware provides shared request processing for handlers

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotello/internal/model"
)

// CtxUser holds the full model.User loaded by RequireRole.
const CtxUser = "user"

// UserLoader resolves a user id to its row. *repository.UserRepo
// satisfies it.
type UserLoader interface {
    GetByID(ctx context.Context, id uint64) (model.User, error)
}

// RequireRole returns a middleware that loads the authenticated user's
// row and enforces that its role is one of the allowed set. It assumes
// SessionAuth ran earlier and stored the user id in the context. The
// loaded user is stored under CtxUser so handlers do not fetch it
// again.
func RequireRole(users UserLoader, roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id, ok := c.Get(CtxUserID).(uint64)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
            }
            u, err := users.GetByID(c.Request().Context(), id)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account not found"})
            }
            if !allowed[u.Role] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            c.Set(CtxUser, u)
            return next(c)
        }
    }
}
