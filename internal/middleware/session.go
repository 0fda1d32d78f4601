package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotello/internal/apperr"
    "github.com/iliyamo/hotello/internal/auth"
)

// Context keys set by SessionAuth for downstream handlers.
const (
    // CtxSession holds the authenticated model.UserSession.
    CtxSession = "session"
    // CtxUserID holds the authenticated user's id as uint64.
    CtxUserID = "user_id"
)

// SessionAuth returns an Echo middleware that authenticates the signed
// session credential. The credential is read from the "session" cookie
// first and from a Bearer Authorization header as a fallback, then run
// through the full verification sequence (existence, reverification
// flag, IP comparison, expiry, signature). On success the session and
// user id are stored on the request context.
//
// A flagged session is answered with 403 and a payload naming the
// session and user so the client can start the code challenge; every
// other authentication failure is a 401 with the failure reason only.
func SessionAuth(a *auth.Service) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            credential := ""
            if ck, err := c.Cookie("session"); err == nil && ck.Value != "" {
                credential = ck.Value
            } else if h := c.Request().Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
                credential = strings.TrimPrefix(h, "Bearer ")
            }
            if credential == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing session credential"})
            }

            sess, err := a.Authenticate(c.Request().Context(), credential, c.RealIP())
            if err != nil {
                ae := apperr.From(err)
                switch ae.Kind {
                case apperr.ForbiddenReverify:
                    return c.JSON(http.StatusForbidden, echo.Map{
                        "error":     ae.Message,
                        "sessionId": ae.SessionID,
                        "userId":    ae.UserID,
                    })
                case apperr.Upstream:
                    return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": ae.Message})
                default:
                    return c.JSON(http.StatusUnauthorized, echo.Map{"error": ae.Message})
                }
            }

            c.Set(CtxSession, sess)
            c.Set(CtxUserID, sess.UserID)
            return next(c)
        }
    }
}
