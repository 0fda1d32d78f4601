package handler

import (
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotello/internal/apperr"
)

// respondError maps a structured application error onto the wire. The
// message is always safe to echo; wrapped causes stay in the logs.
func respondError(c echo.Context, err error) error {
    ae := apperr.From(err)
    switch ae.Kind {
    case apperr.Validation:
        if len(ae.Fields) > 0 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": ae.Message, "fields": ae.Fields})
        }
        return c.JSON(http.StatusBadRequest, echo.Map{"error": ae.Message})
    case apperr.Unauthorized:
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": ae.Message})
    case apperr.ForbiddenReverify:
        return c.JSON(http.StatusForbidden, echo.Map{
            "error":     ae.Message,
            "sessionId": ae.SessionID,
            "userId":    ae.UserID,
        })
    case apperr.NotFound:
        return c.JSON(http.StatusNotFound, echo.Map{"error": ae.Message})
    case apperr.Conflict:
        return c.JSON(http.StatusConflict, echo.Map{"error": ae.Message})
    case apperr.RateLimited:
        c.Response().Header().Set("Retry-After", strconv.Itoa(ae.RetryAfter))
        return c.JSON(http.StatusTooManyRequests, echo.Map{"error": ae.Message, "retryAfter": ae.RetryAfter})
    default:
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": ae.Message})
    }
}
