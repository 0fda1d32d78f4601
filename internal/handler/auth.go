package handler

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotello/internal/auth"
    "github.com/iliyamo/hotello/internal/mailer"
    "github.com/iliyamo/hotello/internal/middleware"
    "github.com/iliyamo/hotello/internal/model"
    "github.com/iliyamo/hotello/internal/repository"
    "github.com/iliyamo/hotello/internal/token"
)

// sessionCookieName is the HttpOnly cookie carrying the signed session
// credential. It is only ever written through the cookie-write
// endpoint, never directly from a JSON response.
const sessionCookieName = "session"

// AuthHandler bundles dependencies for identity endpoints.
type AuthHandler struct {
    Auth      *auth.Service
    Users     *repository.UserRepo
    Mailer    mailer.Mailer
    JWTSecret string
    BaseURL   string // public origin used to build email links
    Secure    bool   // set Secure on cookies (off for local dev)
}

func NewAuthHandler(a *auth.Service, users *repository.UserRepo, m mailer.Mailer, jwtSecret, baseURL string, secure bool) *AuthHandler {
    return &AuthHandler{Auth: a, Users: users, Mailer: m, JWTSecret: jwtSecret, BaseURL: baseURL, Secure: secure}
}

// ----- DTOs -----

type signupReq struct {
    Email     string  `json:"email"`
    PhoneNum  *string `json:"phoneNum"`
    FirstName string  `json:"firstName"`
    LastName  string  `json:"lastName"`
    Age       uint8   `json:"age"`
}
type loginReq struct {
    Email string `json:"email"`
}
type verifyReq struct {
    UserID    uint64  `json:"userId"`
    Code      string  `json:"code"`
    SessionID *uint64 `json:"sessionId"` // present only when reverifying a flagged session
}
type resendReq struct {
    UserID uint64 `json:"userId"`
}
type updateMeReq struct {
    FirstName string  `json:"firstName"`
    LastName  string  `json:"lastName"`
    Age       uint8   `json:"age"`
    PhoneNum  *string `json:"phoneNum"`
}
type emailChangeReq struct {
    NewEmail string `json:"newEmail"`
}

type userPart struct {
    ID        uint64  `json:"id"`
    Email     string  `json:"email"`
    PhoneNum  *string `json:"phoneNum"`
    FirstName string  `json:"firstName"`
    LastName  string  `json:"lastName"`
    Age       uint8   `json:"age"`
    Role      string  `json:"role"`
    IsNewUser bool    `json:"isNewUser"`
}

func toUserPart(u model.User) userPart {
    return userPart{
        ID:        u.ID,
        Email:     u.Email,
        PhoneNum:  u.PhoneNum,
        FirstName: u.FirstName,
        LastName:  u.LastName,
        Age:       u.Age,
        Role:      u.Role,
        IsNewUser: u.IsNewUser,
    }
}

// Signup creates the account and mails the first login code.
func (h *AuthHandler) Signup(c echo.Context) error {
    var req signupReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if req.Email == "" || req.FirstName == "" || req.LastName == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email, firstName and lastName are required"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    uid, err := h.Auth.Signup(ctx, auth.SignupInput{
        Email:     req.Email,
        PhoneNum:  req.PhoneNum,
        FirstName: req.FirstName,
        LastName:  req.LastName,
        Age:       req.Age,
    }, c.RealIP())
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"userId": uid, "message": "verification code sent"})
}

// Login looks the account up by email and mails a fresh code. The
// response carries the user id the client must echo back on verify.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if req.Email == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    u, err := h.Auth.Login(ctx, req.Email, c.RealIP())
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"userId": u.ID, "message": "verification code sent"})
}

// Verify consumes a submitted code. A fresh login answers with the
// compound credential plus a one-minute cookie-write token authorizing
// the session cookie name; the client redeems both on the cookie
// endpoint, which is the only place the session cookie is ever set. A
// reverification (sessionId present) restores the flagged session and
// returns no new credential.
func (h *AuthHandler) Verify(c echo.Context) error {
    var req verifyReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.UserID == 0 || req.Code == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "userId and code required"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    res, err := h.Auth.ConsumeCode(ctx, req.UserID, req.Code, req.SessionID, c.RealIP())
    if err != nil {
        return respondError(c, err)
    }
    if res.Credential == "" {
        return c.JSON(http.StatusOK, echo.Map{"message": "session restored", "sessionId": res.SessionID})
    }
    writeToken, err := token.Issue(h.JWTSecret, token.PurposeCookieWrite, sessionCookieName, token.CookieWriteTTL)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "try again later"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "sessionId":   res.SessionID,
        "credential":  res.Credential,
        "cookieName":  sessionCookieName,
        "cookieToken": writeToken,
    })
}

// Resend mails a new code without invalidating outstanding ones.
func (h *AuthHandler) Resend(c echo.Context) error {
    var req resendReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.UserID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "userId required"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    if err := h.Auth.Resend(ctx, req.UserID, c.RealIP()); err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "verification code sent"})
}

type writeCookieReq struct {
    Token string `json:"token"`
    Name  string `json:"name"`
    Value string `json:"value"`
}

// WriteCookie sets one HttpOnly cookie. The cookie-write token binds
// the cookie name it authorizes and must match the name requested
// here, so no other endpoint can be tricked into writing arbitrary
// cookies. The token lives one minute, long enough to carry the
// authorization from the verify response to this request and no more.
func (h *AuthHandler) WriteCookie(c echo.Context) error {
    var req writeCookieReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.Token == "" || req.Name == "" || req.Value == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "token, name and value required"})
    }
    boundName, ok := token.Verify(h.JWTSecret, req.Token, token.PurposeCookieWrite)
    if !ok || boundName != req.Name {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
    }
    c.SetCookie(&http.Cookie{
        Name:     req.Name,
        Value:    req.Value,
        Path:     "/",
        Expires:  time.Now().UTC().Add(auth.SessionTTL),
        HttpOnly: true,
        Secure:   h.Secure,
        SameSite: http.SameSiteLaxMode,
    })
    return c.JSON(http.StatusOK, echo.Map{"message": "cookie set"})
}

// Me returns the authenticated user's row.
func (h *AuthHandler) Me(c echo.Context) error {
    uid, ok := c.Get(middleware.CtxUserID).(uint64)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    u, err := h.Users.GetByID(ctx, uid)
    if err != nil {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
    }
    return c.JSON(http.StatusOK, toUserPart(u))
}

// UpdateMe changes the mutable profile fields. Email is excluded; it
// moves only through the two-step email-change flow.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
    uid, ok := c.Get(middleware.CtxUserID).(uint64)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
    }
    var req updateMeReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.FirstName == "" || req.LastName == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "firstName and lastName required"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    if err := h.Users.UpdateDetails(ctx, uid, req.FirstName, req.LastName, req.Age, req.PhoneNum); err != nil {
        if err == repository.ErrPhoneExists {
            return c.JSON(http.StatusConflict, echo.Map{"error": "phone number already exists"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
    }
    u, err := h.Users.GetByID(ctx, uid)
    if err != nil {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
    }
    return c.JSON(http.StatusOK, toUserPart(u))
}

// RequestEmailChange mails a confirmation link to the requested new
// address. The current address is untouched until the link is opened.
func (h *AuthHandler) RequestEmailChange(c echo.Context) error {
    uid, ok := c.Get(middleware.CtxUserID).(uint64)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
    }
    var req emailChangeReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.NewEmail = strings.ToLower(strings.TrimSpace(req.NewEmail))
    if req.NewEmail == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "newEmail required"})
    }

    bind, err := token.IssueEmailChange(h.JWTSecret, uid, req.NewEmail)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "try again later"})
    }
    link := h.BaseURL + "/v1/auth/email-change/confirm?token=" + bind
    if err := h.Mailer.SendEmailChangeLink(req.NewEmail, link); err != nil {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "could not send email, try again later"})
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "confirmation link sent"})
}

// ConfirmEmailChange applies the address carried by a valid
// email-change token.
func (h *AuthHandler) ConfirmEmailChange(c echo.Context) error {
    raw := c.QueryParam("token")
    if raw == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
    }
    uid, newEmail, ok := token.VerifyEmailChange(h.JWTSecret, raw)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    if err := h.Auth.ConfirmEmailChange(ctx, uid, newEmail); err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "email updated"})
}

// Logout deletes exactly the presenting session and expires the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
    sess, ok := c.Get(middleware.CtxSession).(model.UserSession)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    if err := h.Auth.Logout(ctx, sess.SessionToken); err != nil {
        return respondError(c, err)
    }
    expireSessionCookie(c, h.Secure)
    return c.NoContent(http.StatusNoContent)
}

// LogoutAll deletes every session the user owns.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
    uid, ok := c.Get(middleware.CtxUserID).(uint64)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    if err := h.Auth.LogoutAll(ctx, uid); err != nil {
        return respondError(c, err)
    }
    expireSessionCookie(c, h.Secure)
    return c.NoContent(http.StatusNoContent)
}

func expireSessionCookie(c echo.Context, secure bool) {
    c.SetCookie(&http.Cookie{
        Name:     sessionCookieName,
        Value:    "",
        Path:     "/",
        Expires:  time.Unix(0, 0),
        MaxAge:   -1,
        HttpOnly: true,
        Secure:   secure,
        SameSite: http.SameSiteLaxMode,
    })
}

// reqCtx derives a bounded context for repository calls.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), 5*time.Second)
}
