package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	SessionCookie = "DAYTRIP_SID"
	SessionKey    = "sid"
)

type TokenValidator interface {
	Validate(token string) (string, error)
}

// Session resolves the caller's session id from a Bearer token, then the
// session cookie, and otherwise starts a new session. The id is stored
// under SessionKey. A Bearer token that does not validate is rejected.
func Session(tokens TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid := ""
			if auth := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
				v, err := tokens.Validate(strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")))
				if err != nil {
					return c.JSON(http.StatusUnauthorized, map[string]string{"error": "UNAUTHORIZED", "message": "invalid session token"})
				}
				sid = v
			}
			if sid == "" {
				if ck, err := c.Cookie(SessionCookie); err == nil {
					sid = strings.TrimSpace(ck.Value)
				}
			}
			if sid == "" {
				sid = uuid.NewString()
				c.SetCookie(&http.Cookie{Name: SessionCookie, Value: sid, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
			}
			c.Set(SessionKey, sid)
			return next(c)
		}
	}
}

// SessionID returns the id set by Session, or "" outside it.
func SessionID(c echo.Context) string {
	sid, _ := c.Get(SessionKey).(string)
	return sid
}
