package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bustracker-app/bustracker/internal/sessions"
	"github.com/bustracker-app/bustracker/internal/tokens"
)

// SessionCookieName is the cookie holding the signed session token.
const SessionCookieName = "bt_session"

// ContextUserIDKey is the gin context key under which the authenticated
// user's id is stored.
const ContextUserIDKey = "userID"

// SessionValidator is the minimal session interface the middleware depends on.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*sessions.Session, error)
}

// RequireSession returns a Gin middleware that resolves the session cookie to
// an authenticated user. Requests without a valid session are redirected to
// the login page with the original URL carried in the `next` parameter.
func RequireSession(secret string, validator SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(SessionCookieName)
		if err != nil || raw == "" {
			redirectToLogin(c)
			return
		}

		userID, sessionToken, err := tokens.ParseSessionToken(secret, raw)
		if err != nil {
			redirectToLogin(c)
			return
		}

		sess, err := validator.Validate(c.Request.Context(), sessionToken)
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		if sess == nil || sess.UserID != userID {
			redirectToLogin(c)
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user's id stored by RequireSession.
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func redirectToLogin(c *gin.Context) {
	target := "/login"
	if next := nextURL(c.Request); next != "" {
		target += "?next=" + url.QueryEscape(next)
	}
	c.Redirect(http.StatusFound, target)
	c.Abort()
}

// nextURL captures the requested path so the login flow can return to it.
// Only app-internal paths are carried over.
func nextURL(r *http.Request) string {
	next := r.URL.RequestURI()
	next = strings.TrimSuffix(next, "?")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return ""
	}
	return next
}
