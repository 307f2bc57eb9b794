package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bustracker-app/bustracker/internal/config"
	"github.com/bustracker-app/bustracker/internal/identity"
	"github.com/bustracker-app/bustracker/internal/sessions"
	"github.com/bustracker-app/bustracker/internal/tokens"
	"github.com/bustracker-app/bustracker/internal/users"
	"github.com/bustracker-app/bustracker/pkg/logger"
	"github.com/bustracker-app/bustracker/pkg/metrics"
	"github.com/bustracker-app/bustracker/pkg/middleware"
)

const (
	stateCookieName = "bt_oauth_state"
	nextCookieName  = "bt_next"

	// OAuth round trip to the provider should not take longer than this.
	oauthCookieMaxAge = 600
)

// errSignInDenied aborts the reconciliation transaction on a business denial
// so a denied sign-in can never commit row changes.
var errSignInDenied = errors.New("sign-in denied")

// OAuthClient is the provider flow the auth handler depends on. Satisfied by
// *oidc.Client and by test fakes.
type OAuthClient interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (identity.Claims, error)
}

// SignInFunc runs one claims reconciliation in one storage transaction.
type SignInFunc func(ctx context.Context, claims identity.Claims) (int64, identity.Kind, error)

// SessionManager is the session surface the auth handler needs.
type SessionManager interface {
	Create(ctx context.Context, userID int64, ttl time.Duration) (string, error)
	Delete(ctx context.Context, token string) error
}

// TransactionalSignIn wraps identity reconciliation in a single gorm
// transaction. Denials roll back via errSignInDenied; store faults roll back
// and propagate as errors.
func TransactionalSignIn(db *gorm.DB) SignInFunc {
	return func(ctx context.Context, claims identity.Claims) (int64, identity.Kind, error) {
		var (
			userID int64
			kind   identity.Kind
		)
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			svc := identity.NewService(users.NewRepository(tx), logger.L())
			id, k, err := svc.Reconcile(ctx, claims)
			if err != nil {
				return err
			}
			if k != identity.KindNone {
				kind = k
				return errSignInDenied
			}
			userID = id
			return nil
		})
		if err != nil && !errors.Is(err, errSignInDenied) {
			return 0, identity.KindNone, err
		}
		return userID, kind, nil
	}
}

// AuthHandler serves the sign-in and sign-out flow.
type AuthHandler struct {
	cfg      *config.Config
	oauth    OAuthClient
	signIn   SignInFunc
	sessions SessionManager
}

func NewAuthHandler(cfg *config.Config, oauth OAuthClient, signIn SignInFunc, s SessionManager) *AuthHandler {
	return &AuthHandler{cfg: cfg, oauth: oauth, signIn: signIn, sessions: s}
}

// Register routes on the root router.
func (h *AuthHandler) Register(r gin.IRouter) {
	r.GET("/login", h.Login)
	r.GET(h.cfg.Google.RedirectPath, h.Callback)
	r.GET("/logout", h.Logout)
	r.GET("/logged-out", h.LoggedOut)
}

// Login starts the authorization-code flow: anti-forgery state goes into a
// short-lived cookie, the requested destination is remembered across the
// provider round trip, and the user is sent to the provider.
func (h *AuthHandler) Login(c *gin.Context) {
	state, err := randomHex(16)
	if err != nil {
		logger.Error("failed to generate oauth state", zap.Error(err))
		renderMessage(c, http.StatusInternalServerError, messagePage{
			PageTitle: "Sign-In Failed",
			Heading:   "Sign-In Failed",
			Message:   "Something went wrong starting sign-in. Please try again.",
		})
		return
	}

	secure := h.secureCookies()
	c.SetCookie(stateCookieName, state, oauthCookieMaxAge, "/", "", secure, true)

	// If a protected route sent the user here, keep that destination.
	if next := c.Query("next"); isInternalPath(next) {
		c.SetCookie(nextCookieName, next, oauthCookieMaxAge, "/", "", secure, true)
	}

	c.Redirect(http.StatusFound, h.oauth.AuthCodeURL(state))
}

// Callback finishes the flow: state check, code exchange, reconciliation,
// session issue. Denials render the Access Denied page; infrastructure
// failures are server errors, never denials.
func (h *AuthHandler) Callback(c *gin.Context) {
	secure := h.secureCookies()
	wantState, stateErr := c.Cookie(stateCookieName)
	c.SetCookie(stateCookieName, "", -1, "/", "", secure, true)

	if errParam := c.Query("error"); errParam != "" {
		logger.Info("provider returned an oauth error", zap.String("error", errParam))
		renderMessage(c, http.StatusForbidden, messagePage{
			PageTitle:          "Sign-In Cancelled",
			Heading:            "Sign-In Cancelled",
			Message:            "The Google sign-in was not completed. Please try again.",
			PrimaryActionLabel: "Back to Sign In",
			PrimaryActionURL:   "/login",
		})
		return
	}

	state := c.Query("state")
	if stateErr != nil || state == "" || state != wantState {
		renderMessage(c, http.StatusBadRequest, messagePage{
			PageTitle:          "Sign-In Expired",
			Heading:            "Sign-In Expired",
			Message:            "Your sign-in attempt expired or was invalid. Please try again.",
			PrimaryActionLabel: "Back to Sign In",
			PrimaryActionURL:   "/login",
		})
		return
	}

	code := c.Query("code")
	if code == "" {
		renderMessage(c, http.StatusBadRequest, messagePage{
			PageTitle: "Sign-In Failed",
			Heading:   "Sign-In Failed",
			Message:   "The sign-in response was incomplete. Please try again.",
		})
		return
	}

	claims, err := h.oauth.Exchange(c.Request.Context(), code)
	if err != nil {
		logger.Error("oauth code exchange failed", zap.Error(err))
		metrics.SignIns.WithLabelValues("error").Inc()
		renderMessage(c, http.StatusInternalServerError, messagePage{
			PageTitle: "Sign-In Failed",
			Heading:   "Sign-In Failed",
			Message:   "We could not verify your Google sign-in. Please try again.",
		})
		return
	}

	userID, kind, err := h.signIn(c.Request.Context(), claims)
	if err != nil {
		logger.Error("sign-in reconciliation failed", zap.Error(err))
		metrics.SignIns.WithLabelValues("error").Inc()
		msg := "Something went wrong completing sign-in. Please try again."
		if errors.Is(err, users.ErrConflict) {
			msg = "Sign-in collided with another update to your account. Please try again."
		}
		renderMessage(c, http.StatusInternalServerError, messagePage{
			PageTitle: "Sign-In Failed",
			Heading:   "Sign-In Failed",
			Message:   msg,
		})
		return
	}

	if kind != identity.KindNone {
		metrics.SignIns.WithLabelValues(kind.String()).Inc()
		renderMessage(c, http.StatusForbidden, messagePage{
			PageTitle:            "Access Denied",
			Heading:              "Access Denied",
			Message:              kind.Message(),
			PrimaryActionLabel:   "Back to Sign In",
			PrimaryActionURL:     "/login",
			SecondaryActionLabel: "Back to Home",
			SecondaryActionURL:   "/",
		})
		return
	}

	metrics.SignIns.WithLabelValues("success").Inc()

	ttl := h.cfg.Session.TTL
	sessionToken, err := h.sessions.Create(c.Request.Context(), userID, ttl)
	if err != nil {
		logger.Error("failed to create session", zap.Error(err))
		renderMessage(c, http.StatusInternalServerError, messagePage{
			PageTitle: "Sign-In Failed",
			Heading:   "Sign-In Failed",
			Message:   "Something went wrong completing sign-in. Please try again.",
		})
		return
	}

	cookieValue, err := tokens.GenerateSessionToken(h.cfg.Session.Secret, userID, sessionToken, ttl)
	if err != nil {
		logger.Error("failed to sign session cookie", zap.Error(err))
		_ = h.sessions.Delete(c.Request.Context(), sessionToken)
		renderMessage(c, http.StatusInternalServerError, messagePage{
			PageTitle: "Sign-In Failed",
			Heading:   "Sign-In Failed",
			Message:   "Something went wrong completing sign-in. Please try again.",
		})
		return
	}
	c.SetCookie(middleware.SessionCookieName, cookieValue, int(ttl.Seconds()), "/", "", secure, true)

	next := "/home"
	if v, err := c.Cookie(nextCookieName); err == nil && isInternalPath(v) {
		next = v
	}
	c.SetCookie(nextCookieName, "", -1, "/", "", secure, true)

	c.Redirect(http.StatusFound, next)
}

// Logout revokes the server-side session and clears the cookie. A missing or
// garbled cookie still logs the browser out.
func (h *AuthHandler) Logout(c *gin.Context) {
	if raw, err := c.Cookie(middleware.SessionCookieName); err == nil && raw != "" {
		if _, sessionToken, err := tokens.ParseSessionToken(h.cfg.Session.Secret, raw); err == nil {
			if err := h.sessions.Delete(c.Request.Context(), sessionToken); err != nil {
				logger.Error("failed to delete session on logout", zap.Error(err))
			}
		}
	}
	c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", h.secureCookies(), true)
	c.Redirect(http.StatusFound, "/logged-out")
}

func (h *AuthHandler) LoggedOut(c *gin.Context) {
	c.HTML(http.StatusOK, "logged_out.html", gin.H{
		"PageTitle": "Signed Out",
	})
}

func (h *AuthHandler) secureCookies() bool {
	return h.cfg.Server.Environment == "production"
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// isInternalPath accepts only app-relative redirect targets.
func isInternalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//")
}

var _ SessionManager = (*sessions.Service)(nil)
