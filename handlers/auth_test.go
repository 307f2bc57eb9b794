package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bustracker-app/bustracker/internal/identity"
	"github.com/bustracker-app/bustracker/internal/tokens"
	"github.com/bustracker-app/bustracker/internal/users"
	"github.com/bustracker-app/bustracker/pkg/middleware"
)

type fakeOAuth struct {
	url    string
	claims identity.Claims
	err    error
}

func (f *fakeOAuth) AuthCodeURL(state string) string { return f.url + "?state=" + state }

func (f *fakeOAuth) Exchange(context.Context, string) (identity.Claims, error) {
	return f.claims, f.err
}

type fakeSessionManager struct {
	token   string
	created []int64
	deleted []string
	err     error
}

func (f *fakeSessionManager) Create(_ context.Context, userID int64, _ time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, userID)
	return f.token, nil
}

func (f *fakeSessionManager) Delete(_ context.Context, token string) error {
	f.deleted = append(f.deleted, token)
	return nil
}

func staticSignIn(userID int64, kind identity.Kind, err error) SignInFunc {
	return func(context.Context, identity.Claims) (int64, identity.Kind, error) {
		return userID, kind, err
	}
}

func TestLogin_RedirectsToProvider(t *testing.T) {
	r := newTestRouter()
	h := NewAuthHandler(newTestConfig(), &fakeOAuth{url: "https://provider/auth"}, nil, &fakeSessionManager{})
	h.Register(r)

	rq := httptest.NewRequest("GET", "/login?next=/bus-runs/abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, rq)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "https://provider/auth?state=")

	cookies := w.Result().Cookies()
	names := map[string]string{}
	for _, c := range cookies {
		names[c.Name] = c.Value
	}
	assert.NotEmpty(t, names[stateCookieName])
	assert.Equal(t, "/bus-runs/abc", names[nextCookieName])
}

func TestLogin_RejectsExternalNextURL(t *testing.T) {
	r := newTestRouter()
	h := NewAuthHandler(newTestConfig(), &fakeOAuth{url: "https://provider/auth"}, nil, &fakeSessionManager{})
	h.Register(r)

	rq := httptest.NewRequest("GET", "/login?next=//evil.example/phish", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, rq)

	require.Equal(t, http.StatusFound, w.Code)
	for _, c := range w.Result().Cookies() {
		assert.NotEqual(t, nextCookieName, c.Name)
	}
}

func callbackRequest(target, state string) *http.Request {
	rq := httptest.NewRequest("GET", target, nil)
	if state != "" {
		rq.AddCookie(&http.Cookie{Name: stateCookieName, Value: state})
	}
	return rq
}

func TestCallback_StateMismatch(t *testing.T) {
	r := newTestRouter()
	h := NewAuthHandler(newTestConfig(), &fakeOAuth{}, nil, &fakeSessionManager{})
	h.Register(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, callbackRequest("/oauth/callback?state=bad&code=x", "good"))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Sign-In Expired")
}

func TestCallback_MissingStateCookie(t *testing.T) {
	r := newTestRouter()
	h := NewAuthHandler(newTestConfig(), &fakeOAuth{}, nil, &fakeSessionManager{})
	h.Register(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, callbackRequest("/oauth/callback?state=s&code=x", ""))

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCallback_ProviderError(t *testing.T) {
	r := newTestRouter()
	h := NewAuthHandler(newTestConfig(), &fakeOAuth{}, nil, &fakeSessionManager{})
	h.Register(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, callbackRequest("/oauth/callback?error=access_denied", "s"))

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Sign-In Cancelled")
}

func TestCallback_Success(t *testing.T) {
	sm := &fakeSessionManager{token: "session-token"}
	r := newTestRouter()
	h := NewAuthHandler(newTestConfig(),
		&fakeOAuth{claims: identity.Claims{Sub: "g-1", Email: "a@x.org"}},
		staticSignIn(7, identity.KindNone, nil),
		sm,
	)
	h.Register(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, callbackRequest("/oauth/callback?state=s&code=c", "s"))

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/home", w.Header().Get("Location"))
	require.Equal(t, []int64{7}, sm.created)

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)

	userID, sid, err := tokens.ParseSessionToken("test-secret", sessionCookie.Value)
	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)
	assert.Equal(t, "session-token", sid)
}

func TestCallback_SuccessHonorsNextCookie(t *testing.T) {
	sm := &fakeSessionManager{token: "tok"}
	r := newTestRouter()
	h := NewAuthHandler(newTestConfig(),
		&fakeOAuth{claims: identity.Claims{Sub: "g-1", Email: "a@x.org"}},
		staticSignIn(7, identity.KindNone, nil),
		sm,
	)
	h.Register(r)

	rq := callbackRequest("/oauth/callback?state=s&code=c", "s")
	rq.AddCookie(&http.Cookie{Name: nextCookieName, Value: "/bus-runs/abc"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, rq)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/bus-runs/abc", w.Header().Get("Location"))
}

func TestCallback_DenialRendersAccessDenied(t *testing.T) {
	sm := &fakeSessionManager{token: "tok"}
	r := newTestRouter()
	h := NewAuthHandler(newTestConfig(),
		&fakeOAuth{claims: identity.Claims{Sub: "g-1", Email: "a@x.org"}},
		staticSignIn(0, identity.KindUserNotFound, nil),
		sm,
	)
	h.Register(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, callbackRequest("/oauth/callback?state=s&code=c", "s"))

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Access Denied")
	assert.Contains(t, w.Body.String(), "you don&#39;t have a user account")
	// no session on denial
	assert.Empty(t, sm.created)
}

func TestCallback_StoreFaultIsServerError(t *testing.T) {
	r := newTestRouter()
	h := NewAuthHandler(newTestConfig(),
		&fakeOAuth{claims: identity.Claims{Sub: "g-1", Email: "a@x.org"}},
		staticSignIn(0, identity.KindNone, errors.New("db down")),
		&fakeSessionManager{},
	)
	h.Register(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, callbackRequest("/oauth/callback?state=s&code=c", "s"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Sign-In Failed")
}

func TestCallback_UniqueConflictSuggestsRetry(t *testing.T) {
	r := newTestRouter()
	h := NewAuthHandler(newTestConfig(),
		&fakeOAuth{claims: identity.Claims{Sub: "g-1", Email: "a@x.org"}},
		staticSignIn(0, identity.KindNone, users.ErrConflict),
		&fakeSessionManager{},
	)
	h.Register(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, callbackRequest("/oauth/callback?state=s&code=c", "s"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "try again")
}

func TestCallback_ExchangeFailure(t *testing.T) {
	r := newTestRouter()
	h := NewAuthHandler(newTestConfig(),
		&fakeOAuth{err: errors.New("exchange failed")},
		nil,
		&fakeSessionManager{},
	)
	h.Register(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, callbackRequest("/oauth/callback?state=s&code=c", "s"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestLogout_DeletesSessionAndClearsCookie(t *testing.T) {
	sm := &fakeSessionManager{}
	r := newTestRouter()
	h := NewAuthHandler(newTestConfig(), &fakeOAuth{}, nil, sm)
	h.Register(r)

	cookie, err := tokens.GenerateSessionToken("test-secret", 7, "session-token", time.Hour)
	require.NoError(t, err)

	rq := httptest.NewRequest("GET", "/logout", nil)
	rq.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: cookie})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, rq)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/logged-out", w.Header().Get("Location"))
	assert.Equal(t, []string{"session-token"}, sm.deleted)

	var cleared bool
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestLogout_WithoutCookieStillRedirects(t *testing.T) {
	r := newTestRouter()
	h := NewAuthHandler(newTestConfig(), &fakeOAuth{}, nil, &fakeSessionManager{})
	h.Register(r)

	w := httptest.NewRecorder()
	rq := httptest.NewRequest("GET", "/logout", nil)
	r.ServeHTTP(w, rq)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/logged-out", w.Header().Get("Location"))
}

func TestLoggedOutPage(t *testing.T) {
	r := newTestRouter()
	h := NewAuthHandler(newTestConfig(), &fakeOAuth{}, nil, &fakeSessionManager{})
	h.Register(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/logged-out", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "signed out")
}
