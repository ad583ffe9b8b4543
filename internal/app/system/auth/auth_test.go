package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/showteam/teamhub/internal/app/session"
	"github.com/showteam/teamhub/internal/app/system/auth"
	"github.com/showteam/teamhub/internal/domain/models"
	"github.com/showteam/teamhub/internal/testutil/memstore"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T, key string) (*auth.SessionManager, *memstore.DB) {
	t.Helper()
	db := memstore.New()
	sm, err := auth.NewSessionManager(key, "test-session", "", 24*time.Hour, false, db.Users(), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm, db
}

// signIn returns the cookies a sign-in for userID sets.
func signIn(t *testing.T, sm *auth.SessionManager, userID string) []*http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/session", nil)
	if err := sm.SignIn(rec, req, userID); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("SignIn set no cookie")
	}
	return cookies
}

// whoami serves a request through LoadSession and returns the member id it saw.
func whoami(sm *auth.SessionManager, cookies []*http.Cookie) string {
	var seen string
	h := sm.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s, ok := session.FromContext(r.Context()); ok {
			seen = s.UserID()
		}
	}))
	req := httptest.NewRequest(http.MethodGet, "/teams", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)
	return seen
}

func TestLoadSession_SignedInMember(t *testing.T) {
	sm, db := newTestSessionManager(t, "test-session-key-must-be-32-chars-long")
	db.SeedUser(models.Member{ID: "u1", Name: "Ada"})

	cookies := signIn(t, sm, "u1")
	if got := whoami(sm, cookies); got != "u1" {
		t.Errorf("session member = %q, want u1", got)
	}
}

func TestLoadSession_UnknownUserIsAnonymous(t *testing.T) {
	sm, _ := newTestSessionManager(t, "test-session-key-must-be-32-chars-long")

	cookies := signIn(t, sm, "ghost")
	if got := whoami(sm, cookies); got != "" {
		t.Errorf("expected anonymous request, got member %q", got)
	}
}

func TestLoadSession_ForeignCookieIsIgnored(t *testing.T) {
	sm, db := newTestSessionManager(t, "test-session-key-must-be-32-chars-long")
	other, _ := newTestSessionManager(t, "another-session-key-of-32-chars-ok!!")
	db.SeedUser(models.Member{ID: "u1"})

	cookies := signIn(t, other, "u1")
	if got := whoami(sm, cookies); got != "" {
		t.Errorf("cookie signed with another key was accepted as %q", got)
	}
}

func TestSignOut_ExpiresCookie(t *testing.T) {
	sm, _ := newTestSessionManager(t, "test-session-key-must-be-32-chars-long")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/session", nil)
	if err := sm.SignOut(rec, req); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("expected an expired cookie, got %+v", cookies)
	}
}

func TestRequireSignedIn(t *testing.T) {
	sm, _ := newTestSessionManager(t, "")

	handler := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teams", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: got %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/teams", nil)
	req = req.WithContext(session.WithSession(req.Context(), session.New(models.Member{ID: "u1"})))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("signed in: got %d, want 200", rec.Code)
	}
}
