package login

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	errorsfeature "github.com/dalemusser/stratawatch/internal/app/features/errors"
	"github.com/dalemusser/stratawatch/internal/app/system/auth"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*Handler, *auth.SessionManager) {
	t.Helper()
	hash, err := auth.HashPassword("open sesame")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	sm, err := auth.NewSessionManager(
		"login-feature-session-key-0123456789ab",
		"", hash, 24*time.Hour, false, zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	return NewHandler(sm, errorsfeature.NewErrorLogger(zap.NewNop()), zap.NewNop()), sm
}

func postLogin(password, ret string) *http.Request {
	form := url.Values{"password": {password}, "return": {ret}}
	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestHandleLoginSuccess(t *testing.T) {
	h, sm := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.handleLogin(rec, postLogin("open sesame", "/dashboard"))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/dashboard" {
		t.Fatalf("Location = %q, want /dashboard", loc)
	}

	// The issued cookie authenticates later requests.
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	if !sm.IsAuthenticated(r) {
		t.Fatal("session cookie not accepted after login")
	}
}

func TestHandleLoginOpenRedirectBlocked(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.handleLogin(rec, postLogin("open sesame", "https://evil.example/phish"))

	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Fatalf("Location = %q, want /", loc)
	}

	rec = httptest.NewRecorder()
	h.handleLogin(rec, postLogin("open sesame", "//evil.example"))
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Fatalf("Location = %q, want / for protocol-relative target", loc)
	}
}

func TestSanitizeReturn(t *testing.T) {
	cases := map[string]string{
		"":                  "/",
		"/":                 "/",
		"/dashboard?x=1":    "/dashboard?x=1",
		"relative/path":     "/",
		"//evil.example":    "/",
		"https://evil.test": "/",
	}
	for in, want := range cases {
		if got := sanitizeReturn(in); got != want {
			t.Errorf("sanitizeReturn(%q) = %q, want %q", in, got, want)
		}
	}
}
