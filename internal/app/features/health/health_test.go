package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/stratawatch/internal/testutil"
	"go.uber.org/zap"
)

type fixedSessions int

func (f fixedSessions) OpenCount(time.Time) int { return int(f) }

func TestHandler_Check(t *testing.T) {
	db := testutil.SetupTestDB(t)

	h := NewHandler(db.Client(), fixedSessions(2), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	h.Check(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Check() status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Status != "ok" {
		t.Errorf("response status = %q, want %q", resp.Status, "ok")
	}
	if resp.Services["mongodb"] != "ok" {
		t.Errorf("mongodb status = %q, want %q", resp.Services["mongodb"], "ok")
	}
	if resp.OpenSessions != 2 {
		t.Errorf("open_sessions = %d, want 2", resp.OpenSessions)
	}
}

func TestHandler_Ready(t *testing.T) {
	db := testutil.SetupTestDB(t)

	h := NewHandler(db.Client(), nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()

	h.Ready(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Ready() status = %d, want %d", rec.Code, http.StatusOK)
	}

	if body := rec.Body.String(); body != `{"status":"ready"}` {
		t.Errorf("Ready() body = %q, want %q", body, `{"status":"ready"}`)
	}
}

func TestHandler_Live(t *testing.T) {
	// Live doesn't need DB - just check the handler works
	h := NewHandler(nil, nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	rec := httptest.NewRecorder()

	h.Live(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Live() status = %d, want %d", rec.Code, http.StatusOK)
	}

	if body := rec.Body.String(); body != `{"status":"alive"}` {
		t.Errorf("Live() body = %q, want %q", body, `{"status":"alive"}`)
	}
}
