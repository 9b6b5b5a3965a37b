// internal/app/features/login/login.go
package login

import (
	"net/http"
	"strings"

	errorsfeature "github.com/dalemusser/stratawatch/internal/app/features/errors"
	"github.com/dalemusser/stratawatch/internal/app/system/auth"
	"github.com/dalemusser/stratawatch/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler provides the operator login handlers. There is a single operator
// account whose password hash lives in configuration; no user store exists.
type Handler struct {
	sessionMgr *auth.SessionManager
	errLog     *errorsfeature.ErrorLogger
	logger     *zap.Logger
}

// NewHandler creates a new login Handler.
func NewHandler(sessionMgr *auth.SessionManager, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		sessionMgr: sessionMgr,
		errLog:     errLog,
		logger:     logger,
	}
}

// LoginVM is the view model for the login page.
type LoginVM struct {
	viewdata.BaseVM
	Error     string
	ReturnURL string
}

// Routes returns a chi.Router with login routes mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/", h.showLogin)
	r.Post("/", h.handleLogin)

	return r
}

// showLogin displays the operator login form.
func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if h.sessionMgr.IsAuthenticated(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	vm := LoginVM{
		BaseVM:    viewdata.New(r),
		ReturnURL: query.Get(r, "return"),
	}
	vm.Title = "Sign In"

	templates.Render(w, r, "login/index", vm)
}

// handleLogin verifies the operator password and establishes a session.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse login form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	password := r.PostFormValue("password")
	returnURL := sanitizeReturn(r.PostFormValue("return"))

	if !h.sessionMgr.VerifyPassword(password) {
		h.logger.Warn("operator login failed",
			zap.String("remote_addr", r.RemoteAddr))

		vm := LoginVM{
			BaseVM:    viewdata.New(r),
			Error:     "Incorrect password.",
			ReturnURL: returnURL,
		}
		vm.Title = "Sign In"

		w.WriteHeader(http.StatusUnauthorized)
		templates.Render(w, r, "login/index", vm)
		return
	}

	if err := h.sessionMgr.CreateSession(w, r); err != nil {
		h.errLog.Log(r, "failed to create session", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("operator signed in",
		zap.String("remote_addr", r.RemoteAddr))

	http.Redirect(w, r, returnURL, http.StatusSeeOther)
}

// sanitizeReturn keeps redirects on-site: only rooted paths pass through.
func sanitizeReturn(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return "/"
	}
	return raw
}
