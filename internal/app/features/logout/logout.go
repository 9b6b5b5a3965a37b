// internal/app/features/logout/logout.go
package logout

import (
	"net/http"

	"github.com/dalemusser/stratawatch/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler provides logout handlers.
type Handler struct {
	sessionMgr *auth.SessionManager
	logger     *zap.Logger
}

// NewHandler creates a new logout Handler.
func NewHandler(sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		sessionMgr: sessionMgr,
		logger:     logger,
	}
}

// Routes returns a chi.Router with logout routes mounted.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireOperator)
	r.Post("/", h.handleLogout)
	r.Get("/", h.handleLogout) // Allow GET for simple logout links
	return r
}

// handleLogout terminates the operator session.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessionMgr.DestroySession(w, r)
	h.logger.Info("operator signed out",
		zap.String("remote_addr", r.RemoteAddr))

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
