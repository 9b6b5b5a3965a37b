// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"net/http"

	"github.com/dalemusser/stratawatch/internal/app/system/auth"
	"github.com/dalemusser/stratawatch/internal/domain/models"
	"github.com/gorilla/csrf"
)

// BaseVM contains common fields for all view models.
// Embed this struct in your feature-specific view models.
//
// Usage:
//
//	type myPageData struct {
//	    viewdata.BaseVM
//	    // page-specific fields...
//	}
type BaseVM struct {
	SiteName string

	// Operator context (from session middleware)
	IsLoggedIn bool

	// Page context
	Title       string
	CurrentPath string

	// Security
	CSRFToken string // CSRF token for forms (use in hidden input field)
}

// sessionMgr is set by Init and used by New to read the operator session.
var sessionMgr *auth.SessionManager

// Init sets the session manager for viewdata. Call once at startup from
// bootstrap, before any handler renders a page.
func Init(sm *auth.SessionManager) {
	sessionMgr = sm
}

// New builds a BaseVM for the request.
func New(r *http.Request) BaseVM {
	vm := BaseVM{
		SiteName:    models.DefaultSiteName,
		CurrentPath: r.URL.Path,
		CSRFToken:   csrf.Token(r),
	}
	if sessionMgr != nil {
		vm.IsLoggedIn = sessionMgr.IsAuthenticated(r)
	}
	return vm
}

// NewBaseVM builds a BaseVM with a title set.
func NewBaseVM(r *http.Request, title string) BaseVM {
	vm := New(r)
	vm.Title = title
	return vm
}
