package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router wraps the standard library http.ServeMux (no third-party routing
// dependency needed for a surface this small).
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func methodOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}

// RegisterDispatchRoutes wires the claim workflow behind the auth middleware.
func (r *Router) RegisterDispatchRoutes(d *DispatchHandler, mw *AuthMiddleware) {
	r.Handle("/eligible", methodOnly(http.MethodGet, mw.Require(d.Eligible)))
	r.Handle("/claim", methodOnly(http.MethodPost, mw.Require(d.Claim)))
	r.Handle("/submit", methodOnly(http.MethodPost, mw.Require(d.Submit)))
	r.Handle("/remarks", methodOnly(http.MethodGet, mw.Require(d.Remarks)))
	r.Handle("/remarks/export", methodOnly(http.MethodGet, mw.Require(d.ExportRemarks)))
}

// RegisterAuthRoutes wires session issuance and introspection (open routes).
func (r *Router) RegisterAuthRoutes(a *AuthHandler) {
	r.Handle("/login", methodOnly(http.MethodPost, a.Login))
	r.Handle("/logout", methodOnly(http.MethodPost, a.Logout))
	r.Handle("/me", methodOnly(http.MethodGet, a.Me))
}
