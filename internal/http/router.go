package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"metroads/internal/service"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
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

func (r *Router) Handle(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterRoutes wires every API endpoint. Login is open; the rest of the
// API requires a bearer token.
func (r *Router) RegisterRoutes(
	auth *service.AuthService,
	authHandler *AuthHandler,
	catalogHandler *CatalogHandler,
	adHandler *AdvertisementHandler,
	archiveHandler *ArchiveHandler,
) {
	protect := func(h http.Handler) http.Handler {
		return RequireAuth(auth, r.logger, h)
	}

	r.Handle("/api/v1/auth/login", authHandler)
	r.Handle("/api/v1/auth/logout", authHandler)
	r.Handle("/api/v1/auth/me", protect(authHandler))

	r.Handle("/api/v1/lines", protect(catalogHandler))
	r.Handle("/api/v1/lines/", protect(catalogHandler))
	r.Handle("/api/v1/stations", protect(catalogHandler))
	r.Handle("/api/v1/stations/", protect(catalogHandler))
	r.Handle("/api/v1/positions", protect(catalogHandler))
	r.Handle("/api/v1/positions/", protect(catalogHandler))

	r.Handle("/api/v1/advertisements", protect(adHandler))
	r.Handle("/api/v1/advertisements/", protect(adHandler))

	r.Handle("/api/v1/advertisements-archive", protect(archiveHandler))
	r.Handle("/api/v1/advertisements-archive/", protect(archiveHandler))

	r.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok("ok"))
	}))
}
