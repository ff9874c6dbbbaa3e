package httpapi

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"metroads/internal/domain"
	"metroads/internal/service"
)

type contextKey string

const userContextKey contextKey = "user"

// AuthHandler 登录/登出/当前用户
type AuthHandler struct {
	auth   *service.AuthService
	logger *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/auth/login":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.login(w, r)
	case "/api/v1/auth/logout":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.logout(w, r)
	case "/api/v1/auth/me":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.me(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	resp, err := h.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), bearerToken(r)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.Unauthorizedf("missing token"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(service.UserItem{
		UserID:   u.UserID,
		Account:  u.Account,
		Nickname: u.Nickname,
		IsAdmin:  u.IsAdmin,
	}))
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// RequireAuth resolves the bearer token and stores the user in the request
// context before calling next.
func RequireAuth(auth *service.AuthService, logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := auth.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey, u)))
	})
}

// UserFrom returns the authenticated user placed by RequireAuth.
func UserFrom(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(userContextKey).(*domain.User)
	return u, ok
}

// actingUserID is "" on unauthenticated paths; archive rows then record a
// NULL acting user.
func actingUserID(ctx context.Context) string {
	if u, ok := UserFrom(ctx); ok {
		return u.UserID
	}
	return ""
}
