package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"metroads/internal/domain"
	"metroads/internal/repository"
	"metroads/internal/store"
)

const sessionKeyPrefix = "auth:token:"

// AuthService 登录与令牌校验
// Tokens are opaque uuids mapped to user ids in the KV store with a TTL;
// logout and expiry both just drop the key.
type AuthService struct {
	users    repository.UsersRepository
	sessions store.KV
	tokenTTL time.Duration
	logger   *zap.Logger
}

func NewAuthService(users repository.UsersRepository, sessions store.KV, tokenTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{users: users, sessions: sessions, tokenTTL: tokenTTL, logger: logger}
}

// HashPassword sha256 口令摘要
func HashPassword(password string) []byte {
	h := sha256.Sum256([]byte(password))
	return h[:]
}

type LoginRequest struct {
	Account  string `json:"account"`
	Password string `json:"password"`
}

type UserItem struct {
	UserID   string `json:"user_id"`
	Account  string `json:"account"`
	Nickname string `json:"nickname"`
	IsAdmin  bool   `json:"is_admin"`
}

type LoginResponse struct {
	Token string   `json:"token"`
	User  UserItem `json:"user"`
}

func userItem(u domain.User) UserItem {
	return UserItem{
		UserID:   u.UserID,
		Account:  u.Account,
		Nickname: u.Nickname,
		IsAdmin:  u.IsAdmin,
	}
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if req.Account == "" || req.Password == "" {
		return nil, domain.Validationf("account and password are required")
	}

	u, err := s.users.GetByAccount(ctx, req.Account)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, domain.Unauthorizedf("invalid account or password")
		}
		return nil, err
	}
	if subtle.ConstantTimeCompare(u.PasswordHash, HashPassword(req.Password)) != 1 {
		return nil, domain.Unauthorizedf("invalid account or password")
	}

	token := uuid.NewString()
	if err := s.sessions.Set(ctx, sessionKeyPrefix+token, u.UserID, s.tokenTTL); err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", zap.String("account", u.Account))
	return &LoginResponse{Token: token, User: userItem(*u)}, nil
}

// Authenticate resolves a bearer token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.Unauthorizedf("missing token")
	}
	userID, err := s.sessions.Get(ctx, sessionKeyPrefix+token)
	if err != nil {
		if err == store.ErrMiss {
			return nil, domain.Unauthorizedf("invalid or expired token")
		}
		return nil, err
	}
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, domain.Unauthorizedf("invalid or expired token")
		}
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Del(ctx, sessionKeyPrefix+token)
}

// SeedAdmin ensures the bootstrap admin account exists. Runs at startup.
func (s *AuthService) SeedAdmin(ctx context.Context, account, password string) error {
	userID, err := s.users.Upsert(ctx, domain.User{
		Account:      account,
		Nickname:     "Administrator",
		PasswordHash: HashPassword(password),
		IsAdmin:      true,
	})
	if err != nil {
		return err
	}
	s.logger.Info("admin account seeded", zap.String("user_id", userID), zap.String("account", account))
	return nil
}
