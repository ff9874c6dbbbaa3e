package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"metroads/internal/domain"
)

// MemoryUsersRepository supports login when DB is disabled.
type MemoryUsersRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User // userID -> User
}

func NewMemoryUsersRepository() *MemoryUsersRepository {
	return &MemoryUsersRepository{users: map[string]domain.User{}}
}

var _ UsersRepository = (*MemoryUsersRepository)(nil)

func (r *MemoryUsersRepository) Get(_ context.Context, userID string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[userID]
	if !ok {
		return nil, domain.NotFoundf("user not found: user_id=%s", userID)
	}
	return &u, nil
}

func (r *MemoryUsersRepository) GetByAccount(_ context.Context, account string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Account == account {
			cp := u
			return &cp, nil
		}
	}
	return nil, domain.NotFoundf("user not found: account=%s", account)
}

func (r *MemoryUsersRepository) Upsert(_ context.Context, u domain.User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, cur := range r.users {
		if cur.Account == u.Account {
			cur.Nickname = u.Nickname
			cur.PasswordHash = u.PasswordHash
			cur.IsAdmin = u.IsAdmin
			r.users[id] = cur
			return id, nil
		}
	}
	u.UserID = uuid.NewString()
	u.CreatedAt = time.Now()
	r.users[u.UserID] = u
	return u.UserID, nil
}
