package repository

import (
	"context"
	"database/sql"
	"fmt"

	"metroads/internal/domain"
)

type PostgresUsersRepository struct {
	db *sql.DB
}

func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

var _ UsersRepository = (*PostgresUsersRepository)(nil)

const userColumns = `user_id::text, account, nickname, password_hash, is_admin, created_at`

func scanUser(s interface{ Scan(...any) error }) (domain.User, error) {
	var u domain.User
	err := s.Scan(&u.UserID, &u.Account, &u.Nickname, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	return u, err
}

func (r *PostgresUsersRepository) Get(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, domain.NotFoundf("user not found")
	}
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NotFoundf("user not found: user_id=%s", userID)
		}
		return nil, err
	}
	return &u, nil
}

func (r *PostgresUsersRepository) GetByAccount(ctx context.Context, account string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE account = $1`, account))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NotFoundf("user not found: account=%s", account)
		}
		return nil, err
	}
	return &u, nil
}

// Upsert keys on account; used at startup to seed the admin user.
func (r *PostgresUsersRepository) Upsert(ctx context.Context, u domain.User) (string, error) {
	var userID string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (account, nickname, password_hash, is_admin)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account) DO UPDATE SET
			nickname = EXCLUDED.nickname,
			password_hash = EXCLUDED.password_hash,
			is_admin = EXCLUDED.is_admin
		RETURNING user_id::text`,
		u.Account, u.Nickname, u.PasswordHash, u.IsAdmin,
	).Scan(&userID)
	if err != nil {
		return "", fmt.Errorf("failed to upsert user: %w", err)
	}
	return userID, nil
}
