package domain

import "time"

// User 操作用户（对应 users 表）
// Minimal identity record: owns advertisements and is stamped onto archive
// snapshots as the acting user.
type User struct {
	UserID       string    `db:"user_id"`
	Account      string    `db:"account"` // UNIQUE
	Nickname     string    `db:"nickname"`
	PasswordHash []byte    `db:"password_hash"` // sha256(password)
	IsAdmin      bool      `db:"is_admin"`
	CreatedAt    time.Time `db:"created_at"`
}
