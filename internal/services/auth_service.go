package services

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	db *sql.DB
}

func NewAuthService(db *sql.DB) *AuthService {
	return &AuthService{db: db}
}

type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
}

// PermissionsForRole expands a stored role into the permission set carried
// in tokens and reported to websocket clients.
func PermissionsForRole(role string) []string {
	switch role {
	case "admin":
		return []string{"servers:read", "servers:write", "metrics:read", "audit:read", "users:manage"}
	case "operator":
		return []string{"servers:read", "servers:write", "metrics:read"}
	default:
		return []string{"servers:read", "metrics:read"}
	}
}

func (s *AuthService) GetByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password, role FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *AuthService) CreateUser(ctx context.Context, username, password, role string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if role == "" {
		role = "viewer"
	}

	u := User{Username: username, PasswordHash: string(hash), Role: role}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, password, role) VALUES ($1, $2, $3) RETURNING id`,
		username, u.PasswordHash, role,
	).Scan(&u.ID)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *AuthService) CheckPassword(u *User, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}
