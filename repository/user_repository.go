package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"waveger/db"
	"waveger/model"
)

// ErrDuplicateUser is reported when a username or email is already taken.
type ErrDuplicateUser struct {
	Field string // "username" or "email"
}

func (e *ErrDuplicateUser) Error() string {
	return fmt.Sprintf("%s already registered", e.Field)
}

// UserRepository defines data operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateLastLogin(ctx context.Context, id int64) error
	UpdateProfilePic(ctx context.Context, id int64, objectName string) (string, error)
}

// postgresUserRepository implements UserRepository for Postgres.
type postgresUserRepository struct {
	DB *sql.DB
}

// NewPostgresUserRepository creates a new instance of postgresUserRepository.
func NewPostgresUserRepository() UserRepository {
	return &postgresUserRepository{DB: db.DB}
}

// CreateUser inserts a new user and returns its ID.
func (r *postgresUserRepository) CreateUser(ctx context.Context, user *model.User) (int64, error) {
	query := `INSERT INTO users (username, email, password_hash, created_at)
	          VALUES ($1, $2, $3, $4) RETURNING id`

	var id int64
	err := r.DB.QueryRowContext(ctx, query, user.Username, user.Email, user.PasswordHash, time.Now()).Scan(&id)
	if err != nil {
		// Postgres reports unique violations as 23505 with the index name in
		// the message; we only need to know which field collided.
		msg := err.Error()
		if strings.Contains(msg, "duplicate key") || strings.Contains(msg, "23505") {
			if strings.Contains(msg, "username") {
				return 0, &ErrDuplicateUser{Field: "username"}
			}
			if strings.Contains(msg, "email") {
				return 0, &ErrDuplicateUser{Field: "email"}
			}
			return 0, &ErrDuplicateUser{Field: "username"}
		}
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}
	return id, nil
}

func (r *postgresUserRepository) getUser(ctx context.Context, where string, arg interface{}) (*model.User, error) {
	query := `SELECT id, username, email, password_hash, COALESCE(profile_pic, ''), created_at, last_login
	          FROM users WHERE ` + where
	row := r.DB.QueryRowContext(ctx, query, arg)

	user := &model.User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.ProfilePic, &user.CreatedAt, &user.LastLogin)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by ID. Returns (nil, nil) when not found.
func (r *postgresUserRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getUser(ctx, "id = $1", id)
}

// GetUserByUsername retrieves a user by username. Returns (nil, nil) when not found.
func (r *postgresUserRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getUser(ctx, "username = $1", username)
}

// GetUserByEmail retrieves a user by email. Returns (nil, nil) when not found.
func (r *postgresUserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getUser(ctx, "email = $1", email)
}

// UpdateLastLogin stamps the user's last successful login.
func (r *postgresUserRepository) UpdateLastLogin(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update last login for user %d: %w", id, err)
	}
	return nil
}

// UpdateProfilePic swaps the stored profile picture object name and returns
// the previous one, so the caller can delete the old object.
func (r *postgresUserRepository) UpdateProfilePic(ctx context.Context, id int64, objectName string) (string, error) {
	var old sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT profile_pic FROM users WHERE id = $1`, id).Scan(&old)
	if err != nil {
		return "", fmt.Errorf("failed to read profile pic for user %d: %w", id, err)
	}

	_, err = r.DB.ExecContext(ctx, `UPDATE users SET profile_pic = $1 WHERE id = $2`, objectName, id)
	if err != nil {
		return "", fmt.Errorf("failed to update profile pic for user %d: %w", id, err)
	}
	return old.String, nil
}
