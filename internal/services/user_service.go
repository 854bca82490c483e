package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/isdelr/expense-tracker-be/internal/apperr"
	"github.com/isdelr/expense-tracker-be/internal/auth"
	"github.com/isdelr/expense-tracker-be/internal/models"
)

// bcrypt ignores input past this many bytes.
const maxPasswordBytes = 72

var errInvalidCredentials = apperr.Unauthenticated("Invalid email or password.")

// RegisterInput is the payload for creating an account.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginInput is the payload for exchanging credentials for a token.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordInput is the payload for replacing a password.
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, input RegisterInput) (models.User, error)
	Authenticate(ctx context.Context, input LoginInput) (models.User, error)
	GetUserByID(ctx context.Context, id int64) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	ChangePassword(ctx context.Context, id int64, input ChangePasswordInput) error
	DeleteUser(ctx context.Context, id int64) error
}

// UserService provides business logic for user management.
type UserService struct {
	db     *sql.DB
	events EventServiceProvider
	now    func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB, events EventServiceProvider) *UserService {
	return &UserService{db: db, events: events, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkPasswordLength(password string) error {
	if len(password) > maxPasswordBytes {
		return apperr.Validation(fmt.Sprintf("password must be at most %d bytes.", maxPasswordBytes))
	}
	return nil
}

// Register creates a new account. The password is hashed here, before the
// insert; the plaintext is never stored.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (models.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeEmail(input.Email)
	if err := validateInput(input); err != nil {
		return models.User{}, err
	}
	if err := checkPasswordLength(input.Password); err != nil {
		return models.User{}, err
	}

	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM users WHERE email = ? LIMIT 1", input.Email).Scan(&exists)
	if err == nil {
		return models.User{}, apperr.Conflict("User already exists.")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.Internal(err)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return models.User{}, apperr.Internal(err)
	}

	now := s.now().UTC()
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		input.Name, input.Email, hash, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, apperr.Conflict("User already exists.")
		}
		return models.User{}, apperr.Internal(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return models.User{}, apperr.Internal(err)
	}

	recordEvent(ctx, s.events, id, "auth.register", LevelInfo, "Account created.")
	return models.User{ID: id, Name: input.Name, Email: input.Email, CreatedAt: now}, nil
}

// Authenticate verifies a user's credentials. Unknown email and wrong
// password produce the same error.
func (s *UserService) Authenticate(ctx context.Context, input LoginInput) (models.User, error) {
	input.Email = normalizeEmail(input.Email)
	if err := validateInput(input); err != nil {
		return models.User{}, err
	}

	user, err := s.GetUserByEmail(ctx, input.Email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			auth.BurnPasswordCheck(input.Password)
			return models.User{}, errInvalidCredentials
		}
		return models.User{}, err
	}

	if !auth.CheckPassword(input.Password, user.PasswordHash) {
		recordEvent(ctx, s.events, user.ID, "auth.login.fail", LevelWarn, "Failed login attempt.")
		return models.User{}, errInvalidCredentials
	}

	recordEvent(ctx, s.events, user.ID, "auth.login", LevelInfo, "Logged in.")
	// Don't send the password hash to the client
	user.PasswordHash = ""
	return user, nil
}

// GetUserByID retrieves a single user by their ID, without the password hash.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	var user models.User
	row := s.db.QueryRowContext(ctx, "SELECT id, name, email, created_at FROM users WHERE id = ?", id)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, apperr.NotFound("User not found.")
		}
		return models.User{}, apperr.Internal(err)
	}
	return user, nil
}

// GetUserByEmail retrieves a single user by their email, including the password hash.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?",
		normalizeEmail(email),
	)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, apperr.NotFound("User not found.")
		}
		return models.User{}, apperr.Internal(err)
	}
	return user, nil
}

// ChangePassword verifies the current password, then hashes and stores the new one.
// Tokens issued before the change stay valid until they expire.
func (s *UserService) ChangePassword(ctx context.Context, id int64, input ChangePasswordInput) error {
	if err := validateInput(input); err != nil {
		return err
	}
	if err := checkPasswordLength(input.NewPassword); err != nil {
		return err
	}

	var currentHash string
	err := s.db.QueryRowContext(ctx, "SELECT password_hash FROM users WHERE id = ?", id).Scan(&currentHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("User not found.")
		}
		return apperr.Internal(err)
	}

	if !auth.CheckPassword(input.CurrentPassword, currentHash) {
		return apperr.Unauthenticated("Current password is incorrect.")
	}

	hash, err := auth.HashPassword(input.NewPassword)
	if err != nil {
		return apperr.Internal(err)
	}

	if _, err := s.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?",
		hash, s.now().UTC(), id,
	); err != nil {
		return apperr.Internal(err)
	}

	recordEvent(ctx, s.events, id, "auth.password", LevelInfo, "Password changed.")
	return nil
}

// DeleteUser removes a user. Their expenses, recurring entries and events
// are removed with them by the schema's cascading foreign keys.
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return apperr.Internal(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperr.Internal(err)
	}
	if affected == 0 {
		return apperr.NotFound("User not found.")
	}
	return nil
}
