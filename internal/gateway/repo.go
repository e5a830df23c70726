package gateway

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stellaselena/PG6100-bookexam/internal/db"
)

var (
	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists is returned when the username is already taken
	ErrUserExists = errors.New("username already taken")
)

// Repository handles user account persistence
type Repository struct {
	db  *db.DB
	log *zap.Logger
}

// NewRepository creates a new user repository
func NewRepository(database *db.DB, logger *zap.Logger) *Repository {
	return &Repository{
		db:  database,
		log: logger,
	}
}

// Create persists a new user. The username is the primary key, so a second
// registration with the same name fails with ErrUserExists.
func (r *Repository) Create(ctx context.Context, user *User) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrUserExists
	}

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		r.log.Error("Failed to create user", zap.String("username", user.Username), zap.Error(err))
		return err
	}

	r.log.Info("User created", zap.String("username", user.Username))
	return nil
}

// Get retrieves a user by username
func (r *Repository) Get(ctx context.Context, username string) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		r.log.Error("Failed to get user", zap.String("username", username), zap.Error(err))
		return nil, err
	}
	return &user, nil
}
