package gateway

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/stellaselena/PG6100-bookexam/internal/auth"
)

// ErrBadCredentials is returned for a wrong password or a disabled account.
var ErrBadCredentials = errors.New("bad credentials")

// Service wraps the account store with password hashing and verification.
type Service struct {
	repo *Repository
	log  *zap.Logger
}

// NewService creates a new account service
func NewService(repo *Repository, log *zap.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

// Register creates an account with a bcrypt-hashed password. Usernames are
// lowercased; any role other than ADMIN collapses to USER.
func (s *Service) Register(ctx context.Context, username, password, role string) (*User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return nil, ErrBadCredentials
	}

	if strings.ToUpper(role) == auth.RoleAdmin {
		role = auth.RoleAdmin
	} else {
		role = auth.RoleUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &User{
		Username: username,
		Password: string(hash),
		Roles:    RoleList{role},
		Enabled:  true,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies the password against the stored hash.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.Get(ctx, strings.ToLower(username))
	if err != nil {
		return nil, err
	}
	if !user.Enabled {
		return nil, ErrBadCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}
	return user, nil
}
