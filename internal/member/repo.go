package member

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stellaselena/PG6100-bookexam/internal/db"
)

var (
	// ErrMemberNotFound is returned when a member is not found
	ErrMemberNotFound = errors.New("member not found")

	// ErrInvalidMember is returned when stored constraints reject the fields
	ErrInvalidMember = errors.New("member fields violate constraints")
)

// Repository handles member persistence
type Repository struct {
	db  *db.DB
	log *zap.Logger
}

// NewRepository creates a new member repository
func NewRepository(database *db.DB, logger *zap.Logger) *Repository {
	return &Repository{
		db:  database,
		log: logger,
	}
}

// Create persists a new member. One member per id; the username must be
// non-blank and at most 50 characters.
func (r *Repository) Create(ctx context.Context, id, username string, books BookMap) error {
	if strings.TrimSpace(username) == "" || len(username) > 50 || strings.TrimSpace(id) == "" {
		return ErrInvalidMember
	}
	if books == nil {
		books = BookMap{}
	}

	member := &Member{
		ID:          id,
		Username:    username,
		Books:       books,
		MemberSince: time.Now(),
	}

	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		r.log.Error("Failed to create member", zap.String("id", id), zap.Error(err))
		return err
	}

	r.log.Info("Member created", zap.String("id", id), zap.String("username", username))
	return nil
}

// ExistsByUsername reports whether any member holds the username.
func (r *Repository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&Member{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// List returns all members in insertion order.
func (r *Repository) List(ctx context.Context) ([]Member, error) {
	var members []Member
	if err := r.db.WithContext(ctx).Order("member_since").Find(&members).Error; err != nil {
		r.log.Error("Failed to list members", zap.Error(err))
		return nil, err
	}
	return members, nil
}

// ListByUsername returns members whose username matches exactly.
func (r *Repository) ListByUsername(ctx context.Context, username string) ([]Member, error) {
	var members []Member
	if err := r.db.WithContext(ctx).Where("username = ?", username).Find(&members).Error; err != nil {
		r.log.Error("Failed to list members by username", zap.String("username", username), zap.Error(err))
		return nil, err
	}
	return members, nil
}

// Get retrieves a member by id
func (r *Repository) Get(ctx context.Context, id string) (*Member, error) {
	var member Member
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		r.log.Error("Failed to get member", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return &member, nil
}

// Update replaces the username and book map of the stored member.
func (r *Repository) Update(ctx context.Context, id, username string, books BookMap) error {
	member, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	if strings.TrimSpace(username) == "" || len(username) > 50 {
		return ErrInvalidMember
	}

	member.Username = username
	member.Books = books
	if member.Books == nil {
		member.Books = BookMap{}
	}

	if err := r.db.WithContext(ctx).Save(member).Error; err != nil {
		r.log.Error("Failed to update member", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// UpdateUsername sets just the username.
func (r *Repository) UpdateUsername(ctx context.Context, id, username string) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}

	if strings.TrimSpace(username) == "" || len(username) > 50 {
		return ErrInvalidMember
	}

	if err := r.db.WithContext(ctx).Model(&Member{}).Where("id = ?", id).Update("username", username).Error; err != nil {
		r.log.Error("Failed to update username", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// AddBook records a book the member sells.
func (r *Repository) AddBook(ctx context.Context, id, name string, price int) error {
	member, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	if member.Books == nil {
		member.Books = BookMap{}
	}
	member.Books[name] = price

	if err := r.db.WithContext(ctx).Model(member).Update("books", member.Books).Error; err != nil {
		r.log.Error("Failed to add book to member", zap.String("id", id), zap.String("book", name), zap.Error(err))
		return err
	}
	return nil
}

// Delete removes a member by id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Member{})
	if result.Error != nil {
		r.log.Error("Failed to delete member", zap.String("id", id), zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}

	r.log.Info("Member deleted", zap.String("id", id))
	return nil
}
