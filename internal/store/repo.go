package store

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
	// ErrListingNotFound is returned when a sale listing is not found
	ErrListingNotFound = errors.New("book for sale not found")

	// ErrInvalidListing is returned when stored constraints reject the fields
	ErrInvalidListing = errors.New("book for sale fields violate constraints")
)

// Repository handles sale listing persistence
type Repository struct {
	db  *db.DB
	log *zap.Logger
}

// NewRepository creates a new store repository
func NewRepository(database *db.DB, logger *zap.Logger) *Repository {
	return &Repository{
		db:  database,
		log: logger,
	}
}

// Create persists a new listing and returns its generated id. Name and
// seller must be non-blank and at most 32 characters, price non-negative.
// A free listing at price 0 is allowed.
func (r *Repository) Create(ctx context.Context, name, soldBy string, price int) (int64, error) {
	if strings.TrimSpace(name) == "" || len(name) > 32 {
		return 0, ErrInvalidListing
	}
	if strings.TrimSpace(soldBy) == "" || len(soldBy) > 32 {
		return 0, ErrInvalidListing
	}
	if price < 0 {
		return 0, ErrInvalidListing
	}

	listing := &BookForSale{
		Name:      name,
		SoldBy:    soldBy,
		Price:     price,
		CreatedOn: time.Now(),
	}

	if err := r.db.WithContext(ctx).Create(listing).Error; err != nil {
		r.log.Error("Failed to create listing", zap.String("name", name), zap.Error(err))
		return 0, err
	}

	r.log.Info("Listing created", zap.Int64("id", listing.ID), zap.String("name", name), zap.String("soldBy", soldBy))
	return listing.ID, nil
}

// List returns all listings in insertion order.
func (r *Repository) List(ctx context.Context) ([]BookForSale, error) {
	var listings []BookForSale
	if err := r.db.WithContext(ctx).Order("id").Find(&listings).Error; err != nil {
		r.log.Error("Failed to list listings", zap.Error(err))
		return nil, err
	}
	return listings, nil
}

// ListByName returns all listings for an exact book name.
func (r *Repository) ListByName(ctx context.Context, name string) ([]BookForSale, error) {
	var listings []BookForSale
	if err := r.db.WithContext(ctx).Where("name = ?", name).Order("id").Find(&listings).Error; err != nil {
		r.log.Error("Failed to list listings by name", zap.String("name", name), zap.Error(err))
		return nil, err
	}
	return listings, nil
}

// ListBySoldBy returns all listings of a single seller.
func (r *Repository) ListBySoldBy(ctx context.Context, soldBy string) ([]BookForSale, error) {
	var listings []BookForSale
	if err := r.db.WithContext(ctx).Where("sold_by = ?", soldBy).Order("id").Find(&listings).Error; err != nil {
		r.log.Error("Failed to list listings by seller", zap.String("soldBy", soldBy), zap.Error(err))
		return nil, err
	}
	return listings, nil
}

// LastPosted returns the ten most recently created listings, newest first.
func (r *Repository) LastPosted(ctx context.Context) ([]BookForSale, error) {
	var listings []BookForSale
	if err := r.db.WithContext(ctx).Order("created_on desc").Limit(10).Find(&listings).Error; err != nil {
		r.log.Error("Failed to list last posted listings", zap.Error(err))
		return nil, err
	}
	return listings, nil
}

// Get retrieves a listing by id
func (r *Repository) Get(ctx context.Context, id int64) (*BookForSale, error) {
	var listing BookForSale
	err := r.db.WithContext(ctx).First(&listing, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		r.log.Error("Failed to get listing", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return &listing, nil
}

// Update replaces the data fields of the stored listing.
func (r *Repository) Update(ctx context.Context, listing *BookForSale) error {
	var existing BookForSale
	err := r.db.WithContext(ctx).First(&existing, listing.ID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrListingNotFound
		}
		return err
	}

	if strings.TrimSpace(listing.Name) == "" || len(listing.Name) > 32 {
		return ErrInvalidListing
	}
	if strings.TrimSpace(listing.SoldBy) == "" || len(listing.SoldBy) > 32 {
		return ErrInvalidListing
	}
	if listing.Price < 0 {
		return ErrInvalidListing
	}

	if err := r.db.WithContext(ctx).Save(listing).Error; err != nil {
		r.log.Error("Failed to update listing", zap.Int64("id", listing.ID), zap.Error(err))
		return err
	}
	return nil
}

// Delete removes a listing by id.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&BookForSale{}, id)
	if result.Error != nil {
		r.log.Error("Failed to delete listing", zap.Int64("id", id), zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrListingNotFound
	}

	r.log.Info("Listing deleted", zap.Int64("id", id))
	return nil
}
