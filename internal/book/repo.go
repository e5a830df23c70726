package book

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stellaselena/PG6100-bookexam/internal/db"
)

var (
	// ErrBookNotFound is returned when a book is not found
	ErrBookNotFound = errors.New("book not found")

	// ErrInvalidBook is returned when stored constraints reject the fields
	ErrInvalidBook = errors.New("book fields violate constraints")
)

// Repository handles book persistence
type Repository struct {
	db  *db.DB
	log *zap.Logger
}

// NewRepository creates a new book repository
func NewRepository(database *db.DB, logger *zap.Logger) *Repository {
	return &Repository{
		db:  database,
		log: logger,
	}
}

// Create persists a new book and returns its generated id.
func (r *Repository) Create(ctx context.Context, book *Book) (int64, error) {
	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		r.log.Error("Failed to create book", zap.String("name", book.Name), zap.Error(err))
		return 0, err
	}

	r.log.Info("Book created", zap.Int64("id", book.ID), zap.String("name", book.Name))
	return book.ID, nil
}

// List returns all books in insertion order.
func (r *Repository) List(ctx context.Context) ([]Book, error) {
	var books []Book
	if err := r.db.WithContext(ctx).Order("id").Find(&books).Error; err != nil {
		r.log.Error("Failed to list books", zap.Error(err))
		return nil, err
	}
	return books, nil
}

// ListByName returns all books whose name matches exactly.
func (r *Repository) ListByName(ctx context.Context, name string) ([]Book, error) {
	var books []Book
	if err := r.db.WithContext(ctx).Where("name = ?", name).Order("id").Find(&books).Error; err != nil {
		r.log.Error("Failed to list books by name", zap.String("name", name), zap.Error(err))
		return nil, err
	}
	return books, nil
}

// Get retrieves a book by id
func (r *Repository) Get(ctx context.Context, id int64) (*Book, error) {
	var book Book
	err := r.db.WithContext(ctx).First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		r.log.Error("Failed to get book", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return &book, nil
}

// FirstByName retrieves the first book with the given name.
func (r *Repository) FirstByName(ctx context.Context, name string) (*Book, error) {
	var book Book
	err := r.db.WithContext(ctx).Where("name = ?", name).Order("id").First(&book).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		r.log.Error("Failed to get book by name", zap.String("name", name), zap.Error(err))
		return nil, err
	}
	return &book, nil
}

// Update replaces every data field of the stored book. The entity bounds
// are price >= 0 and rating 0-5 when set, name non-blank; the stricter
// create-time checks are the handlers' concern.
func (r *Repository) Update(ctx context.Context, book *Book) error {
	var existing Book
	err := r.db.WithContext(ctx).First(&existing, book.ID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookNotFound
		}
		return err
	}

	if book.Name == "" {
		return ErrInvalidBook
	}
	if book.Price != nil && *book.Price < 0 {
		return ErrInvalidBook
	}
	if book.Rating != nil && (*book.Rating < 0 || *book.Rating > 5) {
		return ErrInvalidBook
	}

	// Save writes all columns, clearing the ones patched to nil.
	if err := r.db.WithContext(ctx).Save(book).Error; err != nil {
		r.log.Error("Failed to update book", zap.Int64("id", book.ID), zap.Error(err))
		return err
	}
	return nil
}

// UpdatePrice sets just the price column, bounded to 0-1000.
func (r *Repository) UpdatePrice(ctx context.Context, id int64, price int) error {
	var existing Book
	err := r.db.WithContext(ctx).First(&existing, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookNotFound
		}
		return err
	}

	if price < 0 || price > 1000 {
		return ErrInvalidBook
	}

	if err := r.db.WithContext(ctx).Model(&Book{}).Where("id = ?", id).Update("price", price).Error; err != nil {
		r.log.Error("Failed to update price", zap.Int64("id", id), zap.Error(err))
		return err
	}
	return nil
}

// Delete removes a book by id.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&Book{}, id)
	if result.Error != nil {
		r.log.Error("Failed to delete book", zap.Int64("id", id), zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBookNotFound
	}

	r.log.Info("Book deleted", zap.Int64("id", id))
	return nil
}
