package book

import (
	"strconv"

	"github.com/stellaselena/PG6100-bookexam/internal/schema"
)

// Book represents a book in the catalog database. Optional columns are
// pointers so a merge patch can clear them.
type Book struct {
	ID          int64   `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"type:varchar(50);not null;uniqueIndex" json:"name"`
	Description *string `gorm:"type:varchar(250)" json:"description,omitempty"`
	Genre       *string `gorm:"type:varchar(50)" json:"genre,omitempty"`
	Author      *string `gorm:"type:varchar(50)" json:"author,omitempty"`
	Price       *int    `json:"price,omitempty"`
	Rating      *int    `json:"rating,omitempty"`
}

// TableName specifies the table name for the Book model
func (Book) TableName() string {
	return "books"
}

// ToDto converts the entity to its wire representation.
func ToDto(b Book) schema.BookDto {
	name := b.Name
	id := strconv.FormatInt(b.ID, 10)
	return schema.BookDto{
		Name:        &name,
		Description: b.Description,
		Genre:       b.Genre,
		Author:      b.Author,
		Price:       b.Price,
		Rating:      b.Rating,
		ID:          &id,
	}
}

// ToDtos converts a slice of entities.
func ToDtos(books []Book) []schema.BookDto {
	dtos := make([]schema.BookDto, 0, len(books))
	for _, b := range books {
		dtos = append(dtos, ToDto(b))
	}
	return dtos
}
