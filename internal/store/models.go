package store

import (
	"time"

	"github.com/stellaselena/PG6100-bookexam/internal/schema"
)

// BookForSale is a single sale listing. Several members may list the same
// book; name and seller are bounded at 32 characters by the schema.
type BookForSale struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(32);not null" json:"name"`
	SoldBy    string    `gorm:"type:varchar(32);not null" json:"soldBy"`
	Price     int       `gorm:"not null" json:"price"`
	CreatedOn time.Time `json:"createdOn"`
}

// TableName specifies the table name for the BookForSale model
func (BookForSale) TableName() string {
	return "books_for_sale"
}

// ToDto converts the entity to its wire representation.
func ToDto(b BookForSale) schema.BookForSaleDto {
	name := b.Name
	soldBy := b.SoldBy
	price := b.Price
	id := b.ID
	created := b.CreatedOn
	return schema.BookForSaleDto{
		Name:      &name,
		SoldBy:    &soldBy,
		Price:     &price,
		ID:        &id,
		CreatedOn: &created,
	}
}

// ToDtos converts a slice of entities.
func ToDtos(books []BookForSale) []schema.BookForSaleDto {
	dtos := make([]schema.BookForSaleDto, 0, len(books))
	for _, b := range books {
		dtos = append(dtos, ToDto(b))
	}
	return dtos
}
