// Package schema holds the data-transfer records shared by the wire
// contracts of all bookexam services. Fields are pointers so that a
// decoded body distinguishes an absent field from a zero value.
package schema

import "time"

// BookDto represents a book entity on the wire.
type BookDto struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Genre       *string `json:"genre,omitempty"`
	Author      *string `json:"author,omitempty"`
	Price       *int    `json:"price,omitempty"`
	Rating      *int    `json:"rating,omitempty"`
	ID          *string `json:"id,omitempty"`
}

// BookForSaleDto represents a book that is posted for sale.
type BookForSaleDto struct {
	Name      *string    `json:"name,omitempty"`
	SoldBy    *string    `json:"soldBy,omitempty"`
	Price     *int       `json:"price,omitempty"`
	ID        *int64     `json:"id,omitempty"`
	CreatedOn *time.Time `json:"createdOn,omitempty"`
}

// MemberDto represents a member. Books maps a book name to the price the
// member sells it for.
type MemberDto struct {
	Username    *string        `json:"username,omitempty"`
	Books       map[string]int `json:"books,omitempty"`
	ID          *string        `json:"id,omitempty"`
	MemberSince *time.Time     `json:"memberSince,omitempty"`
}

// UserDto represents a gateway user account.
type UserDto struct {
	Username *string  `json:"username,omitempty"`
	Password *string  `json:"password,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	Enabled  *bool    `json:"enabled,omitempty"`
}
