package member

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stellaselena/PG6100-bookexam/internal/schema"
)

// BookMap maps a book name to the price the member sells it for. It is
// stored as a JSON column.
type BookMap map[string]int

// Value implements driver.Valuer
func (m BookMap) Value() (driver.Value, error) {
	if m == nil {
		m = BookMap{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (m *BookMap) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = BookMap{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into BookMap", src)
	}
}

// Member represents a registered member. The id is externally supplied and
// equals the gateway username.
type Member struct {
	ID          string    `gorm:"primaryKey;type:varchar(50)" json:"id"`
	Username    string    `gorm:"type:varchar(50);not null;uniqueIndex" json:"username"`
	Books       BookMap   `gorm:"type:text" json:"books"`
	MemberSince time.Time `json:"memberSince"`
}

// TableName specifies the table name for the Member model
func (Member) TableName() string {
	return "members"
}

// ToDto converts the entity to its wire representation.
func ToDto(m Member) schema.MemberDto {
	username := m.Username
	id := m.ID
	since := m.MemberSince
	return schema.MemberDto{
		Username:    &username,
		Books:       m.Books,
		ID:          &id,
		MemberSince: &since,
	}
}

// ToDtos converts a slice of entities.
func ToDtos(members []Member) []schema.MemberDto {
	dtos := make([]schema.MemberDto, 0, len(members))
	for _, m := range members {
		dtos = append(dtos, ToDto(m))
	}
	return dtos
}
