package gateway

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// RoleList is the set of roles granted to a user, stored as a JSON column.
type RoleList []string

// Value implements driver.Valuer
func (l RoleList) Value() (driver.Value, error) {
	if l == nil {
		l = RoleList{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *RoleList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = RoleList{}
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into RoleList", src)
	}
}

// User is a gateway account. Password holds the bcrypt hash, never the
// plaintext.
type User struct {
	Username string   `gorm:"primaryKey;type:varchar(50)" json:"username"`
	Password string   `gorm:"not null" json:"-"`
	Roles    RoleList `gorm:"type:text" json:"roles"`
	Enabled  bool     `gorm:"not null;default:true" json:"enabled"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}
