package entities

import "time"

type UserRole string

const (
	UserRoleRegular   UserRole = "regular"
	UserRoleLibrarian UserRole = "librarian"
)

func (r UserRole) Valid() bool {
	return r == UserRoleRegular || r == UserRoleLibrarian
}

type Account struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Email        string    `gorm:"size:255" json:"email,omitempty"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         UserRole  `gorm:"size:20;not null;default:'regular'" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}

func (a *Account) IsLibrarian() bool {
	return a.Role == UserRoleLibrarian
}
