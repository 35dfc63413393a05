package model

import (
	"time"
)

type User struct {
	ID        string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	FirstName string  `gorm:"type:varchar(255)" json:"firstName"`
	LastName  string  `gorm:"type:varchar(255)" json:"lastName"`
	Email     string  `gorm:"type:varchar(191);uniqueIndex;not null" json:"email"`
	Password  *string `gorm:"type:varchar(255)" json:"-"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPassword reports whether the user signed up with local credentials.
// OAuth-only users have no password hash.
func (u *User) HasPassword() bool {
	return u.Password != nil && *u.Password != ""
}

// Account links a user to their Google identity. One per user.
type Account struct {
	ID            string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID        string     `gorm:"type:varchar(36);uniqueIndex;not null" json:"userId"`
	AccessToken   string     `gorm:"type:text;not null" json:"-"`
	RefreshToken  string     `gorm:"type:text" json:"-"`
	EmailVerified bool       `gorm:"default:false" json:"emailVerified"`
	Picture       string     `gorm:"type:varchar(512)" json:"picture"`
	IssuedAt      *time.Time `json:"issuedAt,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
