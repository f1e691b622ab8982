package model

import "time"

// User represents a registered user.
type User struct {
	ID           int64      `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"type:varchar(100);not null;unique" json:"username"`
	Email        string     `gorm:"type:varchar(255);not null;unique" json:"email"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"` // Not exposed in API responses
	ProfilePic   string     `gorm:"type:text" json:"profilePic,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

// TableName pins the table name for GORM.
func (User) TableName() string { return "users" }
