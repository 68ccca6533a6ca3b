package models

import (
	"time"
)

// User is a back-office staff account.
type User struct {
	ID             uint `gorm:"primaryKey"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Username       string `gorm:"size:255;not null;unique"`
	HashedPassword []byte `gorm:"not null"`
}
