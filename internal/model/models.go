package model

import (
	"time"

	"gorm.io/datatypes"
)

// Rooms

// Room is the document row behind the database room store. State holds the
// whole game as JSON; Status and Round are copied out for listing.
type Room struct {
	ID        string         `gorm:"primaryKey;size:32"`
	State     datatypes.JSON `gorm:"not null"`
	Status    string         `gorm:"size:16;index"`
	Round     int
	Players   int
	UpdatedAt time.Time `gorm:"index"`
}

// Accounts & Billing

type Account struct {
	ID          string `gorm:"primaryKey;size:64"` // external user id (X-User-Id)
	Email       string `gorm:"size:255"`
	Username    string `gorm:"size:64"`
	Balance     int64  `gorm:"not null;default:0"`
	LastTopupAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type BillingLog struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	AccountID    string `gorm:"size:64;index"`
	Type         string `gorm:"size:16"` // settle/topup/create
	Delta        int64
	BalanceAfter int64
	MetaJSON     datatypes.JSON
	CreatedAt    time.Time
}
