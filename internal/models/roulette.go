package models

import "time"

// RouletteSpin is written once per transaction and never updated.
type RouletteSpin struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	TransactionID uint      `gorm:"not null;uniqueIndex" json:"transaction_id"`
	UserID        string    `gorm:"size:36;not null;index" json:"user_id"`
	Result        string    `gorm:"size:10;not null" json:"result"` // win, lose
	VIPDaysWon    int       `gorm:"column:vip_days_won;not null;default:0" json:"vip_days_won"`
	CreatedAt     time.Time `json:"created_at"`

	Transaction Transaction `gorm:"foreignKey:TransactionID" json:"-"`
}

func (RouletteSpin) TableName() string {
	return "roulette_spins"
}
