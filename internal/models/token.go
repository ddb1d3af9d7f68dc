package models

import "time"

// Token is a pre-generated single-use VIP code.
type Token struct {
	ID     uint       `gorm:"primaryKey" json:"id"`
	Code   string     `gorm:"size:32;not null;uniqueIndex" json:"code"`
	IsUsed bool       `gorm:"not null;default:false;index:idx_vip_tokens_available,priority:1" json:"is_used"`
	UsedBy *string    `gorm:"size:36;index" json:"used_by"`
	UsedAt *time.Time `json:"used_at"`
	// AssignedTransactionID is set when a settlement hands the code out. Guest
	// purchases leave IsUsed false so the buyer can redeem the code later.
	AssignedTransactionID *uint     `gorm:"uniqueIndex" json:"assigned_transaction_id"`
	CreatedAt             time.Time `gorm:"index:idx_vip_tokens_available,priority:2" json:"created_at"`
}

func (Token) TableName() string {
	return "vip_tokens"
}
