package models

import (
	"time"
)

// Transaction is one PIX charge attempt. Rows are never deleted.
type Transaction struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	ExternalID          string     `gorm:"size:64;not null;uniqueIndex" json:"external_id"`
	GatewayReferenceID  *string    `gorm:"size:128;uniqueIndex" json:"gateway_reference_id"`
	UserID              *string    `gorm:"size:36;index" json:"user_id"` // nil for guest checkout
	Purpose             string     `gorm:"size:20;not null;default:'vip'" json:"purpose"`
	AmountCents         int64      `gorm:"not null" json:"amount_cents"`
	Currency            string     `gorm:"size:3;not null;default:'BRL'" json:"currency"`
	Status              string     `gorm:"size:20;not null;index" json:"status"` // pending, approved, failed, cancelled
	GatewayStatus       string     `gorm:"size:50" json:"gateway_status"`        // raw vendor status
	QRCode              string     `gorm:"type:text" json:"qr_code"`
	QRCodeImage         string     `gorm:"type:mediumtext" json:"qr_code_image"`
	PayerName           string     `gorm:"size:255" json:"-"`
	PayerEmail          string     `gorm:"size:255" json:"-"`
	PayerDocument       string     `gorm:"size:18" json:"-"`
	SettlementToken     *string    `gorm:"size:32;index" json:"settlement_token"`
	NeedsReconciliation bool       `gorm:"not null;default:false;index" json:"needs_reconciliation"`
	PaidAt              *time.Time `json:"paid_at"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) OwnedBy(userID string) bool {
	return t.UserID != nil && *t.UserID == userID
}

func (t *Transaction) IsGuest() bool {
	return t.UserID == nil || *t.UserID == ""
}
