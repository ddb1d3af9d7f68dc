package payment

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrChargeNotFound is returned by GetCharge when the gateway does not know the reference.
var ErrChargeNotFound = errors.New("payment: charge not found")

type Payer struct {
	Name     string
	Email    string
	Document string // CPF/CNPJ, digits only
}

type ChargeRequest struct {
	ExternalID  string
	AmountCents int64
	Description string
	Payer       Payer
	UserID      string // empty for guest checkout
	WebhookURL  string
	ExpiresIn   time.Duration
}

// Charge is what the gateway reports for a PIX charge. Status is the raw
// vendor string; callers normalize it.
type Charge struct {
	GatewayReference string
	ExternalID       string
	Status           string
	QRCode           string // copy-and-paste payload
	QRCodeImage      string // base64 PNG or URL
	ExpiresAt        time.Time
}

type Provider interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	GetCharge(ctx context.Context, gatewayReference string) (*Charge, error)
}

// GatewayError is a non-success HTTP answer from the gateway.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway returned %d", e.StatusCode)
}
