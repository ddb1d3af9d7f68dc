package payment

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StubProvider is an in-memory gateway for development. Charges start
// "pending"; SetStatus simulates the payer completing or abandoning checkout.
type StubProvider struct {
	mu      sync.Mutex
	charges map[string]*Charge
}

func NewStubProvider() *StubProvider {
	return &StubProvider{charges: make(map[string]*Charge)}
}

func (s *StubProvider) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	ttl := req.ExpiresIn
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	ref := "stub_" + uuid.NewString()
	payload := fmt.Sprintf("00020126580014br.gov.bcb.pix0136%s5204000053039865405%s5802BR", ref, FormatBRL(req.AmountCents))
	c := &Charge{
		GatewayReference: ref,
		ExternalID:       req.ExternalID,
		Status:           "pending",
		QRCode:           payload,
		QRCodeImage:      base64.StdEncoding.EncodeToString([]byte(payload)),
		ExpiresAt:        time.Now().Add(ttl),
	}
	s.mu.Lock()
	s.charges[ref] = c
	s.mu.Unlock()
	cp := *c
	return &cp, nil
}

func (s *StubProvider) GetCharge(ctx context.Context, gatewayReference string) (*Charge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.charges[gatewayReference]
	if !ok {
		return nil, ErrChargeNotFound
	}
	cp := *c
	return &cp, nil
}

// SetStatus changes the raw status of a stub charge.
func (s *StubProvider) SetStatus(gatewayReference, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.charges[gatewayReference]
	if ok {
		c.Status = status
	}
	return ok
}
