package service

import "errors"

var (
	// ErrTokenPoolExhausted means a confirmed payment could not be given a
	// token. The payment stays approved and is flagged for reconciliation.
	ErrTokenPoolExhausted  = errors.New("token pool exhausted")
	ErrInvalidToken        = errors.New("invalid token")
	ErrAlreadySpun         = errors.New("roulette already used for this payment")
	ErrForbidden           = errors.New("forbidden")
	ErrNotApproved         = errors.New("payment not approved")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrGateway             = errors.New("payment provider error")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrAuthRequired        = errors.New("authentication required")
	ErrWrongPurpose        = errors.New("transaction purpose does not match")
	ErrAmountMismatch      = errors.New("amount does not match transaction")
	ErrInvalidDays         = errors.New("days must be positive")
)
