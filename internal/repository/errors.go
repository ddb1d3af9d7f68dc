package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
	// ErrTokenUnavailable means the conditional claim matched no unused token.
	ErrTokenUnavailable = errors.New("no unused token available")
	// ErrClaimContention means every candidate token was taken by a
	// concurrent claimer before our conditional update landed.
	ErrClaimContention = errors.New("token claim contention")
)

// mapError converts gorm errors to repository errors.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}
