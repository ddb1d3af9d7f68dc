package service

import (
	"context"
	"testing"

	"vipclub/internal/domain"
	"vipclub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpin_WinExtendsEntitlement(t *testing.T) {
	e := newTestEnv(t)
	e.roulette.draw = func() bool { return true }
	txn := e.seedApproved(t, "user-1", domain.PurposeRoulette)

	res, err := e.roulette.Spin(context.Background(), "user-1", txn.ExternalID, txn.AmountCents)
	require.NoError(t, err)
	assert.Equal(t, domain.RouletteWin, res.Result)
	assert.Equal(t, 30, res.VIPDaysWon)
	require.NotNil(t, res.VIPExpiresAt)
	assert.True(t, res.VIPExpiresAt.Equal(testNow.AddDate(0, 0, 30)))
}

func TestSpin_LoseLeavesEntitlement(t *testing.T) {
	e := newTestEnv(t)
	e.roulette.draw = func() bool { return false }
	txn := e.seedApproved(t, "user-1", domain.PurposeRoulette)

	res, err := e.roulette.Spin(context.Background(), "user-1", txn.ExternalID, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.RouletteLose, res.Result)
	assert.Zero(t, res.VIPDaysWon)

	ent, err := e.entitlements.Get("user-1")
	require.NoError(t, err)
	assert.False(t, ent.IsVIP)
}

func TestSpin_SecondSpinRejected(t *testing.T) {
	e := newTestEnv(t)
	e.roulette.draw = func() bool { return true }
	txn := e.seedApproved(t, "user-1", domain.PurposeRoulette)

	_, err := e.roulette.Spin(context.Background(), "user-1", txn.ExternalID, 0)
	require.NoError(t, err)
	before, err := e.profiles.GetByID("user-1")
	require.NoError(t, err)

	_, err = e.roulette.Spin(context.Background(), "user-1", txn.ExternalID, 0)
	assert.ErrorIs(t, err, ErrAlreadySpun)

	var spins int64
	require.NoError(t, e.db.Model(&models.RouletteSpin{}).Count(&spins).Error)
	assert.EqualValues(t, 1, spins)

	after, err := e.profiles.GetByID("user-1")
	require.NoError(t, err)
	assert.True(t, before.VIPExpiresAt.Equal(*after.VIPExpiresAt))
}

func TestSpin_Preconditions(t *testing.T) {
	e := newTestEnv(t)
	vipTxn := e.seedApproved(t, "user-1", domain.PurposeVIP)
	rouletteTxn := e.seedApproved(t, "user-1", domain.PurposeRoulette)

	pending, err := e.payments.Initiate(context.Background(), InitiateRequest{UserID: "user-1", Purpose: domain.PurposeRoulette})
	require.NoError(t, err)

	_, err = e.roulette.Spin(context.Background(), "user-1", "pix-missing", 0)
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	_, err = e.roulette.Spin(context.Background(), "user-2", rouletteTxn.ExternalID, 0)
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	_, err = e.roulette.Spin(context.Background(), "user-1", vipTxn.ExternalID, 0)
	assert.ErrorIs(t, err, ErrWrongPurpose)

	_, err = e.roulette.Spin(context.Background(), "user-1", pending.ExternalID, 0)
	assert.ErrorIs(t, err, ErrNotApproved)

	_, err = e.roulette.Spin(context.Background(), "user-1", rouletteTxn.ExternalID, 1)
	assert.ErrorIs(t, err, ErrAmountMismatch)
}
