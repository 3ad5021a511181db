package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/model"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/notify"
)

func TestExpireHoldsReleasesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.merchEvent(t, 25, 3)
	black := e.Variants[0].ID

	stale, err := f.svc.CreateRegistration(ctx, e.ID, participant("p-1"), model.Selection{VariantID: black, Quantity: 2})
	require.NoError(t, err)

	f.clock.Advance(holdTimeout - time.Hour)
	fresh, err := f.svc.CreateRegistration(ctx, e.ID, participant("p-2"), model.Selection{VariantID: black, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, f.stock(t, e.ID, black))

	n, err := f.svc.ExpireHolds(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock.Advance(time.Hour)
	n, err = f.svc.ExpireHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, f.stock(t, e.ID, black))

	got, err := f.svc.GetRegistration(ctx, stale.ID, organizer)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)
	assert.False(t, got.StockReserved)
	assert.Nil(t, got.HoldExpiresAt)

	got, err = f.svc.GetRegistration(ctx, fresh.ID, organizer)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Contains(t, f.notes.kinds(), notify.KindHoldExpired)
}

func TestExpireHoldsSkipsConfirmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.merchEvent(t, 25, 3)
	owner := participant("p-1")

	reg, err := f.svc.CreateRegistration(ctx, e.ID, owner, model.Selection{VariantID: e.Variants[0].ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.SubmitPaymentProof(ctx, reg.ID, owner, "ref")
	require.NoError(t, err)
	_, err = f.svc.ApprovePayment(ctx, reg.ID, organizer)
	require.NoError(t, err)

	f.clock.Advance(3 * holdTimeout)
	n, err := f.svc.ExpireHolds(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, f.stock(t, e.ID, e.Variants[0].ID))
}

func TestRejectAfterHoldExpiredReleasesThenResubmitReserves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.merchEvent(t, 25, 1)
	black := e.Variants[0].ID
	owner := participant("p-1")

	reg, err := f.svc.CreateRegistration(ctx, e.ID, owner, model.Selection{VariantID: black, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.SubmitPaymentProof(ctx, reg.ID, owner, "ref")
	require.NoError(t, err)

	f.clock.Advance(holdTimeout + time.Minute)
	_, err = f.svc.RejectPayment(ctx, reg.ID, organizer, "amount does not match")
	require.NoError(t, err)
	assert.Equal(t, 1, f.stock(t, e.ID, black))

	other, err := f.svc.CreateRegistration(ctx, e.ID, participant("p-2"), model.Selection{VariantID: black, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, f.stock(t, e.ID, black))

	_, err = f.svc.SubmitPaymentProof(ctx, reg.ID, owner, "ref-2")
	assert.ErrorIs(t, err, model.ErrInsufficientStock)

	_, err = f.svc.CancelRegistration(ctx, other.ID, participant("p-2"))
	require.NoError(t, err)
	resubmitted, err := f.svc.SubmitPaymentProof(ctx, reg.ID, owner, "ref-2")
	require.NoError(t, err)
	assert.True(t, resubmitted.StockReserved)
	assert.Equal(t, 0, f.stock(t, e.ID, black))
}

func TestAbandonedRejectionIsExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.createEvent(t, func(r *model.CreateEventRequest) {
		r.Kind = model.EventKindMerchandise
		r.Capacity = intPtr(1)
		r.Variants = []model.VariantRequest{{Size: "M", Color: "Black", Price: decimal.NewFromInt(25), Stock: intPtr(1)}}
	})
	black := e.Variants[0].ID
	owner := participant("p-1")

	reg, err := f.svc.CreateRegistration(ctx, e.ID, owner, model.Selection{VariantID: black, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.SubmitPaymentProof(ctx, reg.ID, owner, "ref")
	require.NoError(t, err)

	f.clock.Advance(holdTimeout + time.Hour)
	rejected, err := f.svc.RejectPayment(ctx, reg.ID, organizer, "amount does not match")
	require.NoError(t, err)
	assert.False(t, rejected.StockReserved)
	require.NotNil(t, rejected.HoldExpiresAt)
	assert.Equal(t, f.clock.Now().Add(holdTimeout), *rejected.HoldExpiresAt)

	_, err = f.svc.CreateRegistration(ctx, e.ID, participant("p-2"), model.Selection{VariantID: black, Quantity: 1})
	assert.ErrorIs(t, err, model.ErrCapacityReached)

	f.clock.Advance(holdTimeout)
	n, err := f.svc.ExpireHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.GetRegistration(ctx, reg.ID, organizer)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)
	assert.Equal(t, 1, f.stock(t, e.ID, black))

	_, err = f.svc.CreateRegistration(ctx, e.ID, participant("p-2"), model.Selection{VariantID: black, Quantity: 1})
	assert.NoError(t, err)
}

func TestRunHoldSweeperStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.svc.RunHoldSweeper(ctx, 10*time.Millisecond) }()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
