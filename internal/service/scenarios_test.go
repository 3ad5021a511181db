package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/model"
)

// race starts n goroutines behind a shared barrier and collects their errors.
func race(n int, fn func(i int) error) []error {
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = fn(i)
		}(i)
	}
	close(start)
	wg.Wait()
	return errs
}

func TestConcurrentRegistrationsRespectCapacity(t *testing.T) {
	f := newFixture(t)
	e := f.createEvent(t, func(r *model.CreateEventRequest) { r.Capacity = intPtr(2) })

	errs := race(3, func(i int) error {
		_, err := f.svc.CreateRegistration(context.Background(), e.ID, participant(fmt.Sprintf("p-%d", i)), model.Selection{})
		return err
	})

	ok, full := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, model.ErrCapacityReached):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 2, ok)
	assert.Equal(t, 1, full)

	regs, err := f.svc.ListRegistrations(context.Background(), e.ID, organizer)
	require.NoError(t, err)
	assert.Len(t, regs, 2)
}

func TestConcurrentOrdersForLastUnit(t *testing.T) {
	f := newFixture(t)
	e := f.merchEvent(t, 25, 1)
	black := e.Variants[0].ID

	errs := race(2, func(i int) error {
		_, err := f.svc.CreateRegistration(context.Background(), e.ID, participant(fmt.Sprintf("p-%d", i)),
			model.Selection{VariantID: black, Quantity: 1})
		return err
	})

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		var stockErr *model.StockError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, 0, stockErr.Available)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 0, f.stock(t, e.ID, black))
}

func TestConcurrentReservationsNeverOversell(t *testing.T) {
	const (
		stock  = 5
		buyers = 20
	)
	f := newFixture(t)
	e := f.merchEvent(t, 10, stock)
	variant := e.Variants[1].ID

	errs := race(buyers, func(i int) error {
		_, err := f.svc.CreateRegistration(context.Background(), e.ID, participant(fmt.Sprintf("buyer-%d", i)),
			model.Selection{VariantID: variant, Quantity: 1})
		return err
	})

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, model.ErrInsufficientStock)
	}
	assert.Equal(t, stock, ok)
	assert.Equal(t, 0, f.stock(t, e.ID, variant))
}

func TestRejectResubmitApproveIssuesOneTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.merchEvent(t, 25, 2)
	black := e.Variants[0].ID
	owner := participant("p-1")

	reg, err := f.svc.CreateRegistration(ctx, e.ID, owner, model.Selection{VariantID: black, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, f.stock(t, e.ID, black))

	_, err = f.svc.SubmitPaymentProof(ctx, reg.ID, owner, "s3://proofs/first.png")
	require.NoError(t, err)

	rejected, err := f.svc.RejectPayment(ctx, reg.ID, organizer, "blurry image")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "blurry image", *rejected.RejectionReason)

	f.clock.Advance(time.Hour)
	_, err = f.svc.SubmitPaymentProof(ctx, reg.ID, owner, "s3://proofs/second.png")
	require.NoError(t, err)
	assert.Equal(t, 1, f.stock(t, e.ID, black), "stock is not reserved twice")

	results := race(2, func(int) error {
		_, err := f.svc.ApprovePayment(ctx, reg.ID, organizer)
		return err
	})
	for _, err := range results {
		require.NoError(t, err)
	}

	final, err := f.svc.GetRegistration(ctx, reg.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, final.Status)
	assert.Equal(t, model.PaymentPaid, final.PaymentStatus)
	require.NotNil(t, final.TicketID)

	tk, err := f.regRepo.Ticket(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, *final.TicketID, tk.ID)
	assert.Equal(t, 1, f.stock(t, e.ID, black))

	trail, err := f.svc.History(ctx, reg.ID, organizer)
	require.NoError(t, err)
	approvals := 0
	for _, tr := range trail {
		if tr.Action == "approve" {
			approvals++
		}
	}
	assert.Equal(t, 1, approvals)
}

func TestConcurrentScansAdmitOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.createEvent(t, nil)
	reg, err := f.svc.CreateRegistration(ctx, e.ID, participant("p-1"), model.Selection{})
	require.NoError(t, err)
	tk, err := f.regRepo.Ticket(ctx, reg.ID)
	require.NoError(t, err)

	scanners := []model.Actor{
		{ID: "gate-a", Role: model.RoleStaff},
		{ID: "gate-b", Role: model.RoleStaff},
	}
	var (
		mu      sync.Mutex
		results []*model.ScanResult
	)
	errs := race(len(scanners), func(i int) error {
		res, err := f.svc.VerifyTicket(ctx, tk.Credential, scanners[i])
		if err == nil {
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}
		return err
	})

	require.Len(t, results, 1)
	var scanErr *model.ScanError
	for _, err := range errs {
		if err != nil {
			require.ErrorAs(t, err, &scanErr)
		}
	}
	require.NotNil(t, scanErr)
	assert.True(t, results[0].ScannedAt.Equal(scanErr.ScannedAt))
	assert.Equal(t, results[0].Participant.ID, scanErr.Participant.ID)
	assert.Equal(t, results[0].Participant.Email, scanErr.Participant.Email)
	assert.ErrorIs(t, scanErr, model.ErrAlreadyScanned)
}
