package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/metrics"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/model"
)

func sampleRegistration() *model.Registration {
	ticketID := "tk-1"
	return &model.Registration{
		ID:            "reg-1",
		EventID:       "ev-1",
		Participant:   model.Participant{ID: "p-1", Email: "p1@example.com"},
		Status:        model.StatusConfirmed,
		PaymentStatus: model.PaymentPaid,
		TicketID:      &ticketID,
	}
}

func TestRedisPublisherPublishesJSON(t *testing.T) {
	client, mock := redismock.NewClientMock()
	defer mock.ClearExpect()

	msg := NewMessage(KindPaymentApproved, sampleRegistration(), "", time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	mock.ExpectPublish("registration-events", string(payload)).SetVal(1)

	p := NewRedisPublisher(client, "registration-events")
	require.NoError(t, p.Notify(context.Background(), msg))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, "tk-1", msg.TicketID)
}

func TestRedisPublisherWrapsError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	defer mock.ClearExpect()

	msg := NewMessage(KindPaymentRejected, sampleRegistration(), "blurry", time.Now())
	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	mock.ExpectPublish("ch", string(payload)).SetErr(errors.New("connection refused"))

	err = NewRedisPublisher(client, "ch").Notify(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish notification")
}

type recorder struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (r *recorder) Notify(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func TestDispatcherDeliversAndDrains(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, 2, 16, zap.NewNop())

	for i := 0; i < 10; i++ {
		require.NoError(t, d.Notify(context.Background(), Message{Kind: KindRegistrationCreated}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool { return rec.count() == 10 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestDispatcherRejectsWhenFull(t *testing.T) {
	d := NewDispatcher(&recorder{}, 1, 1, zap.NewNop())
	before := testutil.ToFloat64(metrics.NotificationFailures.WithLabelValues(string(KindTicketIssued)))

	require.NoError(t, d.Notify(context.Background(), Message{Kind: KindTicketIssued}))
	assert.ErrorIs(t, d.Notify(context.Background(), Message{Kind: KindTicketIssued}), ErrQueueFull)

	after := testutil.ToFloat64(metrics.NotificationFailures.WithLabelValues(string(KindTicketIssued)))
	assert.Equal(t, before+1, after)
}

func TestDispatcherCountsDeliveryFailures(t *testing.T) {
	rec := &recorder{err: errors.New("broker down")}
	d := NewDispatcher(rec, 1, 4, zap.NewNop())
	before := testutil.ToFloat64(metrics.NotificationFailures.WithLabelValues(string(KindHoldExpired)))

	require.NoError(t, d.Notify(context.Background(), Message{Kind: KindHoldExpired}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))

	assert.Equal(t, 1, rec.count())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.NotificationFailures.WithLabelValues(string(KindHoldExpired))))
}
