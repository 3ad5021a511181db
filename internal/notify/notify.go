// Package notify delivers registration lifecycle messages to participants
// and organizers. Delivery is best effort: a failed notification is logged
// and counted, never propagated back into the workflow.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/metrics"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/model"
)

// Kind names a lifecycle message.
type Kind string

const (
	KindRegistrationCreated   Kind = "registration.created"
	KindRegistrationCancelled Kind = "registration.cancelled"
	KindHoldExpired           Kind = "registration.expired"
	KindProofSubmitted        Kind = "payment.proof_submitted"
	KindPaymentApproved       Kind = "payment.approved"
	KindPaymentRejected       Kind = "payment.rejected"
	KindTicketIssued          Kind = "ticket.issued"
)

// Message is the payload published for every notification.
type Message struct {
	Kind             Kind                `json:"kind"`
	RegistrationID   string              `json:"registration_id"`
	EventID          string              `json:"event_id"`
	ParticipantID    string              `json:"participant_id"`
	ParticipantEmail string              `json:"participant_email"`
	Status           model.Status        `json:"status"`
	PaymentStatus    model.PaymentStatus `json:"payment_status"`
	TicketID         string              `json:"ticket_id,omitempty"`
	Reason           string              `json:"reason,omitempty"`
	At               time.Time           `json:"at"`
}

// NewMessage builds a message from the registration's committed state.
func NewMessage(kind Kind, reg *model.Registration, reason string, at time.Time) Message {
	msg := Message{
		Kind:             kind,
		RegistrationID:   reg.ID,
		EventID:          reg.EventID,
		ParticipantID:    reg.Participant.ID,
		ParticipantEmail: reg.Participant.Email,
		Status:           reg.Status,
		PaymentStatus:    reg.PaymentStatus,
		Reason:           reason,
		At:               at.UTC(),
	}
	if reg.TicketID != nil {
		msg.TicketID = *reg.TicketID
	}
	return msg
}

// Notifier sends one message.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// RedisPublisher publishes messages as JSON on a Redis pub/sub channel.
type RedisPublisher struct {
	client  redis.Cmdable
	channel string
}

// NewRedisPublisher constructs a RedisPublisher.
func NewRedisPublisher(client redis.Cmdable, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

// Notify publishes msg on the configured channel.
func (p *RedisPublisher) Notify(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, string(payload)).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// LogNotifier writes messages to the log. Used when no broker is configured.
type LogNotifier struct {
	log *zap.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, msg Message) error {
	n.log.Info("notification",
		zap.String("kind", string(msg.Kind)),
		zap.String("registration_id", msg.RegistrationID),
		zap.String("event_id", msg.EventID),
		zap.String("participant_id", msg.ParticipantID),
	)
	return nil
}

// ErrQueueFull is returned when the dispatcher cannot accept more messages.
var ErrQueueFull = errors.New("notification queue is full")

// Dispatcher hands messages to a bounded pool of workers so callers never
// wait on the broker.
type Dispatcher struct {
	next    Notifier
	queue   chan Message
	workers int
	timeout time.Duration
	log     *zap.Logger
}

// NewDispatcher constructs a Dispatcher in front of next.
func NewDispatcher(next Notifier, workers, buffer int, log *zap.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if buffer < 1 {
		buffer = 1
	}
	return &Dispatcher{
		next:    next,
		queue:   make(chan Message, buffer),
		workers: workers,
		timeout: 5 * time.Second,
		log:     log,
	}
}

// Notify enqueues msg without blocking.
func (d *Dispatcher) Notify(_ context.Context, msg Message) error {
	select {
	case d.queue <- msg:
		return nil
	default:
		metrics.NotificationFailures.WithLabelValues(string(msg.Kind)).Inc()
		return ErrQueueFull
	}
}

// Run delivers queued messages until ctx is cancelled, then drains what is
// already buffered.
func (d *Dispatcher) Run(ctx context.Context) error {
	var g errgroup.Group
	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case msg := <-d.queue:
					d.deliver(msg)
				}
			}
		})
	}
	_ = g.Wait()

	for {
		select {
		case msg := <-d.queue:
			d.deliver(msg)
		default:
			return nil
		}
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.next.Notify(ctx, msg); err != nil {
		metrics.NotificationFailures.WithLabelValues(string(msg.Kind)).Inc()
		d.log.Warn("notification failed",
			zap.String("kind", string(msg.Kind)),
			zap.String("registration_id", msg.RegistrationID),
			zap.Error(err),
		)
	}
}
