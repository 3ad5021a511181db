package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/database"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/model"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/workflow"
)

// testDB is nil when Docker is not available; tests then skip.
var testDB *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(runWithPostgres(m))
}

func runWithPostgres(m *testing.M) int {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Printf("docker unavailable, skipping postgres tests: %v", err)
		return m.Run()
	}
	if err := pool.Client.Ping(); err != nil {
		log.Printf("docker unavailable, skipping postgres tests: %v", err)
		return m.Run()
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_PASSWORD=secret",
			"POSTGRES_DB=fulfillment",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Printf("could not start postgres: %v", err)
		return m.Run()
	}
	defer func() { _ = pool.Purge(resource) }()
	_ = resource.Expire(300)

	dsn := fmt.Sprintf("postgres://postgres:secret@%s/fulfillment?sslmode=disable", resource.GetHostPort("5432/tcp"))
	pool.MaxWait = 90 * time.Second
	ctx := context.Background()
	if err := pool.Retry(func() error {
		db, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return err
		}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return err
		}
		testDB = db
		return nil
	}); err != nil {
		log.Printf("postgres did not become ready: %v", err)
		return m.Run()
	}
	defer testDB.Close()

	if err := database.Migrate(ctx, testDB); err != nil {
		log.Printf("migrate: %v", err)
		return 1
	}
	return m.Run()
}

func requirePostgres(t *testing.T) (*EventRepository, *RegistrationRepository) {
	t.Helper()
	if testDB == nil {
		t.Skip("postgres not available")
	}
	_, err := testDB.Exec(context.Background(),
		`TRUNCATE registration_transitions, tickets, registrations, variants, events CASCADE`)
	require.NoError(t, err)
	return NewEventRepository(testDB), NewRegistrationRepository(testDB)
}

var pgNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func pgIntPtr(v int) *int { return &v }

func pgEvent(t *testing.T, events *EventRepository, variants ...model.Variant) *model.Event {
	t.Helper()
	e := &model.Event{
		ID:                   uuid.NewString(),
		OrganizerID:          "org-1",
		Name:                 "Tech Fest",
		Kind:                 model.EventKindNormal,
		RegistrationDeadline: pgNow.Add(24 * time.Hour),
		StartsAt:             pgNow.Add(48 * time.Hour),
		EndsAt:               pgNow.Add(72 * time.Hour),
		Fee:                  decimal.RequireFromString("150.00"),
		Status:               model.EventStatusPublished,
		CreatedAt:            pgNow,
	}
	if len(variants) > 0 {
		e.Kind = model.EventKindMerchandise
		for i := range variants {
			variants[i].EventID = e.ID
			variants[i].Position = i
		}
		e.Variants = variants
	}
	require.NoError(t, events.Create(context.Background(), e))
	return e
}

func pgRegistration(eventID, participantID string) *model.Registration {
	return &model.Registration{
		ID:            uuid.NewString(),
		EventID:       eventID,
		Participant:   model.Participant{ID: participantID, Name: participantID, Email: participantID + "@example.com"},
		Kind:          model.RegistrationKindStandard,
		Status:        model.StatusPending,
		PaymentStatus: model.PaymentUnpaid,
		AmountDue:     decimal.RequireFromString("150.00"),
		CreatedAt:     pgNow,
		UpdatedAt:     pgNow,
	}
}

func admitting(reg *model.Registration, tk *model.Ticket) AdmitFunc {
	return func(*model.Event, int, *model.Registration) (*Admission, error) {
		return &Admission{
			Registration: reg,
			Ticket:       tk,
			Transition: model.Transition{
				RegistrationID: reg.ID,
				Action:         string(workflow.ActionCreate),
				ActorID:        reg.Participant.ID,
				ToStatus:       reg.Status,
				ToPayment:      reg.PaymentStatus,
				At:             pgNow,
			},
		}, nil
	}
}

func TestPostgresEventRoundTrip(t *testing.T) {
	events, _ := requirePostgres(t)
	e := pgEvent(t, events, model.Variant{ID: uuid.NewString(), Size: "M", Color: "Black", Price: decimal.NewFromInt(25), Stock: pgIntPtr(3)})

	got, err := events.GetByID(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Name, got.Name)
	assert.True(t, got.Fee.Equal(e.Fee))
	assert.Empty(t, got.Eligibility)
	require.Len(t, got.Variants, 1)
	assert.Equal(t, 3, *got.Variants[0].Stock)
	assert.True(t, got.Variants[0].Price.Equal(decimal.NewFromInt(25)))
}

func TestPostgresDuplicateMapsToAlreadyRegistered(t *testing.T) {
	events, regs := requirePostgres(t)
	ctx := context.Background()
	e := pgEvent(t, events)

	_, err := regs.Create(ctx, e.ID, "p-1", admitting(pgRegistration(e.ID, "p-1"), nil))
	require.NoError(t, err)
	_, err = regs.Create(ctx, e.ID, "p-1", admitting(pgRegistration(e.ID, "p-1"), nil))
	assert.ErrorIs(t, err, model.ErrAlreadyRegistered)
}

func TestPostgresConcurrentReservationsNeverOversell(t *testing.T) {
	events, regs := requirePostgres(t)
	ctx := context.Background()
	variantID := uuid.NewString()
	e := pgEvent(t, events, model.Variant{ID: variantID, Size: "L", Color: "White", Stock: pgIntPtr(4)})

	const buyers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		fail int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reg := pgRegistration(e.ID, fmt.Sprintf("buyer-%d", i))
			reg.Kind = model.RegistrationKindMerchandise
			reg.VariantID = variantID
			reg.Quantity = 1
			reg.StockReserved = true
			_, err := regs.Create(ctx, e.ID, reg.Participant.ID, admitting(reg, nil))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, model.ErrInsufficientStock):
				fail++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, ok)
	assert.Equal(t, buyers-4, fail)
	got, err := events.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, *got.Variants[0].Stock)
}

func TestPostgresMarkAttendedOnce(t *testing.T) {
	events, regs := requirePostgres(t)
	ctx := context.Background()
	e := pgEvent(t, events)

	reg := pgRegistration(e.ID, "p-1")
	reg.Status = model.StatusConfirmed
	reg.PaymentStatus = model.PaymentPaid
	tk := &model.Ticket{ID: uuid.NewString(), RegistrationID: reg.ID, EventID: e.ID, Credential: "c", IssuedAt: pgNow}
	_, err := regs.Create(ctx, e.ID, "p-1", admitting(reg, tk))
	require.NoError(t, err)

	scanned, err := regs.MarkAttended(ctx, tk.ID, "gate-a", pgNow)
	require.NoError(t, err)
	assert.True(t, scanned.Attended)

	_, err = regs.MarkAttended(ctx, tk.ID, "gate-b", pgNow.Add(time.Second))
	var scanErr *model.ScanError
	require.ErrorAs(t, err, &scanErr)
	assert.True(t, scanErr.ScannedAt.Equal(pgNow))
	assert.Equal(t, "gate-a", scanErr.ScannedBy)

	_, err = regs.MarkAttended(ctx, uuid.NewString(), "gate-a", pgNow)
	assert.ErrorIs(t, err, model.ErrTicketNotFound)
}

func TestPostgresApproveIsIdempotent(t *testing.T) {
	events, regs := requirePostgres(t)
	ctx := context.Background()
	e := pgEvent(t, events)
	reg := pgRegistration(e.ID, "p-1")
	reg.PaymentStatus = model.PaymentPendingApproval
	_, err := regs.Create(ctx, e.ID, "p-1", admitting(reg, nil))
	require.NoError(t, err)

	approve := func(r *model.Registration, _ *model.Event) (*Mutation, error) {
		out, err := workflow.Apply(r, workflow.ActionApprove, workflow.Input{Now: pgNow})
		if err != nil {
			return nil, err
		}
		m := &Mutation{Outcome: out, Transition: out.Transition(r.ID, "org-1", pgNow)}
		if out.IssueTicket {
			m.Ticket = &model.Ticket{ID: uuid.NewString(), RegistrationID: r.ID, EventID: r.EventID, Credential: "c", IssuedAt: pgNow}
		}
		return m, nil
	}

	first, err := regs.Update(ctx, reg.ID, approve)
	require.NoError(t, err)
	second, err := regs.Update(ctx, reg.ID, approve)
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.Equal(t, first.Ticket.ID, second.Ticket.ID)

	trail, err := regs.Transitions(ctx, reg.ID)
	require.NoError(t, err)
	assert.Len(t, trail, 2)
}

func TestPostgresBackfillAndExpiredHolds(t *testing.T) {
	events, regs := requirePostgres(t)
	ctx := context.Background()
	e := &model.Event{
		ID:                   uuid.NewString(),
		OrganizerID:          "org-1",
		Name:                 "Legacy Cap",
		Kind:                 model.EventKindMerchandise,
		RegistrationDeadline: pgNow,
		StartsAt:             pgNow,
		EndsAt:               pgNow,
		Status:               model.EventStatusPublished,
		StockQuantity:        pgIntPtr(5),
		CreatedAt:            pgNow,
	}
	e.Variants = []model.Variant{
		{ID: uuid.NewString(), EventID: e.ID, Position: 0, Size: "S", Color: "Blue"},
		{ID: uuid.NewString(), EventID: e.ID, Position: 1, Size: "M", Color: "Blue"},
	}
	require.NoError(t, events.Create(ctx, e))

	n, err := events.BackfillStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	got, err := events.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, *got.Variants[0].Stock)
	assert.Equal(t, 2, *got.Variants[1].Stock)

	past := pgNow.Add(-time.Minute)
	reg := pgRegistration(e.ID, "p-1")
	reg.HoldExpiresAt = &past
	_, err = regs.Create(ctx, e.ID, "p-1", admitting(reg, nil))
	require.NoError(t, err)

	ids, err := regs.ExpiredHolds(ctx, pgNow, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{reg.ID}, ids)
}
