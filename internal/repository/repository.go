// Package repository implements the Registration Store on PostgreSQL.
// It uses pgx directly (no ORM) so every lock and conditional update is
// visible in the SQL.
//
// Concurrency discipline:
//
//   - Admission locks the event row (SELECT … FOR UPDATE) and evaluates the
//     admission predicate, the capacity count and the stock decrement inside
//     that one transaction. A partial unique index on
//     (event_id, participant_id) backs up the duplicate check.
//   - Stock only moves through a conditional decrement
//     (stock = stock - n WHERE stock >= n) or an increment of a held amount.
//   - Workflow transitions lock the registration row for the
//     read-modify-write.
//   - Attendance is a single conditional UPDATE (mark-if-unmarked).
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/inventory"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/model"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EventRepository handles persistence for events and their variants.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts an event together with its variants.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	eligibility := e.Eligibility
	if eligibility == nil {
		eligibility = []string{}
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO events (id, organizer_id, name, kind, eligibility, registration_deadline,
		                     starts_at, ends_at, capacity, fee, status, allow_late_registration,
		                     stock_quantity, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::numeric, $11, $12, $13, $14)`,
		e.ID, e.OrganizerID, e.Name, string(e.Kind), eligibility, e.RegistrationDeadline,
		e.StartsAt, e.EndsAt, e.Capacity, e.Fee.String(), string(e.Status), e.AllowLateRegistration,
		e.StockQuantity, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	for _, v := range e.Variants {
		_, err = tx.Exec(ctx,
			`INSERT INTO variants (id, event_id, position, size, color, price, stock)
			 VALUES ($1, $2, $3, $4, $5, $6::numeric, $7)`,
			v.ID, e.ID, v.Position, v.Size, v.Color, v.Price.String(), v.Stock,
		)
		if err != nil {
			return fmt.Errorf("insert variant: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID returns a single event with its variants or model.ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	return getEvent(ctx, r.db, id, false)
}

// BackfillStock writes explicit per-variant stock for every legacy variant
// that still relies on the derived distribution. It returns the number of
// variants updated.
func (r *EventRepository) BackfillStock(ctx context.Context) (int, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT event_id FROM variants WHERE stock IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("list legacy events: %w", err)
	}
	eventIDs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return 0, fmt.Errorf("scan legacy events: %w", err)
	}

	total := 0
	for _, id := range eventIDs {
		n, err := r.backfillEvent(ctx, id)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (r *EventRepository) backfillEvent(ctx context.Context, eventID string) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	event, err := getEvent(ctx, tx, eventID, true)
	if err != nil {
		return 0, err
	}
	n, err := materializeStock(ctx, tx, event)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return n, nil
}

// RegistrationRepository handles persistence for registrations, tickets and
// their audit trail.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create admits and inserts a registration in one transaction.
//
// The event row is locked first, so concurrent admissions for the same
// event queue up behind each other and each one sees the capacity count and
// stock left by the previous commit.
func (r *RegistrationRepository) Create(ctx context.Context, eventID, participantID string, admit AdmitFunc) (*Result, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	event, err := getEvent(ctx, tx, eventID, true)
	if err != nil {
		return nil, err
	}

	var active int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status <> 'CANCELLED'`,
		eventID,
	).Scan(&active)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}

	existing, err := scanRegistration(tx.QueryRow(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations
		 WHERE event_id = $1 AND participant_id = $2 AND status <> 'CANCELLED'
		 LIMIT 1`,
		eventID, participantID,
	))
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}

	adm, err := admit(event, active, existing)
	if err != nil {
		return nil, err
	}
	reg := adm.Registration

	if reg.StockReserved {
		if err := reserveStock(ctx, tx, event, reg.VariantID, reg.Quantity); err != nil {
			return nil, err
		}
	}
	if adm.Ticket != nil {
		reg.TicketID = &adm.Ticket.ID
	}
	if err := insertRegistration(ctx, tx, reg); err != nil {
		return nil, err
	}
	if adm.Ticket != nil {
		if _, err := issueTicket(ctx, tx, adm.Ticket); err != nil {
			return nil, err
		}
	}
	if err := insertTransition(ctx, tx, adm.Transition); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return &Result{Registration: reg, Ticket: adm.Ticket, Changed: true}, nil
}

// Update runs fn against the locked registration and persists the outcome,
// including any stock movement and ticket issuance, atomically.
func (r *RegistrationRepository) Update(ctx context.Context, id string, fn MutateFunc) (*Result, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	reg, err := scanRegistration(tx.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	event, err := getEvent(ctx, tx, reg.EventID, false)
	if err != nil {
		return nil, err
	}

	mut, err := fn(reg, event)
	if err != nil {
		return nil, err
	}
	if mut.Outcome.NoOp {
		tk, err := ticketByRegistration(ctx, tx, reg.ID)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return &Result{Registration: reg, Ticket: tk}, nil
	}

	if mut.Outcome.ReserveStock {
		if err := reserveStock(ctx, tx, event, reg.VariantID, reg.Quantity); err != nil {
			return nil, err
		}
	}
	if mut.Outcome.ReleaseStock {
		if err := releaseStock(ctx, tx, reg.VariantID, reg.Quantity); err != nil {
			return nil, err
		}
	}

	var tk *model.Ticket
	if mut.Ticket != nil {
		if tk, err = issueTicket(ctx, tx, mut.Ticket); err != nil {
			return nil, err
		}
		reg.TicketID = &tk.ID
	}
	if err := updateRegistration(ctx, tx, reg); err != nil {
		return nil, err
	}
	if err := insertTransition(ctx, tx, mut.Transition); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return &Result{Registration: reg, Ticket: tk, Changed: true}, nil
}

// MarkAttended sets the attendance flag of a confirmed, not yet scanned
// ticket in a single conditional update. When nothing matches, the current
// row is inspected to report why.
func (r *RegistrationRepository) MarkAttended(ctx context.Context, ticketID, scannedBy string, at time.Time) (*model.Registration, error) {
	reg, err := scanRegistration(r.db.QueryRow(ctx,
		`UPDATE registrations
		 SET attended = TRUE, scanned_at = $2, scanned_by = $3, updated_at = $2
		 WHERE ticket_id = $1 AND status = 'CONFIRMED' AND attended = FALSE
		 RETURNING `+registrationColumns,
		ticketID, at, scannedBy,
	))
	if err == nil {
		return reg, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("mark attended: %w", err)
	}

	current, err := r.GetByTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrTicketNotFound
		}
		return nil, err
	}
	return nil, ClassifyScan(current, ticketID)
}

// GetByID returns a single registration or model.ErrNotFound.
func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	return scanRegistration(r.db.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id))
}

// GetByTicket returns the registration owning a ticket or model.ErrNotFound.
func (r *RegistrationRepository) GetByTicket(ctx context.Context, ticketID string) (*model.Registration, error) {
	return scanRegistration(r.db.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE ticket_id = $1`, ticketID))
}

// ListByEvent returns all registrations for a given event.
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations
		 WHERE event_id = $1
		 ORDER BY created_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

// Ticket returns the ticket issued for a registration or model.ErrNotFound.
func (r *RegistrationRepository) Ticket(ctx context.Context, registrationID string) (*model.Ticket, error) {
	return ticketByRegistration(ctx, r.db, registrationID)
}

// Transitions returns the audit trail of a registration, oldest first.
func (r *RegistrationRepository) Transitions(ctx context.Context, registrationID string) ([]model.Transition, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, registration_id, action, actor_id, from_status, to_status,
		        from_payment, to_payment, reason, at
		 FROM registration_transitions
		 WHERE registration_id = $1
		 ORDER BY at ASC, id ASC`,
		registrationID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var out []model.Transition
	for rows.Next() {
		var t model.Transition
		if err := rows.Scan(&t.ID, &t.RegistrationID, &t.Action, &t.ActorID, &t.FromStatus,
			&t.ToStatus, &t.FromPayment, &t.ToPayment, &t.Reason, &t.At); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.At = t.At.UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

// ExpiredHolds returns up to limit registration IDs whose hold has passed.
func (r *RegistrationRepository) ExpiredHolds(ctx context.Context, now time.Time, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id FROM registrations
		 WHERE hold_expires_at IS NOT NULL AND hold_expires_at <= $1
		   AND status IN ('PENDING', 'REJECTED')
		 ORDER BY hold_expires_at ASC
		 LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list expired holds: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan expired holds: %w", err)
	}
	return ids, nil
}

// ─── Stock primitives ─────────────────────────────────────────────────────────

// reserveStock is the only decrement path for variant stock.
func reserveStock(ctx context.Context, q querier, event *model.Event, variantID string, qty int) error {
	if inventory.NeedsBackfill(event) {
		if _, err := materializeStock(ctx, q, event); err != nil {
			return err
		}
	}
	tag, err := q.Exec(ctx,
		`UPDATE variants SET stock = stock - $1
		 WHERE id = $2 AND event_id = $3 AND stock >= $1`,
		qty, variantID, event.ID,
	)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var stock *int
	err = q.QueryRow(ctx, `SELECT stock FROM variants WHERE id = $1 AND event_id = $2`, variantID, event.ID).Scan(&stock)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("read stock: %w", err)
	}
	available := 0
	if stock != nil {
		available = *stock
	}
	return &model.StockError{VariantID: variantID, Requested: qty, Available: available}
}

// releaseStock returns held units to the pool.
func releaseStock(ctx context.Context, q querier, variantID string, qty int) error {
	_, err := q.Exec(ctx,
		`UPDATE variants SET stock = stock + $1 WHERE id = $2 AND stock IS NOT NULL`,
		qty, variantID,
	)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	return nil
}

// materializeStock persists the legacy distribution for variants without
// explicit stock. The IS NULL guard makes it safe to run more than once.
func materializeStock(ctx context.Context, q querier, event *model.Event) (int, error) {
	fill := inventory.Backfill(event)
	n := 0
	for i := range event.Variants {
		v := &event.Variants[i]
		stock, ok := fill[v.ID]
		if !ok {
			continue
		}
		tag, err := q.Exec(ctx,
			`UPDATE variants SET stock = $1 WHERE id = $2 AND stock IS NULL`,
			stock, v.ID,
		)
		if err != nil {
			return n, fmt.Errorf("backfill stock: %w", err)
		}
		n += int(tag.RowsAffected())
		v.Stock = &stock
	}
	return n, nil
}

// ─── Row helpers ──────────────────────────────────────────────────────────────

const registrationColumns = `id, event_id, participant_id, participant_name, participant_email, kind,
	answers, COALESCE(variant_id, ''), quantity, status, payment_status, amount_due::text,
	amount_paid::text, proof_ref, proof_submitted_at, rejection_reason, stock_reserved,
	hold_expires_at, ticket_id, attended, scanned_at, scanned_by, created_at, updated_at`

func scanRegistration(row pgx.Row) (*model.Registration, error) {
	var (
		reg       model.Registration
		due, paid string
	)
	err := row.Scan(
		&reg.ID, &reg.EventID, &reg.Participant.ID, &reg.Participant.Name, &reg.Participant.Email,
		&reg.Kind, &reg.Answers, &reg.VariantID, &reg.Quantity, &reg.Status, &reg.PaymentStatus,
		&due, &paid, &reg.ProofRef, &reg.ProofSubmittedAt, &reg.RejectionReason, &reg.StockReserved,
		&reg.HoldExpiresAt, &reg.TicketID, &reg.Attended, &reg.ScannedAt, &reg.ScannedBy,
		&reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	if reg.AmountDue, err = decimal.NewFromString(due); err != nil {
		return nil, fmt.Errorf("parse amount due: %w", err)
	}
	if reg.AmountPaid, err = decimal.NewFromString(paid); err != nil {
		return nil, fmt.Errorf("parse amount paid: %w", err)
	}
	normalizeTimes(&reg)
	return &reg, nil
}

func insertRegistration(ctx context.Context, q querier, reg *model.Registration) error {
	answers := reg.Answers
	if answers == nil {
		answers = map[string]string{}
	}
	var variantID *string
	if reg.VariantID != "" {
		variantID = &reg.VariantID
	}
	_, err := q.Exec(ctx,
		`INSERT INTO registrations (id, event_id, participant_id, participant_name, participant_email,
		                            kind, answers, variant_id, quantity, status, payment_status,
		                            amount_due, amount_paid, proof_ref, stock_reserved, hold_expires_at,
		                            ticket_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::numeric, $13::numeric,
		         $14, $15, $16, $17, $18, $19)`,
		reg.ID, reg.EventID, reg.Participant.ID, reg.Participant.Name, reg.Participant.Email,
		string(reg.Kind), answers, variantID, reg.Quantity, string(reg.Status), string(reg.PaymentStatus),
		reg.AmountDue.String(), reg.AmountPaid.String(), reg.ProofRef, reg.StockReserved, reg.HoldExpiresAt,
		reg.TicketID, reg.CreatedAt, reg.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation &&
			pgErr.ConstraintName == "registrations_one_active_per_participant" {
			return model.ErrAlreadyRegistered
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func updateRegistration(ctx context.Context, q querier, reg *model.Registration) error {
	_, err := q.Exec(ctx,
		`UPDATE registrations
		 SET status = $2, payment_status = $3, amount_paid = $4::numeric, proof_ref = $5,
		     proof_submitted_at = $6, rejection_reason = $7, stock_reserved = $8,
		     hold_expires_at = $9, ticket_id = $10, attended = $11, scanned_at = $12,
		     scanned_by = $13, updated_at = $14
		 WHERE id = $1`,
		reg.ID, string(reg.Status), string(reg.PaymentStatus), reg.AmountPaid.String(), reg.ProofRef,
		reg.ProofSubmittedAt, reg.RejectionReason, reg.StockReserved,
		reg.HoldExpiresAt, reg.TicketID, reg.Attended, reg.ScannedAt,
		reg.ScannedBy, reg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update registration: %w", err)
	}
	return nil
}

func insertTransition(ctx context.Context, q querier, t model.Transition) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := q.Exec(ctx,
		`INSERT INTO registration_transitions (id, registration_id, action, actor_id, from_status,
		                                       to_status, from_payment, to_payment, reason, at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.RegistrationID, t.Action, t.ActorID, string(t.FromStatus), string(t.ToStatus),
		string(t.FromPayment), string(t.ToPayment), t.Reason, t.At,
	)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

// issueTicket inserts the ticket unless the registration already has one,
// and returns whichever ticket is stored.
func issueTicket(ctx context.Context, q querier, t *model.Ticket) (*model.Ticket, error) {
	_, err := q.Exec(ctx,
		`INSERT INTO tickets (id, registration_id, event_id, credential, issued_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (registration_id) DO NOTHING`,
		t.ID, t.RegistrationID, t.EventID, t.Credential, t.IssuedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert ticket: %w", err)
	}
	return ticketByRegistration(ctx, q, t.RegistrationID)
}

func ticketByRegistration(ctx context.Context, q querier, registrationID string) (*model.Ticket, error) {
	var t model.Ticket
	err := q.QueryRow(ctx,
		`SELECT id, registration_id, event_id, credential, issued_at
		 FROM tickets WHERE registration_id = $1`,
		registrationID,
	).Scan(&t.ID, &t.RegistrationID, &t.EventID, &t.Credential, &t.IssuedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	t.IssuedAt = t.IssuedAt.UTC()
	return &t, nil
}

func getEvent(ctx context.Context, q querier, id string, forUpdate bool) (*model.Event, error) {
	query := `SELECT id, organizer_id, name, kind, eligibility, registration_deadline, starts_at,
	                 ends_at, capacity, fee::text, status, allow_late_registration, stock_quantity,
	                 created_at
	          FROM events WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		e   model.Event
		fee string
	)
	err := q.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.OrganizerID, &e.Name, &e.Kind, &e.Eligibility, &e.RegistrationDeadline,
		&e.StartsAt, &e.EndsAt, &e.Capacity, &fee, &e.Status, &e.AllowLateRegistration,
		&e.StockQuantity, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if e.Fee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("parse fee: %w", err)
	}
	e.RegistrationDeadline = e.RegistrationDeadline.UTC()
	e.StartsAt = e.StartsAt.UTC()
	e.EndsAt = e.EndsAt.UTC()
	e.CreatedAt = e.CreatedAt.UTC()

	rows, err := q.Query(ctx,
		`SELECT id, event_id, position, size, color, price::text, stock
		 FROM variants WHERE event_id = $1 ORDER BY position ASC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			v     model.Variant
			price string
		)
		if err := rows.Scan(&v.ID, &v.EventID, &v.Position, &v.Size, &v.Color, &price, &v.Stock); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		if v.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price: %w", err)
		}
		e.Variants = append(e.Variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	return &e, nil
}
