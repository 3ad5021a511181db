// Package sqlite implements the Registration Store on an embedded SQLite
// database. It mirrors the PostgreSQL repositories: the handle opened by
// database.OpenSQLite allows one connection and starts every transaction
// IMMEDIATE, which gives the same serialisation the row locks give on
// PostgreSQL.
//
// Inside a transaction only the tx handle may be used; reaching for the
// *sql.DB there would wait forever on the single connection.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/inventory"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/model"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/repository"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// EventRepository stores events and variants in SQLite.
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts an event together with its variants.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	eligibility := e.Eligibility
	if eligibility == nil {
		eligibility = []string{}
	}
	eligibilityJSON, err := json.Marshal(eligibility)
	if err != nil {
		return fmt.Errorf("encode eligibility: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (id, organizer_id, name, kind, eligibility, registration_deadline,
		                     starts_at, ends_at, capacity, fee, status, allow_late_registration,
		                     stock_quantity, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OrganizerID, e.Name, string(e.Kind), string(eligibilityJSON),
		toMillis(e.RegistrationDeadline), toMillis(e.StartsAt), toMillis(e.EndsAt),
		nullInt(e.Capacity), e.Fee.String(), string(e.Status), e.AllowLateRegistration,
		nullInt(e.StockQuantity), toMillis(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	for _, v := range e.Variants {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO variants (id, event_id, position, size, color, price, stock)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			v.ID, e.ID, v.Position, v.Size, v.Color, v.Price.String(), nullInt(v.Stock),
		)
		if err != nil {
			return fmt.Errorf("insert variant: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID returns a single event with its variants or model.ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	return getEvent(ctx, r.db, id)
}

// BackfillStock writes explicit stock for every legacy variant and returns
// the number of variants updated.
func (r *EventRepository) BackfillStock(ctx context.Context) (int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT event_id FROM variants WHERE stock IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("list legacy events: %w", err)
	}
	var eventIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan legacy event: %w", err)
		}
		eventIDs = append(eventIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("list legacy events: %w", err)
	}
	rows.Close()

	total := 0
	for _, id := range eventIDs {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return total, fmt.Errorf("begin transaction: %w", err)
		}
		event, err := getEvent(ctx, tx, id)
		if err != nil {
			_ = tx.Rollback()
			return total, err
		}
		n, err := materializeStock(ctx, tx, event)
		if err != nil {
			_ = tx.Rollback()
			return total, err
		}
		if err := tx.Commit(); err != nil {
			return total, fmt.Errorf("commit transaction: %w", err)
		}
		total += n
	}
	return total, nil
}

// RegistrationRepository stores registrations, tickets and transitions in
// SQLite.
type RegistrationRepository struct {
	db *sql.DB
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *sql.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create admits and inserts a registration in one immediate transaction.
func (r *RegistrationRepository) Create(ctx context.Context, eventID, participantID string, admit repository.AdmitFunc) (*repository.Result, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	event, err := getEvent(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}

	var active int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = ? AND status <> 'CANCELLED'`,
		eventID,
	).Scan(&active)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}

	existing, err := scanRegistration(tx.QueryRowContext(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations
		 WHERE event_id = ? AND participant_id = ? AND status <> 'CANCELLED'
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
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return &repository.Result{Registration: reg, Ticket: adm.Ticket, Changed: true}, nil
}

// Update runs fn against the registration and persists the outcome.
func (r *RegistrationRepository) Update(ctx context.Context, id string, fn repository.MutateFunc) (*repository.Result, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	reg, err := scanRegistration(tx.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	event, err := getEvent(ctx, tx, reg.EventID)
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
		return &repository.Result{Registration: reg, Ticket: tk}, nil
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
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return &repository.Result{Registration: reg, Ticket: tk, Changed: true}, nil
}

// MarkAttended sets the attendance flag with a single conditional update.
func (r *RegistrationRepository) MarkAttended(ctx context.Context, ticketID, scannedBy string, at time.Time) (*model.Registration, error) {
	reg, err := scanRegistration(r.db.QueryRowContext(ctx,
		`UPDATE registrations
		 SET attended = 1, scanned_at = ?, scanned_by = ?, updated_at = ?
		 WHERE ticket_id = ? AND status = 'CONFIRMED' AND attended = 0
		 RETURNING `+registrationColumns,
		toMillis(at), scannedBy, toMillis(at), ticketID,
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
	return nil, repository.ClassifyScan(current, ticketID)
}

// GetByID returns a single registration or model.ErrNotFound.
func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	return scanRegistration(r.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = ?`, id))
}

// GetByTicket returns the registration owning a ticket or model.ErrNotFound.
func (r *RegistrationRepository) GetByTicket(ctx context.Context, ticketID string) (*model.Registration, error) {
	return scanRegistration(r.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE ticket_id = ?`, ticketID))
}

// ListByEvent returns all registrations for a given event.
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations WHERE event_id = ?
		 ORDER BY created_at ASC, id ASC`,
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
			return nil, err
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
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, registration_id, action, actor_id, from_status, to_status,
		        from_payment, to_payment, reason, at
		 FROM registration_transitions
		 WHERE registration_id = ?
		 ORDER BY at ASC, rowid ASC`,
		registrationID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var out []model.Transition
	for rows.Next() {
		var (
			t  model.Transition
			at int64
		)
		if err := rows.Scan(&t.ID, &t.RegistrationID, &t.Action, &t.ActorID, &t.FromStatus,
			&t.ToStatus, &t.FromPayment, &t.ToPayment, &t.Reason, &at); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.At = fromMillis(at)
		out = append(out, t)
	}
	return out, rows.Err()
}

// ExpiredHolds returns up to limit registration IDs whose hold has passed.
func (r *RegistrationRepository) ExpiredHolds(ctx context.Context, now time.Time, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM registrations
		 WHERE hold_expires_at IS NOT NULL AND hold_expires_at <= ?
		   AND status IN ('PENDING', 'REJECTED')
		 ORDER BY hold_expires_at ASC
		 LIMIT ?`,
		toMillis(now), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list expired holds: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired hold: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ─── Stock primitives ─────────────────────────────────────────────────────────

func reserveStock(ctx context.Context, q querier, event *model.Event, variantID string, qty int) error {
	if inventory.NeedsBackfill(event) {
		if _, err := materializeStock(ctx, q, event); err != nil {
			return err
		}
	}
	res, err := q.ExecContext(ctx,
		`UPDATE variants SET stock = stock - ?
		 WHERE id = ? AND event_id = ? AND stock >= ?`,
		qty, variantID, event.ID, qty,
	)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	} else if n == 1 {
		return nil
	}

	var stock sql.NullInt64
	err = q.QueryRowContext(ctx, `SELECT stock FROM variants WHERE id = ? AND event_id = ?`, variantID, event.ID).Scan(&stock)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read stock: %w", err)
	}
	return &model.StockError{VariantID: variantID, Requested: qty, Available: int(stock.Int64)}
}

func releaseStock(ctx context.Context, q querier, variantID string, qty int) error {
	_, err := q.ExecContext(ctx,
		`UPDATE variants SET stock = stock + ? WHERE id = ? AND stock IS NOT NULL`,
		qty, variantID,
	)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	return nil
}

func materializeStock(ctx context.Context, q querier, event *model.Event) (int, error) {
	fill := inventory.Backfill(event)
	n := 0
	for i := range event.Variants {
		v := &event.Variants[i]
		stock, ok := fill[v.ID]
		if !ok {
			continue
		}
		res, err := q.ExecContext(ctx,
			`UPDATE variants SET stock = ? WHERE id = ? AND stock IS NULL`,
			stock, v.ID,
		)
		if err != nil {
			return n, fmt.Errorf("backfill stock: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return n, fmt.Errorf("backfill stock: %w", err)
		}
		n += int(affected)
		v.Stock = &stock
	}
	return n, nil
}

// ─── Row helpers ──────────────────────────────────────────────────────────────

const registrationColumns = `id, event_id, participant_id, participant_name, participant_email, kind,
	answers, COALESCE(variant_id, ''), quantity, status, payment_status, amount_due, amount_paid,
	proof_ref, proof_submitted_at, rejection_reason, stock_reserved, hold_expires_at, ticket_id,
	attended, scanned_at, scanned_by, created_at, updated_at`

func scanRegistration(row scanner) (*model.Registration, error) {
	var (
		reg                           model.Registration
		answers, due, paid            string
		proofAt, holdUntil, scannedAt sql.NullInt64
		reason, ticketID              sql.NullString
		createdAt, updatedAt          int64
	)
	err := row.Scan(
		&reg.ID, &reg.EventID, &reg.Participant.ID, &reg.Participant.Name, &reg.Participant.Email,
		&reg.Kind, &answers, &reg.VariantID, &reg.Quantity, &reg.Status, &reg.PaymentStatus,
		&due, &paid, &reg.ProofRef, &proofAt, &reason, &reg.StockReserved,
		&holdUntil, &ticketID, &reg.Attended, &scannedAt, &reg.ScannedBy,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	if err := json.Unmarshal([]byte(answers), &reg.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	if len(reg.Answers) == 0 {
		reg.Answers = nil
	}
	if reg.AmountDue, err = decimal.NewFromString(due); err != nil {
		return nil, fmt.Errorf("parse amount due: %w", err)
	}
	if reg.AmountPaid, err = decimal.NewFromString(paid); err != nil {
		return nil, fmt.Errorf("parse amount paid: %w", err)
	}
	reg.ProofSubmittedAt = fromNullMillis(proofAt)
	reg.HoldExpiresAt = fromNullMillis(holdUntil)
	reg.ScannedAt = fromNullMillis(scannedAt)
	if reason.Valid {
		reg.RejectionReason = &reason.String
	}
	if ticketID.Valid {
		reg.TicketID = &ticketID.String
	}
	reg.CreatedAt = fromMillis(createdAt)
	reg.UpdatedAt = fromMillis(updatedAt)
	return &reg, nil
}

func insertRegistration(ctx context.Context, q querier, reg *model.Registration) error {
	answers := reg.Answers
	if answers == nil {
		answers = map[string]string{}
	}
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	var variantID any
	if reg.VariantID != "" {
		variantID = reg.VariantID
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO registrations (id, event_id, participant_id, participant_name, participant_email,
		                            kind, answers, variant_id, quantity, status, payment_status,
		                            amount_due, amount_paid, proof_ref, stock_reserved, hold_expires_at,
		                            ticket_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reg.ID, reg.EventID, reg.Participant.ID, reg.Participant.Name, reg.Participant.Email,
		string(reg.Kind), string(answersJSON), variantID, reg.Quantity, string(reg.Status),
		string(reg.PaymentStatus), reg.AmountDue.String(), reg.AmountPaid.String(), reg.ProofRef,
		reg.StockReserved, nullMillis(reg.HoldExpiresAt), nullString(reg.TicketID),
		toMillis(reg.CreatedAt), toMillis(reg.UpdatedAt),
	)
	if err != nil {
		if isDuplicateRegistration(err) {
			return model.ErrAlreadyRegistered
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func isDuplicateRegistration(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.Code() != sqlite3lib.SQLITE_CONSTRAINT_UNIQUE {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "registrations.participant_id")
}

func updateRegistration(ctx context.Context, q querier, reg *model.Registration) error {
	_, err := q.ExecContext(ctx,
		`UPDATE registrations
		 SET status = ?, payment_status = ?, amount_paid = ?, proof_ref = ?,
		     proof_submitted_at = ?, rejection_reason = ?, stock_reserved = ?,
		     hold_expires_at = ?, ticket_id = ?, attended = ?, scanned_at = ?,
		     scanned_by = ?, updated_at = ?
		 WHERE id = ?`,
		string(reg.Status), string(reg.PaymentStatus), reg.AmountPaid.String(), reg.ProofRef,
		nullMillis(reg.ProofSubmittedAt), nullString(reg.RejectionReason), reg.StockReserved,
		nullMillis(reg.HoldExpiresAt), nullString(reg.TicketID), reg.Attended, nullMillis(reg.ScannedAt),
		reg.ScannedBy, toMillis(reg.UpdatedAt), reg.ID,
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
	_, err := q.ExecContext(ctx,
		`INSERT INTO registration_transitions (id, registration_id, action, actor_id, from_status,
		                                       to_status, from_payment, to_payment, reason, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.RegistrationID, t.Action, t.ActorID, string(t.FromStatus), string(t.ToStatus),
		string(t.FromPayment), string(t.ToPayment), t.Reason, toMillis(t.At),
	)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

func issueTicket(ctx context.Context, q querier, t *model.Ticket) (*model.Ticket, error) {
	_, err := q.ExecContext(ctx,
		`INSERT INTO tickets (id, registration_id, event_id, credential, issued_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (registration_id) DO NOTHING`,
		t.ID, t.RegistrationID, t.EventID, t.Credential, toMillis(t.IssuedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert ticket: %w", err)
	}
	return ticketByRegistration(ctx, q, t.RegistrationID)
}

func ticketByRegistration(ctx context.Context, q querier, registrationID string) (*model.Ticket, error) {
	var (
		t        model.Ticket
		issuedAt int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, registration_id, event_id, credential, issued_at
		 FROM tickets WHERE registration_id = ?`,
		registrationID,
	).Scan(&t.ID, &t.RegistrationID, &t.EventID, &t.Credential, &issuedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	t.IssuedAt = fromMillis(issuedAt)
	return &t, nil
}

func getEvent(ctx context.Context, q querier, id string) (*model.Event, error) {
	var (
		e                                model.Event
		eligibility, fee                 string
		deadline, startsAt, endsAt, made int64
		capacity, stockQuantity          sql.NullInt64
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, organizer_id, name, kind, eligibility, registration_deadline, starts_at,
		        ends_at, capacity, fee, status, allow_late_registration, stock_quantity, created_at
		 FROM events WHERE id = ?`,
		id,
	).Scan(&e.ID, &e.OrganizerID, &e.Name, &e.Kind, &eligibility, &deadline, &startsAt,
		&endsAt, &capacity, &fee, &e.Status, &e.AllowLateRegistration, &stockQuantity, &made)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if err := json.Unmarshal([]byte(eligibility), &e.Eligibility); err != nil {
		return nil, fmt.Errorf("decode eligibility: %w", err)
	}
	if e.Fee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("parse fee: %w", err)
	}
	e.RegistrationDeadline = fromMillis(deadline)
	e.StartsAt = fromMillis(startsAt)
	e.EndsAt = fromMillis(endsAt)
	e.CreatedAt = fromMillis(made)
	e.Capacity = fromNullInt(capacity)
	e.StockQuantity = fromNullInt(stockQuantity)

	rows, err := q.QueryContext(ctx,
		`SELECT id, event_id, position, size, color, price, stock
		 FROM variants WHERE event_id = ? ORDER BY position ASC`,
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
			stock sql.NullInt64
		)
		if err := rows.Scan(&v.ID, &v.EventID, &v.Position, &v.Size, &v.Color, &price, &stock); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		if v.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price: %w", err)
		}
		v.Stock = fromNullInt(stock)
		e.Variants = append(e.Variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	return &e, nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return toMillis(*t)
}

func fromNullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func fromNullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
