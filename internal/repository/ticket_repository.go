package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/blueriver/escalation-service/internal/domain"
	"github.com/blueriver/escalation-service/internal/escalation"
)

// runLockKey is the advisory lock key guarding concurrent escalation passes
// across replicas.
const runLockKey int64 = 732001

const ticketColumns = `id, title, category, issue, description, status, priority, zone, assigned_to,
       escalation_type, escalation_action, current_escalation_tier, is_escalated,
       escalated_at, escalated_by, escalation_reason, created_at, updated_at`

// TicketRepository encapsulates ticket persistence, including the atomic
// transition primitive the escalation engine requires.
type TicketRepository interface {
	escalation.TicketStore
	Create(ctx context.Context, ticket *domain.Ticket) error
	Assign(ctx context.Context, ticketID, assignee string) error
	UpdateClassification(ctx context.Context, ticketID, category string, priority domain.TicketPriority, escalationType, action string, tier domain.Tier) error
	ListRecent(ctx context.Context, limit int) ([]domain.Ticket, error)
	Count(ctx context.Context) (int, error)
	AcquireRunLock(ctx context.Context) (bool, error)
	ReleaseRunLock(ctx context.Context) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, category, issue, description, status, priority, zone, assigned_to,
                             escalation_type, escalation_action, current_escalation_tier, is_escalated)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Category,
		ticket.Issue,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Zone,
		ticket.AssignedTo,
		ticket.EscalationType,
		ticket.EscalationAction,
		ticket.CurrentTier,
		ticket.IsEscalated,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListActionable(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets WHERE status IN ($1,$2) ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, domain.TicketStatusOpen, domain.TicketStatusInProgress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// ApplyTransition performs the compare-and-set update on the ticket's
// escalation fields. The WHERE clause is the precondition: if another
// evaluation already advanced the tier or refreshed escalated_at, no row
// matches and the caller observes ErrStaleTicket.
func (r *ticketRepository) ApplyTransition(ctx context.Context, update escalation.TransitionUpdate) error {
	const query = `
        UPDATE tickets
        SET current_escalation_tier=$1, is_escalated=TRUE, escalated_at=$2,
            escalated_by=COALESCE($3, escalated_by),
            escalation_reason=COALESCE($4, escalation_reason),
            updated_at=NOW()
        WHERE id=$5
          AND COALESCE(NULLIF(current_escalation_tier, ''), 'Tier 1')=$6
          AND escalated_at IS NOT DISTINCT FROM $7`
	cmd, err := r.pool.Exec(ctx, query,
		update.ToTier,
		update.EscalatedAt,
		update.EscalatedBy,
		update.Reason,
		update.TicketID,
		update.FromTier,
		update.PrevEscalatedAt,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, update.TicketID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return pgx.ErrNoRows
	}
	return escalation.ErrStaleTicket
}

func (r *ticketRepository) Assign(ctx context.Context, ticketID, assignee string) error {
	const query = `UPDATE tickets SET assigned_to=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, assignee, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) UpdateClassification(ctx context.Context, ticketID, category string, priority domain.TicketPriority, escalationType, action string, tier domain.Tier) error {
	const query = `
        UPDATE tickets
        SET category=$1, priority=$2, escalation_type=$3, escalation_action=$4,
            current_escalation_tier=GREATEST(COALESCE(NULLIF(current_escalation_tier,''),'Tier 1'), $5),
            updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query, category, priority, escalationType, action, tier, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) ListRecent(ctx context.Context, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 5
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets ORDER BY created_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&count)
	return count, err
}

// AcquireRunLock takes the session advisory lock so only one replica drives
// an escalation pass at a time.
func (r *ticketRepository) AcquireRunLock(ctx context.Context) (bool, error) {
	var acquired bool
	err := r.pool.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, runLockKey).Scan(&acquired)
	return acquired, err
}

// ReleaseRunLock releases the pass lock.
func (r *ticketRepository) ReleaseRunLock(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `SELECT pg_advisory_unlock($1)`, runLockKey)
	return err
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Category,
		&ticket.Issue,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Zone,
		&ticket.AssignedTo,
		&ticket.EscalationType,
		&ticket.EscalationAction,
		&ticket.CurrentTier,
		&ticket.IsEscalated,
		&ticket.EscalatedAt,
		&ticket.EscalatedBy,
		&ticket.EscalationReason,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
