package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/blueriver/escalation-service/internal/domain"
)

// EscalationHistoryRepository stores the append-only audit trail of tier
// transitions. Entries are never updated or deleted.
type EscalationHistoryRepository interface {
	Record(ctx context.Context, entry *domain.EscalationHistory) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.EscalationHistory, error)
}

type escalationHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewEscalationHistoryRepository builds repository.
func NewEscalationHistoryRepository(pool *pgxpool.Pool) EscalationHistoryRepository {
	return &escalationHistoryRepository{pool: pool}
}

func (r *escalationHistoryRepository) Record(ctx context.Context, entry *domain.EscalationHistory) error {
	const query = `
        INSERT INTO escalation_history (ticket_id, escalated_by, from_tier, to_tier, note, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.EscalatedBy,
		entry.FromTier,
		entry.ToTier,
		entry.Note,
		entry.CreatedAt,
	).Scan(&entry.ID)
}

func (r *escalationHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.EscalationHistory, error) {
	const query = `
        SELECT id, ticket_id, escalated_by, from_tier, to_tier, note, created_at
        FROM escalation_history WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.EscalationHistory
	for rows.Next() {
		var entry domain.EscalationHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.EscalatedBy,
			&entry.FromTier,
			&entry.ToTier,
			&entry.Note,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
