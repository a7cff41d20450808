package dto

import (
	"time"

	"github.com/blueriver/escalation-service/internal/domain"
)

// EscalateTicketRequest is the manual escalation payload. The note is the
// mandatory justification recorded in the audit trail.
type EscalateTicketRequest struct {
	Note string `json:"note"`
}

// HistoryEntryResponse is one audit trail entry.
type HistoryEntryResponse struct {
	ID          string      `json:"id"`
	TicketID    string      `json:"ticket_id"`
	EscalatedBy *string     `json:"escalated_by"`
	FromTier    domain.Tier `json:"from_tier"`
	ToTier      domain.Tier `json:"to_tier"`
	Note        string      `json:"note"`
	Timestamp   time.Time   `json:"timestamp"`
}

// NewHistoryResponse maps audit entries.
func NewHistoryResponse(entries []domain.EscalationHistory) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, HistoryEntryResponse{
			ID:          entry.ID,
			TicketID:    entry.TicketID,
			EscalatedBy: entry.EscalatedBy,
			FromTier:    entry.FromTier,
			ToTier:      entry.ToTier,
			Note:        entry.Note,
			Timestamp:   entry.CreatedAt,
		})
	}
	return out
}
