package dto

import (
	"time"

	"github.com/blueriver/escalation-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Category    string                `json:"category"`
	Issue       string                `json:"issue"`
	Description string                `json:"description"`
	Zone        domain.Zone           `json:"zone"`
	Priority    domain.TicketPriority `json:"priority,omitempty"`
	AssignedTo  *string               `json:"assigned_to,omitempty"`
}

// ReclassifyTicketRequest payload for explicit category/priority edits.
type ReclassifyTicketRequest struct {
	Category string                `json:"category"`
	Priority domain.TicketPriority `json:"priority"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	Assignee string `json:"assignee"`
}

// TicketResponse provides full ticket info.
type TicketResponse struct {
	ID               string                `json:"id"`
	Title            string                `json:"title"`
	Category         string                `json:"category"`
	Issue            string                `json:"issue"`
	Description      string                `json:"description"`
	Status           domain.TicketStatus   `json:"status"`
	Priority         domain.TicketPriority `json:"priority"`
	Zone             domain.Zone           `json:"zone"`
	AssignedTo       *string               `json:"assigned_to"`
	EscalationType   string                `json:"escalation_type"`
	EscalationAction string                `json:"escalation_action"`
	CurrentTier      domain.Tier           `json:"current_escalation_tier"`
	IsEscalated      bool                  `json:"is_escalated"`
	EscalatedAt      *time.Time            `json:"escalated_at"`
	EscalatedBy      *string               `json:"escalated_by"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:               t.ID,
		Title:            t.Title,
		Category:         t.Category,
		Issue:            t.Issue,
		Description:      t.Description,
		Status:           t.Status,
		Priority:         t.Priority,
		Zone:             t.Zone,
		AssignedTo:       t.AssignedTo,
		EscalationType:   t.EscalationType,
		EscalationAction: t.EscalationAction,
		CurrentTier:      t.TierOrDefault(),
		IsEscalated:      t.IsEscalated,
		EscalatedAt:      t.EscalatedAt,
		EscalatedBy:      t.EscalatedBy,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}
