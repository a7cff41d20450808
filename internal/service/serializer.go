package service

import (
	"time"

	"github.com/blueriver/escalation-service/internal/domain"
)

// wireTimeFormat is the timestamp layout the real-time clients parse. It must
// not change without coordinating a client release.
const wireTimeFormat = "2006-01-02 15:04"

// EscalationMessage is the broadcast payload for a tier transition.
type EscalationMessage struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Priority    string `json:"priority"`
	EscalatedAt string `json:"escalated_at"`
}

// TicketCreatedMessage is the broadcast payload for ticket intake.
type TicketCreatedMessage struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Priority  string `json:"priority"`
	CreatedAt string `json:"created_at"`
}

// SerializedTicket is the full ticket shape used by the unassigned
// notification and the recent-escalations feed.
type SerializedTicket struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Priority         string  `json:"priority"`
	CreatedAt        string  `json:"created_at"`
	EscalatedAt      *string `json:"escalated_at"`
	IsEscalated      bool    `json:"is_escalated"`
	NotificationType string  `json:"notification_type"`
}

func formatWireTime(t time.Time) string {
	return t.Format(wireTimeFormat)
}

// NewEscalationMessage serializes a just-escalated ticket.
func NewEscalationMessage(t *domain.Ticket) EscalationMessage {
	escalatedAt := ""
	if t.EscalatedAt != nil {
		escalatedAt = formatWireTime(*t.EscalatedAt)
	}
	return EscalationMessage{
		ID:          t.ID,
		Title:       t.Title,
		Priority:    string(t.Priority),
		EscalatedAt: escalatedAt,
	}
}

// NewTicketCreatedMessage serializes a freshly created ticket.
func NewTicketCreatedMessage(t *domain.Ticket) TicketCreatedMessage {
	return TicketCreatedMessage{
		ID:        t.ID,
		Title:     t.Title,
		Priority:  string(t.Priority),
		CreatedAt: formatWireTime(t.CreatedAt),
	}
}

// SerializeTicket produces the full wire representation of a ticket.
// notification_type distinguishes escalated tickets from new ones.
func SerializeTicket(t *domain.Ticket) SerializedTicket {
	var escalatedAt *string
	if t.EscalatedAt != nil {
		formatted := formatWireTime(*t.EscalatedAt)
		escalatedAt = &formatted
	}

	isEscalated := t.IsEscalated || escalatedAt != nil

	notificationType := "new"
	if isEscalated {
		notificationType = "escalated"
	}

	return SerializedTicket{
		ID:               t.ID,
		Title:            t.Title,
		Priority:         string(t.Priority),
		CreatedAt:        formatWireTime(t.CreatedAt),
		EscalatedAt:      escalatedAt,
		IsEscalated:      isEscalated,
		NotificationType: notificationType,
	}
}
