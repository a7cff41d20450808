package events

import (
	"time"

	"github.com/blueriver/escalation-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated    EventType = "ticket_created"
	EventTicketEscalated  EventType = "ticket_escalated"
	EventTicketUnassigned EventType = "ticket_unassigned"
)

// Event represents a domain event emitted by the escalation engine and the
// intake service. Ticket is a snapshot taken after the triggering mutation
// committed.
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	Ticket    domain.Ticket `json:"ticket"`
	Timestamp time.Time     `json:"timestamp"`
	Payload   interface{}   `json:"payload,omitempty"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	FromTier domain.Tier `json:"from_tier"`
	ToTier   domain.Tier `json:"to_tier"`
	Manual   bool        `json:"manual"`
	ActorID  *string     `json:"actor_id,omitempty"`
	Note     string      `json:"note,omitempty"`
}

// TicketUnassignedPayload payload.
type TicketUnassignedPayload struct {
	OpenFor time.Duration `json:"open_for"`
}
