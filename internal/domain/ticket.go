package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// IsActionable reports whether the ticket can still be escalated automatically.
func (s TicketStatus) IsActionable() bool {
	return s == TicketStatusOpen || s == TicketStatusInProgress
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// Zone groups a ticket's terminal by operational SLA region.
type Zone string

const (
	ZoneA       Zone = "A"
	ZoneB       Zone = "B"
	ZoneC       Zone = "C"
	ZoneUnknown Zone = ""
)

// Ticket is the aggregate the escalation engine operates on.
type Ticket struct {
	ID               string
	Title            string
	Category         string
	Issue            string
	Description      string
	Status           TicketStatus
	Priority         TicketPriority
	Zone             Zone
	AssignedTo       *string
	EscalationType   string
	EscalationAction string
	CurrentTier      Tier
	IsEscalated      bool
	EscalatedAt      *time.Time
	EscalatedBy      *string
	EscalationReason *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TierOrDefault returns the current escalation tier, treating unset as Tier 1.
func (t *Ticket) TierOrDefault() Tier {
	if t.CurrentTier == "" {
		return Tier1
	}
	return t.CurrentTier
}

// Unassigned reports whether the ticket has no owner.
func (t *Ticket) Unassigned() bool {
	return t.AssignedTo == nil || *t.AssignedTo == ""
}
