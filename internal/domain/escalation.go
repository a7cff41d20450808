package domain

import "time"

// Tier is a discrete escalation level. Tiers only ever advance:
// Tier 1 -> Tier 2 -> Tier 3 -> Tier 4, with Tier 4 terminal.
type Tier string

const (
	Tier1 Tier = "Tier 1"
	Tier2 Tier = "Tier 2"
	Tier3 Tier = "Tier 3"
	Tier4 Tier = "Tier 4"
)

// EscalationHistory is an immutable audit trail entry for one tier transition.
// EscalatedBy is nil for system-triggered transitions.
type EscalationHistory struct {
	ID          string
	TicketID    string
	EscalatedBy *string
	FromTier    Tier
	ToTier      Tier
	Note        string
	CreatedAt   time.Time
}
