package escalation

import (
	"time"

	"github.com/blueriver/escalation-service/internal/domain"
)

// LadderConfig carries the operator-tunable dwell thresholds. Values are
// policy, not law; they load once at process start.
type LadderConfig struct {
	// PriorityDwell is the per-priority dwell before a ticket becomes due,
	// measured from creation for the first transition and from the last
	// escalation afterwards.
	PriorityDwell map[domain.TicketPriority]time.Duration
	// ZoneDwell caps dwell per zone regardless of priority.
	ZoneDwell map[domain.Zone]time.Duration
	// CriticalStepDwell is the dwell between the two fixed critical-priority
	// steps (Tier 3 -> Tier 4).
	CriticalStepDwell time.Duration
}

// DefaultLadderConfig returns the production thresholds.
func DefaultLadderConfig() LadderConfig {
	return LadderConfig{
		PriorityDwell: map[domain.TicketPriority]time.Duration{
			domain.TicketPriorityLow:      8 * time.Hour,
			domain.TicketPriorityMedium:   2 * time.Hour,
			domain.TicketPriorityHigh:     1 * time.Hour,
			domain.TicketPriorityCritical: 30 * time.Minute,
		},
		ZoneDwell: map[domain.Zone]time.Duration{
			domain.ZoneA: 5 * time.Minute,
			domain.ZoneB: 10 * time.Minute,
			domain.ZoneC: 15 * time.Minute,
		},
		CriticalStepDwell: 5 * time.Minute,
	}
}

// Ladder is the total order over tiers with the dwell-time rule that decides
// when a transition becomes due.
type Ladder struct {
	cfg LadderConfig
}

// NewLadder builds a ladder from the given thresholds. Zero or missing values
// fall back to the defaults.
func NewLadder(cfg LadderConfig) *Ladder {
	defaults := DefaultLadderConfig()
	if len(cfg.PriorityDwell) == 0 {
		cfg.PriorityDwell = defaults.PriorityDwell
	}
	if len(cfg.ZoneDwell) == 0 {
		cfg.ZoneDwell = defaults.ZoneDwell
	}
	if cfg.CriticalStepDwell <= 0 {
		cfg.CriticalStepDwell = defaults.CriticalStepDwell
	}
	return &Ladder{cfg: cfg}
}

// NextTier returns the successor tier, or false at the terminal Tier 4.
func NextTier(current domain.Tier) (domain.Tier, bool) {
	switch current {
	case "", domain.Tier1:
		return domain.Tier2, true
	case domain.Tier2:
		return domain.Tier3, true
	case domain.Tier3:
		return domain.Tier4, true
	default:
		return "", false
	}
}

// ThresholdSource names which of the two thresholds bound a dwell decision.
type ThresholdSource string

const (
	ThresholdPriority ThresholdSource = "priority"
	ThresholdZone     ThresholdSource = "zone"
)

// Dwell returns the dwell threshold for a priority/zone pair: the minimum of
// the priority threshold and the zone threshold, together with the source that
// bound it. Zone SLAs model physical urgency and must never be weakened by a
// looser priority threshold. Unknown zones use Zone A's value.
func (l *Ladder) Dwell(priority domain.TicketPriority, zone domain.Zone) (time.Duration, ThresholdSource) {
	priorityDwell, ok := l.cfg.PriorityDwell[priority]
	if !ok {
		priorityDwell = l.cfg.PriorityDwell[domain.TicketPriorityMedium]
	}

	zoneDwell, ok := l.cfg.ZoneDwell[zone]
	if !ok {
		zoneDwell = l.cfg.ZoneDwell[domain.ZoneA]
	}

	if zoneDwell < priorityDwell {
		return zoneDwell, ThresholdZone
	}
	return priorityDwell, ThresholdPriority
}

// CriticalStepDwell returns the fixed dwell between the two critical steps.
func (l *Ladder) CriticalStepDwell() time.Duration {
	return l.cfg.CriticalStepDwell
}
