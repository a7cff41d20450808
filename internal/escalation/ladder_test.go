package escalation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/blueriver/escalation-service/internal/domain"
)

func TestNextTier_Chain(t *testing.T) {
	next, ok := NextTier("")
	assert.True(t, ok)
	assert.Equal(t, domain.Tier2, next)

	next, ok = NextTier(domain.Tier1)
	assert.True(t, ok)
	assert.Equal(t, domain.Tier2, next)

	next, ok = NextTier(domain.Tier2)
	assert.True(t, ok)
	assert.Equal(t, domain.Tier3, next)

	next, ok = NextTier(domain.Tier3)
	assert.True(t, ok)
	assert.Equal(t, domain.Tier4, next)

	_, ok = NextTier(domain.Tier4)
	assert.False(t, ok)
}

func TestDwell_PriorityBound(t *testing.T) {
	// The default zone thresholds are all tighter than the priority ones, so
	// loosen the zone table to let the priority threshold bind.
	cfg := DefaultLadderConfig()
	cfg.ZoneDwell = map[domain.Zone]time.Duration{
		domain.ZoneA: 2 * time.Hour,
		domain.ZoneB: 4 * time.Hour,
		domain.ZoneC: 6 * time.Hour,
	}
	l := NewLadder(cfg)

	d, src := l.Dwell(domain.TicketPriorityCritical, domain.ZoneC)
	assert.Equal(t, 30*time.Minute, d)
	assert.Equal(t, ThresholdPriority, src)
}

func TestDwell_ZoneBound(t *testing.T) {
	l := NewLadder(DefaultLadderConfig())

	d, src := l.Dwell(domain.TicketPriorityLow, domain.ZoneC)
	assert.Equal(t, 15*time.Minute, d)
	assert.Equal(t, ThresholdZone, src)

	d, src = l.Dwell(domain.TicketPriorityMedium, domain.ZoneA)
	assert.Equal(t, 5*time.Minute, d)
	assert.Equal(t, ThresholdZone, src)
}

func TestDwell_UnknownZoneUsesZoneA(t *testing.T) {
	l := NewLadder(DefaultLadderConfig())

	d, src := l.Dwell(domain.TicketPriorityLow, domain.Zone("X"))
	assert.Equal(t, 5*time.Minute, d)
	assert.Equal(t, ThresholdZone, src)
}

func TestDwell_UnknownPriorityUsesMedium(t *testing.T) {
	cfg := DefaultLadderConfig()
	cfg.ZoneDwell = map[domain.Zone]time.Duration{
		domain.ZoneA: 24 * time.Hour,
		domain.ZoneB: 24 * time.Hour,
		domain.ZoneC: 24 * time.Hour,
	}
	l := NewLadder(cfg)

	d, src := l.Dwell(domain.TicketPriority("weird"), domain.ZoneB)
	assert.Equal(t, 2*time.Hour, d)
	assert.Equal(t, ThresholdPriority, src)
}

func TestNewLadder_FallsBackToDefaults(t *testing.T) {
	l := NewLadder(LadderConfig{})

	d, _ := l.Dwell(domain.TicketPriorityLow, domain.ZoneC)
	assert.Equal(t, 15*time.Minute, d)
	assert.Equal(t, 5*time.Minute, l.CriticalStepDwell())
}
