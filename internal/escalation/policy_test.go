package escalation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blueriver/escalation-service/internal/domain"
)

func TestGuidance_KnownCategoryAndPriority(t *testing.T) {
	p := NewPolicyTable()

	g := p.Guidance("cybersecurity", domain.TicketPriorityHigh)

	assert.Equal(t, "cybersecurity incident", g.EscalationType)
	assert.Equal(t, domain.Tier3, g.InitialTier)
	assert.Equal(t, "Protocol triggered. Director and MD notified. Forensics initiated.", g.Action)
}

func TestGuidance_NormalizesInput(t *testing.T) {
	p := NewPolicyTable()

	g := p.Guidance("  SLA Breach  ", domain.TicketPriority("CRITICAL"))

	assert.Equal(t, "sla breach", g.EscalationType)
	assert.Equal(t, domain.Tier4, g.InitialTier)
	assert.Equal(t, "MD leads executive intervention. Recovery roadmap created.", g.Action)
}

func TestGuidance_UnknownCategoryFallsBackToTechnicalOutage(t *testing.T) {
	p := NewPolicyTable()

	g := p.Guidance("something else entirely", domain.TicketPriorityMedium)

	assert.Equal(t, "technical outage", g.EscalationType)
	assert.Equal(t, domain.Tier2, g.InitialTier)
	assert.Equal(t, "Tier 1 updates every 2 hrs. Escalates to Director + Country Manager after 2 hrs.", g.Action)
}

func TestGuidance_UnknownPriorityYieldsDefaultAction(t *testing.T) {
	p := NewPolicyTable()

	g := p.Guidance("complaint", domain.TicketPriority("mystery"))

	assert.Equal(t, "client complaint", g.EscalationType)
	assert.Equal(t, domain.Tier1, g.InitialTier)
	assert.Equal(t, "No defined escalation policy for this case.", g.Action)
}

func TestGuidance_InitialTierTracksPriority(t *testing.T) {
	p := NewPolicyTable()

	assert.Equal(t, domain.Tier1, p.Guidance("repair", domain.TicketPriorityLow).InitialTier)
	assert.Equal(t, domain.Tier2, p.Guidance("repair", domain.TicketPriorityMedium).InitialTier)
	assert.Equal(t, domain.Tier3, p.Guidance("repair", domain.TicketPriorityHigh).InitialTier)
	assert.Equal(t, domain.Tier4, p.Guidance("repair", domain.TicketPriorityCritical).InitialTier)
}
