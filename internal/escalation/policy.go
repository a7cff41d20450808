package escalation

import (
	"strings"

	"github.com/blueriver/escalation-service/internal/domain"
)

const (
	defaultEscalationType = "technical outage"
	defaultActionText     = "No defined escalation policy for this case."
)

// Guidance describes how an escalation of a given category and priority is
// expected to be handled. InitialTier seeds a ticket's tier at creation only;
// all subsequent movement is governed by the Ladder.
type Guidance struct {
	EscalationType string
	InitialTier    domain.Tier
	Action         string
}

// PolicyTable maps (category, priority) to escalation guidance. It holds only
// immutable lookup tables and is safe for concurrent use.
type PolicyTable struct {
	categoryTypes map[string]string
	actions       map[string]map[domain.TicketPriority]string
	initialTiers  map[domain.TicketPriority]domain.Tier
}

// NewPolicyTable builds the production policy table.
func NewPolicyTable() *PolicyTable {
	return &PolicyTable{
		categoryTypes: map[string]string{
			"software":                     "technical outage",
			"software update":              "technical outage",
			"hardware error":               "technical outage",
			"network and connection error": "technical outage",
			"installation and configuration": "technical outage",
			"repair":                 "technical outage",
			"maintenance":            "technical outage",
			"preventive maintenance": "technical outage",
			"cybersecurity":          "cybersecurity incident",
			"complaint":              "client complaint",
			"sla breach":             "sla breach",
			"other":                  "technical outage",
		},
		actions: map[string]map[domain.TicketPriority]string{
			"technical outage": {
				domain.TicketPriorityLow:      "Tier 1 handles. Escalates to Tier 2 if unresolved in 8 hours. Director alerted.",
				domain.TicketPriorityMedium:   "Tier 1 updates every 2 hrs. Escalates to Director + Country Manager after 2 hrs.",
				domain.TicketPriorityHigh:     "Auto-escalated. Support alerts Director immediately. MD is briefed.",
				domain.TicketPriorityCritical: `"All-hands" mode. Director leads, MD oversees. War room initiated.`,
			},
			"cybersecurity incident": {
				domain.TicketPriorityLow:      "Support investigates. Escalates to Director if compliance risk suspected.",
				domain.TicketPriorityMedium:   "Escalated to Director and Country Manager. Risk assessment begins.",
				domain.TicketPriorityHigh:     "Protocol triggered. Director and MD notified. Forensics initiated.",
				domain.TicketPriorityCritical: "Full incident response team. MD leads client/regulator comms. 24/7 bridge opened.",
			},
			"client complaint": {
				domain.TicketPriorityLow:      "Handled by Support. Logged as feedback.",
				domain.TicketPriorityMedium:   "Escalated to Country Manager. Director informed.",
				domain.TicketPriorityHigh:     "Country Manager + Director involved. MD briefed.",
				domain.TicketPriorityCritical: "MD and Director lead full service review. All teams mobilized.",
			},
			"sla breach": {
				domain.TicketPriorityLow:      "Director investigates. Engineer resolves.",
				domain.TicketPriorityMedium:   "Director investigates. Country Manager briefed.",
				domain.TicketPriorityHigh:     "Director starts RCA. MD informed.",
				domain.TicketPriorityCritical: "MD leads executive intervention. Recovery roadmap created.",
			},
		},
		initialTiers: map[domain.TicketPriority]domain.Tier{
			domain.TicketPriorityLow:      domain.Tier1,
			domain.TicketPriorityMedium:   domain.Tier2,
			domain.TicketPriorityHigh:     domain.Tier3,
			domain.TicketPriorityCritical: domain.Tier4,
		},
	}
}

// Guidance looks up escalation guidance for a category and priority. Unmapped
// categories fall back to a technical outage; missing matrix cells yield a
// default action text.
func (p *PolicyTable) Guidance(category string, priority domain.TicketPriority) Guidance {
	normalized := strings.ToLower(strings.TrimSpace(category))
	severity := domain.TicketPriority(strings.ToLower(strings.TrimSpace(string(priority))))

	escalationType, ok := p.categoryTypes[normalized]
	if !ok {
		escalationType = defaultEscalationType
	}

	action, ok := p.actions[escalationType][severity]
	if !ok {
		action = defaultActionText
	}

	tier, ok := p.initialTiers[severity]
	if !ok {
		tier = domain.Tier1
	}

	return Guidance{
		EscalationType: escalationType,
		InitialTier:    tier,
		Action:         action,
	}
}
