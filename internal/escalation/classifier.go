package escalation

import (
	"strings"
	"unicode"

	"github.com/blueriver/escalation-service/internal/domain"
)

// keywordFamily groups synonym variations under a named family. Families are
// checked in declaration order so classification results are deterministic.
type keywordFamily struct {
	name       string
	variations []string
}

func defaultKeywordFamilies() []keywordFamily {
	return []keywordFamily{
		{name: "urgent", variations: []string{"urgent", "urgently", "emergency", "crisis", "immediate", "immediately"}},
		{name: "outage", variations: []string{"outage", "down", "offline", "disconnected", "unresponsive"}},
		{name: "breach", variations: []string{"breach", "violation", "failure"}},
		{name: "critical", variations: []string{"critical", "severe", "disaster", "major", "critically"}},
		{name: "failure", variations: []string{"failure", "breakdown", "fault", "malfunction", "error"}},
		{name: "emergency", variations: []string{"emergency", "urgent", "crisis", "imminent"}},
	}
}

func defaultPriorityMatrix() map[string]map[string]domain.TicketPriority {
	return map[string]map[string]domain.TicketPriority{
		"Hardware Related": {
			"Note rejects":      domain.TicketPriorityHigh,
			"Hardware Error":    domain.TicketPriorityHigh,
			"Broken part":       domain.TicketPriorityHigh,
			"Note jams pathway": domain.TicketPriorityMedium,
			"Note jams Escrow":  domain.TicketPriorityMedium,
		},
		"Software Related": {
			"Out of Service":                 domain.TicketPriorityCritical,
			"Account validation failing":     domain.TicketPriorityHigh,
			"Application offline":            domain.TicketPriorityCritical,
			"Application Unresponsive":       domain.TicketPriorityCritical,
			"Application Update":             domain.TicketPriorityMedium,
			"Front screen unavailable":       domain.TicketPriorityHigh,
			"Failed Transactions on terminal": domain.TicketPriorityHigh,
			"Server Update":                  domain.TicketPriorityMedium,
			"E journal not uploading":        domain.TicketPriorityMedium,
			"Template Update":                domain.TicketPriorityHigh,
			"Firmware update":                domain.TicketPriorityMedium,
		},
		"Cash Reconciliation": {
			"Excess cash":   domain.TicketPriorityHigh,
			"Cash shortage": domain.TicketPriorityHigh,
		},
		"Power and Network": {
			"System off":               domain.TicketPriorityCritical,
			"System Offline":           domain.TicketPriorityCritical,
			"Faulty UPS/No clean Power": domain.TicketPriorityHigh,
		},
		"De-/Installation /Maintenance": {
			"Relocation":                domain.TicketPriorityMedium,
			"Configuration":             domain.TicketPriorityMedium,
			"Quarterly PM":              domain.TicketPriorityLow,
			"Re-imaging of the terminal": domain.TicketPriorityMedium,
		},
		"Safe": {
			"Lock/Key jam": domain.TicketPriorityHigh,
			"Door jam":     domain.TicketPriorityHigh,
		},
		"SLA Related": {
			"General Complaint": domain.TicketPriorityHigh,
		},
	}
}

// Classification is the ephemeral result of a priority lookup. Exactly one of
// MatchedKeyword or MatchedIssue is set when the default did not apply.
type Classification struct {
	Priority       domain.TicketPriority
	MatchedKeyword string
	MatchedIssue   string
}

// Classifier derives a ticket's priority from its category, issue and free
// text. It holds only immutable lookup tables and is safe for concurrent use.
type Classifier struct {
	families []keywordFamily
	matrix   map[string]map[string]domain.TicketPriority
}

// NewClassifier builds a classifier with the production keyword families and
// category/issue priority matrix.
func NewClassifier() *Classifier {
	return &Classifier{
		families: defaultKeywordFamilies(),
		matrix:   defaultPriorityMatrix(),
	}
}

// Classify determines priority by:
//  1. scanning issue+description tokens for an escalation keyword -> critical,
//  2. looking up (category, issue) in the priority matrix,
//  3. falling back to medium.
func (c *Classifier) Classify(category, issue, description string) Classification {
	tokens := tokenize(issue + " " + description)

	for _, family := range c.families {
		for _, kw := range family.variations {
			if tokens[kw] {
				return Classification{Priority: domain.TicketPriorityCritical, MatchedKeyword: kw}
			}
		}
	}

	if priority, ok := c.matrix[category][issue]; ok {
		return Classification{Priority: priority, MatchedIssue: category + "/" + issue}
	}
	return Classification{Priority: domain.TicketPriorityMedium}
}

// IssuesForCategory returns the known issue labels for a category, used by
// intake validation.
func (c *Classifier) IssuesForCategory(category string) []string {
	issues := make([]string, 0, len(c.matrix[category]))
	for issue := range c.matrix[category] {
		issues = append(issues, issue)
	}
	return issues
}

// tokenize lowercases text and splits it into word tokens, mirroring a
// \w+ scan so punctuation never masks a keyword.
func tokenize(text string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
