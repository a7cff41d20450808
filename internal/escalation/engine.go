package escalation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blueriver/escalation-service/internal/domain"
	"github.com/blueriver/escalation-service/internal/events"
)

var (
	// ErrStaleTicket is returned by a TicketStore when the transition
	// precondition failed: another evaluation committed first.
	ErrStaleTicket = errors.New("ticket state changed since read")
	// ErrTerminalTier means the ticket is already at the highest tier.
	ErrTerminalTier = errors.New("ticket already at highest escalation tier")
	// ErrNoteRequired means a manual escalation was attempted without a
	// justification note.
	ErrNoteRequired = errors.New("escalation note required")
)

// TransitionUpdate is the atomic compare-and-set payload applied to a
// ticket's escalation fields. FromTier and PrevEscalatedAt are the
// precondition: the store must reject the update with ErrStaleTicket when the
// persisted row no longer matches them.
type TransitionUpdate struct {
	TicketID        string
	FromTier        domain.Tier
	PrevEscalatedAt *time.Time
	ToTier          domain.Tier
	EscalatedAt     time.Time
	EscalatedBy     *string
	Reason          *string
}

// TicketStore is the persistence contract the engine depends on. The
// collaborator owns querying and must implement ApplyTransition as a single
// atomic read-verify-write scoped to one ticket row.
type TicketStore interface {
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListActionable(ctx context.Context) ([]domain.Ticket, error)
	ApplyTransition(ctx context.Context, update TransitionUpdate) error
}

// HistoryLedger records tier transitions in the append-only audit trail.
type HistoryLedger interface {
	Record(ctx context.Context, entry *domain.EscalationHistory) error
}

// Outcome classifies the result of one automatic evaluation pass.
type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped"
	OutcomeNotDue    Outcome = "not_due"
	OutcomeEscalated Outcome = "escalated"
	OutcomeTerminal  Outcome = "terminal"
	OutcomeConflict  Outcome = "conflict"
)

// Evaluation reports what one pass did to a single ticket.
type Evaluation struct {
	Outcome            Outcome
	ToTier             domain.Tier
	UnassignedNotified bool
}

// EngineConfig holds evaluation tunables.
type EngineConfig struct {
	// UnassignedAfter is the age past which an unowned ticket triggers a
	// recurring unassigned notification.
	UnassignedAfter time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Engine is the per-ticket escalation state machine. It advances tickets
// along the ladder through the store's atomic transition primitive, so two
// overlapping passes can never both apply the same transition.
type Engine struct {
	store           TicketStore
	ledger          HistoryLedger
	ladder          *Ladder
	dispatcher      events.Dispatcher
	logger          *zap.Logger
	unassignedAfter time.Duration
	now             func() time.Time
}

// NewEngine constructs the state machine.
func NewEngine(store TicketStore, ledger HistoryLedger, ladder *Ladder, dispatcher events.Dispatcher, logger *zap.Logger, cfg EngineConfig) *Engine {
	if cfg.UnassignedAfter <= 0 {
		cfg.UnassignedAfter = 2 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		store:           store,
		ledger:          ledger,
		ladder:          ladder,
		dispatcher:      dispatcher,
		logger:          logger,
		unassignedAfter: cfg.UnassignedAfter,
		now:             cfg.Now,
	}
}

// EvaluateTicket re-reads the ticket's authoritative state and applies at
// most one automatic tier transition if one is due. Stale-state conflicts are
// not errors: the other evaluation won and this one safely no-ops.
func (e *Engine) EvaluateTicket(ctx context.Context, ticketID string) (Evaluation, error) {
	eval := Evaluation{Outcome: OutcomeSkipped}

	ticket, err := e.store.GetByID(ctx, ticketID)
	if err != nil {
		return eval, fmt.Errorf("fetch ticket %s: %w", ticketID, err)
	}

	if !ticket.Status.IsActionable() {
		return eval, nil
	}
	if ticket.Priority == "" || ticket.CreatedAt.IsZero() {
		return eval, nil
	}

	now := e.now()

	// The unassigned path is independent of tier transitions and never
	// mutates ticket state. It repeats every pass until someone takes the
	// ticket.
	if ticket.Unassigned() && now.Sub(ticket.CreatedAt) >= e.unassignedAfter {
		e.publish(ctx, events.EventTicketUnassigned, *ticket, events.TicketUnassignedPayload{
			OpenFor: now.Sub(ticket.CreatedAt),
		})
		eval.UnassignedNotified = true
	}

	target, note, due := e.dueTransition(ticket, now)
	if !due {
		if _, ok := NextTier(ticket.TierOrDefault()); !ok {
			e.logger.Info("ticket already at highest escalation tier",
				zap.String("ticket_id", ticket.ID),
				zap.String("tier", string(ticket.TierOrDefault())))
			eval.Outcome = OutcomeTerminal
		} else {
			eval.Outcome = OutcomeNotDue
		}
		return eval, nil
	}

	from := ticket.TierOrDefault()
	err = e.store.ApplyTransition(ctx, TransitionUpdate{
		TicketID:        ticket.ID,
		FromTier:        from,
		PrevEscalatedAt: ticket.EscalatedAt,
		ToTier:          target,
		EscalatedAt:     now,
	})
	if errors.Is(err, ErrStaleTicket) {
		// Another pass committed first; it will be re-evaluated next cycle.
		eval.Outcome = OutcomeConflict
		return eval, nil
	}
	if err != nil {
		return eval, fmt.Errorf("apply transition for ticket %s: %w", ticket.ID, err)
	}

	ticket.CurrentTier = target
	ticket.IsEscalated = true
	ticket.EscalatedAt = &now

	e.logger.Info("ticket escalated",
		zap.String("ticket_id", ticket.ID),
		zap.String("from_tier", string(from)),
		zap.String("to_tier", string(target)),
		zap.String("priority", string(ticket.Priority)))

	e.recordHistory(ctx, &domain.EscalationHistory{
		TicketID:  ticket.ID,
		FromTier:  from,
		ToTier:    target,
		Note:      note,
		CreatedAt: now,
	})

	e.publish(ctx, events.EventTicketEscalated, *ticket, events.TicketEscalatedPayload{
		FromTier: from,
		ToTier:   target,
		Note:     note,
	})

	eval.Outcome = OutcomeEscalated
	eval.ToTier = target
	return eval, nil
}

// EscalateManually advances a ticket exactly one tier on behalf of a human
// actor, with no dwell-time gating. It shares the store's atomic transition
// primitive with the automatic path, so concurrent escalations serialize:
// whichever commits first wins.
func (e *Engine) EscalateManually(ctx context.Context, ticketID, actorID, note string) (*domain.Ticket, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, ErrNoteRequired
	}

	ticket, err := e.store.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	from := ticket.TierOrDefault()
	target, ok := NextTier(from)
	if !ok {
		return nil, ErrTerminalTier
	}

	now := e.now()
	err = e.store.ApplyTransition(ctx, TransitionUpdate{
		TicketID:        ticket.ID,
		FromTier:        from,
		PrevEscalatedAt: ticket.EscalatedAt,
		ToTier:          target,
		EscalatedAt:     now,
		EscalatedBy:     &actorID,
		Reason:          &note,
	})
	if err != nil {
		return nil, err
	}

	ticket.CurrentTier = target
	ticket.IsEscalated = true
	ticket.EscalatedAt = &now
	ticket.EscalatedBy = &actorID
	ticket.EscalationReason = &note

	e.logger.Info("ticket escalated manually",
		zap.String("ticket_id", ticket.ID),
		zap.String("actor_id", actorID),
		zap.String("from_tier", string(from)),
		zap.String("to_tier", string(target)))

	e.recordHistory(ctx, &domain.EscalationHistory{
		TicketID:    ticket.ID,
		EscalatedBy: &actorID,
		FromTier:    from,
		ToTier:      target,
		Note:        note,
		CreatedAt:   now,
	})

	e.publish(ctx, events.EventTicketEscalated, *ticket, events.TicketEscalatedPayload{
		FromTier: from,
		ToTier:   target,
		Manual:   true,
		ActorID:  &actorID,
		Note:     note,
	})

	return ticket, nil
}

// dueTransition decides whether a transition is due now and, if so, to which
// tier. Critical priority uses its fixed two-step path instead of the dwell
// rule: Tier 3 immediately on first evaluation, Tier 4 after the fixed
// critical step dwell.
func (e *Engine) dueTransition(ticket *domain.Ticket, now time.Time) (domain.Tier, string, bool) {
	if ticket.Priority == domain.TicketPriorityCritical {
		if ticket.EscalatedAt == nil {
			return domain.Tier3, "1st escalation for critical priority", true
		}
		if ticket.TierOrDefault() == domain.Tier3 && !now.Before(ticket.EscalatedAt.Add(e.ladder.CriticalStepDwell())) {
			return domain.Tier4, "2nd escalation for critical priority after 5 minutes", true
		}
		return "", "", false
	}

	target, ok := NextTier(ticket.TierOrDefault())
	if !ok {
		return "", "", false
	}

	anchor := ticket.CreatedAt
	if ticket.EscalatedAt != nil {
		anchor = *ticket.EscalatedAt
	}

	dwell, source := e.ladder.Dwell(ticket.Priority, ticket.Zone)
	if now.Before(anchor.Add(dwell)) {
		return "", "", false
	}

	var note string
	switch source {
	case ThresholdZone:
		note = fmt.Sprintf("Auto-escalated due to zone threshold for zone '%s'.", ticket.Zone)
	default:
		note = fmt.Sprintf("Auto-escalated due to time threshold for priority '%s'.", ticket.Priority)
	}
	return target, note, true
}

// recordHistory appends the audit entry for an already-committed transition.
// A failure here is a durability inconsistency, not a reason to undo the
// transition, and is logged at error severity.
func (e *Engine) recordHistory(ctx context.Context, entry *domain.EscalationHistory) {
	if err := e.ledger.Record(ctx, entry); err != nil {
		e.logger.Error("history write failed after committed transition",
			zap.String("ticket_id", entry.TicketID),
			zap.String("from_tier", string(entry.FromTier)),
			zap.String("to_tier", string(entry.ToTier)),
			zap.Error(err))
	}
}

func (e *Engine) publish(ctx context.Context, eventType events.EventType, ticket domain.Ticket, payload interface{}) {
	if e.dispatcher == nil {
		return
	}
	_ = e.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Ticket:    ticket,
		Timestamp: e.now(),
		Payload:   payload,
	})
}
