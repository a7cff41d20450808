package escalation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blueriver/escalation-service/internal/domain"
	"github.com/blueriver/escalation-service/internal/events"
)

var errTicketNotFound = errors.New("ticket not found")

// fakeStore mimics the repository's conditional update: a transition only
// commits when the persisted tier and escalation timestamp still match the
// caller's precondition.
type fakeStore struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	commits int
}

func newFakeStore(tickets ...*domain.Ticket) *fakeStore {
	s := &fakeStore{tickets: make(map[string]*domain.Ticket)}
	for _, t := range tickets {
		s.tickets[t.ID] = t
	}
	return s
}

func (s *fakeStore) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, errTicketNotFound
	}
	clone := *t
	return &clone, nil
}

func (s *fakeStore) ListActionable(ctx context.Context) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Ticket
	for _, t := range s.tickets {
		if t.Status.IsActionable() {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *fakeStore) ApplyTransition(ctx context.Context, update TransitionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[update.TicketID]
	if !ok {
		return errTicketNotFound
	}
	if t.TierOrDefault() != update.FromTier || !timesEqual(t.EscalatedAt, update.PrevEscalatedAt) {
		return ErrStaleTicket
	}

	at := update.EscalatedAt
	t.CurrentTier = update.ToTier
	t.IsEscalated = true
	t.EscalatedAt = &at
	t.EscalatedBy = update.EscalatedBy
	t.EscalationReason = update.Reason
	s.commits++
	return nil
}

func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

type fakeLedger struct {
	mu      sync.Mutex
	entries []domain.EscalationHistory
	err     error
}

func (l *fakeLedger) Record(ctx context.Context, entry *domain.EscalationHistory) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.entries = append(l.entries, *entry)
	return nil
}

type capturedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capturedEvents) capture(eventType events.EventType, dispatcher events.Dispatcher) {
	dispatcher.Subscribe(eventType, func(ctx context.Context, e events.Event) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.events = append(c.events, e)
		return nil
	})
}

func (c *capturedEvents) ofType(eventType events.EventType) []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []events.Event
	for _, e := range c.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type engineHarness struct {
	engine     *Engine
	store      *fakeStore
	ledger     *fakeLedger
	dispatcher events.Dispatcher
	captured   *capturedEvents
	now        time.Time
	nowMu      sync.Mutex
}

func newEngineHarness(t *testing.T, tickets ...*domain.Ticket) *engineHarness {
	t.Helper()

	h := &engineHarness{
		store:      newFakeStore(tickets...),
		ledger:     &fakeLedger{},
		dispatcher: events.NewInMemoryDispatcher(),
		captured:   &capturedEvents{},
		now:        time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	h.captured.capture(events.EventTicketEscalated, h.dispatcher)
	h.captured.capture(events.EventTicketUnassigned, h.dispatcher)

	h.engine = NewEngine(h.store, h.ledger, NewLadder(DefaultLadderConfig()), h.dispatcher, zap.NewNop(), EngineConfig{
		Now: func() time.Time {
			h.nowMu.Lock()
			defer h.nowMu.Unlock()
			return h.now
		},
	})
	return h
}

func (h *engineHarness) advance(d time.Duration) {
	h.nowMu.Lock()
	defer h.nowMu.Unlock()
	h.now = h.now.Add(d)
}

func (h *engineHarness) clock() time.Time {
	h.nowMu.Lock()
	defer h.nowMu.Unlock()
	return h.now
}

func assignedTicket(id string, priority domain.TicketPriority, zone domain.Zone, createdAt time.Time) *domain.Ticket {
	owner := "agent-7"
	return &domain.Ticket{
		ID:         id,
		Title:      "terminal fault",
		Status:     domain.TicketStatusOpen,
		Priority:   priority,
		Zone:       zone,
		AssignedTo: &owner,
		CreatedAt:  createdAt,
	}
}

func TestEvaluateTicket_CriticalJumpsToTierThree(t *testing.T) {
	h := newEngineHarness(t)
	ticket := assignedTicket("t1", domain.TicketPriorityCritical, domain.ZoneA, h.clock())
	h.store.tickets["t1"] = ticket

	eval, err := h.engine.EvaluateTicket(context.Background(), "t1")
	require.NoError(t, err)

	assert.Equal(t, OutcomeEscalated, eval.Outcome)
	assert.Equal(t, domain.Tier3, eval.ToTier)

	stored := h.store.tickets["t1"]
	assert.Equal(t, domain.Tier3, stored.CurrentTier)
	assert.True(t, stored.IsEscalated)
	require.NotNil(t, stored.EscalatedAt)
	assert.True(t, stored.EscalatedAt.Equal(h.clock()))

	require.Len(t, h.ledger.entries, 1)
	entry := h.ledger.entries[0]
	assert.Equal(t, domain.Tier1, entry.FromTier)
	assert.Equal(t, domain.Tier3, entry.ToTier)
	assert.Equal(t, "1st escalation for critical priority", entry.Note)
	assert.Nil(t, entry.EscalatedBy)
}

func TestEvaluateTicket_CriticalSecondStepAfterFiveMinutes(t *testing.T) {
	h := newEngineHarness(t)
	h.store.tickets["t1"] = assignedTicket("t1", domain.TicketPriorityCritical, domain.ZoneA, h.clock())

	_, err := h.engine.EvaluateTicket(context.Background(), "t1")
	require.NoError(t, err)

	h.advance(4 * time.Minute)
	eval, err := h.engine.EvaluateTicket(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotDue, eval.Outcome)

	h.advance(time.Minute)
	eval, err = h.engine.EvaluateTicket(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeEscalated, eval.Outcome)
	assert.Equal(t, domain.Tier4, eval.ToTier)

	require.Len(t, h.ledger.entries, 2)
	assert.Equal(t, "2nd escalation for critical priority after 5 minutes", h.ledger.entries[1].Note)
}

func TestEvaluateTicket_ZoneThresholdBindsForLowPriority(t *testing.T) {
	h := newEngineHarness(t)
	h.store.tickets["t1"] = assignedTicket("t1", domain.TicketPriorityLow, domain.ZoneC, h.clock())

	h.advance(14 * time.Minute)
	eval, err := h.engine.EvaluateTicket(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotDue, eval.Outcome)
	assert.Equal(t, 0, h.store.commits)

	h.advance(time.Minute)
	eval, err = h.engine.EvaluateTicket(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeEscalated, eval.Outcome)
	assert.Equal(t, domain.Tier2, eval.ToTier)

	require.Len(t, h.ledger.entries, 1)
	assert.Equal(t, "Auto-escalated due to zone threshold for zone 'C'.", h.ledger.entries[0].Note)
}

func TestEvaluateTicket_PriorityThresholdNote(t *testing.T) {
	h := newEngineHarness(t)
	// Loosen the zones so the priority threshold binds.
	cfg := DefaultLadderConfig()
	cfg.ZoneDwell = map[domain.Zone]time.Duration{
		domain.ZoneA: 48 * time.Hour,
		domain.ZoneB: 48 * time.Hour,
		domain.ZoneC: 48 * time.Hour,
	}
	h.engine = NewEngine(h.store, h.ledger, NewLadder(cfg), h.dispatcher, zap.NewNop(), EngineConfig{Now: h.clock})
	h.store.tickets["t1"] = assignedTicket("t1", domain.TicketPriorityHigh, domain.ZoneB, h.clock())

	h.advance(time.Hour)
	eval, err := h.engine.EvaluateTicket(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeEscalated, eval.Outcome)

	require.Len(t, h.ledger.entries, 1)
	assert.Equal(t, "Auto-escalated due to time threshold for priority 'high'.", h.ledger.entries[0].Note)
}

func TestEvaluateTicket_SecondPassNotDueUntilNextDwell(t *testing.T) {
	h := newEngineHarness(t)
	h.store.tickets["t1"] = assignedTicket("t1", domain.TicketPriorityLow, domain.ZoneA, h.clock())

	h.advance(5 * time.Minute)
	eval, err := h.engine.EvaluateTicket(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeEscalated, eval.Outcome)

	// The dwell anchor moved to the escalation timestamp, so an immediate
	// re-evaluation is a no-op.
	eval, err = h.engine.EvaluateTicket(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotDue, eval.Outcome)
	assert.Equal(t, 1, h.store.commits)

	h.advance(5 * time.Minute)
	eval, err = h.engine.EvaluateTicket(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeEscalated, eval.Outcome)
	assert.Equal(t, domain.Tier3, eval.ToTier)
}

func TestEvaluateTicket_ConcurrentPassesCommitOnce(t *testing.T) {
	h := newEngineHarness(t)
	h.store.tickets["t1"] = assignedTicket("t1", domain.TicketPriorityLow, domain.ZoneA, h.clock())
	h.advance(10 * time.Minute)

	const passes = 8
	outcomes := make([]Outcome, passes)
	errs := make([]error, passes)
	var wg sync.WaitGroup
	for i := 0; i < passes; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			eval, err := h.engine.EvaluateTicket(context.Background(), "t1")
			outcomes[i] = eval.Outcome
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	escalated := 0
	for _, o := range outcomes {
		switch o {
		case OutcomeEscalated:
			escalated++
		case OutcomeConflict, OutcomeNotDue:
		default:
			t.Fatalf("unexpected outcome %s", o)
		}
	}
	assert.Equal(t, 1, escalated)
	assert.Equal(t, 1, h.store.commits)
	assert.Equal(t, domain.Tier2, h.store.tickets["t1"].CurrentTier)
}

func TestEvaluateTicket_SkipsNonActionableStatuses(t *testing.T) {
	h := newEngineHarness(t)
	ticket := assignedTicket("t1", domain.TicketPriorityCritical, domain.ZoneA, h.clock())
	ticket.Status = domain.TicketStatusResolved
	h.store.tickets["t1"] = ticket

	h.advance(time.Hour)
	eval, err := h.engine.EvaluateTicket(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, eval.Outcome)
	assert.Equal(t, 0, h.store.commits)
}

func TestEvaluateTicket_SkipsMissingPriority(t *testing.T) {
	h := newEngineHarness(t)
	ticket := assignedTicket("t1", "", domain.ZoneA, h.clock())
	h.store.tickets["t1"] = ticket

	h.advance(time.Hour)
	eval, err := h.engine.EvaluateTicket(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, eval.Outcome)
}

func TestEvaluateTicket_TerminalTierIsNotAnError(t *testing.T) {
	h := newEngineHarness(t)
	ticket := assignedTicket("t1", domain.TicketPriorityLow, domain.ZoneA, h.clock())
	ticket.CurrentTier = domain.Tier4
	at := h.clock()
	ticket.EscalatedAt = &at
	h.store.tickets["t1"] = ticket

	h.advance(24 * time.Hour)
	eval, err := h.engine.EvaluateTicket(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeTerminal, eval.Outcome)
	assert.Equal(t, 0, h.store.commits)
}

func TestEvaluateTicket_UnassignedNotifiesEveryPassWithoutMutation(t *testing.T) {
	h := newEngineHarness(t)
	ticket := assignedTicket("t1", domain.TicketPriorityLow, domain.ZoneB, h.clock())
	ticket.AssignedTo = nil
	h.store.tickets["t1"] = ticket

	h.advance(3 * time.Minute)
	for i := 0; i < 3; i++ {
		eval, err := h.engine.EvaluateTicket(context.Background(), "t1")
		require.NoError(t, err)
		assert.True(t, eval.UnassignedNotified)
		assert.Equal(t, OutcomeNotDue, eval.Outcome)
	}

	assert.Equal(t, 0, h.store.commits)
	assert.Len(t, h.captured.ofType(events.EventTicketUnassigned), 3)
}

func TestEvaluateTicket_YoungUnassignedTicketStaysQuiet(t *testing.T) {
	h := newEngineHarness(t)
	ticket := assignedTicket("t1", domain.TicketPriorityLow, domain.ZoneB, h.clock())
	ticket.AssignedTo = nil
	h.store.tickets["t1"] = ticket

	h.advance(time.Minute)
	eval, err := h.engine.EvaluateTicket(context.Background(), "t1")
	require.NoError(t, err)
	assert.False(t, eval.UnassignedNotified)
	assert.Empty(t, h.captured.ofType(events.EventTicketUnassigned))
}

func TestEvaluateTicket_LedgerFailureDoesNotUndoTransition(t *testing.T) {
	h := newEngineHarness(t)
	h.ledger.err = errors.New("ledger unavailable")
	h.store.tickets["t1"] = assignedTicket("t1", domain.TicketPriorityCritical, domain.ZoneA, h.clock())

	eval, err := h.engine.EvaluateTicket(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeEscalated, eval.Outcome)
	assert.Equal(t, domain.Tier3, h.store.tickets["t1"].CurrentTier)
	assert.Len(t, h.captured.ofType(events.EventTicketEscalated), 1)
}

func TestEvaluateTicket_PublishesEscalationEvent(t *testing.T) {
	h := newEngineHarness(t)
	h.store.tickets["t1"] = assignedTicket("t1", domain.TicketPriorityCritical, domain.ZoneA, h.clock())

	_, err := h.engine.EvaluateTicket(context.Background(), "t1")
	require.NoError(t, err)

	published := h.captured.ofType(events.EventTicketEscalated)
	require.Len(t, published, 1)
	payload, ok := published[0].Payload.(events.TicketEscalatedPayload)
	require.True(t, ok)
	assert.Equal(t, domain.Tier1, payload.FromTier)
	assert.Equal(t, domain.Tier3, payload.ToTier)
	assert.False(t, payload.Manual)
	assert.Equal(t, domain.Tier3, published[0].Ticket.CurrentTier)
}

func TestEscalateManually_RequiresNote(t *testing.T) {
	h := newEngineHarness(t)
	h.store.tickets["t1"] = assignedTicket("t1", domain.TicketPriorityLow, domain.ZoneA, h.clock())

	_, err := h.engine.EscalateManually(context.Background(), "t1", "actor-1", "   ")
	assert.ErrorIs(t, err, ErrNoteRequired)
	assert.Equal(t, 0, h.store.commits)
}

func TestEscalateManually_AdvancesOneTierWithoutDwell(t *testing.T) {
	h := newEngineHarness(t)
	h.store.tickets["t1"] = assignedTicket("t1", domain.TicketPriorityLow, domain.ZoneA, h.clock())

	ticket, err := h.engine.EscalateManually(context.Background(), "t1", "actor-1", "customer called twice")
	require.NoError(t, err)

	assert.Equal(t, domain.Tier2, ticket.CurrentTier)
	require.NotNil(t, ticket.EscalatedBy)
	assert.Equal(t, "actor-1", *ticket.EscalatedBy)

	require.Len(t, h.ledger.entries, 1)
	entry := h.ledger.entries[0]
	require.NotNil(t, entry.EscalatedBy)
	assert.Equal(t, "actor-1", *entry.EscalatedBy)
	assert.Equal(t, "customer called twice", entry.Note)

	published := h.captured.ofType(events.EventTicketEscalated)
	require.Len(t, published, 1)
	payload := published[0].Payload.(events.TicketEscalatedPayload)
	assert.True(t, payload.Manual)
}

func TestEscalateManually_TerminalTier(t *testing.T) {
	h := newEngineHarness(t)
	ticket := assignedTicket("t1", domain.TicketPriorityLow, domain.ZoneA, h.clock())
	ticket.CurrentTier = domain.Tier4
	h.store.tickets["t1"] = ticket

	_, err := h.engine.EscalateManually(context.Background(), "t1", "actor-1", "push it further")
	assert.ErrorIs(t, err, ErrTerminalTier)
}

func TestApplyTransition_StalePreconditionRejected(t *testing.T) {
	h := newEngineHarness(t)
	h.store.tickets["t1"] = assignedTicket("t1", domain.TicketPriorityLow, domain.ZoneA, h.clock())

	// A competing pass already moved the ticket to Tier 2.
	h.store.tickets["t1"].CurrentTier = domain.Tier2
	at := h.clock()
	h.store.tickets["t1"].EscalatedAt = &at

	err := h.store.ApplyTransition(context.Background(), TransitionUpdate{
		TicketID: "t1",
		FromTier: domain.Tier1,
		ToTier:   domain.Tier2,
	})
	assert.ErrorIs(t, err, ErrStaleTicket)
}
