package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blueriver/escalation-service/internal/domain"
	"github.com/blueriver/escalation-service/internal/escalation"
	"github.com/blueriver/escalation-service/internal/events"
	"github.com/blueriver/escalation-service/internal/repository"
)

// TicketService handles ticket intake and the read-side lookups the
// escalation surface exposes. Priority is classified exactly once at
// creation; afterwards only an explicit category/priority edit re-runs the
// policy lookup.
type TicketService struct {
	tickets    repository.TicketRepository
	history    repository.EscalationHistoryRepository
	classifier *escalation.Classifier
	policy     *escalation.PolicyTable
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.EscalationHistoryRepository
	Classifier  *escalation.Classifier
	Policy      *escalation.PolicyTable
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// TicketCreateInput describes the intake payload.
type TicketCreateInput struct {
	Title       string
	Category    string
	Issue       string
	Description string
	Zone        domain.Zone
	Priority    domain.TicketPriority
	AssignedTo  *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		classifier: deps.Classifier,
		policy:     deps.Policy,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// CreateTicket classifies, seeds escalation guidance, persists and announces
// a new ticket. The classifier only runs when the caller supplied no
// priority; the priority it computes is never recomputed automatically.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errors.New("title required")
	}

	priority := input.Priority
	if priority == "" {
		classification := s.classifier.Classify(input.Category, input.Issue, input.Description)
		priority = classification.Priority
		if classification.MatchedKeyword != "" {
			s.logger.Debug("escalation keyword forced critical priority",
				zap.String("keyword", classification.MatchedKeyword))
		}
	}

	guidance := s.policy.Guidance(input.Category, priority)

	ticket := &domain.Ticket{
		Title:            title,
		Category:         strings.TrimSpace(input.Category),
		Issue:            strings.TrimSpace(input.Issue),
		Description:      strings.TrimSpace(input.Description),
		Status:           domain.TicketStatusOpen,
		Priority:         priority,
		Zone:             input.Zone,
		AssignedTo:       input.AssignedTo,
		EscalationType:   guidance.EscalationType,
		EscalationAction: guidance.Action,
		CurrentTier:      guidance.InitialTier,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTicketCreated, *ticket)
	return ticket, nil
}

// ReclassifyTicket re-runs the policy lookup after a human edited the
// ticket's category or priority. This is the only path that touches
// escalation guidance post-creation.
func (s *TicketService) ReclassifyTicket(ctx context.Context, ticketID, category string, priority domain.TicketPriority) (*domain.Ticket, error) {
	guidance := s.policy.Guidance(category, priority)
	if err := s.tickets.UpdateClassification(ctx, ticketID, category, priority, guidance.EscalationType, guidance.Action, guidance.InitialTier); err != nil {
		return nil, err
	}
	return s.tickets.GetByID(ctx, ticketID)
}

// AssignTicket sets the ticket owner, which stops unassigned notifications.
func (s *TicketService) AssignTicket(ctx context.Context, ticketID, assignee string) error {
	assignee = strings.TrimSpace(assignee)
	if assignee == "" {
		return errors.New("assignee required")
	}
	return s.tickets.Assign(ctx, ticketID, assignee)
}

// GetTicket fetches one ticket.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return s.tickets.GetByID(ctx, ticketID)
}

// History returns the ticket's escalation audit trail, oldest first.
func (s *TicketService) History(ctx context.Context, ticketID string) ([]domain.EscalationHistory, error) {
	return s.history.ListByTicket(ctx, ticketID)
}

// RecentFeed returns the latest tickets plus the total count, the snapshot
// real-time clients load on connect.
func (s *TicketService) RecentFeed(ctx context.Context, limit int) ([]domain.Ticket, int, error) {
	tickets, err := s.tickets.ListRecent(ctx, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.tickets.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, ticket domain.Ticket) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Ticket:    ticket,
		Timestamp: time.Now(),
	})
}
