package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/blueriver/escalation-service/internal/config"
	"github.com/blueriver/escalation-service/internal/domain"
	"github.com/blueriver/escalation-service/internal/events"
	"github.com/blueriver/escalation-service/internal/mail"
)

// Broadcaster publishes payloads on the real-time notification channel.
type Broadcaster interface {
	Broadcast(ctx context.Context, payload []byte) error
}

// NotificationService turns domain events into broadcast messages and
// transactional email. Delivery is at-least-once and fire-and-forget relative
// to the transition that triggered it: failures are logged, never retried
// synchronously, and never roll anything back.
type NotificationService struct {
	dispatcher  events.Dispatcher
	broadcaster Broadcaster
	mailer      mail.Mailer
	logger      *zap.Logger
	recipients  map[string][]string
	defaultFrom string
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, broadcaster Broadcaster, mailer mail.Mailer, logger *zap.Logger, escCfg config.EscalationConfig, smtpCfg config.SMTPConfig) *NotificationService {
	return &NotificationService{
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
		mailer:      mailer,
		logger:      logger,
		recipients:  escCfg.TierRecipients,
		defaultFrom: smtpCfg.From,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketEscalated, n.handleTicketEscalated)
	n.dispatcher.Subscribe(events.EventTicketUnassigned, n.handleTicketUnassigned)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.broadcast(ctx, map[string]interface{}{
		"type":   "ticket_creation",
		"ticket": NewTicketCreatedMessage(&event.Ticket),
	})
	return nil
}

func (n *NotificationService) handleTicketEscalated(ctx context.Context, event events.Event) error {
	n.broadcast(ctx, map[string]interface{}{
		"type":    "escalation_message",
		"message": NewEscalationMessage(&event.Ticket),
	})
	n.sendEscalationEmail(ctx, &event.Ticket)
	return nil
}

func (n *NotificationService) handleTicketUnassigned(ctx context.Context, event events.Event) error {
	ticket := SerializeTicket(&event.Ticket)
	ticket.NotificationType = "unassigned"
	n.broadcast(ctx, map[string]interface{}{
		"type":   "unassigned_ticket",
		"ticket": ticket,
	})
	return nil
}

func (n *NotificationService) broadcast(ctx context.Context, payload interface{}) {
	if n.broadcaster == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("marshal notification payload", zap.Error(err))
		return
	}
	if err := n.broadcaster.Broadcast(ctx, raw); err != nil {
		n.logger.Warn("broadcast failed", zap.Error(err))
	}
}

// RecipientsForTier resolves the configured recipient list for a destination
// tier, falling back to the default sender address.
func (n *NotificationService) RecipientsForTier(tier domain.Tier) []string {
	if recipients := n.recipients[string(tier)]; len(recipients) > 0 {
		return recipients
	}
	return []string{n.defaultFrom}
}

func (n *NotificationService) sendEscalationEmail(ctx context.Context, ticket *domain.Ticket) {
	if n.mailer == nil {
		return
	}

	tier := ticket.TierOrDefault()
	createdAt := ""
	if !ticket.CreatedAt.IsZero() {
		createdAt = ticket.CreatedAt.Format(wireTimeFormat)
	}

	msg := mail.Message{
		To:      n.RecipientsForTier(tier),
		Subject: fmt.Sprintf("[Escalation Notice] Ticket #%s escalated to %s", ticket.ID, tier),
		Body: fmt.Sprintf(`Ticket ID: %s
Title: %s
Priority: %s
Category: %s
New Escalation Level: %s
Status: %s
Created At: %s

This ticket has been auto-escalated based on your escalation policy.

Please log in to review.

- Blue River Technology Solutions
`, ticket.ID, ticket.Title, ticket.Priority, ticket.Category, tier, ticket.Status, createdAt),
	}

	if err := n.mailer.Send(ctx, msg); err != nil {
		n.logger.Warn("escalation email failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("tier", string(tier)),
			zap.Error(err))
	}
}
