package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blueriver/escalation-service/internal/config"
	"github.com/blueriver/escalation-service/internal/domain"
	"github.com/blueriver/escalation-service/internal/events"
	"github.com/blueriver/escalation-service/internal/mail"
)

type fakeBroadcaster struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (b *fakeBroadcaster) Broadcast(ctx context.Context, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.payloads = append(b.payloads, payload)
	return nil
}

func (b *fakeBroadcaster) last(t *testing.T) map[string]interface{} {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.payloads)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(b.payloads[len(b.payloads)-1], &decoded))
	return decoded
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *fakeMailer) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func newNotificationHarness() (*NotificationService, events.Dispatcher, *fakeBroadcaster, *fakeMailer) {
	dispatcher := events.NewInMemoryDispatcher()
	broadcaster := &fakeBroadcaster{}
	mailer := &fakeMailer{}

	escCfg := config.EscalationConfig{
		TierRecipients: map[string][]string{
			"Tier 3": {"director@blueriver.example", "support-lead@blueriver.example"},
		},
	}
	smtpCfg := config.SMTPConfig{From: "noreply@blueriver.example"}

	svc := NewNotificationService(dispatcher, broadcaster, mailer, zap.NewNop(), escCfg, smtpCfg)
	svc.RegisterHandlers()
	return svc, dispatcher, broadcaster, mailer
}

func TestNotification_TicketCreatedEnvelope(t *testing.T) {
	_, dispatcher, broadcaster, _ := newNotificationHarness()

	err := dispatcher.Publish(context.Background(), events.Event{
		Type: events.EventTicketCreated,
		Ticket: domain.Ticket{
			ID:        "t1",
			Title:     "screen frozen",
			Priority:  domain.TicketPriorityMedium,
			CreatedAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)

	decoded := broadcaster.last(t)
	assert.Equal(t, "ticket_creation", decoded["type"])
	ticket := decoded["ticket"].(map[string]interface{})
	assert.Equal(t, "t1", ticket["id"])
	assert.Equal(t, "2025-06-01 09:00", ticket["created_at"])
}

func TestNotification_EscalationEnvelopeAndEmail(t *testing.T) {
	_, dispatcher, broadcaster, mailer := newNotificationHarness()

	at := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	err := dispatcher.Publish(context.Background(), events.Event{
		Type: events.EventTicketEscalated,
		Ticket: domain.Ticket{
			ID:          "t1",
			Title:       "screen frozen",
			Category:    "software",
			Status:      domain.TicketStatusOpen,
			Priority:    domain.TicketPriorityCritical,
			CurrentTier: domain.Tier3,
			IsEscalated: true,
			EscalatedAt: &at,
			CreatedAt:   at.Add(-time.Hour),
		},
	})
	require.NoError(t, err)

	decoded := broadcaster.last(t)
	assert.Equal(t, "escalation_message", decoded["type"])
	msg := decoded["message"].(map[string]interface{})
	assert.Equal(t, "critical", msg["priority"])
	assert.Equal(t, "2025-06-01 09:30", msg["escalated_at"])

	require.Len(t, mailer.sent, 1)
	email := mailer.sent[0]
	assert.Equal(t, "[Escalation Notice] Ticket #t1 escalated to Tier 3", email.Subject)
	assert.Equal(t, []string{"director@blueriver.example", "support-lead@blueriver.example"}, email.To)
	assert.Contains(t, email.Body, "New Escalation Level: Tier 3")
	assert.Contains(t, email.Body, "Created At: 2025-06-01 08:30")
	assert.True(t, strings.Contains(email.Body, "- Blue River Technology Solutions"))
}

func TestNotification_UnassignedEnvelopeOverridesType(t *testing.T) {
	_, dispatcher, broadcaster, mailer := newNotificationHarness()

	err := dispatcher.Publish(context.Background(), events.Event{
		Type: events.EventTicketUnassigned,
		Ticket: domain.Ticket{
			ID:        "t1",
			Title:     "screen frozen",
			Priority:  domain.TicketPriorityLow,
			CreatedAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)

	decoded := broadcaster.last(t)
	assert.Equal(t, "unassigned_ticket", decoded["type"])
	ticket := decoded["ticket"].(map[string]interface{})
	assert.Equal(t, "unassigned", ticket["notification_type"])
	assert.Equal(t, false, ticket["is_escalated"])

	// Unassigned alerts are broadcast only, never emailed.
	assert.Empty(t, mailer.sent)
}

func TestRecipientsForTier_FallsBackToSender(t *testing.T) {
	svc, _, _, _ := newNotificationHarness()

	assert.Equal(t, []string{"director@blueriver.example", "support-lead@blueriver.example"},
		svc.RecipientsForTier(domain.Tier3))
	assert.Equal(t, []string{"noreply@blueriver.example"}, svc.RecipientsForTier(domain.Tier2))
}
