package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/blueriver/escalation-service/internal/api/dto"
	"github.com/blueriver/escalation-service/internal/auth"
	"github.com/blueriver/escalation-service/internal/escalation"
	"github.com/blueriver/escalation-service/internal/service"
	apperrors "github.com/blueriver/escalation-service/pkg/util"
)

// EscalationsHandler exposes manual escalation, the operational run-now
// trigger and the recent-escalations feed.
type EscalationsHandler struct {
	engine  *escalation.Engine
	runner  *escalation.Runner
	tickets *service.TicketService
}

// NewEscalationsHandler builds the handler.
func NewEscalationsHandler(engine *escalation.Engine, runner *escalation.Runner, tickets *service.TicketService) *EscalationsHandler {
	return &EscalationsHandler{engine: engine, runner: runner, tickets: tickets}
}

// Escalate advances a ticket one tier on behalf of the authenticated actor.
func (h *EscalationsHandler) Escalate(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("actor required")
	}

	var req dto.EscalateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}

	ticket, err := h.engine.EscalateManually(c.UserContext(), c.Params("id"), actor.ID, req.Note)
	switch {
	case errors.Is(err, escalation.ErrNoteRequired):
		return apperrors.NewValidationError("escalation note required", nil)
	case errors.Is(err, escalation.ErrTerminalTier):
		return apperrors.NewConflict("ticket already at highest escalation tier", nil)
	case errors.Is(err, escalation.ErrStaleTicket):
		return apperrors.NewConflict("ticket was escalated concurrently; refresh and retry", nil)
	case err != nil:
		return apperrors.MapError(err)
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// RunNow triggers one escalation pass and returns its report. Operational
// testing surface; the cron worker drives the recurring cadence.
func (h *EscalationsHandler) RunNow(c *fiber.Ctx) error {
	report, err := h.runner.Run(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(report)
}

// Recent returns the snapshot real-time clients load on connect.
func (h *EscalationsHandler) Recent(c *fiber.Ctx) error {
	tickets, total, err := h.tickets.RecentFeed(c.UserContext(), c.QueryInt("limit", 5))
	if err != nil {
		return apperrors.MapError(err)
	}

	payload := make([]service.SerializedTicket, 0, len(tickets))
	for i := range tickets {
		payload = append(payload, service.SerializeTicket(&tickets[i]))
	}
	return c.JSON(fiber.Map{
		"type":    "notifications_list",
		"tickets": payload,
		"count":   total,
	})
}
