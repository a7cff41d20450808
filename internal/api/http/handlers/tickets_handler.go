package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/blueriver/escalation-service/internal/api/dto"
	"github.com/blueriver/escalation-service/internal/service"
	apperrors "github.com/blueriver/escalation-service/pkg/util"
)

// TicketsHandler exposes ticket intake and lookups.
type TicketsHandler struct {
	tickets *service.TicketService
}

// NewTicketsHandler builds the handler.
func NewTicketsHandler(tickets *service.TicketService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets}
}

// Create handles ticket intake.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}

	ticket, err := h.tickets.CreateTicket(c.UserContext(), service.TicketCreateInput{
		Title:       req.Title,
		Category:    req.Category,
		Issue:       req.Issue,
		Description: req.Description,
		Zone:        req.Zone,
		Priority:    req.Priority,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewTicketResponse(ticket))
}

// Get returns one ticket.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	ticket, err := h.tickets.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// Reclassify applies an explicit category/priority edit, re-running the
// policy lookup.
func (h *TicketsHandler) Reclassify(c *fiber.Ctx) error {
	var req dto.ReclassifyTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if req.Category == "" || req.Priority == "" {
		return apperrors.NewValidationError("category and priority required", nil)
	}

	ticket, err := h.tickets.ReclassifyTicket(c.UserContext(), c.Params("id"), req.Category, req.Priority)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// Assign sets the ticket owner.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if err := h.tickets.AssignTicket(c.UserContext(), c.Params("id"), req.Assignee); err != nil {
		return apperrors.MapError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// History returns the escalation audit trail for a ticket.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	entries, err := h.tickets.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"history": dto.NewHistoryResponse(entries)})
}
