package support

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/smartsite-dev/api/internal/api/common"
	supportengine "github.com/smartsite-dev/api/internal/support"
	"github.com/smartsite-dev/api/pkg/logging"
	"github.com/smartsite-dev/api/pkg/response"
)

// Handler handles support ticket HTTP requests
type Handler struct {
	engine *supportengine.Engine
}

// NewHandler creates a new support handler
func NewHandler(e *supportengine.Engine) *Handler {
	return &Handler{engine: e}
}

// CreateTicket handles POST /support/tickets
func (h *Handler) CreateTicket(c echo.Context) error {
	var req common.CreateTicketRequest

	if err := c.Bind(&req); err != nil {
		logging.Logger.Error("Failed to bind request", zap.Error(err))
		return response.BadRequest(c, "Invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	ticket, err := h.engine.CreateTicket(c.Request().Context(), req.Email, req.Subject, req.Message)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, "Ticket created", ticket)
}

// GetTicket handles GET /support/tickets/:id
func (h *Handler) GetTicket(c echo.Context) error {
	ticket, err := h.engine.GetTicket(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(200, ticket)
}

// Escalate handles POST /support/tickets/:id/escalate
func (h *Handler) Escalate(c echo.Context) error {
	ticket, err := h.engine.Escalate(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.OK(c, "Support request escalated to developers", ticket)
}

// Resolve handles POST /support/tickets/:id/resolve
func (h *Handler) Resolve(c echo.Context) error {
	var req common.ResolveTicketRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "Invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	ticket, err := h.engine.Resolve(c.Request().Context(), c.Param("id"), req.Resolution)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.OK(c, "Ticket resolved", ticket)
}
