package handler

import (
	"go-survey-console/internal/middleware"
	"go-survey-console/internal/service"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service service.DashboardService
	shell   service.ShellService
}

func NewDashboardHandler(s service.DashboardService, shell service.ShellService) *DashboardHandler {
	return &DashboardHandler{service: s, shell: shell}
}

// GetCards returns the dashboard cards the session may follow
// GET /api/v1/dashboard
func (h *DashboardHandler) GetCards(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.service.Cards(middleware.Permissions(c))})
}

// GetStats is GetCards with a row count on each card
// GET /api/v1/dashboard/stats
func (h *DashboardHandler) GetStats(c *fiber.Ctx) error {
	sid := middleware.SessionID(c)
	cards, err := h.service.Stats(c.UserContext(), h.shell.Conn(sid), middleware.Permissions(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"data": cards})
}
