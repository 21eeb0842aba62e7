package handler

import (
	"go-survey-console/internal/middleware"
	"go-survey-console/internal/service"

	"github.com/gofiber/fiber/v2"
)

// RoleHandler serves the role permission matrix.
type RoleHandler struct {
	admin service.AdminService
	shell service.ShellService
}

func NewRoleHandler(admin service.AdminService, shell service.ShellService) *RoleHandler {
	return &RoleHandler{admin: admin, shell: shell}
}

type saveMatrixRequest struct {
	Rows []service.MatrixRow `json:"rows"`
}

// GetRoles returns all available roles
// GET /api/v1/roles
func (h *RoleHandler) GetRoles(c *fiber.Ctx) error {
	roles, err := h.admin.Roles(c.UserContext(), h.shell.Conn(middleware.SessionID(c)))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"data": roles})
}

// GetMatrix returns one row per page for the role
// GET /api/v1/roles/:id/permissions
func (h *RoleHandler) GetMatrix(c *fiber.Ctx) error {
	id, err := paramInt(c, "id")
	if err != nil {
		return err
	}
	m, err := h.admin.Matrix(c.UserContext(), h.shell.Conn(middleware.SessionID(c)), middleware.Permissions(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(m)
}

// SaveMatrix
// PUT /api/v1/roles/:id/permissions
func (h *RoleHandler) SaveMatrix(c *fiber.Ctx) error {
	id, err := paramInt(c, "id")
	if err != nil {
		return err
	}
	var req saveMatrixRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	if len(req.Rows) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "No permissions to save"})
	}
	msg, err := h.admin.SaveMatrix(c.UserContext(), h.shell.Conn(middleware.SessionID(c)), middleware.Permissions(c), id, req.Rows)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": msg})
}
