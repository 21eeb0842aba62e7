package handler

import (
	"go-survey-console/internal/confirm"
	"go-survey-console/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ConfirmHandler struct {
	confirms *confirm.Registry
}

func NewConfirmHandler(confirms *confirm.Registry) *ConfirmHandler {
	return &ConfirmHandler{confirms: confirms}
}

// Confirm runs the pending action behind token, once
// POST /api/v1/confirmations/:token
func (h *ConfirmHandler) Confirm(c *fiber.Ctx) error {
	result, err := h.confirms.Confirm(c.UserContext(), middleware.SessionID(c), c.Params("token"))
	if err != nil {
		status, body, ok := errorBody(err)
		if !ok {
			return err
		}
		if result != nil {
			body["data"] = result
		}
		return c.Status(status).JSON(body)
	}
	return c.JSON(fiber.Map{"data": result})
}

// Cancel discards the pending action
// DELETE /api/v1/confirmations/:token
func (h *ConfirmHandler) Cancel(c *fiber.Ctx) error {
	if !h.confirms.Cancel(middleware.SessionID(c), c.Params("token")) {
		return respond(c, confirm.ErrNotFound)
	}
	return c.SendStatus(204)
}
