package handler

import (
	"io"

	"go-survey-console/internal/middleware"
	"go-survey-console/internal/service"
	"go-survey-console/pkg/apiclient"

	"github.com/gofiber/fiber/v2"
)

const maxImageSize = 5 << 20

type ProfileHandler struct {
	service service.ProfileService
	shell   service.ShellService
}

func NewProfileHandler(s service.ProfileService, shell service.ShellService) *ProfileHandler {
	return &ProfileHandler{service: s, shell: shell}
}

// GetProfile
// GET /api/v1/profile
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	user, err := h.service.Get(c.UserContext(), h.shell.Conn(middleware.SessionID(c)))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"data": user})
}

// UpdateProfile accepts JSON or multipart; multipart may carry an "image" file
// PUT /api/v1/profile
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	var req service.ProfileUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	image, err := formImage(c)
	if err != nil {
		return err
	}

	sid := middleware.SessionID(c)
	user, err := h.service.Update(c.UserContext(), h.shell.Conn(sid), sid, req, image)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Profile updated successfully", "data": user})
}

// ChangePassword
// PUT /api/v1/profile/password
func (h *ProfileHandler) ChangePassword(c *fiber.Ctx) error {
	var req service.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	if err := h.service.ChangePassword(c.UserContext(), h.shell.Conn(middleware.SessionID(c)), req); err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password changed successfully"})
}

// formImage reads the optional "image" part; nil when absent.
func formImage(c *fiber.Ctx) (*apiclient.File, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		return nil, nil
	}
	if fh.Size > maxImageSize {
		return nil, fiber.NewError(fiber.StatusRequestEntityTooLarge, "Image must be 5MB or smaller")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid image")
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid image")
	}
	return &apiclient.File{Field: "image", Filename: fh.Filename, Content: content}, nil
}
