package handler

import (
	"errors"
	"log/slog"
	"strconv"

	"go-survey-console/internal/confirm"
	"go-survey-console/internal/crud"
	"go-survey-console/internal/middleware"
	"go-survey-console/internal/rbac"
	"go-survey-console/internal/routes"
	"go-survey-console/internal/service"
	"go-survey-console/pkg/apiclient"
	"go-survey-console/pkg/validator"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// MsgSomethingWrong is what the user sees for anything unexpected.
const MsgSomethingWrong = "Something went wrong."

// ErrorHandler is the last resort for errors handlers did not map and for
// recovered panics.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) && fe.Code < 500 {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		logger.Error("unhandled error", "path", c.Path(), "method", c.Method(), "err", err)
		return c.Status(500).JSON(fiber.Map{"error": MsgSomethingWrong, "redirect": routes.HomePath})
	}
}

// respond maps a service error onto a status and a fiber.Map body.
// Unmapped errors go to ErrorHandler.
func respond(c *fiber.Ctx, err error) error {
	status, body, ok := errorBody(err)
	if !ok {
		return err
	}
	return c.Status(status).JSON(body)
}

func errorBody(err error) (int, fiber.Map, bool) {
	var (
		permErr   *rbac.PermissionError
		fields    validator.FieldErrors
		rejection *service.Rejection
		failure   *service.Failure
		apiErr    *apiclient.APIError
	)

	switch {
	case errors.Is(err, apiclient.ErrSessionExpired):
		return 401, fiber.Map{"error": "Session expired. Please log in again.", "redirect": routes.LoginPath}, true

	case errors.As(err, &permErr):
		return 403, fiber.Map{"error": permErr.Error()}, true

	case errors.As(err, &fields):
		return 422, fiber.Map{"error": "Please correct the highlighted fields.", "fields": fields}, true

	case errors.As(err, &rejection):
		return 422, fiber.Map{"error": rejection.Message}, true

	case errors.As(err, &failure):
		return upstreamStatus(failure.Status()), fiber.Map{"error": failure.Message}, true

	case errors.As(err, &apiErr):
		return upstreamStatus(apiErr.Status), fiber.Map{"error": apiErr.Message()}, true

	case errors.Is(err, crud.ErrUnknownSchema),
		errors.Is(err, crud.ErrPageNotFound),
		errors.Is(err, crud.ErrRowNotFound),
		errors.Is(err, service.ErrUnknownList),
		errors.Is(err, service.ErrIndexOutOfRange),
		errors.Is(err, gorm.ErrRecordNotFound):
		return 404, fiber.Map{"error": err.Error()}, true

	case errors.Is(err, confirm.ErrNotFound):
		return 410, fiber.Map{"error": err.Error()}, true

	case errors.Is(err, crud.ErrUnknownCategory),
		errors.Is(err, crud.ErrNotEditable),
		errors.Is(err, service.ErrInvalidGoodsType):
		return 400, fiber.Map{"error": err.Error()}, true

	case errors.Is(err, service.ErrNoSurveySelected):
		return 409, fiber.Map{"error": "No survey selected.", "redirect": "/scheduled-surveys"}, true
	}
	return 0, nil, false
}

// upstreamStatus passes 4xx and 5xx through; transport errors become 502.
func upstreamStatus(status int) int {
	if status >= 400 && status < 600 {
		return status
	}
	return fiber.StatusBadGateway
}

func invalidJSON(c *fiber.Ctx) error {
	return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
}

// paramInt parses a numeric route parameter. The error is a 400
// *fiber.Error for ErrorHandler.
func paramInt(c *fiber.Ctx, name string) (int, error) {
	id, err := strconv.Atoi(c.Params(name))
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}

// actorEmail is the email of the logged-in user, for audit columns.
func actorEmail(c *fiber.Ctx) string {
	if u := middleware.Permissions(c).User; u != nil {
		return u.Email
	}
	return ""
}
