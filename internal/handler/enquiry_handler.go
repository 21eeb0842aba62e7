package handler

import (
	"context"

	"go-survey-console/internal/confirm"
	"go-survey-console/internal/middleware"
	"go-survey-console/internal/service"

	"github.com/gofiber/fiber/v2"
)

type EnquiryHandler struct {
	service  service.EnquiryService
	shell    service.ShellService
	confirms *confirm.Registry
}

func NewEnquiryHandler(s service.EnquiryService, shell service.ShellService, confirms *confirm.Registry) *EnquiryHandler {
	return &EnquiryHandler{service: s, shell: shell, confirms: confirms}
}

func (h *EnquiryHandler) api(c *fiber.Ctx) service.API {
	return h.shell.Conn(middleware.SessionID(c))
}

// GetEnquiries returns one of the enquiry lists
// Query params: list (all|new|scheduled|follow-ups|processing), filterType, fromDate, toDate
func (h *EnquiryHandler) GetEnquiries(c *fiber.Ctx) error {
	list := service.EnquiryList(c.Query("list", string(service.ListAll)))
	filter := service.EnquiryFilter{
		Type:     c.Query("filterType"),
		FromDate: c.Query("fromDate"),
		ToDate:   c.Query("toDate"),
	}
	rows, err := h.service.List(c.UserContext(), h.api(c), middleware.Permissions(c), list, filter)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"data": rows, "count": len(rows)})
}

// GetAssignees lists users enquiries can be assigned to
// GET /api/v1/enquiries/assignees
func (h *EnquiryHandler) GetAssignees(c *fiber.Ctx) error {
	opts, err := h.service.Assignees(c.UserContext(), h.api(c), middleware.Permissions(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"data": opts})
}

// CreateEnquiry
// POST /api/v1/enquiries
func (h *EnquiryHandler) CreateEnquiry(c *fiber.Ctx) error {
	var req service.EnquiryRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	e, err := h.service.Create(c.UserContext(), h.api(c), middleware.Permissions(c), req)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": service.MsgEnquiryCreated, "data": e})
}

// UpdateEnquiry
// PATCH /api/v1/enquiries/:id
func (h *EnquiryHandler) UpdateEnquiry(c *fiber.Ctx) error {
	id, err := paramInt(c, "id")
	if err != nil {
		return err
	}
	var req service.EnquiryRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	e, err := h.service.Update(c.UserContext(), h.api(c), middleware.Permissions(c), id, req)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": service.MsgEnquiryUpdated, "data": e})
}

// confirmed checks t up front, then parks run behind a confirmation.
func (h *EnquiryHandler) confirmed(c *fiber.Ctx, t service.Transition, req any, prompt string, run func(ctx context.Context, api service.API) (any, error)) error {
	if err := service.Authorize(middleware.Permissions(c), t); err != nil {
		return respond(c, err)
	}
	if err := h.service.Validate(t, req); err != nil {
		return respond(c, err)
	}
	sid := middleware.SessionID(c)
	pending := h.confirms.Open(sid, prompt, func(ctx context.Context) (any, error) {
		return run(ctx, h.shell.Conn(sid))
	})
	return c.Status(202).JSON(fiber.Map{"confirmation": pending})
}

// AssignEnquiry asks for confirmation before assigning
// POST /api/v1/enquiries/:id/assign
func (h *EnquiryHandler) AssignEnquiry(c *fiber.Ctx) error {
	id, err := paramInt(c, "id")
	if err != nil {
		return err
	}
	var req service.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	prompt := "Are you sure you want to assign this enquiry?"
	if req.Email == "" {
		prompt = "Are you sure you want to unassign this enquiry?"
	}
	sid := middleware.SessionID(c)
	return h.confirmed(c, service.TransitionAssign, req, prompt, func(ctx context.Context, api service.API) (any, error) {
		e, err := h.service.Assign(ctx, api, h.shell.Permissions(ctx, sid), id, req)
		if err != nil {
			return nil, err
		}
		return fiber.Map{"message": service.MsgEnquiryAssigned, "enquiry": e}, nil
	})
}

// DeleteEnquiry asks for confirmation before deleting
// DELETE /api/v1/enquiries/:id
func (h *EnquiryHandler) DeleteEnquiry(c *fiber.Ctx) error {
	id, err := paramInt(c, "id")
	if err != nil {
		return err
	}
	sid := middleware.SessionID(c)
	return h.confirmed(c, service.TransitionDelete, nil, "Are you sure you want to delete this enquiry?", func(ctx context.Context, api service.API) (any, error) {
		if err := h.service.Delete(ctx, api, h.shell.Permissions(ctx, sid), id); err != nil {
			return nil, err
		}
		return fiber.Map{"message": service.MsgEnquiryDeleted, "id": id}, nil
	})
}

// SetContactStatus
// POST /api/v1/enquiries/:id/contact-status
func (h *EnquiryHandler) SetContactStatus(c *fiber.Ctx) error {
	id, err := paramInt(c, "id")
	if err != nil {
		return err
	}
	var req service.ContactStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	e, err := h.service.SetContactStatus(c.UserContext(), h.api(c), middleware.Permissions(c), id, req)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": service.MsgContactStatus, "data": e})
}

// Schedule sets the survey date; surveyDate is RFC 3339
// POST /api/v1/enquiries/:id/schedule
func (h *EnquiryHandler) Schedule(c *fiber.Ctx) error {
	id, err := paramInt(c, "id")
	if err != nil {
		return err
	}
	var req service.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	e, err := h.service.Schedule(c.UserContext(), h.api(c), middleware.Permissions(c), id, req)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": service.MsgSurveyScheduled, "data": e})
}

// Reschedule
// POST /api/v1/enquiries/:id/reschedule
func (h *EnquiryHandler) Reschedule(c *fiber.Ctx) error {
	id, err := paramInt(c, "id")
	if err != nil {
		return err
	}
	var req service.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	e, err := h.service.Reschedule(c.UserContext(), h.api(c), middleware.Permissions(c), id, req)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": service.MsgSurveyReschedule, "data": e})
}

// CancelSurvey asks for confirmation before cancelling; a reason is required
// POST /api/v1/enquiries/:id/cancel-survey
func (h *EnquiryHandler) CancelSurvey(c *fiber.Ctx) error {
	id, err := paramInt(c, "id")
	if err != nil {
		return err
	}
	var req service.CancelSurveyRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	sid := middleware.SessionID(c)
	return h.confirmed(c, service.TransitionCancelSurvey, req, "Are you sure you want to cancel this survey?", func(ctx context.Context, api service.API) (any, error) {
		e, err := h.service.CancelSurvey(ctx, api, h.shell.Permissions(ctx, sid), id, req)
		if err != nil {
			return nil, err
		}
		return fiber.Map{"message": service.MsgSurveyCancelled, "enquiry": e}, nil
	})
}
