package handler

import (
	"context"
	"fmt"

	"go-survey-console/internal/confirm"
	"go-survey-console/internal/crud"
	"go-survey-console/internal/middleware"
	"go-survey-console/internal/model"
	"go-survey-console/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SettingsHandler serves the generic list-and-form pages: lookups, users
// and roles.
type SettingsHandler struct {
	pages    *crud.Registry
	shell    service.ShellService
	confirms *confirm.Registry
}

func NewSettingsHandler(pages *crud.Registry, shell service.ShellService, confirms *confirm.Registry) *SettingsHandler {
	return &SettingsHandler{pages: pages, shell: shell, confirms: confirms}
}

type schemaInfo struct {
	Key     string             `json:"key"`
	Title   string             `json:"title"`
	Page    model.PageKey      `json:"page"`
	Actions model.Capabilities `json:"actions"`
}

type selectRequest struct {
	Category string `json:"category"`
}

// values accepts any JSON scalar per field; the page validates strings.
func values(c *fiber.Ctx) (map[string]string, error) {
	var raw map[string]any
	if err := c.BodyParser(&raw); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = t
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out, nil
}

func (h *SettingsHandler) page(c *fiber.Ctx) (*crud.Page, error) {
	return h.pages.Page(middleware.SessionID(c), c.Params("pageId"))
}

// GetSchemas lists the pages the session may view
// GET /api/v1/settings
func (h *SettingsHandler) GetSchemas(c *fiber.Ctx) error {
	perms := middleware.Permissions(c)
	var out []schemaInfo
	for _, s := range h.pages.Schemas() {
		if perms.Has(s.Page, model.ActionView) {
			out = append(out, schemaInfo{Key: s.Key, Title: s.Title, Page: s.Page, Actions: perms.Can(s.Page)})
		}
	}
	return c.JSON(fiber.Map{"data": out})
}

// Mount fetches a fresh page
// POST /api/v1/settings/:schema/mount
func (h *SettingsHandler) Mount(c *fiber.Ctx) error {
	sid := middleware.SessionID(c)
	perms := middleware.Permissions(c)
	p, err := h.pages.Mount(c.UserContext(), sid, c.Params("schema"), h.shell.Conn(sid), perms)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(201).JSON(p.View(perms))
}

// GetPage re-renders a mounted page
// GET /api/v1/settings/pages/:pageId
func (h *SettingsHandler) GetPage(c *fiber.Ctx) error {
	p, err := h.page(c)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(p.View(middleware.Permissions(c)))
}

// Select switches the visible category
// POST /api/v1/settings/pages/:pageId/select
func (h *SettingsHandler) Select(c *fiber.Ctx) error {
	var req selectRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	p, err := h.page(c)
	if err != nil {
		return respond(c, err)
	}
	if err := p.Select(req.Category); err != nil {
		return respond(c, err)
	}
	return c.JSON(p.View(middleware.Permissions(c)))
}

// Create submits the form of the active category
// POST /api/v1/settings/pages/:pageId/records
func (h *SettingsHandler) Create(c *fiber.Ctx) error {
	vals, err := values(c)
	if err != nil {
		return invalidJSON(c)
	}
	p, err := h.page(c)
	if err != nil {
		return respond(c, err)
	}
	sid := middleware.SessionID(c)
	perms := middleware.Permissions(c)
	rec, err := h.pages.Submit(c.UserContext(), p, h.shell.Conn(sid), perms, vals)
	if err != nil {
		return h.pageError(c, p, err)
	}
	return c.Status(201).JSON(fiber.Map{"data": rec, "page": p.View(perms)})
}

// Update edits one row of the active category
// PUT /api/v1/settings/pages/:pageId/records/:id
func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	vals, err := values(c)
	if err != nil {
		return invalidJSON(c)
	}
	p, err := h.page(c)
	if err != nil {
		return respond(c, err)
	}
	sid := middleware.SessionID(c)
	perms := middleware.Permissions(c)
	rec, err := h.pages.Update(c.UserContext(), p, h.shell.Conn(sid), perms, c.Params("id"), vals)
	if err != nil {
		return h.pageError(c, p, err)
	}
	return c.JSON(fiber.Map{"data": rec, "page": p.View(perms)})
}

// Delete opens a confirmation; nothing is deleted until it is confirmed
// DELETE /api/v1/settings/pages/:pageId/records/:category/:id
func (h *SettingsHandler) Delete(c *fiber.Ctx) error {
	p, err := h.page(c)
	if err != nil {
		return respond(c, err)
	}
	perms := middleware.Permissions(c)
	if err := perms.Require(p.Schema().Page, model.ActionDelete); err != nil {
		return respond(c, err)
	}
	category, id := c.Params("category"), c.Params("id")
	prompt, err := p.DeletePrompt(category, id)
	if err != nil {
		return respond(c, err)
	}

	sid := middleware.SessionID(c)
	pending := h.confirms.Open(sid, prompt, func(ctx context.Context) (any, error) {
		perms := h.shell.Permissions(ctx, sid)
		if err := h.pages.Delete(ctx, p, h.shell.Conn(sid), perms, category, id); err != nil {
			return p.View(perms), err
		}
		return p.View(perms), nil
	})
	return c.Status(202).JSON(fiber.Map{"confirmation": pending})
}

// Unmount drops a page the shell navigated away from
// DELETE /api/v1/settings/pages/:pageId
func (h *SettingsHandler) Unmount(c *fiber.Ctx) error {
	if !h.pages.Unmount(middleware.SessionID(c), c.Params("pageId")) {
		return respond(c, crud.ErrPageNotFound)
	}
	return c.SendStatus(204)
}

// pageError sends the mapped error together with the page, whose banner
// already describes the failure.
func (h *SettingsHandler) pageError(c *fiber.Ctx, p *crud.Page, err error) error {
	status, body, ok := errorBody(err)
	if !ok {
		return err
	}
	body["page"] = p.View(middleware.Permissions(c))
	return c.Status(status).JSON(body)
}
