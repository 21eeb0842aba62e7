package middleware

import (
	"context"
	"errors"
	"strings"

	"go-survey-console/internal/model"
	"go-survey-console/internal/rbac"
	"go-survey-console/internal/routes"
	"go-survey-console/internal/session"
	"go-survey-console/pkg/apiclient"

	"github.com/gofiber/fiber/v2"
)

const (
	// SessionCookie carries the opaque session id.
	SessionCookie = "console_sid"

	localSessionID   = "session_id"
	localPermissions = "permissions"
)

// PermissionSource resolves the permission set of a session.
type PermissionSource interface {
	Permissions(ctx context.Context, sid string) rbac.Set
}

// SessionID returns the id set by RequireSession, or the raw cookie on
// public routes.
func SessionID(c *fiber.Ctx) string {
	if sid, ok := c.Locals(localSessionID).(string); ok {
		return sid
	}
	return strings.TrimSpace(c.Cookies(SessionCookie))
}

// Permissions returns the set loaded by RequirePage or LoadPermissions.
func Permissions(c *fiber.Ctx) rbac.Set {
	set, _ := c.Locals(localPermissions).(rbac.Set)
	return set
}

// RequireSession rejects requests without an authenticated session.
func RequireSession(store session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Get session cookie
		sid := strings.TrimSpace(c.Cookies(SessionCookie))
		if sid == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Authentication required", "redirect": routes.LoginPath})
		}

		// The auth flag is the only thing trusted here
		if !session.IsAuthenticated(c.UserContext(), store, sid) {
			return c.Status(401).JSON(fiber.Map{"error": "Session expired. Please log in again.", "redirect": routes.LoginPath})
		}

		c.Locals(localSessionID, sid)
		return c.Next()
	}
}

// LoadPermissions resolves the session's set without requiring anything,
// for handlers whose page is only known from the request.
func LoadPermissions(source PermissionSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		set := source.Permissions(c.UserContext(), SessionID(c))
		if errors.Is(set.Err, apiclient.ErrSessionExpired) {
			return c.Status(401).JSON(fiber.Map{"error": "Session expired. Please log in again.", "redirect": routes.LoginPath})
		}
		c.Locals(localPermissions, set)
		return c.Next()
	}
}

// RequirePage checks one capability on one page, like the browser gate does
// for navigations.
func RequirePage(source PermissionSource, page model.PageKey, action model.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		set := source.Permissions(c.UserContext(), SessionID(c))
		if errors.Is(set.Err, apiclient.ErrSessionExpired) {
			return c.Status(401).JSON(fiber.Map{"error": "Session expired. Please log in again.", "redirect": routes.LoginPath})
		}
		if err := set.Require(page, action); err != nil {
			body := fiber.Map{"error": err.Error(), "redirect": routes.HomePath}
			if set.Notice != "" {
				body["notice"] = set.Notice
			}
			return c.Status(403).JSON(body)
		}
		c.Locals(localPermissions, set)
		return c.Next()
	}
}

// RequireAnyPage passes when the session may view at least one of pages.
func RequireAnyPage(source PermissionSource, pages ...model.PageKey) fiber.Handler {
	return func(c *fiber.Ctx) error {
		set := source.Permissions(c.UserContext(), SessionID(c))
		if errors.Is(set.Err, apiclient.ErrSessionExpired) {
			return c.Status(401).JSON(fiber.Map{"error": "Session expired. Please log in again.", "redirect": routes.LoginPath})
		}
		for _, p := range pages {
			if set.Has(p, model.ActionView) {
				c.Locals(localPermissions, set)
				return c.Next()
			}
		}
		return c.Status(403).JSON(fiber.Map{"error": "You do not have permission to view this page.", "redirect": routes.HomePath})
	}
}
