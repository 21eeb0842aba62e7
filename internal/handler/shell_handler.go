package handler

import (
	"context"
	"encoding/json"
	"log/slog"

	"go-survey-console/internal/middleware"
	"go-survey-console/internal/routes"
	"go-survey-console/internal/service"
	"go-survey-console/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type ShellHandler struct {
	shell  service.ShellService
	hub    *ws.Hub
	logger *slog.Logger
}

func NewShellHandler(shell service.ShellService, hub *ws.Hub, logger *slog.Logger) *ShellHandler {
	return &ShellHandler{shell: shell, hub: hub, logger: logger}
}

// Gate evaluates one browser navigation. Public: an anonymous caller gets
// the login redirect.
// GET /api/v1/shell/gate?path=
func (h *ShellHandler) Gate(c *fiber.Ctx) error {
	path := c.Query("path", routes.HomePath)
	d := h.shell.Gate(c.UserContext(), middleware.SessionID(c), path)
	return c.JSON(d)
}

// Navigation returns the sidebar, bottom bar and title for path
// GET /api/v1/shell/navigation?path=
func (h *ShellHandler) Navigation(c *fiber.Ctx) error {
	n, err := h.shell.Navigation(c.UserContext(), middleware.SessionID(c), c.Query("path", routes.HomePath))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(n)
}

// Permissions returns the resolved matrix of the session
// GET /api/v1/shell/permissions
func (h *ShellHandler) Permissions(c *fiber.Ctx) error {
	return c.JSON(middleware.Permissions(c).View())
}

// Routes lists the route table, for the shell's router
// GET /api/v1/shell/routes
func (h *ShellHandler) Routes(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": routes.Console.Routes()})
}

// Upgrade lets only websocket handshakes through to Socket.
func (h *ShellHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("sid", middleware.SessionID(c))
		c.Locals("path", c.Query("path", routes.HomePath))
		return c.Next()
	}
	return c.SendStatus(fiber.StatusUpgradeRequired)
}

type locationMessage struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// Socket keeps one shell tab subscribed to navigation pushes. The tab
// reports page changes with {"type":"location","path":"/..."}.
// GET /ws
func (h *ShellHandler) Socket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		sid, _ := conn.Locals("sid").(string)
		path, _ := conn.Locals("path").(string)
		client := ws.NewClient(sid, conn, path)
		ctx := context.Background()
		h.hub.Join(ctx, client)
		defer h.hub.Leave(client)

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var loc locationMessage
			if err := json.Unmarshal(msg, &loc); err != nil || loc.Type != "location" {
				continue
			}
			client.SetPath(loc.Path)
			h.hub.Push(ctx, client)
		}
		h.logger.Debug("ws client closed", "session_id", sid)
	})
}
