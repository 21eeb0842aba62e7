package handler

import (
	"time"

	"go-survey-console/internal/middleware"
	"go-survey-console/internal/routes"
	"go-survey-console/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CookieOptions shape the session cookie.
type CookieOptions struct {
	Secure bool
	TTL    time.Duration
}

type AuthHandler struct {
	authService service.AuthService
	cookie      CookieOptions
}

func NewAuthHandler(authService service.AuthService, cookie CookieOptions) *AuthHandler {
	return &AuthHandler{authService: authService, cookie: cookie}
}

func (h *AuthHandler) setCookie(c *fiber.Ctx, sid string) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    sid,
		Path:     "/",
		Expires:  time.Now().Add(h.cookie.TTL),
		Secure:   h.cookie.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// Login exchanges credentials for an authenticated session
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req service.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	sid, err := h.authService.Login(c.UserContext(), middleware.SessionID(c), req)
	if err != nil {
		return respond(c, err)
	}
	h.setCookie(c, sid)

	info, err := h.authService.Session(c.UserContext(), sid)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Login successful", "session": info, "redirect": routes.HomePath})
}

// Logout ends the session even when the upstream call fails
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := middleware.SessionID(c)
	if sid != "" {
		if err := h.authService.Logout(c.UserContext(), sid); err != nil {
			return respond(c, err)
		}
	}
	c.ClearCookie(middleware.SessionCookie)
	return c.JSON(fiber.Map{"message": "Logged out", "redirect": routes.LoginPath})
}

// RequestOTP sends a reset code to the email
// POST /api/v1/auth/request-otp
func (h *AuthHandler) RequestOTP(c *fiber.Ctx) error {
	var req service.RequestOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	msg, err := h.authService.RequestOTP(c.UserContext(), req)
	if err != nil {
		return respond(c, err)
	}
	if msg == "" {
		msg = "OTP sent to your email."
	}
	return c.JSON(fiber.Map{"message": msg})
}

// ResetPassword sets a new password with the emailed code
// POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req service.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	msg, err := h.authService.ResetPassword(c.UserContext(), req)
	if err != nil {
		return respond(c, err)
	}
	if msg == "" {
		msg = "Password reset successfully."
	}
	return c.JSON(fiber.Map{"message": msg, "redirect": routes.LoginPath})
}

// Session reports whether the cookie carries a logged-in session
// GET /api/v1/auth/session
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	info, err := h.authService.Session(c.UserContext(), middleware.SessionID(c))
	if err != nil {
		return err
	}
	return c.JSON(info)
}
