package main

import (
	"go-survey-console/internal/handler"
	"go-survey-console/internal/middleware"
	"go-survey-console/internal/model"
	"go-survey-console/internal/service"
	"go-survey-console/internal/session"

	"github.com/gofiber/fiber/v2"
)

type routeHandlers struct {
	auth     *handler.AuthHandler
	shell    *handler.ShellHandler
	dash     *handler.DashboardHandler
	enquiry  *handler.EnquiryHandler
	wizard   *handler.WizardHandler
	settings *handler.SettingsHandler
	confirm  *handler.ConfirmHandler
	profile  *handler.ProfileHandler
	role     *handler.RoleHandler
}

func registerRoutes(app *fiber.App, store session.Store, perms service.ShellService, h routeHandlers) {
	api := app.Group("/api/v1")
	view := func(page model.PageKey) fiber.Handler {
		return middleware.RequirePage(perms, page, model.ActionView)
	}
	add := func(page model.PageKey) fiber.Handler {
		return middleware.RequirePage(perms, page, model.ActionAdd)
	}
	edit := func(page model.PageKey) fiber.Handler {
		return middleware.RequirePage(perms, page, model.ActionEdit)
	}

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", h.auth.Login)
	auth.Post("/logout", h.auth.Logout)
	auth.Post("/request-otp", h.auth.RequestOTP)
	auth.Post("/reset-password", h.auth.ResetPassword)
	auth.Get("/session", h.auth.Session)

	api.Get("/shell/gate", h.shell.Gate)
	api.Get("/shell/routes", h.shell.Routes)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireSession(store))
	loaded := protected.Group("", middleware.LoadPermissions(perms))

	// Shell
	loaded.Get("/shell/navigation", h.shell.Navigation)
	loaded.Get("/shell/permissions", h.shell.Permissions)

	// Dashboard
	loaded.Get("/dashboard/cards", h.dash.GetCards)
	loaded.Get("/dashboard/stats", h.dash.GetStats)

	// Enquiries; each list and transition checks its own page
	loaded.Get("/enquiries", h.enquiry.GetEnquiries)
	loaded.Get("/enquiries/assignees", h.enquiry.GetAssignees)
	loaded.Post("/enquiries", h.enquiry.CreateEnquiry)
	loaded.Patch("/enquiries/:id", h.enquiry.UpdateEnquiry)
	loaded.Delete("/enquiries/:id", h.enquiry.DeleteEnquiry)
	loaded.Post("/enquiries/:id/assign", h.enquiry.AssignEnquiry)
	loaded.Post("/enquiries/:id/contact-status", h.enquiry.SetContactStatus)
	loaded.Post("/enquiries/:id/schedule", h.enquiry.Schedule)
	loaded.Post("/enquiries/:id/reschedule", h.enquiry.Reschedule)
	loaded.Post("/enquiries/:id/cancel-survey", h.enquiry.CancelSurvey)
	loaded.Post("/enquiries/:id/start-survey", h.wizard.StartSurvey)

	// Survey wizard
	survey := protected.Group("/survey")
	survey.Put("/goods-type", edit(model.PageSurveyCustomer), h.wizard.SetGoodsType)
	survey.Get("/article-options", view(model.PageSurveyArticle), h.wizard.GetArticleOptions)
	survey.Get("/rooms/:roomId/items", view(model.PageSurveyArticle), h.wizard.GetRoomItems)
	survey.Get("/manage/rooms/:roomId/items", view(model.PageSurveyArticle), h.wizard.GetManageItems)
	survey.Get("/summary", view(model.PageSurveySummary), h.wizard.GetSummary)

	survey.Get("/:surveyId/draft", middleware.RequireAnyPage(perms,
		model.PageSurveyCustomer, model.PageSurveyArticle, model.PageSurveyPet, model.PageSurveyService, model.PageSurveySummary,
	), h.wizard.GetDraft)
	survey.Get("/:surveyId/customer", view(model.PageSurveyCustomer), h.wizard.GetCustomer)
	survey.Put("/:surveyId/customer", edit(model.PageSurveyCustomer), h.wizard.SaveCustomer)
	survey.Post("/:surveyId/articles", add(model.PageSurveyArticle), h.wizard.AddArticle)
	survey.Put("/:surveyId/articles/:index", edit(model.PageSurveyArticle), h.wizard.UpdateArticle)
	survey.Delete("/:surveyId/articles/:index", edit(model.PageSurveyArticle), h.wizard.RemoveArticle)
	survey.Post("/:surveyId/vehicles", add(model.PageSurveyArticle), h.wizard.AddVehicle)
	survey.Delete("/:surveyId/vehicles/:index", edit(model.PageSurveyArticle), h.wizard.RemoveVehicle)
	survey.Post("/:surveyId/manage-article", add(model.PageSurveyArticle), h.wizard.ManageArticle)
	survey.Post("/:surveyId/article/next", view(model.PageSurveyArticle), h.wizard.ArticleNext)
	survey.Post("/:surveyId/pets", add(model.PageSurveyPet), h.wizard.AddPet)
	survey.Delete("/:surveyId/pets/:index", edit(model.PageSurveyPet), h.wizard.RemovePet)
	survey.Post("/:surveyId/pet/next", view(model.PageSurveyPet), h.wizard.PetNext)
	survey.Post("/:surveyId/service", edit(model.PageSurveyService), h.wizard.SaveService)
	survey.Post("/:surveyId/:step/back", middleware.RequireAnyPage(perms,
		model.PageSurveyArticle, model.PageSurveyPet, model.PageSurveyService,
	), h.wizard.Back)

	// Settings pages
	loaded.Get("/settings", h.settings.GetSchemas)
	loaded.Post("/settings/:schema/mount", h.settings.Mount)
	loaded.Get("/settings/pages/:pageId", h.settings.GetPage)
	loaded.Post("/settings/pages/:pageId/select", h.settings.Select)
	loaded.Post("/settings/pages/:pageId/records", h.settings.Create)
	loaded.Put("/settings/pages/:pageId/records/:id", h.settings.Update)
	loaded.Delete("/settings/pages/:pageId/records/:category/:id", h.settings.Delete)
	loaded.Delete("/settings/pages/:pageId", h.settings.Unmount)

	// Confirmations
	protected.Post("/confirmations/:token", h.confirm.Confirm)
	protected.Delete("/confirmations/:token", h.confirm.Cancel)

	// Profile
	protected.Get("/profile", view(model.PageProfile), h.profile.GetProfile)
	protected.Put("/profile", edit(model.PageProfile), h.profile.UpdateProfile)
	protected.Put("/profile/password", edit(model.PageProfile), h.profile.ChangePassword)

	// Roles and permission matrix
	protected.Get("/roles", view(model.PagePermissions), h.role.GetRoles)
	protected.Get("/roles/:id/permissions", view(model.PagePermissions), h.role.GetMatrix)
	protected.Put("/roles/:id/permissions", edit(model.PagePermissions), h.role.SaveMatrix)

	// WebSocket
	app.Use("/ws", h.shell.Upgrade)
	app.Get("/ws", h.shell.Socket())
}
