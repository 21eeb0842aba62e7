package handler

import (
	"strconv"

	"go-survey-console/internal/middleware"
	"go-survey-console/internal/model"
	"go-survey-console/internal/service"
	"go-survey-console/internal/session"

	"github.com/gofiber/fiber/v2"
)

// WizardHandler drives the four survey steps. Every step route carries the
// survey id; the session's selection only feeds navigation and the summary.
type WizardHandler struct {
	service service.WizardService
	shell   service.ShellService
	store   session.Store
}

func NewWizardHandler(s service.WizardService, shell service.ShellService, store session.Store) *WizardHandler {
	return &WizardHandler{service: s, shell: shell, store: store}
}

type goodsTypeRequest struct {
	GoodsType string `json:"goodsType"`
}

func (h *WizardHandler) api(c *fiber.Ctx) service.API {
	return h.shell.Conn(middleware.SessionID(c))
}

func (h *WizardHandler) draft(c *fiber.Ctx, view *model.DraftView, err error) error {
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"data": view})
}

func (h *WizardHandler) step(c *fiber.Ctx, step *service.WizardStep, err error) error {
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(step)
}

// StartSurvey opens or creates the survey of an enquiry and selects it
// POST /api/v1/enquiries/:id/start-survey
func (h *WizardHandler) StartSurvey(c *fiber.Ctx) error {
	id, err := paramInt(c, "id")
	if err != nil {
		return err
	}
	step, err := h.service.Start(c.UserContext(), h.api(c), middleware.Permissions(c), middleware.SessionID(c), id)
	return h.step(c, step, err)
}

// GetCustomer
// GET /api/v1/survey/:surveyId/customer
func (h *WizardHandler) GetCustomer(c *fiber.Ctx) error {
	id, err := paramInt(c, "surveyId")
	if err != nil {
		return err
	}
	out, err := h.service.Customer(c.UserContext(), h.api(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(out)
}

// SaveCustomer
// PUT /api/v1/survey/:surveyId/customer
func (h *WizardHandler) SaveCustomer(c *fiber.Ctx) error {
	id, err := paramInt(c, "surveyId")
	if err != nil {
		return err
	}
	var form model.SurveyCustomer
	if err := c.BodyParser(&form); err != nil {
		return invalidJSON(c)
	}
	step, err := h.service.SaveCustomer(c.UserContext(), h.api(c), middleware.SessionID(c), actorEmail(c), id, form)
	return h.step(c, step, err)
}

// SetGoodsType switches between the article and pet branches
// PUT /api/v1/survey/goods-type
func (h *WizardHandler) SetGoodsType(c *fiber.Ctx) error {
	var req goodsTypeRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	if err := h.service.SetGoodsType(c.UserContext(), middleware.SessionID(c), actorEmail(c), req.GoodsType); err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"goodsType": req.GoodsType})
}

// GetDraft
// GET /api/v1/survey/:surveyId/draft
func (h *WizardHandler) GetDraft(c *fiber.Ctx) error {
	id, err := paramInt(c, "surveyId")
	if err != nil {
		return err
	}
	view, err := h.service.Draft(id)
	return h.draft(c, view, err)
}

// GetArticleOptions
// GET /api/v1/survey/article-options
func (h *WizardHandler) GetArticleOptions(c *fiber.Ctx) error {
	out, err := h.service.ArticleOptions(c.UserContext(), h.api(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(out)
}

// GetRoomItems
// GET /api/v1/survey/rooms/:roomId/items
func (h *WizardHandler) GetRoomItems(c *fiber.Ctx) error {
	roomID, err := paramInt(c, "roomId")
	if err != nil {
		return err
	}
	items, err := h.service.RoomItems(c.UserContext(), h.api(c), roomID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetManageItems lists the items of a room in the manage dialog
// GET /api/v1/survey/manage/rooms/:roomId/items
func (h *WizardHandler) GetManageItems(c *fiber.Ctx) error {
	roomID, err := paramInt(c, "roomId")
	if err != nil {
		return err
	}
	items, err := h.service.ManageItems(c.UserContext(), h.api(c), roomID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddArticle
// POST /api/v1/survey/:surveyId/articles
func (h *WizardHandler) AddArticle(c *fiber.Ctx) error {
	id, err := paramInt(c, "surveyId")
	if err != nil {
		return err
	}
	var a model.Article
	if err := c.BodyParser(&a); err != nil {
		return invalidJSON(c)
	}
	view, err := h.service.AddArticle(id, actorEmail(c), a)
	return h.draft(c, view, err)
}

// UpdateArticle
// PUT /api/v1/survey/:surveyId/articles/:index
func (h *WizardHandler) UpdateArticle(c *fiber.Ctx) error {
	id, err := paramInt(c, "surveyId")
	if err != nil {
		return err
	}
	index, err := paramIndex(c)
	if err != nil {
		return err
	}
	var a model.Article
	if err := c.BodyParser(&a); err != nil {
		return invalidJSON(c)
	}
	view, err := h.service.UpdateArticle(id, actorEmail(c), index, a)
	return h.draft(c, view, err)
}

// RemoveArticle
// DELETE /api/v1/survey/:surveyId/articles/:index
func (h *WizardHandler) RemoveArticle(c *fiber.Ctx) error {
	id, err := paramInt(c, "surveyId")
	if err != nil {
		return err
	}
	index, err := paramIndex(c)
	if err != nil {
		return err
	}
	view, err := h.service.RemoveArticle(id, actorEmail(c), index)
	return h.draft(c, view, err)
}

// AddVehicle
// POST /api/v1/survey/:surveyId/vehicles
func (h *WizardHandler) AddVehicle(c *fiber.Ctx) error {
	id, err := paramInt(c, "surveyId")
	if err != nil {
		return err
	}
	var v model.Vehicle
	if err := c.BodyParser(&v); err != nil {
		return invalidJSON(c)
	}
	view, err := h.service.AddVehicle(id, actorEmail(c), v)
	return h.draft(c, view, err)
}

// RemoveVehicle
// DELETE /api/v1/survey/:surveyId/vehicles/:index
func (h *WizardHandler) RemoveVehicle(c *fiber.Ctx) error {
	id, err := paramInt(c, "surveyId")
	if err != nil {
		return err
	}
	index, err := paramIndex(c)
	if err != nil {
		return err
	}
	view, err := h.service.RemoveVehicle(id, actorEmail(c), index)
	return h.draft(c, view, err)
}

// ManageArticle creates a catalogue article upstream and adds it to the draft
// POST /api/v1/survey/:surveyId/manage-article
func (h *WizardHandler) ManageArticle(c *fiber.Ctx) error {
	id, err := paramInt(c, "surveyId")
	if err != nil {
		return err
	}
	var req service.ManageArticleRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	step, err := h.service.ManageArticle(c.UserContext(), h.api(c), id, actorEmail(c), req)
	return h.step(c, step, err)
}

// ArticleNext
// POST /api/v1/survey/:surveyId/article/next
func (h *WizardHandler) ArticleNext(c *fiber.Ctx) error {
	id, err := paramInt(c, "surveyId")
	if err != nil {
		return err
	}
	step, err := h.service.ArticleNext(id)
	return h.step(c, step, err)
}

// AddPet
// POST /api/v1/survey/:surveyId/pets
func (h *WizardHandler) AddPet(c *fiber.Ctx) error {
	id, err := paramInt(c, "surveyId")
	if err != nil {
		return err
	}
	var p model.Pet
	if err := c.BodyParser(&p); err != nil {
		return invalidJSON(c)
	}
	view, err := h.service.AddPet(id, actorEmail(c), p)
	return h.draft(c, view, err)
}

// RemovePet
// DELETE /api/v1/survey/:surveyId/pets/:index
func (h *WizardHandler) RemovePet(c *fiber.Ctx) error {
	id, err := paramInt(c, "surveyId")
	if err != nil {
		return err
	}
	index, err := paramIndex(c)
	if err != nil {
		return err
	}
	view, err := h.service.RemovePet(id, actorEmail(c), index)
	return h.draft(c, view, err)
}

// PetNext
// POST /api/v1/survey/:surveyId/pet/next
func (h *WizardHandler) PetNext(c *fiber.Ctx) error {
	id, err := paramInt(c, "surveyId")
	if err != nil {
		return err
	}
	step, err := h.service.PetNext(id)
	return h.step(c, step, err)
}

// SaveService submits the whole draft and completes the wizard
// POST /api/v1/survey/:surveyId/service
func (h *WizardHandler) SaveService(c *fiber.Ctx) error {
	id, err := paramInt(c, "surveyId")
	if err != nil {
		return err
	}
	var svc model.SurveyService
	if err := c.BodyParser(&svc); err != nil {
		return invalidJSON(c)
	}
	step, err := h.service.SaveService(c.UserContext(), h.api(c), id, actorEmail(c), svc)
	return h.step(c, step, err)
}

// Back returns the step before :step
// POST /api/v1/survey/:surveyId/:step/back
func (h *WizardHandler) Back(c *fiber.Ctx) error {
	id, err := paramInt(c, "surveyId")
	if err != nil {
		return err
	}
	from := c.Params("step")
	switch from {
	case service.StepArticle, service.StepPet, service.StepService:
	default:
		return fiber.NewError(fiber.StatusBadRequest, "Invalid step")
	}
	step, err := h.service.Back(id, from)
	return h.step(c, step, err)
}

// GetSummary shows the selected survey
// GET /api/v1/survey/summary
func (h *WizardHandler) GetSummary(c *fiber.Ctx) error {
	selected, err := session.GetString(c.UserContext(), h.store, middleware.SessionID(c), session.KeySelectedSurveyID)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(selected)
	if err != nil || id <= 0 {
		return respond(c, service.ErrNoSurveySelected)
	}
	out, err := h.service.Summary(c.UserContext(), h.api(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(out)
}

// paramIndex parses the zero-based :index parameter.
func paramIndex(c *fiber.Ctx) (int, error) {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil || index < 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid index")
	}
	return index, nil
}
