package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"go-survey-console/internal/model"
	"go-survey-console/internal/rbac"
	"go-survey-console/internal/repository"
	"go-survey-console/internal/routes"
	"go-survey-console/internal/session"
	"go-survey-console/pkg/apiclient"
	"go-survey-console/pkg/validator"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Wizard steps, as used in /survey/:id/<step>.
const (
	StepCustomer = "customer"
	StepArticle  = "article"
	StepPet      = "pet"
	StepService  = "service"
	SummaryPath  = "/survey_summary"
)

// WizardStep is the outcome of a step action: where the shell goes next
// and the draft as it now stands.
type WizardStep struct {
	SurveyID int              `json:"survey_id"`
	Next     string           `json:"next"`
	Message  string           `json:"message,omitempty"`
	Draft    *model.DraftView `json:"draft,omitempty"`
}

// CustomerStep rehydrates the customer form.
type CustomerStep struct {
	SurveyID      int                  `json:"survey_id"`
	Customer      model.SurveyCustomer `json:"customer"`
	CustomerTypes []model.Option       `json:"customer_types"`
	ServiceTypes  []model.Option       `json:"service_types"`
	Notice        string               `json:"notice,omitempty"`
}

type RoomOption struct {
	ID    int    `json:"id"`
	Value string `json:"value"`
	Label string `json:"label"`
}

// ArticleOptions fills the selects of the article step.
type ArticleOptions struct {
	Rooms          []RoomOption   `json:"rooms"`
	VolumeUnits    []model.Option `json:"volume_units"`
	WeightUnits    []model.Option `json:"weight_units"`
	PackingOptions []model.Option `json:"packing_options"`
	Handyman       []model.Option `json:"handyman"`
	Currencies     []model.Option `json:"currencies"`
	VehicleTypes   []model.Option `json:"vehicle_types"`
	MoveStatuses   []model.Option `json:"move_statuses"`
	Notice         string         `json:"notice,omitempty"`
}

var moveStatuses = []model.Option{
	{Value: "new", Label: "New"},
	{Value: "in_progress", Label: "In Progress"},
	{Value: "completed", Label: "Completed"},
}

// ManageArticleRequest adds one article through the standalone form.
type ManageArticleRequest struct {
	Room          int    `json:"room" validate:"required"`
	ItemName      string `json:"itemName" validate:"required"`
	Quantity      int    `json:"quantity" validate:"required,gte=1"`
	Volume        string `json:"volume" validate:"omitempty,numeric"`
	VolumeUnit    string `json:"volumeUnit"`
	Weight        string `json:"weight" validate:"omitempty,numeric"`
	WeightUnit    string `json:"weightUnit"`
	Handyman      string `json:"handyman"`
	PackingOption string `json:"packingOption"`
	MoveStatus    string `json:"moveStatus"`
	Amount        string `json:"amount" validate:"omitempty,numeric"`
	Currency      string `json:"currency"`
	Remarks       string `json:"remarks"`
}

type SurveySummary struct {
	Survey *model.Survey    `json:"survey"`
	Draft  *model.DraftView `json:"draft"`
}

type WizardService interface {
	Start(ctx context.Context, api API, perms rbac.Set, sid string, enquiryID int) (*WizardStep, error)
	Customer(ctx context.Context, api API, surveyID int) (*CustomerStep, error)
	SaveCustomer(ctx context.Context, api API, sid, actor string, surveyID int, form model.SurveyCustomer) (*WizardStep, error)
	SetGoodsType(ctx context.Context, sid, actor, goodsType string) error
	Draft(surveyID int) (*model.DraftView, error)

	ArticleOptions(ctx context.Context, api API) (*ArticleOptions, error)
	RoomItems(ctx context.Context, api API, roomID int) ([]model.Item, error)
	AddArticle(surveyID int, actor string, a model.Article) (*model.DraftView, error)
	UpdateArticle(surveyID int, actor string, index int, a model.Article) (*model.DraftView, error)
	RemoveArticle(surveyID int, actor string, index int) (*model.DraftView, error)
	AddVehicle(surveyID int, actor string, v model.Vehicle) (*model.DraftView, error)
	RemoveVehicle(surveyID int, actor string, index int) (*model.DraftView, error)
	ManageItems(ctx context.Context, api API, roomID int) ([]model.Item, error)
	ManageArticle(ctx context.Context, api API, surveyID int, actor string, req ManageArticleRequest) (*WizardStep, error)
	ArticleNext(surveyID int) (*WizardStep, error)

	AddPet(surveyID int, actor string, p model.Pet) (*model.DraftView, error)
	RemovePet(surveyID int, actor string, index int) (*model.DraftView, error)
	PetNext(surveyID int) (*WizardStep, error)

	SaveService(ctx context.Context, api API, surveyID int, actor string, svc model.SurveyService) (*WizardStep, error)
	Summary(ctx context.Context, api API, surveyID int) (*SurveySummary, error)
	Back(surveyID int, from string) (*WizardStep, error)
}

type wizardService struct {
	store  session.Store
	drafts repository.DraftRepository
	logger *slog.Logger
}

func NewWizardService(store session.Store, drafts repository.DraftRepository, logger *slog.Logger) WizardService {
	return &wizardService{store: store, drafts: drafts, logger: logger}
}

func surveyPath(id int) string {
	return fmt.Sprintf("/surveys/%d/", id)
}

// Start opens the survey of a scheduled enquiry, creating it on first use.
// The survey is addressed by the enquiry id from here on.
func (s *wizardService) Start(ctx context.Context, api API, perms rbac.Set, sid string, enquiryID int) (*WizardStep, error) {
	// 1. Permission first, before any upstream call
	if err := Authorize(perms, TransitionStartSurvey); err != nil {
		return nil, err
	}

	// 2. Fetch, or create on 404
	const fallback = "Failed to start survey. Please try again."
	var survey model.Survey
	err := api.Get(ctx, surveyPath(enquiryID), nil, &survey)
	if apiclient.IsNotFound(err) {
		err = api.Post(ctx, "/surveys/", map[string]int{"enquiry": enquiryID}, &survey)
		if err == nil {
			s.logger.Info("survey created", "survey_id", enquiryID)
		}
	}
	if err != nil {
		if errors.Is(err, apiclient.ErrSessionExpired) {
			return nil, err
		}
		return nil, &Failure{Message: fallback, Err: err}
	}

	// 3. Select it in the session
	if err := s.store.Set(ctx, sid, session.KeySelectedSurveyID, strconv.Itoa(enquiryID)); err != nil {
		return nil, err
	}
	if err := session.SetJSON(ctx, s.store, sid, session.KeyCurrentSurveyData, survey); err != nil {
		return nil, err
	}
	goods := model.NormalizeGoodsType(survey.GoodsType)
	if err := s.store.Set(ctx, sid, session.KeyGoodsType, goods); err != nil {
		return nil, err
	}

	// 4. Fresh draft
	if err := s.drafts.Reset(enquiryID); err != nil {
		return nil, fmt.Errorf("reset draft %d: %w", enquiryID, err)
	}
	draft, err := s.drafts.Update(enquiryID, "", func(v *model.DraftView) error {
		v.GoodsType = goods
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed draft %d: %w", enquiryID, err)
	}

	return &WizardStep{SurveyID: enquiryID, Next: routes.SurveyPath(enquiryID, StepCustomer), Draft: draft}, nil
}

// Customer fetches the survey and both lookups in parallel.
func (s *wizardService) Customer(ctx context.Context, api API, surveyID int) (*CustomerStep, error) {
	var (
		survey        model.Survey
		customerTypes []model.Lookup
		serviceTypes  []model.Lookup
		typesErr      error
		mu            sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := api.Get(gctx, surveyPath(surveyID), nil, &survey); err != nil {
			return fail(err, "Failed to fetch survey data. Please try again.")
		}
		return nil
	})
	for _, lookup := range []struct {
		path string
		out  *[]model.Lookup
	}{{"/customer-types/", &customerTypes}, {"/service-types/", &serviceTypes}} {
		lookup := lookup
		g.Go(func() error {
			if err := api.Get(ctx, lookup.path, nil, lookup.out); err != nil {
				mu.Lock()
				typesErr = err
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	step := &CustomerStep{
		SurveyID:      surveyID,
		Customer:      survey.SurveyCustomer,
		CustomerTypes: nameOptions(customerTypes),
		ServiceTypes:  nameOptions(serviceTypes),
	}
	if typesErr != nil {
		if errors.Is(typesErr, apiclient.ErrSessionExpired) {
			return nil, typesErr
		}
		step.Notice = "Failed to fetch types. Please try again."
	}
	if len(step.Customer.DestinationAddresses) == 0 {
		step.Customer.DestinationAddresses = []model.DestinationAddress{{}}
	}
	step.Customer.GoodsType = model.NormalizeGoodsType(step.Customer.GoodsType)
	return step, nil
}

// SaveCustomer patches the customer fields and routes to the goods step.
func (s *wizardService) SaveCustomer(ctx context.Context, api API, sid, actor string, surveyID int, form model.SurveyCustomer) (*WizardStep, error) {
	// 1. Validate
	if err := validateCustomer(form); err != nil {
		return nil, err
	}
	if !form.MultipleAddresses {
		form.DestinationAddresses = firstAddress(form.DestinationAddresses)
	}

	// 2. Persist upstream
	if err := api.Patch(ctx, surveyPath(surveyID), form, nil); err != nil {
		return nil, fail(err, "Failed to save customer data. Please try again.")
	}

	// 3. Thread the customer into the draft
	goods := model.NormalizeGoodsType(form.GoodsType)
	draft, err := s.drafts.Update(surveyID, actor, func(v *model.DraftView) error {
		v.Customer = &form
		v.GoodsType = goods
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update draft %d: %w", surveyID, err)
	}

	// 4. Goods type drives the menu
	if err := s.store.Set(ctx, sid, session.KeyGoodsType, goods); err != nil {
		return nil, err
	}

	next := StepArticle
	if goods == model.GoodsTypePet {
		next = StepPet
	}
	return &WizardStep{SurveyID: surveyID, Next: routes.SurveyPath(surveyID, next), Draft: draft}, nil
}

func validateCustomer(form model.SurveyCustomer) error {
	var fields validator.FieldErrors
	if err := validator.Check(form); err != nil {
		errors.As(err, &fields)
	}
	if form.MultipleAddresses {
		for i, addr := range form.DestinationAddresses {
			for _, e := range validator.ValidateStruct(addr) {
				if fields == nil {
					fields = validator.FieldErrors{}
				}
				fields[fmt.Sprintf("destination_addresses[%d].%s", i, e.FailedField)] = e.Message
			}
		}
	}
	if len(fields) > 0 {
		return fields
	}
	return nil
}

func firstAddress(addrs []model.DestinationAddress) []model.DestinationAddress {
	if len(addrs) > 1 {
		return addrs[:1]
	}
	return addrs
}

// SetGoodsType records a live goods type choice made before the customer
// step is saved.
func (s *wizardService) SetGoodsType(ctx context.Context, sid, actor, goodsType string) error {
	if goodsType != model.GoodsTypeArticle && goodsType != model.GoodsTypePet {
		return ErrInvalidGoodsType
	}
	if err := s.store.Set(ctx, sid, session.KeyGoodsType, goodsType); err != nil {
		return err
	}
	selected, _, err := s.store.Get(ctx, sid, session.KeySelectedSurveyID)
	if err != nil || selected == "" {
		return err
	}
	id, err := strconv.Atoi(selected)
	if err != nil {
		return nil
	}
	_, err = s.drafts.Update(id, actor, func(v *model.DraftView) error {
		v.GoodsType = goodsType
		return nil
	})
	return err
}

func (s *wizardService) Draft(surveyID int) (*model.DraftView, error) {
	row, err := s.drafts.FindBySurveyID(surveyID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.DraftView{
			SurveyID:  surveyID,
			GoodsType: model.GoodsTypeArticle,
			Articles:  []model.Article{},
			Vehicles:  []model.Vehicle{},
			Pets:      []model.Pet{},
		}, nil
	}
	if err != nil {
		return nil, err
	}
	view, err := row.View()
	if err != nil {
		return nil, fmt.Errorf("decode draft %d: %w", surveyID, err)
	}
	return &view, nil
}

// ArticleOptions loads every lookup of the article step. A failed lookup
// falls back to built-in values and sets Notice.
func (s *wizardService) ArticleOptions(ctx context.Context, api API) (*ArticleOptions, error) {
	out := &ArticleOptions{MoveStatuses: moveStatuses}
	var (
		rooms, volume, weight, packing, handyman, currency, vehicle []model.Lookup
		g                                                           errgroup.Group
		mu                                                          sync.Mutex
		failed                                                      error
	)
	fetch := func(path string, dst *[]model.Lookup) {
		g.Go(func() error {
			if err := api.Get(ctx, path, nil, dst); err != nil {
				mu.Lock()
				if failed == nil || errors.Is(err, apiclient.ErrSessionExpired) {
					failed = err
				}
				mu.Unlock()
			}
			return nil
		})
	}
	fetch("/rooms/", &rooms)
	fetch("/volume-units/", &volume)
	fetch("/weight-units/", &weight)
	fetch("/packing-types/", &packing)
	fetch("/handyman/", &handyman)
	fetch("/currencies/", &currency)
	fetch("/vehicle-types/", &vehicle)
	_ = g.Wait()

	if failed != nil {
		if errors.Is(failed, apiclient.ErrSessionExpired) {
			return nil, failed
		}
		s.logger.Warn("article options fell back to defaults", "err", failed)
		defaults := defaultArticleOptions()
		defaults.Notice = "Failed to fetch some options. Using default values."
		return defaults, nil
	}

	for _, r := range rooms {
		out.Rooms = append(out.Rooms, RoomOption{ID: r.ID, Value: r.Label(), Label: r.Label()})
	}
	out.VolumeUnits = nameOptions(volume)
	out.WeightUnits = nameOptions(weight)
	for _, p := range packing {
		out.PackingOptions = append(out.PackingOptions, model.Option{Value: strings.ToLower(p.Label()), Label: p.Label()})
	}
	out.Handyman = nameOptions(handyman)
	out.Currencies = nameOptions(currency)
	out.VehicleTypes = nameOptions(vehicle)
	return out, nil
}

func defaultArticleOptions() *ArticleOptions {
	rooms := []string{"Bedroom 1", "Bedroom 2", "Bedroom 3", "Living Room", "Kitchen", "Dining Room", "Bathroom"}
	out := &ArticleOptions{
		VolumeUnits: []model.Option{{Value: "CFT", Label: "CFT Net"}},
		WeightUnits: []model.Option{{Value: "KG", Label: "KG Net"}},
		PackingOptions: []model.Option{
			{Value: "full", Label: "Full Packing"},
			{Value: "partial", Label: "Partial Packing"},
			{Value: "none", Label: "No Packing"},
		},
		Handyman:   []model.Option{{Value: "yes", Label: "Yes"}, {Value: "no", Label: "No"}},
		Currencies: []model.Option{{Value: "USD", Label: "USD"}, {Value: "INR", Label: "INR"}},
		VehicleTypes: []model.Option{
			{Value: "car", Label: "Car"},
			{Value: "truck", Label: "Truck"},
			{Value: "motorcycle", Label: "Motorcycle"},
		},
		MoveStatuses: moveStatuses,
	}
	for i, name := range rooms {
		out.Rooms = append(out.Rooms, RoomOption{ID: i + 1, Value: name, Label: name})
	}
	return out
}

// nameOptions uses the label as both value and label, which is what the
// survey records store.
func nameOptions(rows []model.Lookup) []model.Option {
	out := make([]model.Option, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Option{Value: r.Label(), Label: r.Label()})
	}
	return out
}

func (s *wizardService) RoomItems(ctx context.Context, api API, roomID int) ([]model.Item, error) {
	var items []model.Item
	q := url.Values{"room_id": {strconv.Itoa(roomID)}}
	if err := api.Get(ctx, "/items/", q, &items); err != nil {
		return nil, fail(err, "Failed to fetch items for selected room.")
	}
	return items, nil
}

func (s *wizardService) ManageItems(ctx context.Context, api API, roomID int) ([]model.Item, error) {
	var resp struct {
		Items []model.Item `json:"items"`
	}
	q := url.Values{"room_id": {strconv.Itoa(roomID)}}
	if err := api.Get(ctx, "/articles/items-by-room/", q, &resp); err != nil {
		return nil, fail(err, "Failed to fetch items for selected room.")
	}
	if resp.Items == nil {
		resp.Items = []model.Item{}
	}
	return resp.Items, nil
}

func (s *wizardService) AddArticle(surveyID int, actor string, a model.Article) (*model.DraftView, error) {
	if err := validator.Check(a); err != nil {
		return nil, err
	}
	return s.drafts.Update(surveyID, actor, func(v *model.DraftView) error {
		v.Articles = append(v.Articles, a)
		return nil
	})
}

func (s *wizardService) UpdateArticle(surveyID int, actor string, index int, a model.Article) (*model.DraftView, error) {
	if err := validator.Check(a); err != nil {
		return nil, err
	}
	return s.drafts.Update(surveyID, actor, func(v *model.DraftView) error {
		if index < 0 || index >= len(v.Articles) {
			return ErrIndexOutOfRange
		}
		v.Articles[index] = a
		return nil
	})
}

func (s *wizardService) RemoveArticle(surveyID int, actor string, index int) (*model.DraftView, error) {
	return s.drafts.Update(surveyID, actor, func(v *model.DraftView) error {
		var err error
		v.Articles, err = removeAt(v.Articles, index)
		return err
	})
}

func (s *wizardService) AddVehicle(surveyID int, actor string, vh model.Vehicle) (*model.DraftView, error) {
	if err := validator.Check(vh); err != nil {
		return nil, err
	}
	return s.drafts.Update(surveyID, actor, func(v *model.DraftView) error {
		v.Vehicles = append(v.Vehicles, vh)
		return nil
	})
}

func (s *wizardService) RemoveVehicle(surveyID int, actor string, index int) (*model.DraftView, error) {
	return s.drafts.Update(surveyID, actor, func(v *model.DraftView) error {
		var err error
		v.Vehicles, err = removeAt(v.Vehicles, index)
		return err
	})
}

// ManageArticle creates one article upstream, then appends it to the draft
// and returns to the article step.
func (s *wizardService) ManageArticle(ctx context.Context, api API, surveyID int, actor string, req ManageArticleRequest) (*WizardStep, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"survey":         surveyID,
		"room":           req.Room,
		"item_name":      req.ItemName,
		"quantity":       req.Quantity,
		"volume":         decimalOrNil(req.Volume),
		"volume_unit":    req.VolumeUnit,
		"weight":         decimalOrNil(req.Weight),
		"weight_unit":    req.WeightUnit,
		"handyman":       req.Handyman,
		"packing_option": req.PackingOption,
		"move_status":    req.MoveStatus,
		"amount":         decimalOrNil(req.Amount),
		"currency":       req.Currency,
		"remarks":        req.Remarks,
	}
	if err := api.Post(ctx, "/articles/", payload, nil); err != nil {
		return nil, failField(err, "item_name", "Failed to add article. Please try again.")
	}

	article := model.Article{
		ItemName:      req.ItemName,
		Quantity:      req.Quantity,
		Volume:        req.Volume,
		VolumeUnit:    req.VolumeUnit,
		Weight:        req.Weight,
		WeightUnit:    req.WeightUnit,
		Handyman:      req.Handyman,
		PackingOption: req.PackingOption,
		MoveStatus:    req.MoveStatus,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Remarks:       req.Remarks,
		Room:          strconv.Itoa(req.Room),
	}
	draft, err := s.drafts.Update(surveyID, actor, func(v *model.DraftView) error {
		v.Articles = append(v.Articles, article)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &WizardStep{
		SurveyID: surveyID,
		Next:     routes.SurveyPath(surveyID, StepArticle),
		Message:  "Article added successfully!",
		Draft:    draft,
	}, nil
}

func decimalOrNil(v string) any {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return f
}

func (s *wizardService) ArticleNext(surveyID int) (*WizardStep, error) {
	draft, err := s.Draft(surveyID)
	if err != nil {
		return nil, err
	}
	return &WizardStep{SurveyID: surveyID, Next: routes.SurveyPath(surveyID, StepService), Draft: draft}, nil
}

func (s *wizardService) AddPet(surveyID int, actor string, p model.Pet) (*model.DraftView, error) {
	if err := validator.Check(p); err != nil {
		return nil, err
	}
	return s.drafts.Update(surveyID, actor, func(v *model.DraftView) error {
		v.Pets = append(v.Pets, p)
		return nil
	})
}

func (s *wizardService) RemovePet(surveyID int, actor string, index int) (*model.DraftView, error) {
	return s.drafts.Update(surveyID, actor, func(v *model.DraftView) error {
		var err error
		v.Pets, err = removeAt(v.Pets, index)
		return err
	})
}

func (s *wizardService) PetNext(surveyID int) (*WizardStep, error) {
	draft, err := s.Draft(surveyID)
	if err != nil {
		return nil, err
	}
	if len(draft.Pets) == 0 {
		return nil, reject("Please add at least one pet before proceeding.")
	}
	return &WizardStep{SurveyID: surveyID, Next: routes.SurveyPath(surveyID, StepService), Draft: draft}, nil
}

// SaveService is the terminal save: service flags first, then each
// non-empty collection in bulk. Collections posted by an earlier, partly
// failed attempt are skipped.
func (s *wizardService) SaveService(ctx context.Context, api API, surveyID int, actor string, svc model.SurveyService) (*WizardStep, error) {
	// 1. The customer step must have run
	draft, err := s.Draft(surveyID)
	if err != nil {
		return nil, err
	}
	if draft.Customer == nil {
		return nil, reject("Customer data is missing. Please go back and fill it.")
	}

	// 2. Service flags
	const fallback = "Failed to save data. Please try again."
	if err := api.Patch(ctx, surveyPath(surveyID), svc, nil); err != nil {
		return nil, failField(err, "error", fallback)
	}

	// 3. Collections
	bulk := []struct {
		path  string
		key   string
		items any
		n     int
	}{
		{"articles/", "articles", draft.Articles, len(draft.Articles)},
		{"vehicles/", "vehicles", draft.Vehicles, len(draft.Vehicles)},
		{"pets/", "pets", draft.Pets, len(draft.Pets)},
	}
	for _, b := range bulk {
		if b.n == 0 || draft.IsSaved(b.key) {
			continue
		}
		if err := api.Post(ctx, surveyPath(surveyID)+b.path, map[string]any{b.key: b.items}, nil); err != nil {
			return nil, failField(err, "error", fallback)
		}
		// a retry after a later failure must not post this collection again
		if _, err := s.drafts.Update(surveyID, actor, func(v *model.DraftView) error {
			if !v.IsSaved(b.key) {
				v.Saved = append(v.Saved, b.key)
			}
			return nil
		}); err != nil {
			return nil, err
		}
	}

	// 4. Done
	done, err := s.drafts.Update(surveyID, actor, func(v *model.DraftView) error {
		v.Completed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("survey completed", "survey_id", surveyID, "articles", len(draft.Articles), "vehicles", len(draft.Vehicles), "pets", len(draft.Pets))
	return &WizardStep{
		SurveyID: surveyID,
		Next:     SummaryPath,
		Message:  "All data saved successfully! Redirecting to summary...",
		Draft:    done,
	}, nil
}

func (s *wizardService) Summary(ctx context.Context, api API, surveyID int) (*SurveySummary, error) {
	var survey model.Survey
	if err := api.Get(ctx, surveyPath(surveyID), nil, &survey); err != nil {
		return nil, fail(err, "Failed to fetch survey data. Please try again.")
	}
	draft, err := s.Draft(surveyID)
	if err != nil {
		return nil, err
	}
	return &SurveySummary{Survey: &survey, Draft: draft}, nil
}

// Back returns the previous step of from. The draft is untouched.
func (s *wizardService) Back(surveyID int, from string) (*WizardStep, error) {
	draft, err := s.Draft(surveyID)
	if err != nil {
		return nil, err
	}
	var prev string
	switch from {
	case StepArticle, StepPet:
		prev = StepCustomer
	case StepService:
		prev = StepArticle
		if draft.GoodsType == model.GoodsTypePet {
			prev = StepPet
		}
	default:
		return nil, fmt.Errorf("no step before %q", from)
	}
	return &WizardStep{SurveyID: surveyID, Next: routes.SurveyPath(surveyID, prev), Draft: draft}, nil
}

func removeAt[T any](items []T, index int) ([]T, error) {
	if index < 0 || index >= len(items) {
		return items, ErrIndexOutOfRange
	}
	return append(items[:index:index], items[index+1:]...), nil
}
