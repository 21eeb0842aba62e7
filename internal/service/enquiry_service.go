package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go-survey-console/internal/model"
	"go-survey-console/internal/rbac"
	"go-survey-console/pkg/apiclient"
	"go-survey-console/pkg/validator"
)

const enquiriesPath = "/contacts/enquiries/"

var ErrUnknownList = errors.New("unknown enquiry list")

// EnquiryList names one of the enquiry screens.
type EnquiryList string

const (
	ListAll         EnquiryList = "all"
	ListNewAssigned EnquiryList = "new"
	ListScheduled   EnquiryList = "scheduled"
	ListFollowUps   EnquiryList = "follow-ups"
	ListProcessing  EnquiryList = "processing"
)

var listPages = map[EnquiryList]model.PageKey{
	ListAll:         model.PageEnquiries,
	ListNewAssigned: model.PageNewEnquiries,
	ListScheduled:   model.PageScheduledSurveys,
	ListFollowUps:   model.PageFollowUps,
	ListProcessing:  model.PageProcessingEnquiries,
}

// Transition is a state-changing enquiry operation.
type Transition string

const (
	TransitionCreate        Transition = "create"
	TransitionEdit          Transition = "edit"
	TransitionAssign        Transition = "assign"
	TransitionDelete        Transition = "delete"
	TransitionContactStatus Transition = "contact-status"
	TransitionSchedule      Transition = "schedule"
	TransitionReschedule    Transition = "reschedule"
	TransitionCancelSurvey  Transition = "cancel-survey"
	TransitionStartSurvey   Transition = "start-survey"
)

type requirement struct {
	page   model.PageKey
	action model.Action
	task   string
}

var transitions = map[Transition]requirement{
	TransitionCreate:        {model.PageEnquiries, model.ActionAdd, "add an enquiry"},
	TransitionEdit:          {model.PageEnquiries, model.ActionEdit, "edit an enquiry"},
	TransitionAssign:        {model.PageEnquiries, model.ActionEdit, "assign an enquiry"},
	TransitionDelete:        {model.PageEnquiries, model.ActionDelete, "delete an enquiry"},
	TransitionContactStatus: {model.PageNewEnquiries, model.ActionEdit, "update contact status"},
	TransitionSchedule:      {model.PageNewEnquiries, model.ActionEdit, "schedule a survey"},
	TransitionReschedule:    {model.PageScheduledSurveys, model.ActionEdit, "reschedule a survey"},
	TransitionCancelSurvey:  {model.PageScheduledSurveys, model.ActionEdit, "cancel a survey"},
	TransitionStartSurvey:   {model.PageScheduledSurveys, model.ActionEdit, "start a survey"},
}

// Authorize checks the permission behind t without calling upstream.
func Authorize(perms rbac.Set, t Transition) error {
	req, ok := transitions[t]
	if !ok {
		return fmt.Errorf("unknown transition %q", t)
	}
	return perms.RequireTo(req.page, req.action, req.task)
}

// Success messages shown after each transition.
const (
	MsgEnquiryCreated   = "Enquiry created successfully"
	MsgEnquiryUpdated   = "Enquiry updated successfully"
	MsgEnquiryAssigned  = "Enquiry assigned successfully and email sent to assigned user"
	MsgEnquiryDeleted   = "Enquiry deleted successfully"
	MsgContactStatus    = "Contact status updated successfully and email sent to admin and salesperson"
	MsgSurveyScheduled  = "Survey scheduled successfully and emails sent to customer, salesperson, and admin"
	MsgSurveyReschedule = "Survey rescheduled successfully"
	MsgSurveyCancelled  = "Survey cancelled successfully"
)

// EnquiryFilter narrows a list after it was fetched. Dates are YYYY-MM-DD;
// To is inclusive.
type EnquiryFilter struct {
	Type     string `json:"filterType" validate:"omitempty,oneof=all assigned non-assigned attended notAttended notScheduled"`
	FromDate string `json:"fromDate" validate:"omitempty,datetime=2006-01-02"`
	ToDate   string `json:"toDate" validate:"omitempty,datetime=2006-01-02"`
}

type EnquiryRequest struct {
	FullName    string `json:"fullName" validate:"required"`
	PhoneNumber string `json:"phoneNumber" validate:"required,phone"`
	Email       string `json:"email" validate:"required,email_simple"`
	ServiceType string `json:"serviceType" validate:"required"`
	Message     string `json:"message" validate:"required"`
}

type AssignRequest struct {
	Email string `json:"emailReceiver" validate:"omitempty,email_simple"`
	Note  string `json:"note"`
}

type ContactStatusRequest struct {
	Status             string `json:"status" validate:"required,oneof='Attended' 'Not Attended'"`
	Note               string `json:"contactStatusNote"`
	ReachedOutWhatsApp bool   `json:"reachedOutWhatsApp"`
	ReachedOutEmail    bool   `json:"reachedOutEmail"`
}

type ScheduleRequest struct {
	SurveyDate time.Time `json:"surveyDate"`
}

type CancelSurveyRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type EnquiryService interface {
	List(ctx context.Context, api API, perms rbac.Set, list EnquiryList, filter EnquiryFilter) ([]model.Enquiry, error)
	Assignees(ctx context.Context, api API, perms rbac.Set) ([]model.Option, error)
	Create(ctx context.Context, api API, perms rbac.Set, req EnquiryRequest) (*model.Enquiry, error)
	Update(ctx context.Context, api API, perms rbac.Set, id int, req EnquiryRequest) (*model.Enquiry, error)
	Assign(ctx context.Context, api API, perms rbac.Set, id int, req AssignRequest) (*model.Enquiry, error)
	Delete(ctx context.Context, api API, perms rbac.Set, id int) error
	SetContactStatus(ctx context.Context, api API, perms rbac.Set, id int, req ContactStatusRequest) (*model.Enquiry, error)
	Schedule(ctx context.Context, api API, perms rbac.Set, id int, req ScheduleRequest) (*model.Enquiry, error)
	Reschedule(ctx context.Context, api API, perms rbac.Set, id int, req ScheduleRequest) (*model.Enquiry, error)
	CancelSurvey(ctx context.Context, api API, perms rbac.Set, id int, req CancelSurveyRequest) (*model.Enquiry, error)
	// Validate checks a transition's input before a confirmation opens.
	Validate(t Transition, req any) error
}

type enquiryService struct{}

func NewEnquiryService() EnquiryService {
	return &enquiryService{}
}

func (s *enquiryService) List(ctx context.Context, api API, perms rbac.Set, list EnquiryList, filter EnquiryFilter) ([]model.Enquiry, error) {
	page, ok := listPages[list]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownList, list)
	}
	if err := perms.Require(page, model.ActionView); err != nil {
		return nil, err
	}
	if err := validator.Check(filter); err != nil {
		return nil, err
	}

	query := url.Values{}
	fallback := "Failed to fetch enquiries. Please try again."
	switch list {
	case ListNewAssigned:
		if perms.User == nil || perms.User.Email == "" {
			return nil, &Failure{Message: "Failed to fetch user profile. Please try again.", Err: errors.New("no profile email")}
		}
		query.Set("assigned_user_email", perms.User.Email)
		query.Set("has_survey", "false")
		fallback = "Failed to fetch assigned enquiries. Please try again."
	case ListProcessing:
		query.Set("has_survey", "false")
		fallback = "Failed to fetch processing enquiries. Please try again."
	case ListScheduled:
		query.Set("has_survey", "true")
		fallback = "Failed to fetch scheduled surveys. Please try again."
	case ListFollowUps:
		query.Set("has_survey", "false")
		fallback = "Failed to fetch non-scheduled enquiries. Please try again."
	}

	var rows []model.Enquiry
	if err := api.Get(ctx, enquiriesPath, query, &rows); err != nil {
		return nil, fail(err, fallback)
	}
	if list == ListProcessing {
		rows = keep(rows, (*model.Enquiry).IsAssigned)
	}
	return applyFilter(rows, filter), nil
}

func applyFilter(rows []model.Enquiry, f EnquiryFilter) []model.Enquiry {
	switch f.Type {
	case "assigned":
		rows = keep(rows, (*model.Enquiry).IsAssigned)
	case "non-assigned":
		rows = keep(rows, func(e *model.Enquiry) bool { return !e.IsAssigned() })
	case "attended":
		rows = keep(rows, func(e *model.Enquiry) bool { return e.ContactStatus == model.ContactStatusAttended })
	case "notAttended":
		rows = keep(rows, func(e *model.Enquiry) bool { return e.ContactStatus == model.ContactStatusNotAttended })
	case "notScheduled":
		rows = keep(rows, func(e *model.Enquiry) bool { return e.SurveyDate == nil })
	}

	from, hasFrom := parseDay(f.FromDate)
	to, hasTo := parseDay(f.ToDate)
	if !hasFrom && !hasTo {
		return rows
	}
	to = to.Add(24*time.Hour - time.Nanosecond)
	return keep(rows, func(e *model.Enquiry) bool {
		if hasFrom && e.CreatedAt.Before(from) {
			return false
		}
		if hasTo && e.CreatedAt.After(to) {
			return false
		}
		return true
	})
}

func parseDay(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", v)
	return t, err == nil
}

func keep(rows []model.Enquiry, pred func(*model.Enquiry) bool) []model.Enquiry {
	out := make([]model.Enquiry, 0, len(rows))
	for i := range rows {
		if pred(&rows[i]) {
			out = append(out, rows[i])
		}
	}
	return out
}

// Assignees lists users an enquiry can be assigned to.
func (s *enquiryService) Assignees(ctx context.Context, api API, perms rbac.Set) ([]model.Option, error) {
	if err := Authorize(perms, TransitionAssign); err != nil {
		return nil, err
	}
	var users []model.User
	if err := api.Get(ctx, "/auth/users/", nil, &users); err != nil {
		return nil, fail(err, "Failed to fetch users for assignment. Please try again.")
	}
	out := make([]model.Option, 0, len(users))
	for _, u := range users {
		label := u.Name
		if label == "" {
			label = u.Email
		}
		out = append(out, model.Option{Value: u.Email, Label: label})
	}
	return out, nil
}

func (s *enquiryService) Create(ctx context.Context, api API, perms rbac.Set, req EnquiryRequest) (*model.Enquiry, error) {
	if err := Authorize(perms, TransitionCreate); err != nil {
		return nil, err
	}
	if err := s.Validate(TransitionCreate, req); err != nil {
		return nil, err
	}
	var out model.Enquiry
	if err := api.Post(ctx, enquiriesPath, req, &out); err != nil {
		return nil, fail(err, apiclient.GenericMessage)
	}
	return &out, nil
}

func (s *enquiryService) Update(ctx context.Context, api API, perms rbac.Set, id int, req EnquiryRequest) (*model.Enquiry, error) {
	if err := Authorize(perms, TransitionEdit); err != nil {
		return nil, err
	}
	if err := s.Validate(TransitionEdit, req); err != nil {
		return nil, err
	}
	var out model.Enquiry
	if err := api.Patch(ctx, enquiryPath(id), req, &out); err != nil {
		return nil, fail(err, apiclient.GenericMessage)
	}
	return &out, nil
}

// Assign sets or clears the salesperson; an empty email unassigns.
func (s *enquiryService) Assign(ctx context.Context, api API, perms rbac.Set, id int, req AssignRequest) (*model.Enquiry, error) {
	if err := Authorize(perms, TransitionAssign); err != nil {
		return nil, err
	}
	if err := s.Validate(TransitionAssign, req); err != nil {
		return nil, err
	}
	body := map[string]any{
		"assigned_user_email": nullable(req.Email),
		"note":                nullable(req.Note),
	}
	var out model.Enquiry
	if err := api.Patch(ctx, enquiryPath(id), body, &out); err != nil {
		return nil, fail(err, apiclient.GenericMessage)
	}
	return &out, nil
}

func (s *enquiryService) Delete(ctx context.Context, api API, perms rbac.Set, id int) error {
	if err := Authorize(perms, TransitionDelete); err != nil {
		return err
	}
	if err := api.Delete(ctx, fmt.Sprintf("%s%d/delete/", enquiriesPath, id)); err != nil {
		return fail(err, apiclient.GenericMessage)
	}
	return nil
}

func (s *enquiryService) SetContactStatus(ctx context.Context, api API, perms rbac.Set, id int, req ContactStatusRequest) (*model.Enquiry, error) {
	if err := Authorize(perms, TransitionContactStatus); err != nil {
		return nil, err
	}
	if err := s.Validate(TransitionContactStatus, req); err != nil {
		return nil, err
	}
	body := map[string]any{
		"contact_status":       req.Status,
		"contact_status_note":  nullable(req.Note),
		"reached_out_whatsapp": req.ReachedOutWhatsApp,
		"reached_out_email":    req.ReachedOutEmail,
	}
	var out model.Enquiry
	if err := api.Patch(ctx, enquiryPath(id), body, &out); err != nil {
		return nil, failField(err, "error", "Failed to update contact status. Please try again.")
	}
	return &out, nil
}

func (s *enquiryService) Schedule(ctx context.Context, api API, perms rbac.Set, id int, req ScheduleRequest) (*model.Enquiry, error) {
	return s.schedule(ctx, api, perms, TransitionSchedule, id, req, "Failed to schedule survey. Please try again.")
}

func (s *enquiryService) Reschedule(ctx context.Context, api API, perms rbac.Set, id int, req ScheduleRequest) (*model.Enquiry, error) {
	return s.schedule(ctx, api, perms, TransitionReschedule, id, req, "Failed to reschedule survey. Please try again.")
}

func (s *enquiryService) schedule(ctx context.Context, api API, perms rbac.Set, t Transition, id int, req ScheduleRequest, fallback string) (*model.Enquiry, error) {
	if err := Authorize(perms, t); err != nil {
		return nil, err
	}
	if err := s.Validate(t, req); err != nil {
		return nil, err
	}
	body := map[string]string{"survey_date": req.SurveyDate.UTC().Format(time.RFC3339)}
	var out model.Enquiry
	if err := api.Post(ctx, fmt.Sprintf("%s%d/schedule/", enquiriesPath, id), body, &out); err != nil {
		return nil, failField(err, "error", fallback)
	}
	return &out, nil
}

func (s *enquiryService) CancelSurvey(ctx context.Context, api API, perms rbac.Set, id int, req CancelSurveyRequest) (*model.Enquiry, error) {
	if err := Authorize(perms, TransitionCancelSurvey); err != nil {
		return nil, err
	}
	if err := s.Validate(TransitionCancelSurvey, req); err != nil {
		return nil, err
	}
	var out model.Enquiry
	if err := api.Post(ctx, fmt.Sprintf("%s%d/cancel-survey/", enquiriesPath, id), req, &out); err != nil {
		return nil, failField(err, "error", "Failed to cancel survey. Please try again.")
	}
	return &out, nil
}

func (s *enquiryService) Validate(t Transition, req any) error {
	switch r := req.(type) {
	case EnquiryRequest:
		if err := validator.Check(r); err != nil {
			return err
		}
		if !model.IsServiceType(r.ServiceType) {
			return validator.FieldErrors{"serviceType": "Select a valid service"}
		}
	case ScheduleRequest:
		if r.SurveyDate.IsZero() {
			return validator.FieldErrors{"surveyDate": "Survey date and time are required"}
		}
	case ContactStatusRequest:
		if strings.TrimSpace(r.Status) == "" {
			return validator.FieldErrors{"status": "Please select a status"}
		}
		return validator.Check(r)
	case nil:
		return nil
	default:
		return validator.Check(r)
	}
	return nil
}

func enquiryPath(id int) string {
	return fmt.Sprintf("%s%d/", enquiriesPath, id)
}

func nullable(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
