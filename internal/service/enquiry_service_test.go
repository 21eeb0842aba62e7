package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-survey-console/internal/model"
	"go-survey-console/internal/rbac"
	"go-survey-console/pkg/apiclient"
	"go-survey-console/pkg/validator"
)

const enquiryRows = `[
	{"id":1,"fullName":"A","assigned_user_email":"sam@example.com","contact_status":"Attended","created_at":"2024-03-01T10:00:00Z"},
	{"id":2,"fullName":"B","created_at":"2024-03-05T10:00:00Z"},
	{"id":3,"fullName":"C","assigned_user_email":"kim@example.com","contact_status":"Not Attended","survey_date":"2024-04-01T09:00:00Z","created_at":"2024-03-10T23:30:00Z"}
]`

func grant(pages ...model.PageKey) rbac.Set {
	m := map[model.PageKey]model.Capabilities{}
	for _, p := range pages {
		m[p] = model.AllCapabilities
	}
	return rbac.Set{Matrix: m, User: &model.User{Email: "sam@example.com"}}
}

func ids(rows []model.Enquiry) []int {
	out := make([]int, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func sameInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestListFilters(t *testing.T) {
	perms := grant(model.PageEnquiries)
	tests := []struct {
		name   string
		filter EnquiryFilter
		want   []int
	}{
		{"no filter", EnquiryFilter{}, []int{1, 2, 3}},
		{"assigned", EnquiryFilter{Type: "assigned"}, []int{1, 3}},
		{"non-assigned", EnquiryFilter{Type: "non-assigned"}, []int{2}},
		{"attended", EnquiryFilter{Type: "attended"}, []int{1}},
		{"not attended", EnquiryFilter{Type: "notAttended"}, []int{3}},
		{"not scheduled", EnquiryFilter{Type: "notScheduled"}, []int{1, 2}},
		{"from date", EnquiryFilter{FromDate: "2024-03-05"}, []int{2, 3}},
		{"to date is inclusive", EnquiryFilter{ToDate: "2024-03-10"}, []int{1, 2, 3}},
		{"range", EnquiryFilter{FromDate: "2024-03-02", ToDate: "2024-03-09"}, []int{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI().on("GET", enquiriesPath, enquiryRows)
			rows, err := NewEnquiryService().List(context.Background(), api, perms, ListAll, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if got := ids(rows); !sameInts(got, tt.want) {
				t.Fatalf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestListQueries(t *testing.T) {
	svc := NewEnquiryService()
	all := grant(model.PageEnquiries, model.PageNewEnquiries, model.PageProcessingEnquiries, model.PageScheduledSurveys, model.PageFollowUps)

	api := newFakeAPI().on("GET", enquiriesPath, enquiryRows)
	if _, err := svc.List(context.Background(), api, all, ListNewAssigned, EnquiryFilter{}); err != nil {
		t.Fatalf("List: %v", err)
	}
	q := api.sent("GET", enquiriesPath)[0].Query
	if q.Get("assigned_user_email") != "sam@example.com" || q.Get("has_survey") != "false" {
		t.Fatalf("query = %v", q)
	}

	api = newFakeAPI().on("GET", enquiriesPath, enquiryRows)
	rows, _ := svc.List(context.Background(), api, all, ListProcessing, EnquiryFilter{})
	if got := ids(rows); !sameInts(got, []int{1, 3}) {
		t.Fatalf("processing ids = %v", got)
	}

	api = newFakeAPI()
	svc.List(context.Background(), api, all, ListScheduled, EnquiryFilter{})
	if q := api.sent("GET", enquiriesPath)[0].Query; q.Get("has_survey") != "true" {
		t.Fatalf("scheduled query = %v", q)
	}
}

func TestListRejections(t *testing.T) {
	svc := NewEnquiryService()
	api := newFakeAPI()

	_, err := svc.List(context.Background(), api, grant(model.PageEnquiries), ListScheduled, EnquiryFilter{})
	if !errors.Is(err, rbac.ErrPermissionDenied) {
		t.Fatalf("err = %v", err)
	}
	_, err = svc.List(context.Background(), api, grant(model.PageEnquiries), "archived", EnquiryFilter{})
	if !errors.Is(err, ErrUnknownList) {
		t.Fatalf("err = %v", err)
	}
	_, err = svc.List(context.Background(), api, grant(model.PageEnquiries), ListAll, EnquiryFilter{FromDate: "03/01/2024"})
	if !errors.Is(err, validator.ErrValidation) {
		t.Fatalf("err = %v", err)
	}

	noProfile := grant(model.PageNewEnquiries)
	noProfile.User = nil
	_, err = svc.List(context.Background(), api, noProfile, ListNewAssigned, EnquiryFilter{})
	var f *Failure
	if !errors.As(err, &f) || f.Message != "Failed to fetch user profile. Please try again." {
		t.Fatalf("err = %v", err)
	}
	if api.total() != 0 {
		t.Fatalf("rejected lists reached upstream: %+v", api.calls)
	}
}

func TestListUpstreamFailure(t *testing.T) {
	api := newFakeAPI().errOn("GET", enquiriesPath, &apiclient.APIError{Status: 500})
	_, err := NewEnquiryService().List(context.Background(), api, grant(model.PageFollowUps), ListFollowUps, EnquiryFilter{})
	var f *Failure
	if !errors.As(err, &f) || f.Message != "Failed to fetch non-scheduled enquiries. Please try again." {
		t.Fatalf("err = %v", err)
	}
	if f.Status() != 500 {
		t.Fatalf("status = %d", f.Status())
	}

	api = newFakeAPI().errOn("GET", enquiriesPath, apiclient.ErrSessionExpired)
	_, err = NewEnquiryService().List(context.Background(), api, grant(model.PageEnquiries), ListAll, EnquiryFilter{})
	if !errors.Is(err, apiclient.ErrSessionExpired) {
		t.Fatalf("err = %v", err)
	}
}

func TestAuthorizeMessages(t *testing.T) {
	viewOnly := rbac.Set{Matrix: map[model.PageKey]model.Capabilities{
		model.PageEnquiries:        {View: true},
		model.PageScheduledSurveys: {View: true},
	}}
	tests := []struct {
		t    Transition
		want string
	}{
		{TransitionCreate, "You do not have permission to add an enquiry."},
		{TransitionAssign, "You do not have permission to assign an enquiry."},
		{TransitionDelete, "You do not have permission to delete an enquiry."},
		{TransitionReschedule, "You do not have permission to reschedule a survey."},
		{TransitionStartSurvey, "You do not have permission to start a survey."},
	}
	for _, tt := range tests {
		err := Authorize(viewOnly, tt.t)
		if err == nil || err.Error() != tt.want {
			t.Errorf("Authorize(%s) = %v, want %q", tt.t, err, tt.want)
		}
	}
	if err := Authorize(rbac.Set{Superadmin: true}, TransitionCancelSurvey); err != nil {
		t.Fatalf("superadmin denied: %v", err)
	}
}

func TestCreateValidates(t *testing.T) {
	svc := NewEnquiryService()
	api := newFakeAPI()
	perms := grant(model.PageEnquiries)

	req := EnquiryRequest{FullName: "Ann", PhoneNumber: "12", Email: "ann@", ServiceType: "moon", Message: "hi"}
	_, err := svc.Create(context.Background(), api, perms, req)
	var fields validator.FieldErrors
	if !errors.As(err, &fields) || fields["phoneNumber"] != "Enter a valid phone number" || fields["email"] != "Enter a valid email" {
		t.Fatalf("err = %v (%v)", err, fields)
	}

	req.PhoneNumber, req.Email = "+971501234567", "ann@example.com"
	_, err = svc.Create(context.Background(), api, perms, req)
	if !errors.As(err, &fields) || fields["serviceType"] != "Select a valid service" {
		t.Fatalf("err = %v", err)
	}
	if api.total() != 0 {
		t.Fatalf("invalid enquiry was sent")
	}

	req.ServiceType = "localMove"
	e, err := svc.Create(context.Background(), api, perms, req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if e.FullName != "Ann" || len(api.sent("POST", enquiriesPath)) != 1 {
		t.Fatalf("enquiry = %+v", e)
	}
}

func TestAssignBody(t *testing.T) {
	svc := NewEnquiryService()
	perms := grant(model.PageEnquiries)

	api := newFakeAPI().on("PATCH", "/contacts/enquiries/4/", `{"id":4,"assigned_user_email":"kim@example.com"}`)
	e, err := svc.Assign(context.Background(), api, perms, 4, AssignRequest{Email: "kim@example.com"})
	if err != nil || !e.IsAssigned() {
		t.Fatalf("Assign = %+v, %v", e, err)
	}
	body := api.sent("PATCH", "/contacts/enquiries/4/")[0].Body.(map[string]any)
	if body["assigned_user_email"] != "kim@example.com" || body["note"] != nil {
		t.Fatalf("body = %v", body)
	}

	api = newFakeAPI().on("PATCH", "/contacts/enquiries/4/", `{"id":4}`)
	svc.Assign(context.Background(), api, perms, 4, AssignRequest{Note: "  "})
	body = api.sent("PATCH", "/contacts/enquiries/4/")[0].Body.(map[string]any)
	if body["assigned_user_email"] != nil {
		t.Fatalf("unassign body = %v", body)
	}
}

func TestScheduleAndCancel(t *testing.T) {
	svc := NewEnquiryService()
	perms := grant(model.PageNewEnquiries, model.PageScheduledSurveys)
	api := newFakeAPI().on("POST", "/contacts/enquiries/8/schedule/", `{"id":8}`)

	_, err := svc.Schedule(context.Background(), api, perms, 8, ScheduleRequest{})
	var fields validator.FieldErrors
	if !errors.As(err, &fields) || fields["surveyDate"] == "" {
		t.Fatalf("err = %v", err)
	}

	when := time.Date(2024, 5, 1, 9, 30, 0, 0, time.FixedZone("GST", 4*3600))
	if _, err := svc.Schedule(context.Background(), api, perms, 8, ScheduleRequest{SurveyDate: when}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	body := api.sent("POST", "/contacts/enquiries/8/schedule/")[0].Body.(map[string]string)
	if body["survey_date"] != "2024-05-01T05:30:00Z" {
		t.Fatalf("survey_date = %q", body["survey_date"])
	}

	api.errOn("POST", "/contacts/enquiries/8/cancel-survey/", &apiclient.APIError{Status: 400, Body: []byte(`{"error":"Survey already started"}`)})
	_, err = svc.CancelSurvey(context.Background(), api, perms, 8, CancelSurveyRequest{Reason: "moved"})
	var f *Failure
	if !errors.As(err, &f) || f.Message != "Survey already started" {
		t.Fatalf("err = %v", err)
	}
	if _, err := svc.CancelSurvey(context.Background(), api, perms, 8, CancelSurveyRequest{}); !errors.Is(err, validator.ErrValidation) {
		t.Fatalf("missing reason err = %v", err)
	}
}

func TestContactStatus(t *testing.T) {
	svc := NewEnquiryService()
	perms := grant(model.PageNewEnquiries)

	err := svc.Validate(TransitionContactStatus, ContactStatusRequest{})
	var fields validator.FieldErrors
	if !errors.As(err, &fields) || fields["status"] != "Please select a status" {
		t.Fatalf("err = %v", err)
	}
	if err := svc.Validate(TransitionContactStatus, ContactStatusRequest{Status: "Maybe"}); err == nil {
		t.Fatalf("unknown status accepted")
	}

	api := newFakeAPI().on("PATCH", "/contacts/enquiries/2/", `{"id":2,"contact_status":"Attended"}`)
	e, err := svc.SetContactStatus(context.Background(), api, perms, 2, ContactStatusRequest{Status: "Attended", ReachedOutEmail: true})
	if err != nil || e.ContactStatus != model.ContactStatusAttended {
		t.Fatalf("SetContactStatus = %+v, %v", e, err)
	}
}

func TestAssignees(t *testing.T) {
	api := newFakeAPI().on("GET", "/auth/users/", `[{"email":"a@x.io","name":"Ann"},{"email":"b@x.io"}]`)
	opts, err := NewEnquiryService().Assignees(context.Background(), api, grant(model.PageEnquiries))
	if err != nil {
		t.Fatalf("Assignees: %v", err)
	}
	if len(opts) != 2 || opts[0].Label != "Ann" || opts[1].Label != "b@x.io" {
		t.Fatalf("options = %+v", opts)
	}
}

func TestDelete(t *testing.T) {
	api := newFakeAPI()
	if err := NewEnquiryService().Delete(context.Background(), api, grant(model.PageEnquiries), 5); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(api.sent("DELETE", "/contacts/enquiries/5/delete/")) != 1 {
		t.Fatalf("calls = %+v", api.calls)
	}
}
