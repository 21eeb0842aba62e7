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

const salesRole = `{"id":2,"name":"Sales","permissions":[
	{"id":11,"role":2,"page":"enquiries","can_view":true,"can_edit":true},
	{"id":12,"role":2,"page":"tax","can_view":true}
]}`

var matrixEditor = rbac.Set{Matrix: map[model.PageKey]model.Capabilities{
	model.PagePermissions: {View: true, Edit: true},
}}

// invalidations collects what a resolver broadcasts.
func invalidations(t *testing.T, r *rbac.Resolver) <-chan rbac.Invalidation {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return r.Subscribe(ctx)
}

func expectInvalidation(t *testing.T, ch <-chan rbac.Invalidation, sid string) {
	t.Helper()
	select {
	case inv := <-ch:
		if inv.SID != sid {
			t.Fatalf("invalidated %q, want %q", inv.SID, sid)
		}
	case <-time.After(time.Second):
		t.Fatalf("no invalidation")
	}
}

func TestMatrix(t *testing.T) {
	api := newFakeAPI().on("GET", "/auth/roles/2/", salesRole)
	svc := NewAdminService(rbac.NewResolver(quiet))

	if _, err := svc.Matrix(context.Background(), api, rbac.Set{}, 2); err == nil || err.Error() != "You do not have permission to edit permissions." {
		t.Fatalf("err = %v", err)
	}

	m, err := svc.Matrix(context.Background(), api, matrixEditor, 2)
	if err != nil {
		t.Fatalf("Matrix: %v", err)
	}
	if len(m.Rows) != len(model.DefaultPages) || m.Role.Name != "Sales" || m.Role.Permissions != nil {
		t.Fatalf("matrix = %+v", m)
	}
	for _, row := range m.Rows {
		switch row.Page {
		case model.PageEnquiries:
			if row.ID != 11 || !row.View || !row.Edit || row.Delete {
				t.Fatalf("enquiries row = %+v", row)
			}
		case model.PageDashboard:
			if row.ID != 0 || row.View {
				t.Fatalf("dashboard row = %+v", row)
			}
		}
	}
}

func TestSaveMatrix(t *testing.T) {
	resolver := rbac.NewResolver(quiet)
	ch := invalidations(t, resolver)
	api := newFakeAPI().on("GET", "/auth/roles/2/", salesRole)
	svc := NewAdminService(resolver)

	rows := []MatrixRow{
		{ID: 11, Page: model.PageEnquiries, Capabilities: model.Capabilities{View: true}},
		{Page: model.PageRoom, Capabilities: model.Capabilities{View: true, Add: true}},
	}
	msg, err := svc.SaveMatrix(context.Background(), api, matrixEditor, 2, rows)
	if err != nil {
		t.Fatalf("SaveMatrix: %v", err)
	}
	if msg != "Permissions updated for Sales" {
		t.Fatalf("msg = %q", msg)
	}
	put := api.sent("PUT", "/auth/permissions/11/")
	post := api.sent("POST", "/auth/permissions/")
	if len(put) != 1 || len(post) != 1 {
		t.Fatalf("calls = %+v", api.calls)
	}
	if p := post[0].Body.(model.Permission); p.Role != 2 || p.Page != model.PageRoom || !p.CanAdd || p.CanEdit {
		t.Fatalf("posted = %+v", p)
	}
	expectInvalidation(t, ch, "")
}

func TestSaveMatrixFailures(t *testing.T) {
	resolver := rbac.NewResolver(quiet)
	ch := invalidations(t, resolver)
	svc := NewAdminService(resolver)

	api := newFakeAPI()
	_, err := svc.SaveMatrix(context.Background(), api, matrixEditor, 2, []MatrixRow{{Page: "reports"}})
	var r *Rejection
	if !errors.As(err, &r) || api.total() != 0 {
		t.Fatalf("err = %v calls = %d", err, api.total())
	}

	api.errOn("POST", "/auth/permissions/", &apiclient.APIError{Status: 400, Body: []byte(`{"error":"Duplicate row"}`)})
	_, err = svc.SaveMatrix(context.Background(), api, matrixEditor, 2, []MatrixRow{{Page: model.PageTax}})
	var f *Failure
	if !errors.As(err, &f) || f.Message != "Duplicate row" {
		t.Fatalf("err = %v", err)
	}
	// a partial write still invalidates
	expectInvalidation(t, ch, "")
}

func TestStats(t *testing.T) {
	perms := grant(model.PageEnquiries, model.PageScheduledSurveys, model.PageFollowUps)
	svc := NewDashboardService(NewEnquiryService())

	if cards := svc.Cards(perms); len(cards) != 3 || cards[0].Title != "New Enquiries" {
		t.Fatalf("cards = %+v", cards)
	}

	api := newFakeAPI().on("GET", enquiriesPath, enquiryRows)
	cards, err := svc.Stats(context.Background(), api, perms)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	for _, c := range cards {
		if c.Count == nil || *c.Count != 3 {
			t.Fatalf("card %s count = %v", c.Title, c.Count)
		}
	}

	api = newFakeAPI().errOn("GET", enquiriesPath, errors.New("down"))
	cards, err = svc.Stats(context.Background(), api, perms)
	if err != nil || cards[0].Count != nil {
		t.Fatalf("failed count: %+v, %v", cards, err)
	}

	api = newFakeAPI().errOn("GET", enquiriesPath, apiclient.ErrSessionExpired)
	if _, err := svc.Stats(context.Background(), api, perms); !errors.Is(err, apiclient.ErrSessionExpired) {
		t.Fatalf("err = %v", err)
	}
}

func TestProfileUpdate(t *testing.T) {
	resolver := rbac.NewResolver(quiet)
	ch := invalidations(t, resolver)
	svc := NewProfileService(resolver)
	api := newFakeAPI().on("PUT", profilePath, `{"id":1,"name":"Ann","email":"ann@example.com"}`)

	_, err := svc.Update(context.Background(), api, "s1", ProfileUpdateRequest{Name: "Ann", Username: "ann", PhoneNumber: "abc"}, nil)
	var fields validator.FieldErrors
	if !errors.As(err, &fields) || fields["phone_number"] != "Enter a valid phone number" {
		t.Fatalf("err = %v", err)
	}

	image := &apiclient.File{Filename: "me.png", Content: []byte("png")}
	user, err := svc.Update(context.Background(), api, "s1", ProfileUpdateRequest{Name: "Ann", Username: "ann", PhoneNumber: "+1 555-0100"}, image)
	if err != nil || user.Name != "Ann" {
		t.Fatalf("Update = %+v, %v", user, err)
	}
	body := api.sent("PUT", profilePath)[0].Body.(map[string]any)
	fieldsSent := body["fields"].(map[string]string)
	if _, ok := fieldsSent["address"]; ok || fieldsSent["username"] != "ann" || body["files"] != 1 {
		t.Fatalf("sent = %v", body)
	}
	expectInvalidation(t, ch, "s1")

	api.errOn("PUT", profilePath, &apiclient.APIError{Status: 400, Body: []byte(`{"detail":"Username taken"}`)})
	_, err = svc.Update(context.Background(), api, "s1", ProfileUpdateRequest{Name: "Ann", Username: "bob"}, nil)
	var f *Failure
	if !errors.As(err, &f) || f.Message != "Username taken" {
		t.Fatalf("err = %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc := NewProfileService(rbac.NewResolver(quiet))
	api := newFakeAPI()

	err := svc.ChangePassword(context.Background(), api, ChangePasswordRequest{NewPassword: "a", ConfirmPassword: "b"})
	var fields validator.FieldErrors
	if !errors.As(err, &fields) || fields["confirm_password"] == "" {
		t.Fatalf("err = %v", err)
	}
	if err := svc.ChangePassword(context.Background(), api, ChangePasswordRequest{NewPassword: "s3cret", ConfirmPassword: "s3cret"}); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if len(api.sent("PUT", profilePath)) != 1 {
		t.Fatalf("calls = %+v", api.calls)
	}
}
