package routes

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go-survey-console/internal/model"
	"go-survey-console/internal/rbac"
	"go-survey-console/pkg/apiclient"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		path    string
		pattern string
		params  map[string]string
	}{
		{"/", HomePath, nil},
		{"/enquiries/", "/enquiries", nil},
		{"/enquiries?page=2", "/enquiries", nil},
		{"/survey/42/customer", "/survey/:surveyId/customer", map[string]string{"surveyId": "42"}},
		{"/survey/42/article/view-article", "/survey/:surveyId/article/view-article", map[string]string{"surveyId": "42"}},
		{"", HomePath, nil},
	}
	for _, tt := range tests {
		r, params, ok := Console.Match(tt.path)
		if !ok {
			t.Fatalf("Match(%q) found nothing", tt.path)
		}
		if r.Pattern != tt.pattern {
			t.Fatalf("Match(%q) = %q, want %q", tt.path, r.Pattern, tt.pattern)
		}
		for k, v := range tt.params {
			if params[k] != v {
				t.Fatalf("Match(%q) param %s = %q, want %q", tt.path, k, params[k], v)
			}
		}
	}

	for _, path := range []string{"/survey/abc/customer", "/nowhere", "/survey/1/customer/extra"} {
		if _, _, ok := Console.Match(path); ok {
			t.Fatalf("Match(%q) should fail", path)
		}
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		path, selected, want string
	}{
		{"/enquiries", "", "Enquiries"},
		{"/enquiries", "7", "Enquiries"},
		{"/survey/7/pet", "7", "Survey ( 7 ) : Pet"},
		{"/survey/7/pet", "", "Pet"},
		{"/login", "", UnknownTitle},
		{"/does-not-exist", "", UnknownTitle},
	}
	for _, tt := range tests {
		if got := Console.Title(tt.path, tt.selected); got != tt.want {
			t.Fatalf("Title(%q, %q) = %q, want %q", tt.path, tt.selected, got, tt.want)
		}
	}
}

func TestSurveyPath(t *testing.T) {
	if got := SurveyPath(12, "article"); got != "/survey/12/article" {
		t.Fatalf("SurveyPath = %q", got)
	}
}

func setOf(pages ...model.PageKey) ResolveFunc {
	m := map[model.PageKey]model.Capabilities{}
	for _, p := range pages {
		m[p] = model.Capabilities{View: true}
	}
	return func(context.Context) rbac.Set { return rbac.Set{Matrix: m} }
}

func trace(states ...State) string { return fmt.Sprint(states) }

func TestGateEvaluate(t *testing.T) {
	expired := func(context.Context) rbac.Set {
		return rbac.Set{Err: fmt.Errorf("fetch profile: %w", apiclient.ErrSessionExpired)}
	}

	tests := []struct {
		name          string
		path          string
		authenticated bool
		resolve       ResolveFunc
		state         State
		trace         string
		redirect      string
		notice        string
	}{
		{
			name: "public route", path: "/login", resolve: setOf(),
			state: Authorized, trace: trace(Authorized),
		},
		{
			name: "not logged in", path: "/enquiries", resolve: setOf(model.PageEnquiries),
			state: Unauthenticated, trace: trace(Unauthenticated), redirect: LoginPath,
		},
		{
			name: "allowed", path: "/enquiries", authenticated: true, resolve: setOf(model.PageEnquiries),
			state: Authorized, trace: trace(Checking, Authorized),
		},
		{
			name: "denied goes home", path: "/user-roles/users", authenticated: true, resolve: setOf(model.PageEnquiries),
			state: Denied, trace: trace(Checking, Denied), redirect: HomePath,
		},
		{
			name: "denied home shows notice", path: "/", authenticated: true, resolve: setOf(model.PageEnquiries),
			state: Denied, trace: trace(Checking, Denied), notice: NoAccessNotice,
		},
		{
			name: "unknown path", path: "/nowhere", authenticated: true, resolve: setOf(model.PageDashboard),
			state: Denied, trace: trace(Checking, Denied), redirect: HomePath,
		},
		{
			name: "session expired mid check", path: "/enquiries", authenticated: true, resolve: expired,
			state: Unauthenticated, trace: trace(Checking, Unauthenticated), redirect: LoginPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var observed []Decision
			g := NewGate(Console, func(d Decision) { observed = append(observed, d) })
			d := g.Evaluate(context.Background(), tt.path, tt.authenticated, tt.resolve)
			if d.State != tt.state {
				t.Fatalf("State = %s, want %s", d.State, tt.state)
			}
			if got := fmt.Sprint(d.Trace); got != tt.trace {
				t.Fatalf("Trace = %s, want %s", got, tt.trace)
			}
			if d.Redirect != tt.redirect {
				t.Fatalf("Redirect = %q, want %q", d.Redirect, tt.redirect)
			}
			if d.Notice != tt.notice {
				t.Fatalf("Notice = %q, want %q", d.Notice, tt.notice)
			}
			if len(observed) != 1 {
				t.Fatalf("observer saw %d decisions", len(observed))
			}
		})
	}
}

func TestGateCarriesResolverNotice(t *testing.T) {
	g := NewGate(Console, nil)
	d := g.Evaluate(context.Background(), "/enquiries", true, func(context.Context) rbac.Set {
		return rbac.Set{Notice: rbac.NoticeUnavailable, Err: errors.New("down")}
	})
	if d.State != Denied || d.Notice != rbac.NoticeUnavailable {
		t.Fatalf("decision = %+v", d)
	}
}

func TestStateText(t *testing.T) {
	b, _ := Denied.MarshalText()
	if string(b) != "denied" {
		t.Fatalf("MarshalText = %s", b)
	}
	if State(99).String() != "unknown" {
		t.Fatalf("out of range state")
	}
}
