package routes

import (
	"context"
	"errors"

	"go-survey-console/internal/model"
	"go-survey-console/internal/rbac"
	"go-survey-console/pkg/apiclient"
)

// State is where a navigation stands in the authorization gate.
type State int

const (
	Unauthenticated State = iota
	Checking
	Authorized
	Denied
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Checking:
		return "checking"
	case Authorized:
		return "authorized"
	case Denied:
		return "denied"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Decision is the outcome of one gate evaluation.
type Decision struct {
	Path     string        `json:"path"`
	State    State         `json:"state"`
	Trace    []State       `json:"trace"`
	Page     model.PageKey `json:"page,omitempty"`
	Action   model.Action  `json:"action,omitempty"`
	Redirect string        `json:"redirect,omitempty"`
	Title    string        `json:"title,omitempty"`
	Notice   string        `json:"notice,omitempty"`
}

// NoAccessNotice is shown when the home route itself is denied, since
// redirecting home would loop.
const NoAccessNotice = "You do not have access to any page. Contact an administrator."

// ResolveFunc yields the permission set of the navigating session.
type ResolveFunc func(ctx context.Context) rbac.Set

// Gate evaluates every navigation independently; nothing is memoized
// between calls.
type Gate struct {
	table      *Table
	onDecision func(Decision)
}

func NewGate(table *Table, onDecision func(Decision)) *Gate {
	if onDecision == nil {
		onDecision = func(Decision) {}
	}
	return &Gate{table: table, onDecision: onDecision}
}

func (g *Gate) Table() *Table {
	return g.table
}

// Evaluate walks path through Unauthenticated, Checking, Authorized or Denied.
func (g *Gate) Evaluate(ctx context.Context, path string, authenticated bool, resolve ResolveFunc) Decision {
	d := g.evaluate(ctx, normalize(path), authenticated, resolve)
	g.onDecision(d)
	return d
}

func (g *Gate) evaluate(ctx context.Context, path string, authenticated bool, resolve ResolveFunc) Decision {
	d := Decision{Path: path}
	route, _, ok := g.table.Match(path)

	if ok && route.Public {
		d.Title = route.Label
		return d.to(Authorized)
	}

	// 1. No auth flag: straight to login
	if !authenticated {
		d.Redirect = LoginPath
		return d.to(Unauthenticated)
	}

	// 2. Permission fetch in flight
	d.to(Checking)
	set := resolve(ctx)
	if errors.Is(set.Err, apiclient.ErrSessionExpired) {
		d.Redirect = LoginPath
		return d.to(Unauthenticated)
	}
	d.Notice = set.Notice

	if !ok {
		d.Redirect = HomePath
		return d.to(Denied)
	}
	d.Page = route.Page
	d.Action = route.RequiredAction()

	// 3. Routes without a page key need no permission
	if route.Page == "" || set.Has(route.Page, d.Action) {
		return d.to(Authorized)
	}

	if path == HomePath {
		d.Notice = NoAccessNotice
		return d.to(Denied)
	}
	d.Redirect = HomePath
	return d.to(Denied)
}

func (d *Decision) to(s State) Decision {
	d.State = s
	d.Trace = append(d.Trace, s)
	return *d
}
