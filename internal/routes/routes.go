package routes

import (
	"fmt"
	"regexp"
	"strings"

	"go-survey-console/internal/model"
)

const (
	LoginPath = "/login"
	HomePath  = "/"

	UnknownTitle = "Unknown Page"
)

// Route is one browser path the shell can render.
type Route struct {
	Pattern string        `json:"pattern"`
	Page    model.PageKey `json:"page,omitempty"`
	Action  model.Action  `json:"action,omitempty"`
	Label   string        `json:"label"`
	Public  bool          `json:"public,omitempty"`

	re *regexp.Regexp
}

// InSurvey reports whether the route belongs to the survey wizard.
func (r Route) InSurvey() bool {
	return strings.Contains(r.Pattern, ":surveyId")
}

// RequiredAction defaults to view.
func (r Route) RequiredAction() model.Action {
	if r.Action == "" {
		return model.ActionView
	}
	return r.Action
}

// Table matches live paths against declared routes in declaration order.
type Table struct {
	routes []Route
}

var placeholder = regexp.MustCompile(`:([A-Za-z]+)`)

func NewTable(defs []Route) *Table {
	t := &Table{routes: make([]Route, 0, len(defs))}
	for _, r := range defs {
		expr := regexp.QuoteMeta(r.Pattern)
		// QuoteMeta leaves ':' alone, so placeholders survive.
		expr = placeholder.ReplaceAllString(expr, `(?P<$1>\d+)`)
		r.re = regexp.MustCompile("^" + expr + "$")
		t.routes = append(t.routes, r)
	}
	return t
}

func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Match returns the route for path along with its placeholder values.
func (t *Table) Match(path string) (Route, map[string]string, bool) {
	path = normalize(path)
	for _, r := range t.routes {
		m := r.re.FindStringSubmatch(path)
		if m == nil {
			continue
		}
		params := map[string]string{}
		for i, name := range r.re.SubexpNames() {
			if i > 0 && name != "" {
				params[name] = m[i]
			}
		}
		return r, params, true
	}
	return Route{}, nil, false
}

// Title is the top bar label for path. Inside the wizard the label is
// prefixed with the selected survey id when one is stored.
func (t *Table) Title(path, selectedSurveyID string) string {
	r, _, ok := t.Match(path)
	if !ok || r.Public {
		return UnknownTitle
	}
	if r.InSurvey() && selectedSurveyID != "" {
		return fmt.Sprintf("Survey ( %s ) : %s", selectedSurveyID, r.Label)
	}
	return r.Label
}

func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return HomePath
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}

// SurveyPath builds a wizard path such as /survey/42/customer.
func SurveyPath(surveyID int, step string) string {
	return fmt.Sprintf("/survey/%d/%s", surveyID, step)
}

// Console is the route surface of the admin console.
var Console = NewTable([]Route{
	{Pattern: LoginPath, Label: "Login", Public: true},
	{Pattern: "/reset-password", Label: "Reset Password", Public: true},

	{Pattern: HomePath, Page: model.PageDashboard, Label: "Dashboard"},
	{Pattern: "/enquiries", Page: model.PageEnquiries, Label: "Enquiries"},
	{Pattern: "/new-enquiries", Page: model.PageNewEnquiries, Label: "New Assigned Enquiries"},
	{Pattern: "/scheduled-surveys", Page: model.PageScheduledSurveys, Label: "Scheduled Surveys"},
	{Pattern: "/processing-enquiries", Page: model.PageProcessingEnquiries, Label: "Processing Enquiries"},
	{Pattern: "/follow-ups", Page: model.PageFollowUps, Label: "Follow Ups"},

	{Pattern: "/survey/:surveyId/customer", Page: model.PageSurveyCustomer, Label: "Customer"},
	{Pattern: "/survey/:surveyId/article", Page: model.PageSurveyArticle, Label: "Article"},
	{Pattern: "/survey/:surveyId/article/view-article", Page: model.PageSurveyArticle, Label: "View Articles"},
	{Pattern: "/survey/:surveyId/manage-article", Page: model.PageSurveyArticle, Label: "Manage Article"},
	{Pattern: "/survey/:surveyId/pet", Page: model.PageSurveyPet, Label: "Pet"},
	{Pattern: "/survey/:surveyId/service", Page: model.PageSurveyService, Label: "Service"},
	{Pattern: "/survey_summary", Page: model.PageSurveySummary, Label: "Survey Summary"},

	{Pattern: "/additional-settings/types", Page: model.PageTypes, Label: "Types"},
	{Pattern: "/additional-settings/units", Page: model.PageUnits, Label: "Unit"},
	{Pattern: "/additional-settings/currency", Page: model.PageCurrency, Label: "Currency"},
	{Pattern: "/additional-settings/tax", Page: model.PageTax, Label: "Tax"},
	{Pattern: "/additional-settings/handyman", Page: model.PageHandyman, Label: "Handyman"},
	{Pattern: "/additional-settings/manpower", Page: model.PageManpower, Label: "Manpower"},
	{Pattern: "/additional-settings/room", Page: model.PageRoom, Label: "Room"},

	{Pattern: "/profile", Page: model.PageProfile, Label: "Profile"},
	{Pattern: "/user-roles/users", Page: model.PageUsers, Label: "Users"},
	{Pattern: "/user-roles/roles", Page: model.PageRoles, Label: "Roles"},
	{Pattern: "/user-roles/permissions", Page: model.PagePermissions, Label: "Permissions"},
})
