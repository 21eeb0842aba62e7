package nav

import (
	"fmt"

	"go-survey-console/internal/model"
	"go-survey-console/internal/rbac"
)

// Entry is one navigation link. Entries with Children are groups.
type Entry struct {
	ID       string        `json:"id"`
	Label    string        `json:"label"`
	To       string        `json:"to,omitempty"`
	Page     model.PageKey `json:"page,omitempty"`
	Children []Entry       `json:"children,omitempty"`
}

// Context is the session state the menu depends on.
type Context struct {
	SelectedSurveyID string
	GoodsType        string
}

type item struct {
	id       string
	label    string
	to       string
	page     model.PageKey
	children func(Context) []item
}

func link(id, label, to string, page model.PageKey) item {
	return item{id: id, label: label, to: to, page: page}
}

var sidebar = []item{
	link("dashboard", "Dashboard", "/", model.PageDashboard),
	link("enquiries", "Enquiries", "/enquiries", model.PageEnquiries),
	link("new-enquiries", "New Assigned Enquiries", "/new-enquiries", model.PageNewEnquiries),
	link("scheduled-surveys", "Scheduled Surveys", "/scheduled-surveys", model.PageScheduledSurveys),
	{
		id: "survey-detail",
		children: func(c Context) []item {
			id := c.SelectedSurveyID
			steps := []item{link("survey-customer", "Customer", fmt.Sprintf("/survey/%s/customer", id), model.PageSurveyCustomer)}
			if model.NormalizeGoodsType(c.GoodsType) == model.GoodsTypePet {
				steps = append(steps, link("survey-pet", "Pet", fmt.Sprintf("/survey/%s/pet", id), model.PageSurveyPet))
			} else {
				steps = append(steps, link("survey-article", "Article", fmt.Sprintf("/survey/%s/article", id), model.PageSurveyArticle))
			}
			return append(steps, link("survey-service", "Service", fmt.Sprintf("/survey/%s/service", id), model.PageSurveyService))
		},
	},
	link("survey-summary", "Survey Summary", "/survey_summary", model.PageSurveySummary),
	{
		id:    "additional-settings",
		label: "Additional Settings",
		children: func(Context) []item {
			return []item{
				link("types", "Types", "/additional-settings/types", model.PageTypes),
				link("units", "Units", "/additional-settings/units", model.PageUnits),
				link("currency", "Currency", "/additional-settings/currency", model.PageCurrency),
				link("tax", "Tax", "/additional-settings/tax", model.PageTax),
				link("handyman", "Handyman", "/additional-settings/handyman", model.PageHandyman),
				link("manpower", "Manpower", "/additional-settings/manpower", model.PageManpower),
				link("room", "Room", "/additional-settings/room", model.PageRoom),
			}
		},
	},
	{
		id:    "user-roles",
		label: "User Roles",
		children: func(Context) []item {
			return []item{
				link("roles", "Roles", "/user-roles/roles", model.PageRoles),
				link("users", "Users", "/user-roles/users", model.PageUsers),
				link("permissions", "Permissions", "/user-roles/permissions", model.PagePermissions),
			}
		},
	},
	link("profile", "Profile", "/profile", model.PageProfile),
}

var bottom = []item{
	link("dashboard", "Dashboard", "/", model.PageDashboard),
	link("enquiries", "Enquiries", "/enquiries", model.PageEnquiries),
	link("new-enquiries", "New Enquiries", "/new-enquiries", model.PageNewEnquiries),
	link("scheduled-surveys", "Surveys", "/scheduled-surveys", model.PageScheduledSurveys),
	link("profile", "Profile", "/profile", model.PageProfile),
}

// Build returns the visible sidebar in display order. A group is present
// only when at least one child is visible; the survey group exists only
// while a survey is selected.
func Build(set rbac.Set, c Context) []Entry {
	out := make([]Entry, 0, len(sidebar))
	for _, it := range sidebar {
		if it.children == nil {
			if set.Has(it.page, model.ActionView) {
				out = append(out, it.entry())
			}
			continue
		}
		if it.id == "survey-detail" && c.SelectedSurveyID == "" {
			continue
		}
		var kids []Entry
		for _, child := range it.children(c) {
			if set.Has(child.page, model.ActionView) {
				kids = append(kids, child.entry())
			}
		}
		if len(kids) == 0 {
			continue
		}
		e := it.entry()
		if it.id == "survey-detail" {
			e.Label = fmt.Sprintf("Survey Detail ( %s )", c.SelectedSurveyID)
		}
		e.Children = kids
		out = append(out, e)
	}
	return out
}

// BuildBottom returns the compact mobile navigation.
func BuildBottom(set rbac.Set) []Entry {
	out := make([]Entry, 0, len(bottom))
	for _, it := range bottom {
		if set.Has(it.page, model.ActionView) {
			out = append(out, it.entry())
		}
	}
	return out
}

func (it item) entry() Entry {
	return Entry{ID: it.id, Label: it.label, To: it.to, Page: it.page}
}
