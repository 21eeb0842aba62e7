package model

// PageKey identifies a protected screen for permission lookups.
type PageKey string

const (
	PageDashboard           PageKey = "Dashboard"
	PageProfile             PageKey = "Profile"
	PageEnquiries           PageKey = "enquiries"
	PageProcessingEnquiries PageKey = "processing_enquiries"
	PageFollowUps           PageKey = "follow_ups"
	PageScheduledSurveys    PageKey = "scheduled_surveys"
	PageNewEnquiries        PageKey = "new_enquiries"
	PageSurveyCustomer      PageKey = "survey_customer"
	PageSurveyArticle       PageKey = "survey_article"
	PageSurveyPet           PageKey = "survey_pet"
	PageSurveyService       PageKey = "survey_service"
	PageSurveySummary       PageKey = "survey_summary"
	PageTypes               PageKey = "types"
	PageUnits               PageKey = "units"
	PageCurrency            PageKey = "currency"
	PageTax                 PageKey = "tax"
	PageHandyman            PageKey = "handyman"
	PageManpower            PageKey = "manpower"
	PageRoom                PageKey = "room"
	PageUsers               PageKey = "users"
	PageRoles               PageKey = "roles"
	PagePermissions         PageKey = "permissions"
)

// Action is one of the four capabilities a permission row grants on a page.
type Action string

const (
	ActionView   Action = "view"
	ActionAdd    Action = "add"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

var Actions = []Action{ActionView, ActionAdd, ActionEdit, ActionDelete}

func (a Action) Valid() bool {
	switch a {
	case ActionView, ActionAdd, ActionEdit, ActionDelete:
		return true
	}
	return false
}

// PageInfo describes a recognized page key on the permission matrix screen.
type PageInfo struct {
	Key         PageKey `json:"key"`
	DisplayName string  `json:"display_name"`
	Group       string  `json:"group"`
}

// DefaultPages lists every page key in matrix order.
var DefaultPages = []PageInfo{
	// Dashboard and profile
	{Key: PageDashboard, DisplayName: "Dashboard", Group: "User Dashboard and Profile"},
	{Key: PageProfile, DisplayName: "Profile", Group: "User Dashboard and Profile"},
	// Enquiries
	{Key: PageEnquiries, DisplayName: "Enquiries", Group: "Enquiry Related Pages"},
	{Key: PageProcessingEnquiries, DisplayName: "Processing Enquiries", Group: "Enquiry Related Pages"},
	{Key: PageFollowUps, DisplayName: "Follow Ups", Group: "Enquiry Related Pages"},
	{Key: PageScheduledSurveys, DisplayName: "Scheduled Surveys", Group: "Enquiry Related Pages"},
	{Key: PageNewEnquiries, DisplayName: "New Enquiries", Group: "Enquiry Related Pages"},
	// Survey wizard
	{Key: PageSurveyCustomer, DisplayName: "Customer", Group: "Start Survey Related Pages"},
	{Key: PageSurveyArticle, DisplayName: "Article", Group: "Start Survey Related Pages"},
	{Key: PageSurveyPet, DisplayName: "Pet", Group: "Start Survey Related Pages"},
	{Key: PageSurveyService, DisplayName: "Service", Group: "Start Survey Related Pages"},
	{Key: PageSurveySummary, DisplayName: "Survey Summary", Group: "Start Survey Related Pages"},
	// Additional settings
	{Key: PageTypes, DisplayName: "Types", Group: "Additional Settings Pages"},
	{Key: PageUnits, DisplayName: "Units", Group: "Additional Settings Pages"},
	{Key: PageCurrency, DisplayName: "Currency", Group: "Additional Settings Pages"},
	{Key: PageTax, DisplayName: "Tax", Group: "Additional Settings Pages"},
	{Key: PageHandyman, DisplayName: "Handyman", Group: "Additional Settings Pages"},
	{Key: PageManpower, DisplayName: "Manpower", Group: "Additional Settings Pages"},
	{Key: PageRoom, DisplayName: "Room", Group: "Additional Settings Pages"},
	// User roles
	{Key: PageUsers, DisplayName: "Users", Group: "User Role Pages"},
	{Key: PageRoles, DisplayName: "Roles", Group: "User Role Pages"},
	{Key: PagePermissions, DisplayName: "Permissions", Group: "User Role Pages"},
}

// IsKnownPage reports whether key is one of DefaultPages.
func IsKnownPage(key PageKey) bool {
	for _, p := range DefaultPages {
		if p.Key == key {
			return true
		}
	}
	return false
}
