package model

import "time"

// Enquiry is an intake record from /contacts/enquiries/.
type Enquiry struct {
	ID                 int        `json:"id"`
	FullName           string     `json:"fullName"`
	PhoneNumber        string     `json:"phoneNumber"`
	Email              string     `json:"email"`
	ServiceType        string     `json:"serviceType"`
	Message            string     `json:"message"`
	Note               string     `json:"note,omitempty"`
	AssignedUserEmail  string     `json:"assigned_user_email,omitempty"`
	AssignedUserName   string     `json:"assigned_user_name,omitempty"`
	ContactStatus      string     `json:"contact_status,omitempty"`
	ContactStatusNote  string     `json:"contact_status_note,omitempty"`
	ReachedOutWhatsApp bool       `json:"reached_out_whatsapp"`
	ReachedOutEmail    bool       `json:"reached_out_email"`
	SurveyDate         *time.Time `json:"survey_date,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	HasSurvey          bool       `json:"has_survey"`
}

// IsAssigned reports whether a salesperson owns the enquiry.
func (e *Enquiry) IsAssigned() bool {
	return e.AssignedUserEmail != ""
}

const (
	ContactStatusAttended    = "Attended"
	ContactStatusNotAttended = "Not Attended"
)

// ServiceTypes are the values accepted on enquiry creation.
var ServiceTypes = []Option{
	{Value: "localMove", Label: "Local Move"},
	{Value: "internationalMove", Label: "International Move"},
	{Value: "carExport", Label: "Car Import and Export"},
	{Value: "storageServices", Label: "Storage Services"},
	{Value: "logistics", Label: "Logistics"},
}

// Option is a value/label pair for select inputs.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func IsServiceType(v string) bool {
	for _, o := range ServiceTypes {
		if o.Value == v {
			return true
		}
	}
	return false
}
