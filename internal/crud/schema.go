package crud

import (
	"fmt"
	"time"

	"go-survey-console/internal/model"
)

type FieldKind string

const (
	KindString FieldKind = "string"
	KindInt    FieldKind = "int"
	KindBool   FieldKind = "bool"
)

// Field is one input of a creation/edit form.
type Field struct {
	Name    string    `json:"name"`
	Label   string    `json:"label"`
	Kind    FieldKind `json:"kind"`
	Rules   string    `json:"rules,omitempty"` // validator tags
	Default string    `json:"default,omitempty"`
	// Ref names a sibling category whose rows the value must point at.
	Ref string `json:"ref,omitempty"`
	// OptionsFrom names an OptionSource whose values the field must use.
	OptionsFrom string `json:"options_from,omitempty"`
}

// Parent links a child category to the category it belongs to. Deleting
// a parent row drops its children from the page.
type Parent struct {
	Category string
	Field    string
}

// Category is one REST resource a page can post to. Single-resource pages
// have exactly one.
type Category struct {
	Key              string  `json:"key"`
	Label            string  `json:"label"`
	Noun             string  `json:"-"`
	Endpoint         string  `json:"-"`
	Fields           []Field `json:"-"`
	TitleField       string  `json:"-"`
	DescriptionField string  `json:"-"`
	// UpdateMethod is PUT or PATCH; empty disables editing.
	UpdateMethod string  `json:"-"`
	Parent       *Parent `json:"-"`
	DeletePrompt string  `json:"-"`
}

// OptionSource is a read-only collection fetched on mount to fill selects.
type OptionSource struct {
	Key        string
	Endpoint   string
	LabelField string
}

// Schema configures one generic list-and-form page.
type Schema struct {
	Key              string
	Page             model.PageKey
	Title            string
	Categories       []Category
	Fields           []Field
	Options          []OptionSource
	EmptyDescription string
	BannerTTL        time.Duration
	// Mutations on these pages change who can do what.
	AffectsPermissions bool
}

func (s *Schema) category(key string) (*Category, bool) {
	for i := range s.Categories {
		if s.Categories[i].Key == key {
			return &s.Categories[i], true
		}
	}
	return nil, false
}

func (s *Schema) fieldsOf(c *Category) []Field {
	if len(c.Fields) > 0 {
		return c.Fields
	}
	return s.Fields
}

func (s *Schema) children(parent string) []*Category {
	var out []*Category
	for i := range s.Categories {
		if p := s.Categories[i].Parent; p != nil && p.Category == parent {
			out = append(out, &s.Categories[i])
		}
	}
	return out
}

func (c *Category) titleField() string {
	if c.TitleField == "" {
		return "name"
	}
	return c.TitleField
}

func (c *Category) deletePrompt() string {
	if c.DeletePrompt != "" {
		return c.DeletePrompt
	}
	return fmt.Sprintf("Are you sure you want to delete this %s?", c.Noun)
}

const noDescription = "No description"

var nameDescription = []Field{
	{Name: "name", Label: "Name", Kind: KindString, Rules: "required"},
	{Name: "description", Label: "Description", Kind: KindString},
}

func single(key, label, noun, endpoint string) []Category {
	return []Category{{Key: key, Label: label, Noun: noun, Endpoint: endpoint, DescriptionField: "description"}}
}

// DefaultSchemas returns the lookup and administration pages of the console.
func DefaultSchemas(bannerTTL time.Duration) []*Schema {
	schemas := []*Schema{
		{
			Key:        "currency",
			Page:       model.PageCurrency,
			Title:      "Currency",
			Categories: single("currencies", "Currencies", "currency", "/currencies/"),
			Fields:     nameDescription,
		},
		{
			Key:   "tax",
			Page:  model.PageTax,
			Title: "Tax",
			Categories: []Category{{
				Key: "taxes", Label: "Taxes", Noun: "tax", Endpoint: "/taxes/",
				TitleField: "tax_name", DescriptionField: "description",
			}},
			Fields: []Field{
				{Name: "tax_name", Label: "Tax Name", Kind: KindString, Rules: "required"},
				{Name: "description", Label: "Description", Kind: KindString},
			},
		},
		{
			Key:   "handyman",
			Page:  model.PageHandyman,
			Title: "Handyman",
			Categories: []Category{{
				Key: "handyman", Label: "Handyman Types", Noun: "handyman type", Endpoint: "/handyman/",
				TitleField: "type_name", DescriptionField: "description",
			}},
			Fields: []Field{
				{Name: "type_name", Label: "Type Name", Kind: KindString, Rules: "required"},
				{Name: "description", Label: "Description", Kind: KindString},
			},
		},
		{
			Key:        "manpower",
			Page:       model.PageManpower,
			Title:      "Manpower",
			Categories: single("manpower", "Manpower", "manpower", "/manpower/"),
			Fields:     nameDescription,
		},
		{
			Key:   "units",
			Page:  model.PageUnits,
			Title: "Units",
			Categories: []Category{
				{Key: "volume", Label: "Volume Units", Noun: "volume unit", Endpoint: "/volume-units/", DescriptionField: "description"},
				{Key: "weight", Label: "Weight Units", Noun: "weight unit", Endpoint: "/weight-units/", DescriptionField: "description"},
			},
			Fields: nameDescription,
		},
		{
			Key:   "types",
			Page:  model.PageTypes,
			Title: "Types",
			Categories: []Category{
				{Key: "customer", Label: "Customer Types", Noun: "customer type", Endpoint: "/customer-types/", DescriptionField: "description"},
				{Key: "service", Label: "Service Types", Noun: "service type", Endpoint: "/service-types/", DescriptionField: "description"},
				{Key: "vehicle", Label: "Vehicle Types", Noun: "vehicle type", Endpoint: "/vehicle-types/", DescriptionField: "description"},
				{Key: "pet", Label: "Pet Types", Noun: "pet type", Endpoint: "/pet-types/", DescriptionField: "description"},
				{Key: "packing", Label: "Packing Types", Noun: "packing type", Endpoint: "/packing-types/", DescriptionField: "description"},
			},
			Fields: nameDescription,
		},
		{
			Key:   "room",
			Page:  model.PageRoom,
			Title: "Room",
			Categories: []Category{
				{
					Key: "rooms", Label: "Rooms", Noun: "room", Endpoint: "/rooms/",
					DescriptionField: "description",
					DeletePrompt:     "Are you sure you want to delete this room? This will also delete all items in it.",
				},
				{
					Key: "items", Label: "Items", Noun: "item", Endpoint: "/items/",
					DescriptionField: "description",
					Parent:           &Parent{Category: "rooms", Field: "room"},
					Fields: []Field{
						{Name: "name", Label: "Item Name", Kind: KindString, Rules: "required"},
						{Name: "description", Label: "Description", Kind: KindString},
						{Name: "room", Label: "Room", Kind: KindInt, Rules: "required", Ref: "rooms"},
					},
				},
			},
			Fields: []Field{
				{Name: "name", Label: "Room Name", Kind: KindString, Rules: "required"},
				{Name: "description", Label: "Description", Kind: KindString},
			},
		},
		{
			Key:   "users",
			Page:  model.PageUsers,
			Title: "Users",
			Categories: []Category{{
				Key: "users", Label: "Users", Noun: "user", Endpoint: "/auth/users/",
				DescriptionField: "email", UpdateMethod: "PUT",
			}},
			Fields: []Field{
				{Name: "email", Label: "Email", Kind: KindString, Rules: "required,email_simple"},
				{Name: "name", Label: "Name", Kind: KindString, Rules: "required"},
				{Name: "role_id", Label: "Role", Kind: KindInt, Rules: "required", OptionsFrom: "roles"},
			},
			Options:            []OptionSource{{Key: "roles", Endpoint: "/auth/roles/", LabelField: "name"}},
			AffectsPermissions: true,
		},
		{
			Key:                "roles",
			Page:               model.PageRoles,
			Title:              "Roles",
			Categories:         single("roles", "Roles", "role", "/auth/roles/"),
			Fields:             nameDescription,
			AffectsPermissions: true,
		},
	}
	for _, s := range schemas {
		s.BannerTTL = bannerTTL
		s.EmptyDescription = noDescription
	}
	return schemas
}
