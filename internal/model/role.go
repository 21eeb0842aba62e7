package model

// Role is a named bundle of per-page permission rows.
type Role struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// SuperadminRoleName bypasses every permission check.
const SuperadminRoleName = "Superadmin"

// Permission is unique per (role, page). An absent row grants nothing.
type Permission struct {
	ID        int     `json:"id,omitempty"`
	Role      int     `json:"role"`
	Page      PageKey `json:"page"`
	CanView   bool    `json:"can_view"`
	CanAdd    bool    `json:"can_add"`
	CanEdit   bool    `json:"can_edit"`
	CanDelete bool    `json:"can_delete"`
}

// Allows returns the flag for the given action.
func (p Permission) Allows(a Action) bool {
	switch a {
	case ActionView:
		return p.CanView
	case ActionAdd:
		return p.CanAdd
	case ActionEdit:
		return p.CanEdit
	case ActionDelete:
		return p.CanDelete
	}
	return false
}

// Capabilities is the four-flag view of a permission row.
type Capabilities struct {
	View   bool `json:"view"`
	Add    bool `json:"add"`
	Edit   bool `json:"edit"`
	Delete bool `json:"delete"`
}

func (p Permission) Capabilities() Capabilities {
	return Capabilities{View: p.CanView, Add: p.CanAdd, Edit: p.CanEdit, Delete: p.CanDelete}
}

// AllCapabilities is what a superadmin gets on every page.
var AllCapabilities = Capabilities{View: true, Add: true, Edit: true, Delete: true}
