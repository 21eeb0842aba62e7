package model

// User is the authenticated profile as returned by /auth/profile/.
type User struct {
	ID          int    `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Username    string `json:"username,omitempty"`
	Address     string `json:"address,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Image       string `json:"image,omitempty"`
	Role        *Role  `json:"role"`
	IsSuperuser bool   `json:"is_superuser"`
}

// IsSuperadmin reports whether the user bypasses permission checks.
func (u *User) IsSuperadmin() bool {
	if u == nil {
		return false
	}
	return u.IsSuperuser || (u.Role != nil && u.Role.Name == SuperadminRoleName)
}

// RoleID returns the assigned role id, or 0 when no role is assigned.
func (u *User) RoleID() int {
	if u == nil || u.Role == nil {
		return 0
	}
	return u.Role.ID
}

// TokenPair is the upstream login response.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}
