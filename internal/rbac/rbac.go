package rbac

import (
	"errors"
	"fmt"
	"strings"

	"go-survey-console/internal/model"
)

var ErrPermissionDenied = errors.New("permission denied")

// PermissionError is a denial decided before any upstream call is made.
type PermissionError struct {
	Page   model.PageKey
	Action model.Action
	// Task replaces "<action> <page>" in the message, e.g. "assign an enquiry".
	Task string
}

func (e *PermissionError) Error() string {
	if e.Task != "" {
		return fmt.Sprintf("You do not have permission to %s.", e.Task)
	}
	return fmt.Sprintf("You do not have permission to %s %s.", e.Action, pageLabel(e.Page))
}

func (e *PermissionError) Is(target error) bool {
	return target == ErrPermissionDenied
}

func pageLabel(page model.PageKey) string {
	for _, p := range model.DefaultPages {
		if p.Key == page {
			return strings.ToLower(p.DisplayName)
		}
	}
	return strings.ReplaceAll(string(page), "_", " ")
}

// Set is the resolved capability matrix of one session.
type Set struct {
	Superadmin bool
	User       *model.User
	Matrix     map[model.PageKey]model.Capabilities
	// Notice is a non-fatal message to show inline, e.g. when the role
	// could not be loaded.
	Notice string
	// Err is the failure behind Notice, if any. Failed sets are not cached.
	Err error
}

// Has reports whether action is allowed on page. Superadmins bypass the
// matrix; anything absent from it is denied.
func (s Set) Has(page model.PageKey, action model.Action) bool {
	if s.Superadmin {
		return true
	}
	caps, ok := s.Matrix[page]
	if !ok {
		return false
	}
	switch action {
	case model.ActionView:
		return caps.View
	case model.ActionAdd:
		return caps.Add
	case model.ActionEdit:
		return caps.Edit
	case model.ActionDelete:
		return caps.Delete
	}
	return false
}

// Can returns all four flags for page.
func (s Set) Can(page model.PageKey) model.Capabilities {
	if s.Superadmin {
		return model.AllCapabilities
	}
	return s.Matrix[page]
}

// Require returns a *PermissionError when action is not allowed.
func (s Set) Require(page model.PageKey, action model.Action) error {
	if s.Has(page, action) {
		return nil
	}
	return &PermissionError{Page: page, Action: action}
}

// RequireTo is Require with a task-specific message.
func (s Set) RequireTo(page model.PageKey, action model.Action, task string) error {
	if s.Has(page, action) {
		return nil
	}
	return &PermissionError{Page: page, Action: action, Task: task}
}

// SetView is the JSON form of a Set sent to the browser shell.
type SetView struct {
	Superadmin bool                                 `json:"is_superadmin"`
	User       *model.User                          `json:"user,omitempty"`
	Matrix     map[model.PageKey]model.Capabilities `json:"matrix"`
	Notice     string                               `json:"notice,omitempty"`
}

func (s Set) View() SetView {
	m := make(map[model.PageKey]model.Capabilities, len(model.DefaultPages))
	for _, p := range model.DefaultPages {
		m[p.Key] = s.Can(p.Key)
	}
	return SetView{Superadmin: s.Superadmin, User: s.User, Matrix: m, Notice: s.Notice}
}

// BuildMatrix keys permission rows by page. A later row for the same page
// replaces an earlier one.
func BuildMatrix(rows []model.Permission) map[model.PageKey]model.Capabilities {
	m := make(map[model.PageKey]model.Capabilities, len(rows))
	for _, r := range rows {
		m[r.Page] = r.Capabilities()
	}
	return m
}
