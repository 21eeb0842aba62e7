package service

import (
	"context"
	"fmt"

	"go-survey-console/internal/model"
	"go-survey-console/internal/rbac"

	"golang.org/x/sync/errgroup"
)

const taskEditPermissions = "edit permissions"

// MatrixRow is one page of a role's permission matrix. ID is zero for pages
// the role has no stored row for yet.
type MatrixRow struct {
	ID          int           `json:"id,omitempty"`
	Page        model.PageKey `json:"page"`
	DisplayName string        `json:"display_name"`
	Group       string        `json:"group"`
	model.Capabilities
}

type Matrix struct {
	Role model.Role  `json:"role"`
	Rows []MatrixRow `json:"rows"`
}

type AdminService interface {
	Roles(ctx context.Context, api API) ([]model.Role, error)
	Matrix(ctx context.Context, api API, perms rbac.Set, roleID int) (*Matrix, error)
	SaveMatrix(ctx context.Context, api API, perms rbac.Set, roleID int, rows []MatrixRow) (string, error)
}

type adminService struct {
	resolver *rbac.Resolver
}

func NewAdminService(resolver *rbac.Resolver) AdminService {
	return &adminService{resolver: resolver}
}

func (s *adminService) Roles(ctx context.Context, api API) ([]model.Role, error) {
	var roles []model.Role
	if err := api.Get(ctx, "/auth/roles/", nil, &roles); err != nil {
		return nil, fail(err, "Failed to fetch roles. Please try again.")
	}
	return roles, nil
}

// Matrix lays the role's stored rows over every known page, in page order.
func (s *adminService) Matrix(ctx context.Context, api API, perms rbac.Set, roleID int) (*Matrix, error) {
	if err := perms.RequireTo(model.PagePermissions, model.ActionEdit, taskEditPermissions); err != nil {
		return nil, err
	}

	var role model.Role
	if err := api.Get(ctx, fmt.Sprintf("/auth/roles/%d/", roleID), nil, &role); err != nil {
		return nil, fail(err, "Failed to fetch permissions. Please try again.")
	}

	stored := make(map[model.PageKey]model.Permission, len(role.Permissions))
	for _, p := range role.Permissions {
		stored[p.Page] = p
	}
	m := &Matrix{Role: role, Rows: make([]MatrixRow, 0, len(model.DefaultPages))}
	for _, page := range model.DefaultPages {
		row := MatrixRow{Page: page.Key, DisplayName: page.DisplayName, Group: page.Group}
		if p, ok := stored[page.Key]; ok {
			row.ID = p.ID
			row.Capabilities = p.Capabilities()
		}
		m.Rows = append(m.Rows, row)
	}
	m.Role.Permissions = nil
	return m, nil
}

// SaveMatrix writes every row in parallel: PUT for stored rows, POST for
// new ones. Any success invalidates all resolved permission sets, since
// other sessions may hold this role.
func (s *adminService) SaveMatrix(ctx context.Context, api API, perms rbac.Set, roleID int, rows []MatrixRow) (string, error) {
	// 1. Check permission
	if err := perms.RequireTo(model.PagePermissions, model.ActionEdit, taskEditPermissions); err != nil {
		return "", err
	}

	// 2. Drop unknown pages
	for _, row := range rows {
		if !model.IsKnownPage(row.Page) {
			return "", reject(fmt.Sprintf("Unknown page %q.", row.Page))
		}
	}

	// 3. Write
	g, gctx := errgroup.WithContext(ctx)
	for _, row := range rows {
		row := row
		body := model.Permission{
			Role:      roleID,
			Page:      row.Page,
			CanView:   row.View,
			CanAdd:    row.Add,
			CanEdit:   row.Edit,
			CanDelete: row.Delete,
		}
		g.Go(func() error {
			if row.ID > 0 {
				return api.Put(gctx, fmt.Sprintf("/auth/permissions/%d/", row.ID), body, nil)
			}
			return api.Post(gctx, "/auth/permissions/", body, nil)
		})
	}
	err := g.Wait()

	// 4. Partial writes may have landed either way
	s.resolver.InvalidateAll()
	if err != nil {
		return "", failField(err, "error", "Failed to update permissions. Please try again.")
	}

	var role model.Role
	if err := api.Get(ctx, fmt.Sprintf("/auth/roles/%d/", roleID), nil, &role); err != nil || role.Name == "" {
		return "Permissions updated", nil
	}
	return "Permissions updated for " + role.Name, nil
}
