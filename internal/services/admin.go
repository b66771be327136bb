package services

import (
	"context"
	"net/http"

	"invoiceweb/portal/internal/apiclient"
	"invoiceweb/portal/internal/models"
)

type AdminUserFilter struct {
	Search         string
	RoleID         string
	Status         string
	OrganizationID string
}

func (f AdminUserFilter) Filters() apiclient.Filters {
	return apiclient.Filters{
		"search":         f.Search,
		"roleId":         f.RoleID,
		"status":         f.Status,
		"organizationId": f.OrganizationID,
	}
}

type AdminUserService struct {
	Resource[models.AdminUser]
}

func NewAdminUserService(client *apiclient.Client) *AdminUserService {
	return &AdminUserService{Resource: newResource[models.AdminUser](client, "/admin/users")}
}

func (s *AdminUserService) GetAdminUsersPaginated(ctx context.Context, page, pageSize int, filter AdminUserFilter) apiclient.Envelope[apiclient.PaginatedResult[models.AdminUser]] {
	return s.GetPaginated(ctx, page, pageSize, filter.Filters())
}

func (s *AdminUserService) ResetPassword(ctx context.Context, id, newPassword string) apiclient.Envelope[apiclient.Void] {
	return call[apiclient.Void](ctx, s.Client, apiclient.Request{
		Method: http.MethodPost,
		Path:   s.itemPath(id, "reset-password"),
		Body:   map[string]string{"newPassword": newPassword},
	})
}

func (s *AdminUserService) ToggleStatus(ctx context.Context, id string) apiclient.Envelope[models.AdminUser] {
	return call[models.AdminUser](ctx, s.Client, apiclient.Request{Method: http.MethodPatch, Path: s.itemPath(id, "toggle-status")})
}

type APIKeyService struct {
	Resource[models.APIKey]
}

func NewAPIKeyService(client *apiclient.Client) *APIKeyService {
	return &APIKeyService{Resource: newResource[models.APIKey](client, "/api-keys")}
}

func (s *APIKeyService) Revoke(ctx context.Context, id string) apiclient.Envelope[models.APIKey] {
	return call[models.APIKey](ctx, s.Client, apiclient.Request{Method: http.MethodPost, Path: s.itemPath(id, "revoke")})
}

// Regenerate issues a new secret for the key. The plaintext Key is only
// populated in this response.
func (s *APIKeyService) Regenerate(ctx context.Context, id string) apiclient.Envelope[models.APIKey] {
	return call[models.APIKey](ctx, s.Client, apiclient.Request{Method: http.MethodPost, Path: s.itemPath(id, "regenerate")})
}

type OrganizationService struct {
	Resource[models.Organization]
}

func NewOrganizationService(client *apiclient.Client) *OrganizationService {
	return &OrganizationService{Resource: newResource[models.Organization](client, "/organizations")}
}

type RoleService struct {
	Resource[models.Role]
}

func NewRoleService(client *apiclient.Client) *RoleService {
	return &RoleService{Resource: newResource[models.Role](client, "/roles")}
}

func (s *RoleService) AssignMenus(ctx context.Context, roleID string, menuIDs []string) apiclient.Envelope[apiclient.Void] {
	if menuIDs == nil {
		menuIDs = []string{}
	}
	return call[apiclient.Void](ctx, s.Client, apiclient.Request{
		Method: http.MethodPut,
		Path:   s.itemPath(roleID, "menus"),
		Body:   models.AssignMenusRequest{MenuIDs: menuIDs},
	})
}

func (s *RoleService) Menus(ctx context.Context, roleID string) apiclient.Envelope[[]models.Menu] {
	return call[[]models.Menu](ctx, s.Client, apiclient.Request{Method: http.MethodGet, Path: s.itemPath(roleID, "menus")})
}

type MenuService struct {
	Resource[models.Menu]
}

func NewMenuService(client *apiclient.Client) *MenuService {
	return &MenuService{Resource: newResource[models.Menu](client, "/menus")}
}

func (s *MenuService) Tree(ctx context.Context) apiclient.Envelope[[]models.Menu] {
	return call[[]models.Menu](ctx, s.Client, apiclient.Request{Method: http.MethodGet, Path: s.path + "/tree"})
}
