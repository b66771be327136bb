package models

import "time"

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Avatar    string    `json:"avatar,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type UpdateProfileRequest struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type AdminUser struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	RoleID         string    `json:"roleId"`
	RoleName       string    `json:"roleName,omitempty"`
	OrganizationID string    `json:"organizationId,omitempty"`
	Status         string    `json:"status"`
	LastLoginAt    time.Time `json:"lastLoginAt,omitzero"`
	CreatedAt      time.Time `json:"createdAt"`
}

type AdminUserInput struct {
	Email          string `json:"email,omitempty"`
	Name           string `json:"name,omitempty"`
	Password       string `json:"password,omitempty"`
	RoleID         string `json:"roleId,omitempty"`
	OrganizationID string `json:"organizationId,omitempty"`
	Status         string `json:"status,omitempty"`
}

type APIKey struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Key            string    `json:"key,omitempty"`
	Prefix         string    `json:"prefix"`
	OrganizationID string    `json:"organizationId,omitempty"`
	Status         string    `json:"status"`
	ExpiresAt      time.Time `json:"expiresAt,omitzero"`
	LastUsedAt     time.Time `json:"lastUsedAt,omitzero"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type Role struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	MenuIDs     []string `json:"menuIds,omitempty"`
}

type AssignMenusRequest struct {
	MenuIDs []string `json:"menuIds"`
}

type Menu struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Icon     string `json:"icon,omitempty"`
	ParentID string `json:"parentId,omitempty"`
	Order    int    `json:"order"`
	Children []Menu `json:"children,omitempty"`
}

type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}
