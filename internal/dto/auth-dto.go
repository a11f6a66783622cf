package dto

import "pharmacie-admin/internal/authz"

type LoginDTO struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenPairDTO is the backend answer of token/ and token/refresh/.
type TokenPairDTO struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

type RefreshDTO struct {
	Refresh string `json:"refresh"`
}

// BackendUserDTO is the backend answer of user/me/.
type BackendUserDTO struct {
	ID          int64          `json:"id"`
	Username    string         `json:"username"`
	Email       string         `json:"email,omitempty"`
	FirstName   string         `json:"first_name,omitempty"`
	LastName    string         `json:"last_name,omitempty"`
	Fonction    string         `json:"fonction,omitempty"`
	Service     string         `json:"service,omitempty"`
	ServiceID   *int64         `json:"service_id,omitempty"`
	Role        string         `json:"role,omitempty"`
	Permissions map[string]any `json:"permissions,omitempty"`
}

type IdentityDTO struct {
	ID        int64   `json:"id"`
	FullName  string  `json:"fullName"`
	Username  string  `json:"username"`
	Email     string  `json:"email,omitempty"`
	Fonction  string  `json:"fonction,omitempty"`
	Service   string  `json:"service,omitempty"`
	ServiceID *int64  `json:"service_id,omitempty"`
	Role      string  `json:"role,omitempty"`
	Avatar    *string `json:"avatar"`
}

type AuthResponseDTO struct {
	Token       string       `json:"token"`
	Identity    *IdentityDTO `json:"identity,omitempty"`
	Permissions authz.Set    `json:"permissions"`
}
