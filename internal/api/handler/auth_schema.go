package handler

import "github.com/brewpoint/pos-edge/internal/core/domain"

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginErrorResponse struct {
	Error            string `json:"error"`
	OfflineAvailable bool   `json:"offline_available"`
}

type loginResponse struct {
	Redirect  string               `json:"redirect"`
	ExpiresAt string               `json:"expires_at"`
	User      *domain.UserIdentity `json:"user,omitempty"`
	Source    string               `json:"source"`
}

type sessionResponse struct {
	Authenticated bool                 `json:"authenticated"`
	ExpiresAt     string               `json:"expires_at,omitempty"`
	User          *domain.UserIdentity `json:"user,omitempty"`
	Source        string               `json:"source,omitempty"`
	Fallback      bool                 `json:"fallback"`
}
