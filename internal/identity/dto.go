package identity

import (
	"time"

	"github.com/eshop/storefront/internal/users"
)

// SignupRequest carries the account fields collected by the signup form.
type SignupRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"display_name" validate:"omitempty,max=80"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest pairs the access id of an expired token with its refresh token.
type RefreshRequest struct {
	AccessID     string
	RefreshToken string
}

// Grant is what a successful signup, login, or refresh hands back.
type Grant struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresAt    time.Time      `json:"expires_at"`
	AccessID     string         `json:"-"`
	Session      Session        `json:"-"`
	User         *users.UserDTO `json:"user"`
}
