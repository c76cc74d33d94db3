package identity

import (
	"github.com/eshop/storefront/pkg/db/models"
	"github.com/eshop/storefront/pkg/enums"
	"github.com/google/uuid"
)

// Session is the signed-in identity of a tab.
type Session struct {
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	IsAdmin     bool      `json:"is_admin"`
}

func sessionFromUser(u *models.User) Session {
	return Session{
		UserID:      u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		IsAdmin:     u.Role == enums.UserRoleAdmin,
	}
}

// Role maps the session back to its token role.
func (s Session) Role() enums.UserRole {
	if s.IsAdmin {
		return enums.UserRoleAdmin
	}
	return enums.UserRoleCustomer
}
