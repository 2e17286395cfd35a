package dto

import (
	"time"

	"github.com/Payphone-Digital/sprintdesk/internal/model"
)

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=100"`
	Name     string `json:"name" binding:"required,min=1,max=80"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

type OTPRequest struct {
	Email string `json:"email" binding:"required,email,max=255"`
}

type OTPVerifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,numeric,min=4,max=10"`
}

type DemoLoginRequest struct {
	Type string `json:"type" binding:"required,oneof=owner member"`
}

// UpdateProfileRequest leaves absent fields untouched.
type UpdateProfileRequest struct {
	Name      *string `json:"name" binding:"omitempty,max=80"`
	AvatarURL *string `json:"avatarUrl" binding:"omitempty,max=500"`
	Contact   *string `json:"contact" binding:"omitempty,max=120"`
}

type UserResponse struct {
	ID        uint       `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Strategy  string     `json:"strategy"`
	AvatarURL string     `json:"avatarUrl,omitempty"`
	Contact   string     `json:"contact,omitempty"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// AuthResponse is returned by every endpoint that starts a session. The
// refresh token travels only in the cookie.
type AuthResponse struct {
	AccessToken string       `json:"accessToken"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	User        UserResponse `json:"user"`
}

func NewUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Strategy:  string(u.Strategy),
		AvatarURL: u.AvatarURL,
		Contact:   u.Contact,
		LastLogin: u.LastLogin,
		CreatedAt: u.CreatedAt,
	}
}
