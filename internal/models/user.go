package models

import (
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

// User roles. Moderators and admins may manage other users' profiles.
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// Messaging preference values for User.MessageSettings.
const (
	MessageSettingsFriends          = "friends"
	MessageSettingsFriendsOfFriends = "friends_of_friends"
	MessageSettingsAll              = "all"
)

type User struct {
	gorm.Model      `json:"-"`
	ID              uint   `json:"id" gorm:"primaryKey"`
	Username        string `json:"username" gorm:"uniqueIndex;size:80"`
	Password        string `json:"-"` // Store hashed password, ignore for JSON serialization
	Email           string `json:"email" gorm:"uniqueIndex"`
	Phone           string `json:"phone,omitempty"`
	Fullname        string `json:"fullname,omitempty"`
	Avatar          string `json:"avatar,omitempty"`
	Role            string `json:"role" gorm:"type:varchar(20);default:'user'"`
	Blocked         bool   `json:"blocked"`
	Validated       bool   `json:"validated"`
	Confirmed       bool   `json:"confirmed"`
	MessageSettings string `json:"message_settings" gorm:"type:varchar(20);default:'friends'"`
	FailedLogins    int    `json:"-"`
}

// IsModerator reports whether the user holds the moderator or admin role.
func (u *User) IsModerator() bool {
	return u.Role == RoleModerator || u.Role == RoleAdmin
}

// RegisterRequest defines the request body for user registration.
// Phone is optional but must match the +XXX XXX-XX-XX pattern when present.
type RegisterRequest struct {
	Username string `json:"username" form:"username" validate:"required,min=2,max=80"`
	Password string `json:"password" form:"password" validate:"required,min=6"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Phone    string `json:"phone" form:"phone" validate:"omitempty,phone"`
}

// LoginRequest defines the request body for user login.
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// UserSummary is the public shape returned by friend search.
type UserSummary struct {
	Username   string `json:"username"`
	AvatarURL  string `json:"avatar_url"`
	ProfileURL string `json:"profile_url"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
