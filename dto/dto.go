package dto

import (
	"strings"
	"time"

	"authsvc/model"
)

// email + password
type Signup struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=1,bcryptlen"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
}

type Signin struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserView struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func NewUserView(u *model.User) UserView {
	return UserView{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

type SigninResponse struct {
	Message string   `json:"message"`
	User    UserView `json:"user"`
	Token   string   `json:"token"`
}

type Profile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Name      string `json:"name"`
}

func NewProfile(u *model.User) Profile {
	return Profile{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Name:      strings.TrimSpace(u.FirstName + " " + u.LastName),
	}
}

// google
type GoogleIdentity struct {
	Email         string
	GivenName     string
	FamilyName    string
	Picture       string
	EmailVerified bool
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

type OAuthTokens struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	Expiry       time.Time
}
