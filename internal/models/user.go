package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User is a registered author. Deleting a user removes their posts, comments
// and follow edges through the foreign keys declared on those tables.
type User struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	Username  string `json:"username" gorm:"size:150;uniqueIndex;not null"`
	FirstName string `json:"first_name" gorm:"size:150"`
	LastName  string `json:"last_name" gorm:"size:150"`
	Email     string `json:"email" gorm:"size:254"`
	Password  string `json:"-"` // bcrypt hash; empty for Firebase-only accounts
	// FirebaseUID links the account to a Firebase identity. NULL for local accounts.
	FirebaseUID *string   `json:"-" gorm:"size:128;uniqueIndex"`
	CreatedAt   time.Time `json:"created_at"`
}

// FullName returns "First Last", falling back to the username.
func (u User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Username
}

type SignupForm struct {
	FirstName string `form:"first_name" validate:"max=150"`
	LastName  string `form:"last_name" validate:"max=150"`
	Username  string `form:"username" validate:"required,max=150,username"`
	Email     string `form:"email" validate:"omitempty,email"`
	Password1 string `form:"password1" validate:"required,min=8"`
	Password2 string `form:"password2" validate:"required,eqfield=Password1"`
}

type LoginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// SessionClaims are the claims carried by the session cookie.
type SessionClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
