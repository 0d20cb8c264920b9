package httpapi

import (
	"errors"
	"time"
)

// AuthenticatedUser is the principal handlers see after login.
type AuthenticatedUser struct {
	ID        int64
	Username  string
	Role      string
	CreatedAt time.Time
}

// ErrInvalidCredentials is returned when the username/password pair is wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService authenticates a username/password pair against storage.
type AuthService interface {
	Authenticate(username, password string) (AuthenticatedUser, error)
}
