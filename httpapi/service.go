package httpapi

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/xtevenx/sjudge/store"
)

// RepositoryAuthService authenticates against store.UserRepository,
// hashing with bcrypt.
type RepositoryAuthService struct {
	users store.UserRepository
}

func NewRepositoryAuthService(users store.UserRepository) *RepositoryAuthService {
	return &RepositoryAuthService{users: users}
}

func (s *RepositoryAuthService) Authenticate(username, password string) (AuthenticatedUser, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return AuthenticatedUser{}, ErrInvalidCredentials
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	u, err := s.users.FindByUsername(ctx, username)
	if err != nil || u == nil {
		return AuthenticatedUser{}, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return AuthenticatedUser{}, ErrInvalidCredentials
	}
	return AuthenticatedUser{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}, nil
}
