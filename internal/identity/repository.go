package identity

import (
	"context"

	"github.com/bissquit/account-garden/internal/domain"
)

// Repository defines the interface for user account persistence.
// Email uniqueness is enforced by the store: CreateUser and UpdateUser return ErrEmailExists.
type Repository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	// GetUserByEmail is the only lookup that returns the password hash.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	// ListUsers returns users newest first.
	ListUsers(ctx context.Context) ([]domain.User, error)
	// UpdateUser updates name and email and refreshes the remaining fields of user.
	UpdateUser(ctx context.Context, user *domain.User) error
	DeleteUser(ctx context.Context, id int64) (*domain.UserSummary, error)
}
