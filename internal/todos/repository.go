package todos

import (
	"context"

	"github.com/bissquit/account-garden/internal/domain"
)

// Repository defines the interface for todo data access.
type Repository interface {
	CreateTodo(ctx context.Context, todo *domain.Todo) error
	GetTodo(ctx context.Context, id int64) (*domain.Todo, error)
	// ListTodos returns todos newest first.
	ListTodos(ctx context.Context) ([]domain.Todo, error)
	UpdateTodo(ctx context.Context, todo *domain.Todo) error
	DeleteTodo(ctx context.Context, id int64) error
}
