// Package todos implements the shared task list.
package todos

import (
	"context"

	"github.com/bissquit/account-garden/internal/domain"
	"github.com/bissquit/account-garden/internal/pkg/ctxlog"
	"github.com/bissquit/account-garden/internal/pkg/validation"
)

// Service implements todo business logic.
type Service struct {
	repo      Repository
	validator *validation.Validator
}

// NewService creates a new todo service.
func NewService(repo Repository) *Service {
	return &Service{
		repo:      repo,
		validator: validation.New(),
	}
}

// List returns all todos, newest first.
func (s *Service) List(ctx context.Context) ([]domain.Todo, error) {
	return s.repo.ListTodos(ctx)
}

// Get returns a single todo.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Todo, error) {
	return s.repo.GetTodo(ctx, id)
}

// Create adds a todo. The task is trimmed before validation.
func (s *Service) Create(ctx context.Context, req CreateTodoRequest) (*domain.Todo, error) {
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	todo := &domain.Todo{Task: req.Task}
	if err := s.repo.CreateTodo(ctx, todo); err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Debug("todo created", "todo_id", todo.ID)
	return todo, nil
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id int64, req UpdateTodoRequest) (*domain.Todo, error) {
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	todo, err := s.repo.GetTodo(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Task != nil {
		todo.Task = *req.Task
	}
	if req.Completed != nil {
		todo.Completed = *req.Completed
	}

	if err := s.repo.UpdateTodo(ctx, todo); err != nil {
		return nil, err
	}
	return todo, nil
}

// Delete removes a todo.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteTodo(ctx, id)
}
