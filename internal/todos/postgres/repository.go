// Package postgres provides PostgreSQL implementation of the todo repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/account-garden/internal/domain"
	"github.com/bissquit/account-garden/internal/todos"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements the todos.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateTodo inserts a todo and fills its generated fields.
func (r *Repository) CreateTodo(ctx context.Context, todo *domain.Todo) error {
	query := `
		INSERT INTO todos (task)
		VALUES ($1)
		RETURNING id, completed, created_at
	`
	err := r.db.QueryRow(ctx, query, todo.Task).Scan(&todo.ID, &todo.Completed, &todo.CreatedAt)
	if err != nil {
		return fmt.Errorf("create todo: %w", err)
	}
	return nil
}

// GetTodo retrieves a todo by id.
func (r *Repository) GetTodo(ctx context.Context, id int64) (*domain.Todo, error) {
	query := `
		SELECT id, task, completed, created_at
		FROM todos
		WHERE id = $1
	`
	var todo domain.Todo
	err := r.db.QueryRow(ctx, query, id).Scan(&todo.ID, &todo.Task, &todo.Completed, &todo.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, todos.ErrTodoNotFound
		}
		return nil, fmt.Errorf("get todo: %w", err)
	}
	return &todo, nil
}

// ListTodos retrieves all todos, newest first.
func (r *Repository) ListTodos(ctx context.Context) ([]domain.Todo, error) {
	query := `
		SELECT id, task, completed, created_at
		FROM todos
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}

	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Todo, error) {
		var todo domain.Todo
		err := row.Scan(&todo.ID, &todo.Task, &todo.Completed, &todo.CreatedAt)
		return todo, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan todos: %w", err)
	}
	if list == nil {
		list = []domain.Todo{}
	}
	return list, nil
}

// UpdateTodo stores task and completed for an existing todo.
func (r *Repository) UpdateTodo(ctx context.Context, todo *domain.Todo) error {
	query := `
		UPDATE todos
		SET task = $2, completed = $3
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query, todo.ID, todo.Task, todo.Completed)
	if err != nil {
		return fmt.Errorf("update todo: %w", err)
	}
	if result.RowsAffected() == 0 {
		return todos.ErrTodoNotFound
	}
	return nil
}

// DeleteTodo removes a todo.
func (r *Repository) DeleteTodo(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM todos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	if result.RowsAffected() == 0 {
		return todos.ErrTodoNotFound
	}
	return nil
}
