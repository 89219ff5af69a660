package web

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bissquit/account-garden/internal/domain"
	"github.com/bissquit/account-garden/internal/identity"
	"github.com/bissquit/account-garden/internal/todos"
)

type userStore struct {
	mu     sync.Mutex
	users  map[int64]domain.User
	nextID int64
}

func newUserStore() *userStore {
	return &userStore{users: make(map[int64]domain.User)}
}

func (s *userStore) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return identity.ErrEmailExists
		}
	}
	s.nextID++
	user.ID = s.nextID
	user.CreatedAt = time.Unix(1700000000+s.nextID, 0).UTC()
	s.users[user.ID] = *user
	return nil
}

func (s *userStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (s *userStore) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	u.PasswordHash = ""
	return &u, nil
}

func (s *userStore) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		u.PasswordHash = ""
		list = append(list, u)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list, nil
}

func (s *userStore) UpdateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.users[user.ID]
	if !ok {
		return identity.ErrUserNotFound
	}
	for _, u := range s.users {
		if u.Email == user.Email && u.ID != user.ID {
			return identity.ErrEmailExists
		}
	}
	stored.Name = user.Name
	stored.Email = user.Email
	s.users[user.ID] = stored
	user.Role = stored.Role
	user.CreatedAt = stored.CreatedAt
	return nil
}

func (s *userStore) DeleteUser(_ context.Context, id int64) (*domain.UserSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	delete(s.users, id)
	return &domain.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}, nil
}

type todoStore struct {
	mu     sync.Mutex
	todos  []domain.Todo
	nextID int64
}

func (s *todoStore) CreateTodo(_ context.Context, todo *domain.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	todo.ID = s.nextID
	s.todos = append([]domain.Todo{*todo}, s.todos...)
	return nil
}

func (s *todoStore) GetTodo(_ context.Context, id int64) (*domain.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.todos {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, todos.ErrTodoNotFound
}

func (s *todoStore) ListTodos(_ context.Context) ([]domain.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Todo{}, s.todos...), nil
}

func (s *todoStore) UpdateTodo(_ context.Context, todo *domain.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.todos {
		if t.ID == todo.ID {
			s.todos[i] = *todo
			return nil
		}
	}
	return todos.ErrTodoNotFound
}

func (s *todoStore) DeleteTodo(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.todos {
		if t.ID == id {
			s.todos = append(s.todos[:i], s.todos[i+1:]...)
			return nil
		}
	}
	return todos.ErrTodoNotFound
}
