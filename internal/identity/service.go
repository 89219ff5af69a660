// Package identity implements user accounts: signup, login, bearer tokens and user management.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bissquit/account-garden/internal/domain"
	"github.com/bissquit/account-garden/internal/pkg/ctxlog"
	"github.com/bissquit/account-garden/internal/pkg/metrics"
	"github.com/bissquit/account-garden/internal/pkg/validation"
)

// Token is an issued bearer token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Authenticator issues and validates bearer tokens.
type Authenticator interface {
	IssueToken(user *domain.User) (*Token, error)
	ValidateToken(token string) (domain.Identity, error)
}

// Service implements account business logic.
type Service struct {
	repo      Repository
	auth      Authenticator
	validator *validation.Validator
}

// NewService creates a new identity service.
// auth may be nil when bearer tokens are not used.
func NewService(repo Repository, auth Authenticator) *Service {
	return &Service{
		repo:      repo,
		auth:      auth,
		validator: validation.New(),
	}
}

// Signup registers a new account with the user role.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*domain.User, error) {
	if err := s.validator.Struct(req); err != nil {
		recordAttempt("signup", err)
		return nil, err
	}

	user, err := s.createUser(ctx, req.Name, req.Email, req.Password, domain.RoleUser)
	recordAttempt("signup", err)
	if err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Info("user signed up", "user_id", user.ID)
	return user, nil
}

// CreateUser creates an account on behalf of an administrator.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (*domain.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	role := domain.RoleUser
	if req.Role != "" {
		role = domain.Role(req.Role)
	}

	return s.createUser(ctx, req.Name, req.Email, req.Password, role)
}

// EnsureAdmin creates an admin account unless the email is already registered.
// The returned bool reports whether a new account was created.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) (*domain.User, bool, error) {
	existing, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err == nil {
		existing.PasswordHash = ""
		return existing, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, fmt.Errorf("lookup admin: %w", err)
	}

	user, err := s.CreateUser(ctx, CreateUserRequest{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     string(domain.RoleAdmin),
	})
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *Service) createUser(ctx context.Context, name, email, password string, role domain.Role) (*domain.User, error) {
	email = normalizeEmail(email)

	_, err := s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailExists
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("check existing email: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

// Login verifies credentials and returns the account without its hash.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*domain.User, error) {
	if err := s.validator.Struct(req); err != nil {
		recordAttempt("login", err)
		return nil, err
	}

	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Spend the same hashing time as a real comparison.
			CheckPassword(dummyHash(), req.Password)
			recordAttempt("login", ErrInvalidCredentials)
			return nil, ErrInvalidCredentials
		}
		recordAttempt("login", err)
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	if !CheckPassword(user.PasswordHash, req.Password) {
		recordAttempt("login", ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	recordAttempt("login", nil)
	user.PasswordHash = ""
	return user, nil
}

// IssueToken issues a bearer token for user.
func (s *Service) IssueToken(_ context.Context, user *domain.User) (*Token, error) {
	if s.auth == nil {
		return nil, errors.New("token authentication is not configured")
	}
	token, err := s.auth.IssueToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// ValidateToken implements httputil.TokenValidator.
func (s *Service) ValidateToken(_ context.Context, token string) (domain.Identity, error) {
	if s.auth == nil {
		return domain.Identity{}, ErrInvalidToken
	}
	return s.auth.ValidateToken(token)
}

// GetUser returns the account with the given id.
func (s *Service) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// ListUsers returns all accounts, newest first.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.repo.ListUsers(ctx)
}

// UpdateUser changes name and email of the account id on behalf of actor.
// The new email must not belong to another account.
func (s *Service) UpdateUser(ctx context.Context, actor domain.Identity, id int64, req UpdateUserRequest) (*domain.User, error) {
	if !actor.CanManage(id) {
		return nil, ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:    id,
		Name:  strings.TrimSpace(req.Name),
		Email: normalizeEmail(req.Email),
	}
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Info("user updated", "user_id", id, "actor_id", actor.UserID)
	return user, nil
}

// DeleteUser removes the account id on behalf of actor.
func (s *Service) DeleteUser(ctx context.Context, actor domain.Identity, id int64) (*domain.UserSummary, error) {
	if !actor.CanManage(id) {
		return nil, ErrForbidden
	}

	summary, err := s.repo.DeleteUser(ctx, id)
	if err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Info("user deleted", "user_id", id, "actor_id", actor.UserID)
	return summary, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var (
	dummyHashOnce  sync.Once
	dummyHashValue string
)

func dummyHash() string {
	dummyHashOnce.Do(func() {
		// Error only possible for passwords over 72 bytes.
		dummyHashValue, _ = HashPassword("account-garden-dummy!")
	})
	return dummyHashValue
}

func recordAttempt(operation string, err error) {
	result := "success"
	switch {
	case err == nil:
	case errors.Is(err, validation.ErrInvalid):
		result = "invalid_input"
	case errors.Is(err, ErrEmailExists):
		result = "conflict"
	case errors.Is(err, ErrInvalidCredentials):
		result = "invalid_credentials"
	default:
		result = "error"
	}
	metrics.AuthAttempts.WithLabelValues(operation, result).Inc()
}
