// Package jwt implements bearer token authentication with HS256-signed JWTs.
package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bissquit/account-garden/internal/domain"
	"github.com/bissquit/account-garden/internal/identity"
	gojwt "github.com/golang-jwt/jwt/v5"
)

const issuer = "account-garden"

// Config contains JWT settings.
type Config struct {
	SecretKey           string
	AccessTokenDuration time.Duration
}

// Claims are the JWT claims carried by an access token.
type Claims struct {
	UserID int64       `json:"id"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
	gojwt.RegisteredClaims
}

// Authenticator issues and validates access tokens. Tokens are stateless:
// they cannot be revoked and are never refreshed.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *gojwt.Parser
}

// Option customizes an Authenticator.
type Option func(*Authenticator)

// WithClock replaces time.Now for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		a.now = now
	}
}

// NewAuthenticator creates a new JWT authenticator.
func NewAuthenticator(cfg Config, opts ...Option) *Authenticator {
	a := &Authenticator{
		secret: []byte(cfg.SecretKey),
		ttl:    cfg.AccessTokenDuration,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.parser = gojwt.NewParser(
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithExpirationRequired(),
		gojwt.WithIssuer(issuer),
		gojwt.WithTimeFunc(a.now),
	)
	return a
}

// IssueToken signs a token for user that expires after the configured duration.
func (a *Authenticator) IssueToken(user *domain.User) (*identity.Token, error) {
	now := a.now()
	expiresAt := gojwt.NewNumericDate(now.Add(a.ttl))

	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: expiresAt,
		},
	}

	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &identity.Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt.Time,
	}, nil
}

// ValidateToken verifies signature and expiry and returns the embedded identity.
func (a *Authenticator) ValidateToken(tokenString string) (domain.Identity, error) {
	if tokenString == "" {
		return domain.Identity{}, identity.ErrTokenMissing
	}

	claims := &Claims{}
	token, err := a.parser.ParseWithClaims(tokenString, claims, func(_ *gojwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		if errors.Is(err, gojwt.ErrTokenExpired) {
			return domain.Identity{}, identity.ErrTokenExpired
		}
		return domain.Identity{}, fmt.Errorf("%w: %v", identity.ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == 0 || !claims.Role.IsValid() {
		return domain.Identity{}, identity.ErrInvalidToken
	}

	return domain.Identity{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}
