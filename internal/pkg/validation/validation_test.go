package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type account struct {
	Name     string `json:"name" validate:"required,min=3,max=30,personname"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,specialchar,nefield=Email"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

func TestValidator_Messages(t *testing.T) {
	v := New()

	err := v.Struct(account{
		Name:     "R2 D2",
		Email:    "droid",
		Password: "beep",
		Role:     "root",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)

	assert.Equal(t, []FieldError{
		{Field: "name", Message: "Name must only contain letters and spaces"},
		{Field: "email", Message: "Email must be a valid email address"},
		{Field: "password", Message: "Password must be at least 6 characters long"},
		{Field: "role", Message: "Role must be one of: user, admin"},
	}, Fields(err))
	assert.Equal(t, "Name must only contain letters and spaces", err.Error())
}

func TestValidator_Valid(t *testing.T) {
	v := New()

	assert.NoError(t, v.Struct(account{Name: "Mary Jane", Email: "mj@example.com", Password: "Secret1!"}))
}

func TestValidator_PasswordMatchesEmail(t *testing.T) {
	v := New()

	err := v.Struct(account{Name: "Mary", Email: "m!j@x.io", Password: "m!j@x.io"})
	require.Error(t, err)
	fields := Fields(err)
	require.Len(t, fields, 1)
	assert.Equal(t, "Password cannot be the same as email", fields[0].Message)
}

func TestValidator_NonStruct(t *testing.T) {
	err := New().Struct("plain string")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalid))
	assert.Nil(t, Fields(err))
}
