package identity

// SignupRequest is the self-service registration payload.
type SignupRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=30,personname"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=6,max=30,specialchar,nefield=Email"`
}

// LoginRequest is the credential payload for signin.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateUserRequest is the admin payload for creating an account with an explicit role.
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=30,personname"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=6,max=30,specialchar,nefield=Email"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

// UpdateUserRequest changes the mutable profile fields.
type UpdateUserRequest struct {
	Name  string `json:"name" validate:"required,min=3,max=30,personname"`
	Email string `json:"email" validate:"required,email,max=100"`
}
