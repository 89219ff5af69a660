package todos

import "strings"

// CreateTodoRequest is the body of POST /api/todos and the /todos form.
type CreateTodoRequest struct {
	Task string `json:"task" validate:"required,max=255"`
}

// UpdateTodoRequest is the body of PATCH /api/todos/{id}. Nil fields are left unchanged.
type UpdateTodoRequest struct {
	Task      *string `json:"task,omitempty" validate:"omitempty,min=1,max=255"`
	Completed *bool   `json:"completed,omitempty"`
}

func (r *CreateTodoRequest) normalize() {
	r.Task = strings.TrimSpace(r.Task)
}

func (r *UpdateTodoRequest) normalize() {
	if r.Task != nil {
		task := strings.TrimSpace(*r.Task)
		r.Task = &task
	}
}
