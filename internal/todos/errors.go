package todos

import "errors"

// Repository errors.
var (
	ErrTodoNotFound = errors.New("todo not found")
)
