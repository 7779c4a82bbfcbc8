package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/tasktracker/internal/model"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrGateway       = errors.New("gateway error")
	ErrInconsistency = errors.New("stats inconsistency")
)

// InconsistencyError - задача удалена, а счетчик не увеличен.
// Оператор сверяет stats с таблицей tasks по TaskID.
type InconsistencyError struct {
	TaskID uuid.UUID
	Task   model.Task
	Err    error
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("stats inconsistency: task %s removed but counter not incremented: %v", e.TaskID, e.Err)
}

func (e *InconsistencyError) Is(target error) bool {
	return target == ErrInconsistency
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
