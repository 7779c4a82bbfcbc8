package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/tasktracker/internal/model"
)

// Gateway определяет контракт внешнего хранилища с таблицами tasks и stats.
// Все изменения счетчика выполняются на стороне хранилища одной операцией.
type Gateway interface {
	InsertTask(ctx context.Context, t model.Task) (model.Task, error)
	SelectTasks(ctx context.Context) ([]model.Task, error)
	SelectTask(ctx context.Context, id uuid.UUID) (model.Task, error)
	DeleteTask(ctx context.Context, id uuid.UUID) (model.Task, error)

	SelectStats(ctx context.Context, id string) (model.Stats, error)
	InsertStats(ctx context.Context, id string, s model.Stats) (model.Stats, error)
	IncrementStats(ctx context.Context, id string, delta int64) (model.Stats, error)
	ResetStats(ctx context.Context, id string, value int64) (model.Stats, error)

	Ping(ctx context.Context) error
	Close()
}
