package model

import (
	"time"

	"github.com/google/uuid"
)

// StatsID - ключ единственной записи статистики
const StatsID = "default"

// DefaultTag проставляется задаче без тегов
const DefaultTag = "general"

type Task struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Duration  int64     `json:"duration"` // секунды
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTask - тело запроса на создание. Длительность приходит в минутах.
type NewTask struct {
	Title    *string  `json:"title"`
	Duration *float64 `json:"duration"`
	Tags     []string `json:"tags"`
}

type Stats struct {
	CompletedTasks int64 `json:"completed_tasks"`
}

type Completion struct {
	Task           Task  `json:"task"`
	CompletedTasks int64 `json:"completed_tasks"`
}
