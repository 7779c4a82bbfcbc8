package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/tasktracker/internal/metrics"
	"github.com/BuzzLyutic/tasktracker/internal/model"
	"github.com/BuzzLyutic/tasktracker/internal/repo"
)

type TaskService struct {
	gw      repo.Gateway
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewTaskService(gw repo.Gateway, logger *zap.Logger, m *metrics.Metrics) *TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	return &TaskService{gw: gw, logger: logger, metrics: m}
}

// List возвращает все задачи, новые первыми
func (s *TaskService) List(ctx context.Context) ([]model.Task, error) {
	tasks, err := s.gw.SelectTasks(ctx)
	if err != nil {
		return nil, s.gatewayError("select_tasks", err)
	}
	return tasks, nil
}

func (s *TaskService) Add(ctx context.Context, req model.NewTask) (model.Task, error) {
	t, err := normalize(req) // Валидация до любых обращений к хранилищу
	if err != nil {
		return t, err
	}

	created, err := s.gw.InsertTask(ctx, t)
	if err != nil {
		return created, s.gatewayError("insert_task", err)
	}
	s.metrics.TasksCreated.Inc()
	return created, nil
}

// Delete удаляет задачу без учета в статистике и возвращает ее прежнее состояние
func (s *TaskService) Delete(ctx context.Context, id uuid.UUID) (model.Task, error) {
	if _, err := s.lookup(ctx, id); err != nil {
		return model.Task{}, err
	}

	task, err := s.gw.DeleteTask(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrorNotFound) {
			return task, ErrNotFound
		}
		return task, s.gatewayError("delete_task", err, zap.Stringer("task_id", id))
	}
	s.metrics.TasksDeleted.Inc()
	return task, nil
}

// Complete удаляет задачу и увеличивает счетчик завершенных.
// Удаление служит барьером от двойного учета: из двух параллельных
// завершений одной задачи второе получит ErrNotFound до инкремента.
func (s *TaskService) Complete(ctx context.Context, id uuid.UUID) (model.Completion, error) {
	if _, err := s.lookup(ctx, id); err != nil {
		return model.Completion{}, err
	}

	task, err := s.gw.DeleteTask(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrorNotFound) {
			return model.Completion{}, ErrNotFound
		}
		return model.Completion{}, s.gatewayError("delete_task", err, zap.Stringer("task_id", id))
	}

	// Задача уже удалена: отмена запроса не должна оборвать инкремент
	stats, err := s.incrementCompleted(context.WithoutCancel(ctx))
	if err != nil {
		s.metrics.Inconsistencies.Inc()
		s.metrics.GatewayErrors.WithLabelValues("increment_stats").Inc()
		s.logger.Error("task removed but completed counter not incremented",
			zap.String("op", "complete_task"),
			zap.Stringer("task_id", id),
			zap.String("title", task.Title),
			zap.Error(err),
		)
		return model.Completion{Task: task}, &InconsistencyError{TaskID: id, Task: task, Err: err}
	}

	s.metrics.TasksCompleted.Inc()
	return model.Completion{Task: task, CompletedTasks: stats.CompletedTasks}, nil
}

// Stats читает счетчик, создавая нулевую запись при первом обращении
func (s *TaskService) Stats(ctx context.Context) (model.Stats, error) {
	stats, err := s.gw.SelectStats(ctx, model.StatsID)
	if err == nil {
		return stats, nil
	}
	if !errors.Is(err, repo.ErrorNotFound) {
		return stats, s.gatewayError("select_stats", err)
	}

	stats, err = s.ensureStats(ctx)
	if err != nil {
		return stats, s.gatewayError("insert_stats", err)
	}
	return stats, nil
}

// ResetStats выставляет счетчик явно. Нужен для сверки после InconsistencyError.
func (s *TaskService) ResetStats(ctx context.Context, value int64) (model.Stats, error) {
	if value < 0 {
		return model.Stats{}, validationError("completed tasks must not be negative")
	}

	stats, err := s.gw.ResetStats(ctx, model.StatsID, value)
	if err != nil {
		return stats, s.gatewayError("reset_stats", err)
	}
	s.logger.Warn("completed counter reset", zap.Int64("completed_tasks", stats.CompletedTasks))
	return stats, nil
}

// Ping проверяет доступность хранилища
func (s *TaskService) Ping(ctx context.Context) error {
	if err := s.gw.Ping(ctx); err != nil {
		return s.gatewayError("ping", err)
	}
	return nil
}

func (s *TaskService) lookup(ctx context.Context, id uuid.UUID) (model.Task, error) {
	task, err := s.gw.SelectTask(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrorNotFound) {
			return task, ErrNotFound
		}
		return task, s.gatewayError("select_task", err, zap.Stringer("task_id", id))
	}
	return task, nil
}

// incrementCompleted увеличивает счетчик на стороне хранилища.
// Если записи еще нет, создает ее с нулем и повторяет инкремент.
func (s *TaskService) incrementCompleted(ctx context.Context) (model.Stats, error) {
	stats, err := s.gw.IncrementStats(ctx, model.StatsID, 1)
	if !errors.Is(err, repo.ErrorNotFound) {
		return stats, err
	}

	if _, err := s.ensureStats(ctx); err != nil {
		return stats, err
	}
	return s.gw.IncrementStats(ctx, model.StatsID, 1)
}

func (s *TaskService) ensureStats(ctx context.Context) (model.Stats, error) {
	stats, err := s.gw.InsertStats(ctx, model.StatsID, model.Stats{})
	if errors.Is(err, repo.ErrorNotFound) {
		// Запись вставлена параллельным запросом после начала нашего
		return s.gw.SelectStats(ctx, model.StatsID)
	}
	return stats, err
}

func (s *TaskService) gatewayError(op string, err error, fields ...zap.Field) error {
	s.metrics.GatewayErrors.WithLabelValues(op).Inc()
	s.logger.Error("gateway call failed", append(fields, zap.String("op", op), zap.Error(err))...)
	return fmt.Errorf("%w: %s: %v", ErrGateway, op, err)
}

func normalize(req model.NewTask) (model.Task, error) {
	var t model.Task

	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		return t, validationError("title is required")
	}
	if req.Duration == nil {
		return t, validationError("duration is required")
	}

	seconds, err := minutesToSeconds(*req.Duration)
	if err != nil {
		return t, err
	}

	t.Title = strings.TrimSpace(*req.Title)
	t.Duration = seconds
	t.Tags = normalizeTags(req.Tags)
	return t, nil
}

// minutesToSeconds: seconds = round(minutes * 60)
func minutesToSeconds(minutes float64) (int64, error) {
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return 0, validationError("duration must be a finite number")
	}
	if minutes < 0 {
		return 0, validationError("duration must not be negative")
	}

	seconds := math.Round(minutes * 60)
	if seconds >= math.MaxInt64 {
		return 0, validationError("duration is too large")
	}
	return int64(seconds), nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return []string{model.DefaultTag}
	}
	return out
}
