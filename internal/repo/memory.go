package repo

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/tasktracker/internal/model"
)

// MemoryGateway хранит данные в памяти процесса. Каждая операция атомарна
// под общим мьютексом, как отдельный запрос к настоящей БД.
type MemoryGateway struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]memoryTask
	stats map[string]int64
	seq   int64
	now   func() time.Time
}

type memoryTask struct {
	task model.Task
	seq  int64
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		tasks: make(map[uuid.UUID]memoryTask),
		stats: make(map[string]int64),
		now:   time.Now,
	}
}

func (g *MemoryGateway) InsertTask(ctx context.Context, t model.Task) (model.Task, error) {
	if err := ctx.Err(); err != nil {
		return t, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if t.Title == "" || t.Duration < 0 {
		return t, ErrorConstraint
	}

	g.seq++
	t.ID = uuid.New()
	t.CreatedAt = g.now().UTC()
	t.Tags = slices.Clone(t.Tags)
	g.tasks[t.ID] = memoryTask{task: t, seq: g.seq}
	return cloneTask(t), nil
}

func (g *MemoryGateway) SelectTasks(ctx context.Context) ([]model.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	rows := make([]memoryTask, 0, len(g.tasks))
	for _, row := range g.tasks {
		rows = append(rows, row)
	}
	slices.SortFunc(rows, func(a, b memoryTask) int {
		if c := b.task.CreatedAt.Compare(a.task.CreatedAt); c != 0 {
			return c
		}
		return int(b.seq - a.seq)
	})

	tasks := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, cloneTask(row.task))
	}
	return tasks, nil
}

func (g *MemoryGateway) SelectTask(ctx context.Context, id uuid.UUID) (model.Task, error) {
	if err := ctx.Err(); err != nil {
		return model.Task{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	row, ok := g.tasks[id]
	if !ok {
		return model.Task{}, ErrorNotFound
	}
	return cloneTask(row.task), nil
}

func (g *MemoryGateway) DeleteTask(ctx context.Context, id uuid.UUID) (model.Task, error) {
	if err := ctx.Err(); err != nil {
		return model.Task{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	row, ok := g.tasks[id]
	if !ok {
		return model.Task{}, ErrorNotFound
	}
	delete(g.tasks, id)
	return row.task, nil
}

func (g *MemoryGateway) SelectStats(ctx context.Context, id string) (model.Stats, error) {
	if err := ctx.Err(); err != nil {
		return model.Stats{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	v, ok := g.stats[id]
	if !ok {
		return model.Stats{}, ErrorNotFound
	}
	return model.Stats{CompletedTasks: v}, nil
}

func (g *MemoryGateway) InsertStats(ctx context.Context, id string, s model.Stats) (model.Stats, error) {
	if err := ctx.Err(); err != nil {
		return s, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if v, ok := g.stats[id]; ok {
		return model.Stats{CompletedTasks: v}, nil
	}
	if s.CompletedTasks < 0 {
		return s, ErrorConstraint
	}
	g.stats[id] = s.CompletedTasks
	return s, nil
}

func (g *MemoryGateway) IncrementStats(ctx context.Context, id string, delta int64) (model.Stats, error) {
	if err := ctx.Err(); err != nil {
		return model.Stats{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	v, ok := g.stats[id]
	if !ok {
		return model.Stats{}, ErrorNotFound
	}
	if v+delta < 0 {
		return model.Stats{CompletedTasks: v}, ErrorConstraint
	}
	g.stats[id] = v + delta
	return model.Stats{CompletedTasks: v + delta}, nil
}

func (g *MemoryGateway) ResetStats(ctx context.Context, id string, value int64) (model.Stats, error) {
	if err := ctx.Err(); err != nil {
		return model.Stats{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if value < 0 {
		return model.Stats{}, ErrorConstraint
	}
	g.stats[id] = value
	return model.Stats{CompletedTasks: value}, nil
}

func (g *MemoryGateway) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (g *MemoryGateway) Close() {}

func cloneTask(t model.Task) model.Task {
	t.Tags = slices.Clone(t.Tags)
	return t
}
