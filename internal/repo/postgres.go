package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/tasktracker/internal/model"
)

const taskColumns = "id, title, duration, tags, created_at"

type PostgresGateway struct { // Шлюз к управляемому Postgres
	pool *pgxpool.Pool
}

func NewPostgresGateway(pool *pgxpool.Pool) *PostgresGateway {
	return &PostgresGateway{
		pool: pool,
	}
}

// ConnectPostgres открывает пул и проверяет соединение
func ConnectPostgres(ctx context.Context, dsn string) (*PostgresGateway, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return NewPostgresGateway(pool), nil
}

func (g *PostgresGateway) InsertTask(ctx context.Context, t model.Task) (model.Task, error) {
	row := g.pool.QueryRow(ctx, `
		INSERT INTO tasks (title, duration, tags)
		VALUES ($1, $2, $3)
		RETURNING `+taskColumns,
		t.Title, t.Duration, t.Tags)
	created, err := scanTask(row)
	return created, mapError(err)
}

func (g *PostgresGateway) SelectTasks(ctx context.Context) ([]model.Task, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		ORDER BY created_at DESC, seq DESC
	`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, mapError(rows.Err())
}

func (g *PostgresGateway) SelectTask(ctx context.Context, id uuid.UUID) (model.Task, error) {
	row := g.pool.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1
	`, id)
	t, err := scanTask(row)
	return t, mapError(err)
}

// DeleteTask удаляет строку и возвращает ее прежнее состояние.
// Повторное удаление того же id дает ErrorNotFound.
func (g *PostgresGateway) DeleteTask(ctx context.Context, id uuid.UUID) (model.Task, error) {
	row := g.pool.QueryRow(ctx, `
		DELETE FROM tasks
		WHERE id = $1
		RETURNING `+taskColumns, id)
	t, err := scanTask(row)
	return t, mapError(err)
}

func (g *PostgresGateway) SelectStats(ctx context.Context, id string) (model.Stats, error) {
	var s model.Stats
	err := g.pool.QueryRow(ctx, `
		SELECT completed_tasks FROM stats WHERE id = $1
	`, id).Scan(&s.CompletedTasks)
	return s, mapError(err)
}

func (g *PostgresGateway) InsertStats(ctx context.Context, id string, s model.Stats) (model.Stats, error) {
	// При конфликте возвращаем уже существующую запись
	err := g.pool.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO stats (id, completed_tasks) VALUES ($1, $2)
			ON CONFLICT (id) DO NOTHING
			RETURNING completed_tasks
		)
		SELECT completed_tasks FROM inserted
		UNION ALL
		SELECT completed_tasks FROM stats WHERE id = $1
		LIMIT 1
	`, id, s.CompletedTasks).Scan(&s.CompletedTasks)
	return s, mapError(err)
}

// IncrementStats - атомарный инкремент на стороне БД, без чтения значения клиентом
func (g *PostgresGateway) IncrementStats(ctx context.Context, id string, delta int64) (model.Stats, error) {
	var s model.Stats
	err := g.pool.QueryRow(ctx, `
		UPDATE stats
		SET completed_tasks = completed_tasks + $2
		WHERE id = $1
		RETURNING completed_tasks
	`, id, delta).Scan(&s.CompletedTasks)
	return s, mapError(err)
}

func (g *PostgresGateway) ResetStats(ctx context.Context, id string, value int64) (model.Stats, error) {
	var s model.Stats
	err := g.pool.QueryRow(ctx, `
		INSERT INTO stats (id, completed_tasks) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET completed_tasks = EXCLUDED.completed_tasks
		RETURNING completed_tasks
	`, id, value).Scan(&s.CompletedTasks)
	return s, mapError(err)
}

func (g *PostgresGateway) Ping(ctx context.Context) error {
	return g.pool.Ping(ctx)
}

func (g *PostgresGateway) Close() {
	g.pool.Close()
}

func scanTask(row pgx.Row) (model.Task, error) {
	var t model.Task
	err := row.Scan(&t.ID, &t.Title, &t.Duration, &t.Tags, &t.CreatedAt)
	return t, err
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrorNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrorConflict
		case "23514":
			return ErrorConstraint
		}
	}
	return err
}
