package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/BuzzLyutic/tasktracker/internal/model"
)

// SQLiteGateway - локальный шлюз для разработки без Postgres
type SQLiteGateway struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteGateway(path string) (*SQLiteGateway, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Один писатель: SQLite все равно сериализует запись
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteGateway{db: db, now: time.Now}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL CHECK (title <> ''),
			duration INTEGER NOT NULL CHECK (duration >= 0),
			tags TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create table tasks: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS stats (
			id TEXT PRIMARY KEY,
			completed_tasks INTEGER NOT NULL DEFAULT 0 CHECK (completed_tasks >= 0)
		)`)
	if err != nil {
		return fmt.Errorf("create table stats: %w", err)
	}
	return nil
}

func (g *SQLiteGateway) InsertTask(ctx context.Context, t model.Task) (model.Task, error) {
	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return t, err
	}
	t.ID = uuid.New()
	t.CreatedAt = g.now().UTC()

	_, err = g.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, duration, tags, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, t.ID.String(), t.Title, t.Duration, string(tags), t.CreatedAt.UnixNano())
	return t, mapSQLiteError(err)
}

func (g *SQLiteGateway) SelectTasks(ctx context.Context) ([]model.Task, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT id, title, duration, tags, created_at
		FROM tasks
		ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, mapSQLiteError(rows.Err())
}

func (g *SQLiteGateway) SelectTask(ctx context.Context, id uuid.UUID) (model.Task, error) {
	row := g.db.QueryRowContext(ctx, `
		SELECT id, title, duration, tags, created_at
		FROM tasks
		WHERE id = ?
	`, id.String())
	t, err := scanSQLiteTask(row)
	return t, mapSQLiteError(err)
}

func (g *SQLiteGateway) DeleteTask(ctx context.Context, id uuid.UUID) (model.Task, error) {
	row := g.db.QueryRowContext(ctx, `
		DELETE FROM tasks
		WHERE id = ?
		RETURNING id, title, duration, tags, created_at
	`, id.String())
	t, err := scanSQLiteTask(row)
	return t, mapSQLiteError(err)
}

func (g *SQLiteGateway) SelectStats(ctx context.Context, id string) (model.Stats, error) {
	var s model.Stats
	err := g.db.QueryRowContext(ctx, `
		SELECT completed_tasks FROM stats WHERE id = ?
	`, id).Scan(&s.CompletedTasks)
	return s, mapSQLiteError(err)
}

func (g *SQLiteGateway) InsertStats(ctx context.Context, id string, s model.Stats) (model.Stats, error) {
	_, err := g.db.ExecContext(ctx, `
		INSERT INTO stats (id, completed_tasks) VALUES (?, ?)
		ON CONFLICT (id) DO NOTHING
	`, id, s.CompletedTasks)
	if err != nil {
		return s, mapSQLiteError(err)
	}
	return g.SelectStats(ctx, id)
}

func (g *SQLiteGateway) IncrementStats(ctx context.Context, id string, delta int64) (model.Stats, error) {
	var s model.Stats
	err := g.db.QueryRowContext(ctx, `
		UPDATE stats
		SET completed_tasks = completed_tasks + ?
		WHERE id = ?
		RETURNING completed_tasks
	`, delta, id).Scan(&s.CompletedTasks)
	return s, mapSQLiteError(err)
}

func (g *SQLiteGateway) ResetStats(ctx context.Context, id string, value int64) (model.Stats, error) {
	var s model.Stats
	err := g.db.QueryRowContext(ctx, `
		INSERT INTO stats (id, completed_tasks) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET completed_tasks = excluded.completed_tasks
		RETURNING completed_tasks
	`, id, value).Scan(&s.CompletedTasks)
	return s, mapSQLiteError(err)
}

func (g *SQLiteGateway) Ping(ctx context.Context) error {
	return g.db.PingContext(ctx)
}

func (g *SQLiteGateway) Close() {
	g.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTask(row rowScanner) (model.Task, error) {
	var (
		t         model.Task
		id, tags  string
		createdAt int64
	)
	if err := row.Scan(&id, &t.Title, &t.Duration, &tags, &createdAt); err != nil {
		return t, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return t, fmt.Errorf("parse task id %q: %w", id, err)
	}
	t.ID = parsed
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return t, fmt.Errorf("decode tags of task %s: %w", id, err)
	}
	t.CreatedAt = time.Unix(0, createdAt).UTC()
	return t, nil
}

func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrorNotFound
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return ErrorConflict
		case sqlite3.SQLITE_CONSTRAINT_CHECK, sqlite3.SQLITE_CONSTRAINT_NOTNULL:
			return ErrorConstraint
		}
	}
	return err
}
