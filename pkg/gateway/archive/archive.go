// Package archive persists completed turns to Postgres. It is optional:
// a nil *Archive is a no-op, so the gateway runs fine without a DSN.
package archive

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Archive struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to Postgres and applies pending migrations.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Archive, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: open: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: ping: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("turn archive ready")
	return &Archive{db: db, logger: logger}, nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("archive: set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("archive: migrate: %w", err)
	}
	return nil
}

// newWithDB is the test seam; it skips connect and migrate.
func newWithDB(db *sql.DB, logger *slog.Logger) *Archive {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archive{db: db, logger: logger}
}

// Record describes one completed turn.
type Record struct {
	SessionID  string
	TurnID     string
	Transcript string
	Reply      string
	Rounds     int
	ToolCalls  int
	DurationMs int64
}

// RecordTurn stores one completed turn. Errors are returned, not
// retried; callers treat archiving as best-effort.
func (a *Archive) RecordTurn(ctx context.Context, rec Record) error {
	if a == nil {
		return nil
	}
	const q = `INSERT INTO turns (session_id, turn_id, transcript, reply, rounds, tool_calls, duration_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := a.db.ExecContext(ctx, q,
		rec.SessionID, rec.TurnID, rec.Transcript, rec.Reply,
		rec.Rounds, rec.ToolCalls, rec.DurationMs)
	if err != nil {
		return fmt.Errorf("archive: insert turn %s: %w", rec.TurnID, err)
	}
	return nil
}

// TurnCount reports how many turns a session has archived.
func (a *Archive) TurnCount(ctx context.Context, sessionID string) (int, error) {
	if a == nil {
		return 0, nil
	}
	var n int
	err := a.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM turns WHERE session_id = $1`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("archive: count turns: %w", err)
	}
	return n, nil
}

func (a *Archive) Close() error {
	if a == nil {
		return nil
	}
	return a.db.Close()
}
