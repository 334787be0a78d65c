package infra

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// SQLExecutor is the query surface the history store depends on.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
}

var (
	markerRegexp = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

	ErrMissingMarker = errors.New("sql marker missing or invalid")
)

// SQLRunner executes marker-tagged statements against a pool. The marker is
// stripped before execution and attached to every log line.
type SQLRunner struct {
	Pool   *pgxpool.Pool
	Logger zerolog.Logger
}

func NewSQLRunner(pool *pgxpool.Pool, logger zerolog.Logger) *SQLRunner {
	return &SQLRunner{Pool: pool, Logger: logger}
}

func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	marker, stmt, err := extractMarker(query)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	start := time.Now()
	tag, err := r.Pool.Exec(ctx, stmt, args...)
	r.done(marker, "exec", start, err).Int64("rows", tag.RowsAffected()).Msg("sql")
	return tag, err
}

func (r *SQLRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	marker, stmt, err := extractMarker(query)
	if err != nil {
		return errorRow{err: err}
	}
	return loggingRow{row: r.Pool.QueryRow(ctx, stmt, args...), runner: r, marker: marker, start: time.Now()}
}

func (r *SQLRunner) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	marker, stmt, err := extractMarker(query)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := r.Pool.Query(ctx, stmt, args...)
	r.done(marker, "query", start, err).Msg("sql")
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SQLRunner) done(marker, op string, start time.Time, err error) *zerolog.Event {
	ev := r.Logger.Debug()
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		ev = r.Logger.Error().Err(err)
	}
	return ev.Str("marker", marker).Str("op", op).Dur("elapsed", time.Since(start))
}

type loggingRow struct {
	row    pgx.Row
	runner *SQLRunner
	marker string
	start  time.Time
}

func (l loggingRow) Scan(dest ...any) error {
	err := l.row.Scan(dest...)
	l.runner.done(l.marker, "query_row", l.start, err).Msg("sql")
	return err
}

type errorRow struct {
	err error
}

func (e errorRow) Scan(dest ...any) error {
	return e.err
}

// extractMarker splits the leading "--sql <uuid>" line from the statement.
func extractMarker(query string) (string, string, error) {
	first, rest, _ := strings.Cut(strings.TrimSpace(query), "\n")
	first = strings.TrimSpace(first)
	if !markerRegexp.MatchString(first) {
		return "", "", ErrMissingMarker
	}
	return strings.TrimPrefix(first, "--sql "), strings.TrimSpace(rest), nil
}

var _ SQLExecutor = (*SQLRunner)(nil)
