package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stockprompt/internal/domain"
	"stockprompt/internal/infra"
	"stockprompt/internal/sqlinline"
)

// PGHistory stores records in the generation_history table.
type PGHistory struct {
	sql infra.SQLExecutor
	now func() time.Time
}

func NewPGHistory(sql infra.SQLExecutor) *PGHistory {
	return &PGHistory{sql: sql, now: time.Now}
}

// EnsureSchema creates the history table when it does not exist.
func (h *PGHistory) EnsureSchema(ctx context.Context) error {
	for _, q := range []string{sqlinline.QCreateHistoryTable, sqlinline.QCreateHistoryIndex} {
		if _, err := h.sql.Exec(ctx, q); err != nil {
			return fmt.Errorf("storage: ensure history schema: %w", err)
		}
	}
	return nil
}

func (h *PGHistory) Save(ctx context.Context, rec Record) (Record, error) {
	rec, err := prepare(rec, h.now())
	if err != nil {
		return Record{}, err
	}
	if _, err := h.sql.Exec(ctx, sqlinline.QInsertHistory,
		rec.ID, rec.Kind, rec.Query, rec.ItemCount, []byte(rec.Payload), rec.CreatedAt); err != nil {
		return Record{}, fmt.Errorf("storage: insert history: %w", err)
	}
	return rec, nil
}

func (h *PGHistory) Get(ctx context.Context, id string) (Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Record{}, domain.ErrNotFound
	}
	var (
		rec     Record
		payload []byte
	)
	row := h.sql.QueryRow(ctx, sqlinline.QSelectHistoryByID, id)
	if err := row.Scan(&rec.ID, &rec.Kind, &rec.Query, &rec.ItemCount, &payload, &rec.CreatedAt); err != nil {
		if infra.IsNoRows(err) {
			return Record{}, domain.ErrNotFound
		}
		return Record{}, fmt.Errorf("storage: select history: %w", err)
	}
	rec.Payload = payload
	return rec, nil
}

func (h *PGHistory) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	rows, err := h.sql.Query(ctx, sqlinline.QListHistory, opts.Kind, opts.limit())
	if err != nil {
		return nil, fmt.Errorf("storage: list history: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Query, &rec.ItemCount, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan history: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate history: %w", err)
	}
	return out, nil
}

var _ HistoryStore = (*PGHistory)(nil)
