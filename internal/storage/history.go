package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"stockprompt/internal/domain"
)

// Record kinds written by the API.
const (
	KindKeywords  = "keywords"
	KindAnalysis  = "analysis"
	KindSynthesis = "synthesis"
	KindClone     = "clone"
)

const (
	historyPrefix       = "history"
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// Record is one saved generation result. List results omit Payload.
type Record struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Query     string          `json:"query"`
	ItemCount int             `json:"item_count"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewRecord marshals payload into a record ready to save.
func NewRecord(kind, query string, itemCount int, payload any) (Record, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Record{}, fmt.Errorf("storage: encode payload: %w", err)
	}
	return Record{Kind: kind, Query: query, ItemCount: itemCount, Payload: data}, nil
}

// ListOptions filters List. An empty Kind matches every record.
type ListOptions struct {
	Kind  string
	Limit int
}

func (o ListOptions) limit() int {
	switch {
	case o.Limit <= 0:
		return defaultHistoryLimit
	case o.Limit > maxHistoryLimit:
		return maxHistoryLimit
	default:
		return o.Limit
	}
}

// HistoryStore persists generation results. Get returns domain.ErrNotFound
// for unknown ids.
type HistoryStore interface {
	Save(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context, opts ListOptions) ([]Record, error)
}

// prepare assigns an id and timestamp when missing.
func prepare(rec Record, now time.Time) (Record, error) {
	rec.Kind = strings.TrimSpace(rec.Kind)
	if rec.Kind == "" {
		return Record{}, fmt.Errorf("%w: record kind is required", domain.ErrInvalidRequest)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	} else if _, err := uuid.Parse(rec.ID); err != nil {
		return Record{}, fmt.Errorf("%w: record id must be a uuid", domain.ErrInvalidRequest)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now.UTC()
	}
	if len(rec.Payload) == 0 {
		rec.Payload = json.RawMessage(`{}`)
	}
	return rec, nil
}

// FileHistory keeps one JSON document per record under history/.
type FileHistory struct {
	store *FileStore
	now   func() time.Time
}

func NewFileHistory(store *FileStore) *FileHistory {
	return &FileHistory{store: store, now: time.Now}
}

func (h *FileHistory) Save(ctx context.Context, rec Record) (Record, error) {
	rec, err := prepare(rec, h.now())
	if err != nil {
		return Record{}, err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return Record{}, fmt.Errorf("storage: encode record: %w", err)
	}
	if _, err := h.store.Write(ctx, historyKey(rec.ID), data); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (h *FileHistory) Get(ctx context.Context, id string) (Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Record{}, domain.ErrNotFound
	}
	data, err := h.store.Read(ctx, historyKey(id))
	if errors.Is(err, ErrKeyNotFound) {
		return Record{}, domain.ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("storage: decode record %s: %w", id, err)
	}
	return rec, nil
}

// List reads every record file; unreadable files are skipped.
func (h *FileHistory) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	keys, err := h.store.List(ctx, historyPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(keys))
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		data, err := h.store.Read(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		if opts.Kind != "" && rec.Kind != opts.Kind {
			continue
		}
		rec.Payload = nil
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit := opts.limit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func historyKey(id string) string {
	return historyPrefix + "/" + id + ".json"
}

var _ HistoryStore = (*FileHistory)(nil)
