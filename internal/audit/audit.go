// Package audit records who changed what in the admin surface. Entries are
// append-only; a failed audit write is logged and never fails the mutation
// that triggered it.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"teamdir.org/internal/access"
)

// Entry is one audit_log row. RowBefore and RowAfter are full JSON snapshots
// of the affected row; either may be empty for inserts and deletes.
type Entry struct {
	ID          int64           `json:"id"`
	ActorEmail  string          `json:"actor_email,omitempty"`
	ActionType  string          `json:"action_type"`
	ObjectTable string          `json:"object_table"`
	ObjectID    *int64          `json:"object_id,omitempty"`
	RowBefore   json.RawMessage `json:"row_before,omitempty"`
	RowAfter    json.RawMessage `json:"row_after,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	Message     string          `json:"message,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Store persists audit entries.
type Store interface {
	AppendAudit(ctx context.Context, e Entry) (Entry, error)
	ListAudit(ctx context.Context, limit int) ([]Entry, error)
}

// Recorder writes audit entries and echoes them to the structured log. The
// actor is resolved from the request principal in ctx.
type Recorder struct {
	store Store
	log   zerolog.Logger
}

func NewRecorder(store Store, log zerolog.Logger) *Recorder {
	return &Recorder{store: store, log: log}
}

// Record appends an entry. before and after are marshalled as row snapshots;
// pass nil to omit either side.
func (r *Recorder) Record(ctx context.Context, action, table string, objectID *int64, before, after any, message string) {
	r.RecordMeta(ctx, action, table, objectID, before, after, nil, message)
}

// RecordMeta is Record with free-form metadata attached to the entry.
func (r *Recorder) RecordMeta(ctx context.Context, action, table string, objectID *int64, before, after, metadata any, message string) {
	e := Entry{
		ActionType:  action,
		ObjectTable: table,
		ObjectID:    objectID,
		Message:     message,
	}
	if p, ok := access.PrincipalFromContext(ctx); ok {
		e.ActorEmail = p.Email()
	}
	if before != nil {
		if raw, err := json.Marshal(before); err == nil {
			e.RowBefore = raw
		}
	}
	if after != nil {
		if raw, err := json.Marshal(after); err == nil {
			e.RowAfter = raw
		}
	}
	if metadata != nil {
		if raw, err := json.Marshal(metadata); err == nil {
			e.Metadata = raw
		}
	}

	ev := r.log.Info().
		Str("action", action).
		Str("table", table).
		Str("actor", e.ActorEmail)
	if objectID != nil {
		ev = ev.Int64("object_id", *objectID)
	}
	ev.Msg("audit")

	if r.store == nil {
		return
	}
	if _, err := r.store.AppendAudit(ctx, e); err != nil {
		r.log.Error().Err(err).
			Str("action", action).
			Str("table", table).
			Msg("audit append failed")
	}
}

// Recent returns the newest entries for admin display.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if r.store == nil {
		return nil, nil
	}
	return r.store.ListAudit(ctx, limit)
}
