package memstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/quill-api/quill/internal/audit"
	"github.com/quill-api/quill/internal/shared"
)

// Audit captures audit entries and serves them back as a timeline.
type Audit struct {
	mu      sync.Mutex
	entries []shared.AuditLog
	Now     func() time.Time
}

// Record stores the entry.
func (a *Audit) Record(_ context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if log.At.IsZero() {
		log.At = a.now()
	}
	a.entries = append(a.entries, log)
	return nil
}

// Entries returns a copy of the recorded entries.
func (a *Audit) Entries() []shared.AuditLog {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]shared.AuditLog(nil), a.entries...)
}

// Window mirrors the SQL timeline query: newest first, filters applied, half-open time range.
func (a *Audit) Window(_ context.Context, f audit.TimelineFilters, limit, offset int) ([]audit.TimelineRow, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var rows []audit.TimelineRow
	for i, e := range a.entries {
		switch {
		case !f.From.IsZero() && e.At.Before(f.From):
			continue
		case !f.To.IsZero() && !e.At.Before(f.To):
			continue
		case f.ActorID != 0 && e.ActorID != f.ActorID:
			continue
		case f.Entity != "" && e.Entity != f.Entity:
			continue
		case f.Action != "" && e.Action != f.Action:
			continue
		}
		rows = append(rows, audit.TimelineRow{
			ID:       int64(i + 1),
			At:       e.At,
			ActorID:  e.ActorID,
			Action:   e.Action,
			Entity:   e.Entity,
			EntityID: e.EntityID,
			Meta:     e.Meta,
		})
	}
	slices.Reverse(rows)
	if offset >= len(rows) {
		return nil, nil
	}
	return rows[offset:min(offset+limit, len(rows))], nil
}

func (a *Audit) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}
