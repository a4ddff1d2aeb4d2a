// Package logring provides the capped operational log shared by every
// component and surfaced through the lifecycle manager's status feed.
package logring

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"inferd/pkg/types"
)

// DefaultCapacity bounds the ring; oldest entries are dropped first.
const DefaultCapacity = 500

// Ring is an append-only log with a capacity cap and FIFO eviction.
// Appends are safe under concurrent writers.
type Ring struct {
	mu      sync.Mutex
	cap     int
	entries []types.ServerLog
}

// New returns a ring with the given capacity; values <= 0 use
// DefaultCapacity.
func New(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{cap: capacity}
}

// Append records one entry, evicting the oldest when full.
func (r *Ring) Append(sev types.LogSeverity, msg, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == r.cap {
		copy(r.entries, r.entries[1:])
		r.entries = r.entries[:r.cap-1]
	}
	r.entries = append(r.entries, types.ServerLog{
		Time:     time.Now(),
		Severity: sev,
		Message:  msg,
		Detail:   detail,
	})
}

// Info appends an INFO entry.
func (r *Ring) Info(msg, detail string) { r.Append(types.SeverityInfo, msg, detail) }

// Success appends a SUCCESS entry.
func (r *Ring) Success(msg, detail string) { r.Append(types.SeveritySuccess, msg, detail) }

// Warning appends a WARNING entry.
func (r *Ring) Warning(msg, detail string) { r.Append(types.SeverityWarning, msg, detail) }

// Error appends an ERROR entry.
func (r *Ring) Error(msg, detail string) { r.Append(types.SeverityError, msg, detail) }

// Snapshot returns a copy of the current entries, oldest first.
func (r *Ring) Snapshot() []types.ServerLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.ServerLog, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len reports the current entry count.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Hook mirrors zerolog events into a Ring so structured logs and the status
// feed stay in sync.
type Hook struct {
	Ring *Ring
}

// Run implements zerolog.Hook.
func (h Hook) Run(_ *zerolog.Event, level zerolog.Level, message string) {
	if h.Ring == nil || message == "" {
		return
	}
	switch {
	case level >= zerolog.ErrorLevel:
		h.Ring.Error(message, "")
	case level == zerolog.WarnLevel:
		h.Ring.Warning(message, "")
	default:
		h.Ring.Info(message, "")
	}
}
