// Package history keeps the in-memory log of issued commands. The log lives
// for one session and is never persisted.
package history

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	Processing Status = "processing"
	Completed  Status = "completed"
	Failed     Status = "error"
)

func (s Status) Terminal() bool {
	return s == Completed || s == Failed
}

type Record struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
	Response  string    `json:"response,omitempty"`
}

// NewRecord starts a record in the processing state. IDs are UUIDv7 so they
// sort in generation order.
func NewRecord(text string, now time.Time) Record {
	return Record{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Text:      text,
		CreatedAt: now,
		Status:    Processing,
	}
}

// Log is owned by a single writer; it does no locking of its own.
type Log struct {
	records []Record // oldest first
	index   map[string]int
}

func NewLog() *Log {
	return &Log{index: make(map[string]int)}
}

// Append puts r at the head of the log.
func (l *Log) Append(r Record) {
	l.index[r.ID] = len(l.records)
	l.records = append(l.records, r)
}

// Update moves a processing record to a terminal status. It reports false,
// leaving the log untouched, when the id is unknown, the status is not
// terminal, or the record was already finished.
func (l *Log) Update(id string, status Status, response string) bool {
	i, ok := l.index[id]
	if !ok || !status.Terminal() {
		return false
	}

	r := &l.records[i]
	if r.Status.Terminal() {
		return false
	}
	r.Status = status
	r.Response = response
	return true
}

func (l *Log) Get(id string) (Record, bool) {
	i, ok := l.index[id]
	if !ok {
		return Record{}, false
	}
	return l.records[i], true
}

func (l *Log) Len() int {
	return len(l.records)
}

// Snapshot returns a copy of the log, most recent first.
func (l *Log) Snapshot() []Record {
	out := slices.Clone(l.records)
	slices.Reverse(out)
	return out
}
