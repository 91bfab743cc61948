package noop

import (
	"context"
	"sync"

	"tradejournal/pkg/errors"
)

// Tracker is a no-op implementation of the error tracker.
// Used when SENTRY_DSN is not configured.
type Tracker struct{}

// New creates a new no-op tracker
func New() *Tracker {
	return &Tracker{}
}

func (t *Tracker) CaptureError(ctx context.Context, err error, tags map[string]string) error {
	return nil
}

func (t *Tracker) CaptureMessage(ctx context.Context, message string, level errors.Level, tags map[string]string) error {
	return nil
}

func (t *Tracker) SetUser(ctx context.Context, userID string, email string, username string) {}

func (t *Tracker) AddBreadcrumb(ctx context.Context, message string, category string, level errors.Level, data map[string]interface{}) {
}

func (t *Tracker) Flush(ctx context.Context) error {
	return nil
}

// Captured is one error recorded by Recorder
type Captured struct {
	Err  error
	Tags map[string]string
}

// Recorder keeps captured errors in memory so tests can assert on them
type Recorder struct {
	Tracker

	mu       sync.Mutex
	captured []Captured
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// CaptureError records the error instead of dropping it
func (r *Recorder) CaptureError(ctx context.Context, err error, tags map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captured = append(r.captured, Captured{Err: err, Tags: tags})
	return nil
}

// Errors returns a snapshot of everything captured so far
func (r *Recorder) Errors() []Captured {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Captured, len(r.captured))
	copy(out, r.captured)
	return out
}

var (
	_ errors.Tracker = (*Tracker)(nil)
	_ errors.Tracker = (*Recorder)(nil)
)
