package ordersync

import (
	"context"
	"time"
)

// Checkpoint is the recorded outcome of the latest scheduled pull of one
// source.
type Checkpoint struct {
	Source     string      `json:"source"`
	RunID      string      `json:"run_id"`
	Since      time.Time   `json:"since"`
	Until      time.Time   `json:"until"`
	FinishedAt time.Time   `json:"finished_at"`
	OK         bool        `json:"ok"`
	Error      string      `json:"error,omitempty"`
	Report     *PullReport `json:"report,omitempty"`
	// LastSuccess is the finish time of the latest pull that did not fail.
	LastSuccess time.Time `json:"last_success"`
}

// CheckpointStore keeps one checkpoint per source. Load returns nil, nil
// for sources never pulled.
type CheckpointStore interface {
	Save(ctx context.Context, cp *Checkpoint) error
	Load(ctx context.Context, source string) (*Checkpoint, error)
	// TryLock claims source for ttl. ok is false while another process
	// holds it.
	TryLock(ctx context.Context, source string, ttl time.Duration) (release func(), ok bool, err error)
}

// NewCheckpoint records report and err on top of prev.
func NewCheckpoint(prev *Checkpoint, source string, report *PullReport, err error, now time.Time) *Checkpoint {
	cp := &Checkpoint{Source: source, FinishedAt: now, OK: err == nil, Report: report}
	if prev != nil {
		cp.LastSuccess = prev.LastSuccess
	}
	if report != nil {
		cp.RunID = report.RunID
		cp.Since = report.Window.Since
		cp.Until = report.Window.Until
	}
	if err != nil {
		cp.Error = err.Error()
	} else {
		cp.LastSuccess = now
	}
	return cp
}
