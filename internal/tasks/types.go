package tasks

import (
	"context"
	"time"

	"github.com/abusaleh34/secure-cas-commercial/internal/logging"
)

// TaskFunc is the unit of background work (rule refresh, inactive-user
// sweep). The logger stores its output in the task's log buffer so operators
// can inspect past runs.
type TaskFunc func(ctx context.Context, logger logging.InternalLogger) error

type TaskStatus struct {
	Name       string    `json:"name,omitempty"`
	Running    bool      `json:"running,omitempty"`
	LastRun    time.Time `json:"last_run"`
	LastResult string    `json:"last_result,omitempty"`
	NextRun    time.Time `json:"next_run"`
}

type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level,omitempty"`
	Message string    `json:"message,omitempty"`
}
