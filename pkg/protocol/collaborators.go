package protocol

import (
	"context"
	"time"

	"github.com/scriptflow/scriptflow/pkg/models"
)

// EnvironmentSubstituter rewrites suite source before execution. The
// dispatcher does not know about environments; it only calls the hook when
// one is configured.
type EnvironmentSubstituter interface {
	Substitute(text string) (string, error)
}

// Notification is the fire-and-forget payload sent after a run. Delivery
// failures never affect the reported run result.
type Notification struct {
	SuiteID       string           `json:"suite_id,omitempty"`
	PipelineID    string           `json:"pipeline_id,omitempty"`
	Status        models.RunStatus `json:"status"`
	ExecutionTime time.Duration    `json:"execution_time"`
	ErrorMessage  string           `json:"error_message,omitempty"`
}

// Notifier delivers run notifications.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}
