package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeAuditPrune removes audit entries older than the retention window.
	TaskTypeAuditPrune = "audit:prune"
	// TaskTypePendingDigest reports accounts still waiting for approval.
	TaskTypePendingDigest = "users:pending_digest"
	// TaskTypeSessionPrune removes expired login session records.
	TaskTypeSessionPrune = "sessions:prune"
)

// AuditPrunePayload carries the retention window for a prune run.
type AuditPrunePayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewAuditPruneTask constructs an audit prune task.
func NewAuditPruneTask(payload AuditPrunePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAuditPrune, data), nil
}

// NewPendingDigestTask constructs a pending accounts digest task.
func NewPendingDigestTask() *asynq.Task {
	return asynq.NewTask(TaskTypePendingDigest, nil)
}

// NewSessionPruneTask constructs a session prune task.
func NewSessionPruneTask() *asynq.Task {
	return asynq.NewTask(TaskTypeSessionPrune, nil)
}
