package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/amparo-app/amparo/internal/audit"
)

// NewAuditPruneHandler builds the handler for TaskTypeAuditPrune tasks.
func NewAuditPruneHandler(service *audit.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload AuditPrunePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.RetentionDays <= 0 {
			return asynq.SkipRetry
		}
		retention := time.Duration(payload.RetentionDays) * 24 * time.Hour
		removed, err := service.PruneOlderThan(ctx, retention)
		if err != nil {
			return err
		}
		logger.Info("pruned audit entries",
			slog.Int("retention_days", payload.RetentionDays),
			slog.Int64("removed", removed))
		return nil
	}
}
