package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// SessionPruner removes expired session records.
type SessionPruner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// NewSessionPruneHandler builds the handler for TaskTypeSessionPrune tasks.
func NewSessionPruneHandler(store SessionPruner, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		removed, err := store.DeleteExpired(ctx)
		if err != nil {
			return err
		}
		if removed > 0 {
			logger.Info("pruned expired sessions", slog.Int64("removed", removed))
		}
		return nil
	}
}
