package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/amparo-app/amparo/internal/authz"
	"github.com/amparo-app/amparo/internal/users"
)

// NewPendingDigestHandler builds the handler for TaskTypePendingDigest tasks.
// The digest surfaces accounts stuck in the approval queue so administrators
// notice them without polling the user list.
func NewPendingDigestHandler(service *users.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		_, total, err := service.List(ctx, authz.StatusPending, 0, 1)
		if err != nil {
			return err
		}
		if total == 0 {
			return nil
		}
		logger.Info("accounts awaiting approval", slog.Int("pending", total))
		return nil
	}
}
