package tasks

import (
	"context"
	"fmt"
	"time"
)

// newConversationCleanupTask creates the scheduled task that removes
// conversations with no activity inside the configured retention window.
func newConversationCleanupTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "conversation_cleanup")

	return func(ctx context.Context) error {
		retention := deps.Config.Scheduler.ConversationRetention
		cutoff := time.Now().Add(-retention)

		log.InfoContext(ctx, "Starting conversation cleanup", "retention", retention, "cutoff", cutoff)
		startTime := time.Now()

		removed, err := deps.Store.DeleteStaleConversations(ctx, cutoff)
		duration := time.Since(startTime)

		if err != nil {
			log.ErrorContext(ctx, "Conversation cleanup failed", "error", err, "duration", duration)
			return fmt.Errorf("conversation cleanup failed: %w", err)
		}

		log.InfoContext(ctx, "Conversation cleanup completed", "removed", removed, "duration", duration)
		return nil
	}
}
