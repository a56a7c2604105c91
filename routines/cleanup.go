package routines

import (
	"context"
	"time"

	"github.com/CorrelAid/form_upload_processor/operations"
	"go.uber.org/zap"
)

// StartCleanupRoutine sweeps once right away and then on every tick until ctx
// is done.
func StartCleanupRoutine(ctx context.Context, store *operations.Store, interval time.Duration, logger *zap.SugaredLogger) {
	cleanupRoutine(store, time.Now(), logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			cleanupRoutine(store, now, logger)
		}
	}
}

// cleanupRoutine deletes expired submissions together with their stored files.
func cleanupRoutine(store *operations.Store, now time.Time, logger *zap.SugaredLogger) int {
	expired, err := store.Expired(now)
	if err != nil {
		logger.Errorw("Listing expired submissions failed", "err", err)
		return 0
	}

	deleted := 0
	for _, submission := range expired {
		if err := operations.RemoveUpload(submission.UploadedFilePath); err != nil {
			logger.Warnw("Removing stored upload failed", "path", submission.UploadedFilePath, "err", err)
		}
		if err := store.DeleteSubmission(submission); err != nil {
			logger.Errorw("Deleting submission failed", "acknowledgment_id", submission.AcknowledgmentID, "err", err)
			continue
		}
		deleted++
		logger.Infow("Deleted expired submission", "acknowledgment_id", submission.AcknowledgmentID)
	}
	return deleted
}
