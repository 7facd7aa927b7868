package workers

import (
	"context"
	"log"
	"time"

	"byteGiftAPI/internal/metrics"
)

// SnapshotPurger deletes share snapshots past their expiry.
type SnapshotPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// BoardReaper closes live boards that have had no clients for too long.
type BoardReaper interface {
	ReapIdle(ctx context.Context) int
}

// StartCleanupWorker starts a background routine that removes expired
// snapshots and idle live boards every interval until ctx is cancelled.
func StartCleanupWorker(ctx context.Context, interval time.Duration, purger SnapshotPurger, reaper BoardReaper) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				Cleanup(ctx, purger, reaper)
			}
		}
	}()
}

// Cleanup runs one sweep.
func Cleanup(ctx context.Context, purger SnapshotPurger, reaper BoardReaper) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if purger != nil {
		n, err := purger.PurgeExpired(ctx)
		if err != nil {
			log.Printf("Error purging expired shares: %v", err)
		} else if n > 0 {
			metrics.SharesExpired.Add(float64(n))
			log.Printf("Deleted %d expired shares", n)
		}
	}

	if reaper != nil {
		if n := reaper.ReapIdle(ctx); n > 0 {
			log.Printf("Closed %d idle boards", n)
		}
	}
}
