// Package scheduler runs the periodic exam-status sweep.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/qazedu/examcenter/internal/store"
)

// Run sweeps the exam table on every tick, flipping active exams whose
// window has closed to inactive. The sweep is idempotent, so an exam
// already flipped is a no-op. Blocks until ctx is cancelled.
func Run(ctx context.Context, s *store.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	slog.Info("status sweep started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("status sweep stopped")
			return
		case now := <-ticker.C:
			n, err := s.DeactivateFinishedExams(now)
			if err != nil {
				slog.Error("status sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("deactivated finished exams", "count", n)
			}
		}
	}
}
