package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Pruner deletes generated artifacts older than a cutoff.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

type OutputCleanupJob struct {
	pruner Pruner
	maxAge time.Duration
	now    func() time.Time
}

func NewOutputCleanupJob(pruner Pruner, maxAge time.Duration) *OutputCleanupJob {
	return &OutputCleanupJob{pruner: pruner, maxAge: maxAge, now: time.Now}
}

func (j *OutputCleanupJob) Name() string {
	return "output_cleanup"
}

func (j *OutputCleanupJob) Run(ctx context.Context) error {
	if j.pruner == nil || j.maxAge <= 0 {
		return nil
	}
	cutoff := j.now().Add(-j.maxAge)
	removed, err := j.pruner.Prune(ctx, cutoff)
	if removed > 0 {
		logutil.GetLogger(ctx).Info("expired outputs removed",
			zap.Int("count", removed),
			zap.Time("cutoff", cutoff),
		)
	}
	return err
}
