package contestqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	contestservice "github.com/Black-And-White-Club/hydro/app/modules/contest/application"
	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	"github.com/Black-And-White-Club/hydro/internal/observability/attr"
	"github.com/riverqueue/river"
)

// Recalculator runs a full status recalculation.
type Recalculator interface {
	RecalcStatus(ctx context.Context, k documentdomain.DocKey) (contestservice.RecalcResult, error)
}

// ErrNotBound is returned by a worker that has no Recalculator yet.
var ErrNotBound = errors.New("contest recalc worker has no recalculator bound")

// RecalcWorker executes RecalcContestArgs jobs.
type RecalcWorker struct {
	river.WorkerDefaults[RecalcContestArgs]

	logger *slog.Logger
	recalc atomic.Pointer[Recalculator]
}

// NewRecalcWorker creates a worker. Bind must be called before jobs run.
func NewRecalcWorker(logger *slog.Logger) *RecalcWorker {
	return &RecalcWorker{logger: logger}
}

// Bind sets the recalculator the worker delegates to.
func (w *RecalcWorker) Bind(r Recalculator) { w.recalc.Store(&r) }

// Work runs one recalculation.
func (w *RecalcWorker) Work(ctx context.Context, job *river.Job[RecalcContestArgs]) error {
	r := w.recalc.Load()
	if r == nil {
		return ErrNotBound
	}
	ref := job.Args.Ref()
	res, err := (*r).RecalcStatus(ctx, ref.Key())
	if err != nil {
		var notFound *contestservice.ContestNotFoundError
		if errors.As(err, &notFound) {
			w.logger.WarnContext(ctx, "Contest deleted before recalculation ran",
				attr.DomainID(ref.DomainID),
				attr.DocID("tid", string(ref.ContestID)),
				attr.Int64("job_id", job.ID),
			)
			return river.JobCancel(err)
		}
		return fmt.Errorf("recalc contest %s: %w", ref.Key(), err)
	}
	w.logger.InfoContext(ctx, "Contest recalculation job completed",
		attr.DomainID(ref.DomainID),
		attr.DocID("tid", string(ref.ContestID)),
		attr.Int64("job_id", job.ID),
		attr.Int("applied", res.Applied),
		attr.Int("skipped", res.Skipped),
	)
	return nil
}
