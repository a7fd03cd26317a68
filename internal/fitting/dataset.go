package fitting

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/cointoolbox/resspect/internal/domain"
	"github.com/cointoolbox/resspect/internal/domain/bazin"
	"github.com/cointoolbox/resspect/internal/platform/logger"
	"github.com/cointoolbox/resspect/internal/task"
	"github.com/google/uuid"
)

// Options configures FitDataset.
type Options struct {
	// Filters to fit, in feature order.
	Filters []string
	// Workers is the number of concurrent fits; values below 1 mean 1.
	Workers int
	// QueueSize bounds the number of pending fits.
	QueueSize int
	// MaxIterations bounds every Nelder-Mead run.
	MaxIterations int
}

// Report summarises a data set fit.
type Report struct {
	Total   int
	Fitted  int
	Skipped []string
}

// fitTask fits one light curve and hands the result to done.
type fitTask struct {
	id      uuid.UUID
	lc      *domain.LightCurve
	filters []string
	fitter  bazin.Fitter
	done    func(ObjectFit)
}

func (t *fitTask) ID() uuid.UUID { return t.id }
func (t *fitTask) Type() string  { return task.TaskTypeLightCurveFit }

func (t *fitTask) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fit, err := FitObject(t.fitter, t.lc, t.filters)
	if err != nil {
		return err
	}
	t.done(fit)
	return nil
}

// FitAll fits every light curve concurrently and returns the successful
// fits sorted by object ID. Objects that fail are listed in the report.
func FitAll(ctx context.Context, curves []*domain.LightCurve, opts Options) ([]ObjectFit, Report, error) {
	log := logger.FromContext(ctx).With("component", "fitting")
	report := Report{Total: len(curves)}

	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = 1
	}
	queue := task.NewTaskQueue(queueSize, log)
	pool := task.NewWorkerPool(ctx, queue, task.WorkerPoolConfig{WorkerCount: opts.Workers}, log)

	var mu sync.Mutex
	var fits []ObjectFit
	pool.SetErrorHandler(func(t task.Task, err error) {
		ft, ok := t.(*fitTask)
		if !ok {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		report.Skipped = append(report.Skipped, ft.lc.ID)
		log.Debug("object skipped", "id", ft.lc.ID, "error", err)
	})
	pool.Start()

	fitter := bazin.Fitter{MaxIterations: opts.MaxIterations}
	var enqueueErr error
	for _, lc := range curves {
		t := &fitTask{
			id:      uuid.New(),
			lc:      lc,
			filters: opts.Filters,
			fitter:  fitter,
			done: func(fit ObjectFit) {
				mu.Lock()
				defer mu.Unlock()
				fits = append(fits, fit)
			},
		}
		if err := queue.EnqueueWait(ctx, t); err != nil {
			enqueueErr = err
			break
		}
	}
	queue.Close()
	pool.Wait()

	if enqueueErr != nil {
		return nil, report, fmt.Errorf("queueing fits: %w", enqueueErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, report, err
	}

	sortFits(fits)
	domain.SortIDs(report.Skipped)
	report.Fitted = len(fits)
	log.Info("light curves fitted",
		slog.Int("total", report.Total),
		slog.Int("fitted", report.Fitted),
		slog.Int("skipped", len(report.Skipped)))
	return fits, report, nil
}

// FitDataset fits every light curve and builds the feature table.
func FitDataset(ctx context.Context, curves []*domain.LightCurve, opts Options) (*domain.FeatureTable, Report, error) {
	fits, report, err := FitAll(ctx, curves, opts)
	if err != nil {
		return nil, report, err
	}
	tbl := &domain.FeatureTable{
		FeatureNames: domain.FeatureNames(opts.Filters),
		Rows:         make([]domain.FeatureRow, 0, len(fits)),
	}
	for _, f := range fits {
		tbl.Rows = append(tbl.Rows, f.Row())
	}
	return tbl, report, nil
}

func sortFits(fits []ObjectFit) {
	slices.SortFunc(fits, func(a, b ObjectFit) int {
		return domain.CompareIDs(a.LightCurve.ID, b.LightCurve.ID)
	})
}
