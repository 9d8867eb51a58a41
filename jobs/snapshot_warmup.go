package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/odyssey-erp/salesflow/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const warmTimeout = 20 * time.Second

// SnapshotWarmer is the part of the process-flow service the warmup job drives.
type SnapshotWarmer interface {
	CompanyIDs(ctx context.Context) ([]int64, error)
	Warm(ctx context.Context, companyID int64) error
}

// SnapshotWarmupJob reloads company snapshots so API reads hit a warm cache.
type SnapshotWarmupJob struct {
	Warmer      SnapshotWarmer
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	Concurrency int
	clock       func() time.Time
}

// NewSnapshotWarmupJob wires dependencies for the warmup handler.
func NewSnapshotWarmupJob(warmer SnapshotWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics, concurrency int) *SnapshotWarmupJob {
	return &SnapshotWarmupJob{
		Warmer:      warmer,
		Logger:      logger,
		Metrics:     metrics,
		Concurrency: concurrency,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes snapshot warmup tasks.
func (j *SnapshotWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Warmer == nil {
		return errors.New("snapshot warmup: handler not configured")
	}
	var payload SnapshotWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("snapshot warmup payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	tracker := j.metrics().Track(TaskSnapshotWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	started := j.now()

	companies := payload.CompanyIDs
	if len(companies) == 0 {
		ids, err := j.Warmer.CompanyIDs(ctx)
		if err != nil {
			logger.Error("load warmup companies", slog.Any("error", err))
			return err
		}
		companies = ids
	}
	if len(companies) == 0 {
		logger.Info("no companies discovered for warmup")
		return nil
	}

	warmed, err := j.warmAll(ctx, companies)
	j.metrics().AddWarmed(warmed)
	logger.Info("completed snapshot warmup",
		slog.Int("companies", len(companies)),
		slog.Int("warmed", warmed),
		slog.Duration("duration", j.now().Sub(started)),
	)
	return err
}

func (j *SnapshotWarmupJob) warmAll(ctx context.Context, companies []int64) (int, error) {
	var (
		mu     sync.Mutex
		warmed int
		errs   []error
	)
	g := new(errgroup.Group)
	g.SetLimit(max(j.Concurrency, 1))
	for _, companyID := range companies {
		g.Go(func() error {
			warmCtx, cancel := context.WithTimeout(ctx, warmTimeout)
			defer cancel()

			err := j.Warmer.Warm(warmCtx, companyID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				j.logger().Error("warm company snapshot", slog.Int64("company_id", companyID), slog.Any("error", err))
				errs = append(errs, fmt.Errorf("company %d: %w", companyID, err))
				return nil
			}
			warmed++
			return nil
		})
	}
	_ = g.Wait()
	return warmed, errors.Join(errs...)
}

func (j *SnapshotWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSnapshotWarmup))
	}
	return slog.Default().With(slog.String("job", TaskSnapshotWarmup))
}

func (j *SnapshotWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *SnapshotWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
