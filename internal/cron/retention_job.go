package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/mediadesk/mediadesk-backend/internal/reservations"
	"github.com/mediadesk/mediadesk-backend/pkg/logger"
	"github.com/mediadesk/mediadesk-backend/pkg/metrics"
)

const (
	retentionJobName       = "reservation-retention"
	defaultRetentionWindow = 1440 * time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RetentionSweeperParams configure the settled-reservation sweeper.
type RetentionSweeperParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository reservations.Repository
	Window     time.Duration
}

// RetentionSweeper deletes reservations whose loan is fully settled. A
// reservation qualifies once it was picked up, every checkout record it
// produced is returned, and the last return is older than the window.
// Reservations holding a checked_out record are never touched.
type RetentionSweeper struct {
	logg   *logger.Logger
	db     txRunner
	repo   reservations.Repository
	window time.Duration
	now    func() time.Time
}

// SweepResult reports one sweep pass.
type SweepResult struct {
	Cutoff   time.Time `json:"cutoff"`
	Eligible int       `json:"eligible"`
	Deleted  int       `json:"deleted"`
}

// NewRetentionSweeper builds the sweeper.
func NewRetentionSweeper(params RetentionSweeperParams) (*RetentionSweeper, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("reservations repository required")
	}
	window := params.Window
	if window <= 0 {
		window = defaultRetentionWindow
	}
	return &RetentionSweeper{
		logg:   params.Logger,
		db:     params.DB,
		repo:   params.Repository,
		window: window,
		now:    time.Now,
	}, nil
}

// Sweep finds settled reservations past the window and deletes them. With
// dryRun set it only counts what a real pass would remove.
func (s *RetentionSweeper) Sweep(ctx context.Context, dryRun bool) (*SweepResult, error) {
	cutoff := s.now().UTC().Add(-s.window)
	result := &SweepResult{Cutoff: cutoff}

	ids, err := s.repo.ListSettledBefore(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list settled reservations: %w", err)
	}
	result.Eligible = len(ids)
	if dryRun {
		return result, nil
	}

	// one transaction per reservation so a single failure does not
	// roll back the whole pass
	var errs error
	for _, id := range ids {
		err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			return s.repo.WithTx(tx).Purge(ctx, id)
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("purge reservation %s: %w", id, err))
			continue
		}
		result.Deleted++
	}
	return result, errs
}

// RetentionJobParams configure the scheduled retention job.
type RetentionJobParams struct {
	Logger  *logger.Logger
	Sweeper *RetentionSweeper
	Metrics *metrics.CronJobMetrics
	DryRun  bool
}

// NewRetentionJob wraps the sweeper as a cron job.
func NewRetentionJob(params RetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("retention sweeper required")
	}
	return &retentionJob{
		logg:    params.Logger,
		sweeper: params.Sweeper,
		metrics: params.Metrics,
		dryRun:  params.DryRun,
	}, nil
}

type retentionJob struct {
	logg    *logger.Logger
	sweeper *RetentionSweeper
	metrics *metrics.CronJobMetrics
	dryRun  bool
}

func (j *retentionJob) Name() string { return retentionJobName }

func (j *retentionJob) Run(ctx context.Context) error {
	result, err := j.sweeper.Sweep(ctx, j.dryRun)
	if result != nil {
		j.metrics.AddSwept(retentionJobName, int64(result.Deleted))
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"cutoff":   result.Cutoff,
			"eligible": result.Eligible,
			"deleted":  result.Deleted,
			"dry_run":  j.dryRun,
		})
		j.logg.Info(logCtx, "reservation retention sweep complete")
	}
	if err != nil {
		return fmt.Errorf("reservation retention: %w", err)
	}
	return nil
}
