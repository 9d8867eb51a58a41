package processflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/singleflight"
)

// ErrInvalidCompany is returned for a missing or non-positive company id.
var ErrInvalidCompany = errors.New("processflow: invalid company")

// Recorder receives snapshot and registry events for metrics.
type Recorder interface {
	SnapshotLoaded(source string, err error)
	UnknownStatus(status string)
}

// Service loads company snapshots and answers process-flow queries on them.
type Service struct {
	repo      Repository
	cache     *Cache
	logger    *slog.Logger
	metrics   Recorder
	taskLimit int
	loads     singleflight.Group
}

// NewService wires a Repository with a Cache helper. taskLimit caps the
// urgent task list when the caller does not pass a limit.
func NewService(repo Repository, cache *Cache, logger *slog.Logger, metrics Recorder, taskLimit int) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		cache:     cache,
		logger:    logger.With(slog.String("component", "processflow")),
		metrics:   metrics,
		taskLimit: taskLimit,
	}
}

// Snapshot returns the entity snapshot of a company. Concurrent callers for
// the same company share one load.
func (s *Service) Snapshot(ctx context.Context, companyID int64) (*Snapshot, error) {
	if companyID <= 0 {
		return nil, ErrInvalidCompany
	}
	key := strconv.FormatInt(companyID, 10)
	resultChan := s.loads.DoChan(key, func() (interface{}, error) {
		return s.loadSnapshot(context.WithoutCancel(ctx), companyID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

func (s *Service) loadSnapshot(ctx context.Context, companyID int64) (*Snapshot, error) {
	var loaded *Snapshot
	var loadErr error
	loader := func(ctx context.Context) (*Snapshot, error) {
		snap, err := s.repo.LoadSnapshot(ctx, companyID)
		s.recordLoad("database", err)
		if err != nil {
			loadErr = fmt.Errorf("load snapshot for company %d: %w", companyID, err)
			return nil, loadErr
		}
		loaded = snap
		return snap, nil
	}

	snap, hit, err := s.cache.FetchSnapshot(ctx, companyID, loader)
	switch {
	case err == nil:
		if hit {
			s.recordLoad("cache", nil)
		}
		return snap, nil
	case loadErr != nil:
		return nil, loadErr
	}
	// Redis failures degrade to an uncached read.
	s.recordLoad("cache", err)
	s.logger.Warn("snapshot cache unavailable", slog.Int64("company_id", companyID), slog.Any("error", err))
	if loaded != nil {
		return loaded, nil
	}
	return loader(ctx)
}

func (s *Service) recordLoad(source string, err error) {
	if s.metrics != nil {
		s.metrics.SnapshotLoaded(source, err)
	}
}

// State computes the process-flow state of the deal selected by q.
func (s *Service) State(ctx context.Context, companyID int64, q Query) (State, error) {
	snap, err := s.Snapshot(ctx, companyID)
	if err != nil {
		return State{}, err
	}
	state := Compute(snap, q)
	if state.UnknownStatus && state.Quotation != nil {
		s.logger.Warn("quotation status has no registered action",
			slog.Int64("company_id", companyID),
			slog.String("quotation_id", state.Quotation.ID),
			slog.String("status", string(state.Quotation.Status)),
		)
		if s.metrics != nil {
			s.metrics.UnknownStatus(string(state.Quotation.Status))
		}
	}
	return state, nil
}

// Timeline returns the activity history of the deal selected by q, newest first.
func (s *Service) Timeline(ctx context.Context, companyID int64, q Query) ([]Activity, error) {
	snap, err := s.Snapshot(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return CollectTimeline(Resolve(snap, q)), nil
}

// UrgentTasks derives the company's urgent tasks, drops acknowledged ids and
// caps the result at limit, or at the configured default when limit <= 0.
func (s *Service) UrgentTasks(ctx context.Context, companyID int64, acknowledged map[string]struct{}, limit int) ([]Task, error) {
	snap, err := s.Snapshot(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.taskLimit
	}
	tasks := FilterAcknowledged(DeriveUrgentTasks(snap.Quotations, snap.SalesOrders, 0), acknowledged)
	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}

// Pipeline returns the per-customer stage overview of a company.
func (s *Service) Pipeline(ctx context.Context, companyID int64) (PipelineOverview, error) {
	snap, err := s.Snapshot(ctx, companyID)
	if err != nil {
		return PipelineOverview{}, err
	}
	return Overview(snap), nil
}

// Refresh invalidates the cached snapshot of a company.
func (s *Service) Refresh(ctx context.Context, companyID int64) error {
	if companyID <= 0 {
		return ErrInvalidCompany
	}
	if err := s.cache.Bump(ctx, companyID); err != nil {
		return fmt.Errorf("bump snapshot version: %w", err)
	}
	s.logger.Info("snapshot invalidated", slog.Int64("company_id", companyID))
	return nil
}

// Warm invalidates and reloads the snapshot of a company.
func (s *Service) Warm(ctx context.Context, companyID int64) error {
	if err := s.Refresh(ctx, companyID); err != nil {
		return err
	}
	_, err := s.Snapshot(ctx, companyID)
	return err
}

// CompanyIDs lists the companies with process-flow data.
func (s *Service) CompanyIDs(ctx context.Context) ([]int64, error) {
	return s.repo.ListCompanyIDs(ctx)
}
