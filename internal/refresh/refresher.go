package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Makoshaa/kia/internal/client"
	"github.com/Makoshaa/kia/internal/models"
	"github.com/Makoshaa/kia/internal/monitoring"
	"github.com/Makoshaa/kia/internal/storage"
	"github.com/Makoshaa/kia/internal/transformer"
)

var (
	ErrNotTracked = errors.New("dashboard is not tracked")
	// ErrStale means a newer refresh of the same dashboard started meanwhile;
	// this cycle's result was discarded.
	ErrStale = errors.New("refresh superseded by a newer one")
)

// Refresher runs the fetch, normalize and apply cycle for every tracked
// dashboard, on a cron schedule for auto-refresh dashboards and on demand for
// all of them. Starting a cycle cancels the one still in flight for the same
// dashboard, and only the newest cycle may change its snapshot.
type Refresher struct {
	store       *storage.SnapshotStore
	transformer *transformer.Transformer
	sources     SourceFactory
	metrics     *monitoring.Metrics
	logger      *logrus.Logger
	interval    time.Duration
	cron        *cron.Cron
	now         func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	tracked map[string]*trackedDashboard
}

type trackedDashboard struct {
	dashboard models.Dashboard
	source    client.RecordSource
	entryID   cron.EntryID
	// in-flight cycle
	gen    uint64
	cancel context.CancelFunc
}

func New(store *storage.SnapshotStore, tr *transformer.Transformer, sources SourceFactory, metrics *monitoring.Metrics, logger *logrus.Logger, interval time.Duration) *Refresher {
	ctx, cancel := context.WithCancel(context.Background())
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &Refresher{
		store:       store,
		transformer: tr,
		sources:     sources,
		metrics:     metrics,
		logger:      logger,
		interval:    interval,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(logger))),
		),
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		tracked: make(map[string]*trackedDashboard),
	}
}

func (r *Refresher) Start() {
	r.logger.WithField("interval", r.interval.String()).Info("Starting dashboard refresher")
	r.cron.Start()
}

// Stop halts the schedule, cancels cycles in flight and waits for scheduled
// jobs to return.
func (r *Refresher) Stop() {
	r.logger.Info("Stopping dashboard refresher")
	r.cancel()

	r.mu.Lock()
	for _, t := range r.tracked {
		if t.cancel != nil {
			t.cancel()
		}
	}
	r.mu.Unlock()

	<-r.cron.Stop().Done()
}

// Track registers or replaces a dashboard. Auto-refresh dashboards are put on
// the schedule; the others refresh only through RefreshNow.
func (r *Refresher) Track(dashboard models.Dashboard) error {
	source, err := r.sources(dashboard)
	if err != nil {
		return fmt.Errorf("failed to build source: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.tracked[dashboard.ID]; ok {
		r.release(existing)
	}

	t := &trackedDashboard{dashboard: dashboard, source: source}
	if dashboard.AutoRefresh {
		id := dashboard.ID
		entryID, err := r.cron.AddFunc(fmt.Sprintf("@every %s", r.interval), func() {
			r.scheduledRefresh(id)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule refresh: %w", err)
		}
		t.entryID = entryID
	}
	r.tracked[dashboard.ID] = t

	r.logger.WithFields(logrus.Fields{
		"dashboard_id": dashboard.ID,
		"source_kind":  dashboard.SourceKind,
		"auto_refresh": dashboard.AutoRefresh,
	}).Info("Tracking dashboard")
	return nil
}

// Untrack removes a dashboard, cancels its refresh in flight and drops its
// snapshot.
func (r *Refresher) Untrack(dashboardID string) {
	r.mu.Lock()
	if t, ok := r.tracked[dashboardID]; ok {
		r.release(t)
		delete(r.tracked, dashboardID)
	}
	r.mu.Unlock()

	r.store.Drop(dashboardID)
	r.metrics.ForgetDashboard(dashboardID)
}

// release must be called with r.mu held.
func (r *Refresher) release(t *trackedDashboard) {
	if t.entryID != 0 {
		r.cron.Remove(t.entryID)
	}
	if t.cancel != nil {
		t.cancel()
	}
}

func (r *Refresher) IsTracked(dashboardID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tracked[dashboardID]
	return ok
}

// RefreshAll refreshes every tracked dashboard once, sequentially.
func (r *Refresher) RefreshAll(ctx context.Context) {
	r.mu.Lock()
	ids := make([]string, 0, len(r.tracked))
	for id := range r.tracked {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		if _, err := r.RefreshNow(ctx, id); err != nil {
			r.logger.WithError(err).WithField("dashboard_id", id).Warn("Initial refresh failed")
		}
	}
}

func (r *Refresher) scheduledRefresh(dashboardID string) {
	resp, err := r.RefreshNow(r.ctx, dashboardID)
	if err != nil {
		r.logger.WithError(err).WithField("dashboard_id", dashboardID).Warn("Scheduled refresh failed")
		return
	}
	r.logger.WithFields(logrus.Fields{
		"dashboard_id": dashboardID,
		"generation":   resp.Generation,
		"leads":        resp.Leads,
	}).Debug("Scheduled refresh applied")
}

// RefreshNow runs one cycle and waits for it. A fetch failure is recorded on
// the snapshot, keeping the previous leads, and returned.
func (r *Refresher) RefreshNow(ctx context.Context, dashboardID string) (models.RefreshResponse, error) {
	start := r.now()

	r.mu.Lock()
	t, ok := r.tracked[dashboardID]
	if !ok {
		r.mu.Unlock()
		return models.RefreshResponse{}, ErrNotTracked
	}
	if t.cancel != nil {
		t.cancel()
	}
	gen := r.store.Begin(dashboardID)
	cycleCtx, cancel := context.WithCancel(ctx)
	t.gen = gen
	t.cancel = cancel
	source := t.source
	r.mu.Unlock()

	defer func() {
		cancel()
		r.mu.Lock()
		if t.gen == gen {
			t.cancel = nil
		}
		r.mu.Unlock()
	}()

	logger := r.logger.WithFields(logrus.Fields{
		"dashboard_id": dashboardID,
		"generation":   gen,
	})

	records, err := source.FetchRecords(cycleCtx)
	if err != nil {
		finished := r.now()
		if !r.store.Fail(dashboardID, gen, err, finished) {
			r.metrics.ObserveRefresh(monitoring.ResultStale, finished.Sub(start))
			logger.WithError(err).Debug("Discarded failure of superseded refresh")
			return models.RefreshResponse{}, ErrStale
		}
		r.metrics.ObserveRefresh(monitoring.ResultFailure, finished.Sub(start))
		logger.WithError(err).Error("Dashboard refresh failed")
		return models.RefreshResponse{}, err
	}

	leads, report := r.transformer.NormalizeBatch(records)
	finished := r.now()
	if !r.store.Apply(dashboardID, gen, leads, &report, finished) {
		r.metrics.ObserveRefresh(monitoring.ResultStale, finished.Sub(start))
		logger.Debug("Discarded result of superseded refresh")
		return models.RefreshResponse{}, ErrStale
	}

	r.metrics.ObserveRefresh(monitoring.ResultSuccess, finished.Sub(start))
	r.metrics.ObserveSnapshot(dashboardID, len(leads), &report)

	logger.WithFields(logrus.Fields{
		"leads":         len(leads),
		"valid_records": report.Summary.ValidRecords,
		"quality_score": report.Summary.QualityScore,
	}).Info("Dashboard refreshed")

	return models.RefreshResponse{
		Status:      "success",
		DashboardID: dashboardID,
		Generation:  gen,
		Leads:       len(leads),
		ProcessedAt: finished.Format(time.RFC3339),
		Message:     fmt.Sprintf("Normalized %d leads", len(leads)),
		Quality:     report.Summary,
	}, nil
}
