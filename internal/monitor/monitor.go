// Package monitor schedules periodic evaluation of every enabled alert.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rewired-gh/iskwatch/internal/alerts"
	"github.com/rewired-gh/iskwatch/internal/logger"
	"github.com/rewired-gh/iskwatch/internal/metrics"
	"github.com/rewired-gh/iskwatch/internal/models"
	"github.com/rewired-gh/iskwatch/internal/notify"
)

// ErrCycleInProgress is returned by CheckAll while another cycle is running.
var ErrCycleInProgress = errors.New("check cycle already in progress")

// Provider returns the current top of book for one item in one region.
type Provider interface {
	GetBestPrices(ctx context.Context, itemID, regionID int64) (models.PriceSnapshot, error)
}

// Notifier renders a confirmed trigger.
type Notifier interface {
	Dispatch(ctx context.Context, t notify.Trigger, settings models.Settings) notify.Report
}

// Counter reports the size of a collection.
type Counter interface {
	Len() int
}

type Config struct {
	MaxConcurrency int
	CheckTimeout   time.Duration
	RecentWindow   time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 8,
		CheckTimeout:   30 * time.Second,
		RecentWindow:   24 * time.Hour,
	}
}

// Deps are the collaborators a Monitor drives.
type Deps struct {
	Store     *alerts.Store
	Provider  Provider
	Notifier  Notifier
	History   Counter
	Triggered Counter
}

// CheckResult is the outcome of checking one alert.
type CheckResult struct {
	AlertID   string         `json:"alertId"`
	ItemName  string         `json:"itemName"`
	Result    alerts.Result  `json:"result"`
	Decision  string         `json:"decision"`
	Report    *notify.Report `json:"report,omitempty"`
	CheckedAt time.Time      `json:"checkedAt"`
}

// CycleReport summarises one pass over the enabled alerts.
type CycleReport struct {
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"duration"`
	Checked    int           `json:"checked"`
	Fired      int           `json:"fired"`
	Suppressed int           `json:"suppressed"`
	NoData     int           `json:"noData"`
	Results    []CheckResult `json:"results"`
}

// Monitor owns the recurring timer. At most one ticker is armed and at most
// one cycle runs at a time; a tick that arrives mid-cycle is dropped.
type Monitor struct {
	store     *alerts.Store
	provider  Provider
	notifier  Notifier
	history   Counter
	triggered Counter
	config    Config
	now       func() time.Time

	inFlight atomic.Bool
	cycles   atomic.Int64
	skipped  atomic.Int64

	mu        sync.Mutex
	baseCtx   context.Context
	ticker    *time.Ticker
	stopLoop  context.CancelFunc
	interval  time.Duration
	lastCycle *CycleReport
}

func New(deps Deps, config Config) *Monitor {
	if config.MaxConcurrency < 1 {
		config.MaxConcurrency = 1
	}
	if config.CheckTimeout <= 0 {
		config.CheckTimeout = DefaultConfig().CheckTimeout
	}
	if config.RecentWindow <= 0 {
		config.RecentWindow = DefaultConfig().RecentWindow
	}
	return &Monitor{
		store:     deps.Store,
		provider:  deps.Provider,
		notifier:  deps.Notifier,
		history:   deps.History,
		triggered: deps.Triggered,
		config:    config,
		now:       time.Now,
	}
}

// Start runs one evaluation pass immediately and then arms the recurring
// timer at the interval from settings. Cycles run under ctx. Calling Start on
// a running monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.ticker != nil {
		m.mu.Unlock()
		return
	}
	m.baseCtx = ctx
	if m.interval <= 0 {
		m.interval = m.store.Settings().CheckInterval()
	}
	m.armLocked(m.interval)
	interval := m.interval
	m.mu.Unlock()

	logger.Info("Starting alert monitor (interval: %v)", interval)
	m.tick(ctx)
}

// Stop cancels the timer. Cycles already running finish and may still
// dispatch, but nothing re-arms the timer afterwards.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ticker == nil {
		return
	}
	m.disarmLocked()
	logger.Info("Alert monitor stopped")
}

// Running reports whether the recurring timer is armed.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ticker != nil
}

// Interval returns the current poll interval.
func (m *Monitor) Interval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.interval > 0 {
		return m.interval
	}
	return m.store.Settings().CheckInterval()
}

// SetInterval changes the poll interval. A running timer is cancelled and
// re-armed in one step, so exactly one ticker stays active and the next tick
// lands one full interval from now.
func (m *Monitor) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interval = d
	if m.ticker != nil {
		m.armLocked(d)
		logger.Info("Check interval changed to %v", d)
	}
}

// UpdateSettings applies patch through the store and re-arms the timer when
// the check interval changed.
func (m *Monitor) UpdateSettings(patch models.SettingsPatch) (models.Settings, error) {
	prev, next, err := m.store.UpdateSettings(patch)
	if err != nil {
		return prev, err
	}
	if next.CheckIntervalMs != prev.CheckIntervalMs {
		m.SetInterval(next.CheckInterval())
	}
	return next, nil
}

func (m *Monitor) armLocked(d time.Duration) {
	m.disarmLocked()
	loopCtx, cancel := context.WithCancel(m.baseCtx)
	t := time.NewTicker(d)
	m.ticker = t
	m.stopLoop = cancel
	go m.loop(loopCtx, t)
}

func (m *Monitor) disarmLocked() {
	if m.ticker == nil {
		return
	}
	m.ticker.Stop()
	m.stopLoop()
	m.ticker = nil
	m.stopLoop = nil
}

func (m *Monitor) loop(ctx context.Context, t *time.Ticker) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.mu.Lock()
			current := m.ticker == t
			base := m.baseCtx
			m.mu.Unlock()
			if !current {
				return
			}
			logger.Debug("Starting scheduled check cycle")
			m.tick(base)
		}
	}
}

// tick starts a cycle in the background unless one is already running.
func (m *Monitor) tick(ctx context.Context) {
	if !m.inFlight.CompareAndSwap(false, true) {
		m.skipped.Add(1)
		metrics.CyclesSkipped.Inc()
		logger.Debug("Previous check cycle still running, skipping tick")
		return
	}
	go func() {
		defer m.inFlight.Store(false)
		m.runCycle(ctx)
	}()
}

// CheckAll runs one cycle synchronously and returns its report.
func (m *Monitor) CheckAll(ctx context.Context) (CycleReport, error) {
	if !m.inFlight.CompareAndSwap(false, true) {
		return CycleReport{}, ErrCycleInProgress
	}
	defer m.inFlight.Store(false)
	return m.runCycle(ctx), nil
}

// CheckOne checks a single alert now, whether or not it is enabled. A non-nil
// snap is used instead of querying the provider.
func (m *Monitor) CheckOne(ctx context.Context, id string, snap *models.PriceSnapshot) (CheckResult, error) {
	a, err := m.store.Get(id)
	if err != nil {
		return CheckResult{}, err
	}
	return m.check(ctx, a, snap, true), nil
}

func (m *Monitor) runCycle(ctx context.Context) CycleReport {
	start := m.now()
	began := time.Now()
	list := m.store.Enabled()
	results := make([]CheckResult, len(list))

	// Every alert is checked; one failing check never cancels the others.
	var g errgroup.Group
	g.SetLimit(m.config.MaxConcurrency)
	for i, a := range list {
		g.Go(func() error {
			results[i] = m.safeCheck(ctx, a)
			return nil
		})
	}
	_ = g.Wait()

	report := CycleReport{
		StartedAt: start,
		Duration:  time.Since(began),
		Checked:   len(results),
		Results:   results,
	}
	for _, r := range results {
		switch {
		case r.Report != nil:
			report.Fired++
		case r.Result.Status == alerts.StatusSuppressed:
			report.Suppressed++
		case r.Result.Status == alerts.StatusNoData:
			report.NoData++
		}
	}

	m.cycles.Add(1)
	metrics.CyclesTotal.Inc()
	metrics.CycleDuration.Observe(report.Duration.Seconds())

	m.mu.Lock()
	m.lastCycle = &report
	m.mu.Unlock()

	logger.Info("Check cycle completed in %v: %d checked, %d fired, %d suppressed, %d without data",
		report.Duration, report.Checked, report.Fired, report.Suppressed, report.NoData)
	return report
}

func (m *Monitor) safeCheck(ctx context.Context, a models.Alert) (res CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Check of alert %s panicked: %v", a.ID, r)
			res = CheckResult{
				AlertID:   a.ID,
				ItemName:  a.DisplayName(),
				Result:    alerts.Invalid(fmt.Errorf("internal error: %v", r)),
				Decision:  alerts.DecisionDropped.String(),
				CheckedAt: m.now(),
			}
		}
	}()
	return m.check(ctx, a, nil, false)
}

func (m *Monitor) check(ctx context.Context, a models.Alert, snap *models.PriceSnapshot, manual bool) CheckResult {
	res := m.evaluate(ctx, a, snap)
	now := m.now()

	updated, decision := m.store.RecordCheck(a.ID, res, now, manual)
	cr := CheckResult{
		AlertID:   a.ID,
		ItemName:  a.DisplayName(),
		Result:    res,
		Decision:  decision.String(),
		CheckedAt: now,
	}

	switch decision {
	case alerts.DecisionDropped:
		logger.Debug("Alert %s disabled or removed during check, result discarded", a.ID)
		return cr
	case alerts.DecisionSuppressed:
		cr.Result.Status = alerts.StatusSuppressed
		metrics.SuppressedTotal.Inc()
		logger.Debug("Alert %s still triggered, suppressed for another %v",
			a.ID, m.store.Window().Remaining(updated, now))
	case alerts.DecisionFire:
		report := m.notifier.Dispatch(ctx, notify.Trigger{
			Alert:   updated,
			Price:   res.CurrentPrice,
			Message: res.Message,
			At:      now,
		}, m.store.Settings())
		cr.Report = &report
	}

	metrics.ChecksTotal.WithLabelValues(string(cr.Result.Status)).Inc()
	return cr
}

func (m *Monitor) evaluate(ctx context.Context, a models.Alert, snap *models.PriceSnapshot) alerts.Result {
	if err := a.Validate(); err != nil {
		logger.Warn("Skipping alert %s: %v", a.ID, err)
		return alerts.Invalid(err)
	}
	if !a.Type.Supported() {
		return alerts.Evaluate(a, models.PriceSnapshot{})
	}
	if snap != nil {
		return alerts.Evaluate(a, *snap)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, m.config.CheckTimeout)
	defer cancel()
	prices, err := m.provider.GetBestPrices(fetchCtx, a.ItemID, a.RegionID)
	if err != nil {
		logger.Warn("No market data for alert %s (%s in region %d): %v", a.ID, a.DisplayName(), a.RegionID, err)
		return alerts.NoData(fmt.Sprintf("no market data for %s: %v", a.DisplayName(), err))
	}
	return alerts.Evaluate(a, prices)
}

// Stats is the aggregate view of the engine.
type Stats struct {
	alerts.Counts
	PendingTriggered int        `json:"pendingTriggered"`
	HistorySize      int        `json:"historySize"`
	Running          bool       `json:"running"`
	CycleInProgress  bool       `json:"cycleInProgress"`
	IntervalMs       int64      `json:"checkIntervalMs"`
	CyclesCompleted  int64      `json:"cyclesCompleted"`
	TicksSkipped     int64      `json:"ticksSkipped"`
	LastCycleAt      *time.Time `json:"lastCycleAt,omitempty"`
}

// Stats returns current counts and scheduler state.
func (m *Monitor) Stats() Stats {
	s := Stats{
		Counts:          m.store.Counts(m.now(), m.config.RecentWindow),
		Running:         m.Running(),
		CycleInProgress: m.inFlight.Load(),
		IntervalMs:      m.Interval().Milliseconds(),
		CyclesCompleted: m.cycles.Load(),
		TicksSkipped:    m.skipped.Load(),
	}
	if m.history != nil {
		s.HistorySize = m.history.Len()
	}
	if m.triggered != nil {
		s.PendingTriggered = m.triggered.Len()
	}
	m.mu.Lock()
	if m.lastCycle != nil {
		at := m.lastCycle.StartedAt
		s.LastCycleAt = &at
	}
	m.mu.Unlock()
	return s
}

// LastCycle returns the most recent cycle report, if any.
func (m *Monitor) LastCycle() (CycleReport, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastCycle == nil {
		return CycleReport{}, false
	}
	return *m.lastCycle, true
}
