// Package coordinator drives the scan loop: poll, build, analyze,
// deduplicate, notify, on a fixed interval. One cycle at a time.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avolkov/arbiscan/internal/analyzer"
	"github.com/avolkov/arbiscan/internal/config"
	"github.com/avolkov/arbiscan/internal/models"
	"github.com/avolkov/arbiscan/internal/poller"
)

// Mode selects how the coordinator obtains its snapshot each cycle.
type Mode int

const (
	// ModeFull polls the configured exchanges live every cycle.
	ModeFull Mode = iota
	// ModeAnalyzeOnly skips polling and analyzes the last persisted
	// snapshot. Requires a snapshot source.
	ModeAnalyzeOnly
)

func (m Mode) String() string {
	if m == ModeAnalyzeOnly {
		return "analyze-only"
	}
	return "full"
}

// Stage is the coordinator's position inside a cycle.
type Stage string

const (
	StageIdle          Stage = "idle"
	StagePolling       Stage = "polling"
	StageBuilding      Stage = "building"
	StageAnalyzing     Stage = "analyzing"
	StageDeduplicating Stage = "deduplicating"
	StageNotifying     Stage = "notifying"
)

// CycleError aborts the cycle it occurred in; the loop carries on with the
// next tick.
type CycleError struct {
	Stage   Stage
	CycleID string
	Err     error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle %s failed during %s: %v", e.CycleID, e.Stage, e.Err)
}

func (e *CycleError) Unwrap() error {
	return e.Err
}

// Notifier delivers alerts. Implementations must not return delivery
// failures into the cycle; a sent batch is final either way.
type Notifier interface {
	NotifyOpportunities(ctx context.Context, opportunities []models.ArbitrageOpportunity)
	NotifyCycleSummary(ctx context.Context, summary models.CycleSummary)
}

// SnapshotSink persists snapshots produced by full cycles.
type SnapshotSink interface {
	SaveSnapshot(ctx context.Context, snapshot *models.PriceSnapshot) error
}

// SnapshotSource supplies the snapshot for analyze-only cycles.
type SnapshotSource interface {
	LatestSnapshot(ctx context.Context) (*models.PriceSnapshot, error)
}

// OpportunitySink persists detected opportunities.
type OpportunitySink interface {
	SaveOpportunities(ctx context.Context, opportunities []models.ArbitrageOpportunity) error
}

// CycleObserver receives the summary of every completed cycle.
type CycleObserver interface {
	ObserveCycle(summary models.CycleSummary)
}

// Coordinator owns the periodic scan loop. Construct with New, then Start.
type Coordinator struct {
	settings config.Settings
	mode     Mode

	poller    *poller.Poller
	analyzer  *analyzer.Analyzer
	dedupe    *analyzer.Deduplicator
	notifier  Notifier
	snapshots SnapshotSink
	source    SnapshotSource
	opps      OpportunitySink
	observers []CycleObserver
	logger    *logrus.Logger

	mu          sync.Mutex
	stage       Stage
	cycles      int
	lastSummary *models.CycleSummary

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures optional collaborators.
type Option func(*Coordinator)

func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) {
		if n != nil {
			c.notifier = n
		}
	}
}

func WithSnapshotSink(s SnapshotSink) Option {
	return func(c *Coordinator) { c.snapshots = s }
}

func WithSnapshotSource(s SnapshotSource) Option {
	return func(c *Coordinator) { c.source = s }
}

func WithOpportunitySink(s OpportunitySink) Option {
	return func(c *Coordinator) { c.opps = s }
}

func WithObserver(o CycleObserver) Option {
	return func(c *Coordinator) { c.observers = append(c.observers, o) }
}

func WithMode(m Mode) Option {
	return func(c *Coordinator) { c.mode = m }
}

func New(settings config.Settings, p *poller.Poller, a *analyzer.Analyzer, d *analyzer.Deduplicator, logger *logrus.Logger, opts ...Option) (*Coordinator, error) {
	c := &Coordinator{
		settings: settings,
		mode:     ModeFull,
		poller:   p,
		analyzer: a,
		dedupe:   d,
		logger:   logger,
		stage:    StageIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.mode == ModeAnalyzeOnly && c.source == nil {
		return nil, fmt.Errorf("analyze-only mode requires a snapshot source")
	}
	if c.mode == ModeFull && c.poller == nil {
		return nil, fmt.Errorf("full mode requires a poller")
	}
	return c, nil
}

// Start launches the scan loop. The first cycle runs immediately, then on
// every interval tick. Overlap is impossible: a tick that fires while a
// cycle is running is consumed after it finishes.
func (c *Coordinator) Start() {
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.wg.Add(1)
	go c.run()
	c.logger.WithFields(logrus.Fields{
		"mode":     c.mode.String(),
		"interval": c.settings.CycleInterval.String(),
	}).Info("Coordinator started")
}

// Stop requests shutdown and blocks until the in-flight stage finishes.
func (c *Coordinator) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.logger.Info("Coordinator stopped")
}

func (c *Coordinator) run() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.settings.CycleInterval)
	defer ticker.Stop()

	c.cycle()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.cycle()
		}
	}
}

func (c *Coordinator) cycle() {
	summary, err := c.RunOnce(context.Background())
	if err != nil {
		c.logger.WithError(err).Error("Scan cycle aborted")
		return
	}
	if summary == nil {
		// Shutdown interrupted the cycle between stages.
		return
	}

	c.mu.Lock()
	c.cycles++
	c.lastSummary = summary
	c.mu.Unlock()

	for _, o := range c.observers {
		o.ObserveCycle(*summary)
	}
}

// RunOnce executes a single scan cycle. It returns (nil, nil) when shutdown
// interrupted the cycle between stages, and a CycleError when a stage
// failed. The deduplicator's history is updated before any notification is
// attempted, so delivery failures cannot cause duplicate alerts.
func (c *Coordinator) RunOnce(ctx context.Context) (*models.CycleSummary, error) {
	started := time.Now().UTC()
	defer c.setStage(StageIdle)

	// Polling
	c.setStage(StagePolling)
	snapshot, err := c.acquireSnapshot(ctx)
	if err != nil {
		return nil, &CycleError{Stage: StagePolling, Err: err}
	}
	if c.stopped() {
		return nil, nil
	}

	// Building
	c.setStage(StageBuilding)
	matrix := analyzer.BuildMatrix(snapshot)
	if c.stopped() {
		return nil, nil
	}

	// Analyzing
	c.setStage(StageAnalyzing)
	opportunities, err := c.analyzer.Analyze(matrix, c.settings, snapshot.CycleID)
	if err != nil {
		return nil, &CycleError{Stage: StageAnalyzing, CycleID: snapshot.CycleID, Err: err}
	}
	if c.stopped() {
		return nil, nil
	}

	// Deduplicating
	c.setStage(StageDeduplicating)
	fresh := c.dedupe.FilterNew(opportunities, c.settings.CooldownWindow)
	c.dedupe.Prune(c.settings.CooldownWindow)
	if c.opps != nil && len(opportunities) > 0 {
		if err := c.opps.SaveOpportunities(ctx, opportunities); err != nil {
			c.logger.WithError(err).Warn("Failed to persist opportunities")
		}
	}
	if c.stopped() {
		return nil, nil
	}

	// Notifying
	c.setStage(StageNotifying)
	summary := c.buildSummary(snapshot, started, len(opportunities), len(fresh))
	if c.notifier != nil {
		if len(fresh) > 0 {
			c.notifier.NotifyOpportunities(ctx, fresh)
		}
		c.notifier.NotifyCycleSummary(ctx, summary)
	}

	c.logger.WithFields(logrus.Fields{
		"cycle_id":      summary.CycleID,
		"duration":      summary.Duration.String(),
		"quotes":        summary.Quotes,
		"symbols":       summary.Symbols,
		"opportunities": summary.Opportunities,
		"alerted":       summary.Alerted,
	}).Info("Scan cycle complete")

	return &summary, nil
}

func (c *Coordinator) acquireSnapshot(ctx context.Context) (*models.PriceSnapshot, error) {
	if c.mode == ModeAnalyzeOnly {
		snapshot, err := c.source.LatestSnapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load snapshot: %w", err)
		}
		if snapshot == nil {
			return nil, fmt.Errorf("no persisted snapshot available")
		}
		return snapshot, nil
	}

	snapshot := c.poller.Poll(ctx, c.settings.Symbols, c.settings.PollTimeout)
	if c.snapshots != nil {
		if err := c.snapshots.SaveSnapshot(ctx, snapshot); err != nil {
			c.logger.WithError(err).Warn("Failed to persist snapshot")
		}
	}
	return snapshot, nil
}

func (c *Coordinator) buildSummary(snapshot *models.PriceSnapshot, started time.Time, detected, alerted int) models.CycleSummary {
	ok, failed := 0, 0
	for _, r := range snapshot.Results {
		if r.Err != nil {
			failed++
		} else {
			ok++
		}
	}

	symbols := make(map[string]struct{})
	for _, q := range snapshot.Quotes {
		symbols[q.Symbol] = struct{}{}
	}

	return models.CycleSummary{
		CycleID:         snapshot.CycleID,
		StartedAt:       started,
		Duration:        time.Since(started),
		ExchangesOK:     ok,
		ExchangesFailed: failed,
		Quotes:          len(snapshot.Quotes),
		Symbols:         len(symbols),
		Opportunities:   detected,
		Alerted:         alerted,
	}
}

func (c *Coordinator) setStage(s Stage) {
	c.mu.Lock()
	c.stage = s
	c.mu.Unlock()
}

func (c *Coordinator) stopped() bool {
	if c.ctx == nil {
		return false
	}
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}

// Status is a point-in-time view of the coordinator for the HTTP API.
type Status struct {
	Mode        string               `json:"mode"`
	Stage       string               `json:"stage"`
	Cycles      int                  `json:"cycles_completed"`
	LastSummary *models.CycleSummary `json:"last_cycle,omitempty"`
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		Mode:   c.mode.String(),
		Stage:  string(c.stage),
		Cycles: c.cycles,
	}
	if c.lastSummary != nil {
		s := *c.lastSummary
		st.LastSummary = &s
	}
	return st
}
