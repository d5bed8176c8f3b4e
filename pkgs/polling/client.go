// Package polling owns the validator's interaction with the coordination
// service: a single cooperative loop that fetches work units, grades them
// sequentially, reports results, and pulls the aggregate score feed on a
// block-window cadence.
package polling

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/deduplication"
	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/metrics"
	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/models"
	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/rewards"
	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/workers"
)

// Coordinator is the coordination-service boundary consumed by the loop.
// Implemented by protocol.Client.
type Coordinator interface {
	FetchValidations(ctx context.Context) ([]*models.ValidationPayload, error)
	FetchBatch(ctx context.Context) (*models.ValidationBatch, error)
	SubmitResults(ctx context.Context, results []*models.ValidationResult) error
	SubmitBatchVerdict(ctx context.Context, batchID, minerHotkey string, verdict *models.Verdict) error
	FetchScores(ctx context.Context) (*models.ScoresSnapshot, error)
	CurrentBlock(ctx context.Context) (uint64, error)
}

// Grader grades work units. Implemented by grading.Grader.
type Grader interface {
	GradeValidation(ctx context.Context, p *models.ValidationPayload) *models.ValidationResult
	GradeBatch(ctx context.Context, posts []*models.PostSubmission) *models.Verdict
}

// Mode selects which intake protocol the loop speaks.
type Mode string

const (
	// ModeValidation consumes per-submission validation payloads.
	ModeValidation Mode = "validation"
	// ModeBatch consumes whole batches graded fail-fast.
	ModeBatch Mode = "batch"
)

// Config holds loop parameters.
type Config struct {
	Mode                Mode
	PollInterval        time.Duration
	ScoresBlockInterval uint64
}

// Stats is a snapshot of loop counters for the monitoring API.
type Stats struct {
	Cycles         uint64    `json:"cycles"`
	FailedCycles   uint64    `json:"failed_cycles"`
	UnitsGraded    uint64    `json:"units_graded"`
	UnitsSkipped   uint64    `json:"units_skipped"`
	SubmitFailures uint64    `json:"submit_failures"`
	PendingResults int       `json:"pending_results"`
	LastUnitID     string    `json:"last_unit_id"`
	LastCycleAt    time.Time `json:"last_cycle_at"`
}

// pendingBatchVerdict is a graded batch verdict awaiting delivery.
type pendingBatchVerdict struct {
	batchID     string
	minerHotkey string
	verdict     *models.Verdict
}

// Client runs the polling loop. It is the sole writer of the last-processed
// unit id and of the reward state, so neither needs external locking.
type Client struct {
	coord   Coordinator
	grader  Grader
	rewards *rewards.State
	dedup   *deduplication.Deduplicator
	monitor *workers.Monitor
	clock   clockwork.Clock
	cfg     Config
	log     *logrus.Entry

	// Sole cross-cycle dedup state, advanced only after a verdict exists
	// for the unit (at-most-once advancement).
	lastUnitID string

	// lastScoresWindow is the block window of the last score pull; -1
	// until the first pull.
	lastScoresWindow int64

	// Graded results retained in memory until delivery succeeds. Retried
	// on later cycles; never re-graded.
	pendingResults []*models.ValidationResult
	pendingBatch   *pendingBatchVerdict

	statsMu sync.RWMutex
	stats   Stats
}

// Option customizes a Client.
type Option func(*Client)

// WithClock overrides the loop's time source, for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithDeduplicator enables cross-restart unit deduplication.
func WithDeduplicator(d *deduplication.Deduplicator) Option {
	return func(c *Client) { c.dedup = d }
}

// WithMonitor enables Redis liveness reporting.
func WithMonitor(m *workers.Monitor) Option {
	return func(c *Client) { c.monitor = m }
}

// NewClient creates a polling client.
func NewClient(coord Coordinator, grader Grader, rewardState *rewards.State, cfg Config, opts ...Option) *Client {
	if cfg.Mode == "" {
		cfg.Mode = ModeValidation
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.ScoresBlockInterval == 0 {
		cfg.ScoresBlockInterval = 100
	}
	c := &Client{
		coord:            coord,
		grader:           grader,
		rewards:          rewardState,
		clock:            clockwork.NewRealClock(),
		cfg:              cfg,
		lastScoresWindow: -1,
		log:              logrus.WithField("component", "polling"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the loop until the context is cancelled. The loop itself
// never terminates on a failed cycle; failures are logged and the next poll
// proceeds.
func (c *Client) Run(ctx context.Context) error {
	c.log.WithFields(logrus.Fields{
		"mode":            c.cfg.Mode,
		"poll_interval":   c.cfg.PollInterval,
		"scores_interval": c.cfg.ScoresBlockInterval,
	}).Info("Starting polling loop")

	for {
		c.RunCycle(ctx)
		select {
		case <-ctx.Done():
			c.log.Info("Polling loop stopped")
			return ctx.Err()
		case <-c.clock.After(c.cfg.PollInterval):
		}
	}
}

// RunCycle performs one poll cycle: score maintenance, pending-result
// delivery, intake, grading, and submission. Exported so tests can step the
// loop deterministically.
func (c *Client) RunCycle(ctx context.Context) {
	if c.monitor != nil {
		c.monitor.Heartbeat(ctx)
	}
	c.maybeFetchScores(ctx)
	c.flushPending(ctx)

	var ok bool
	switch c.cfg.Mode {
	case ModeBatch:
		ok = c.cycleBatch(ctx)
	default:
		ok = c.cycleValidations(ctx)
	}

	if c.monitor != nil {
		status := workers.StatusIdle
		if !ok {
			status = workers.StatusFailed
		}
		c.monitor.UpdateStatus(ctx, status)
	}

	c.statsMu.Lock()
	c.stats.Cycles++
	if !ok {
		c.stats.FailedCycles++
	}
	c.stats.PendingResults = len(c.pendingResults)
	c.stats.LastUnitID = c.lastUnitID
	c.stats.LastCycleAt = c.clock.Now()
	c.statsMu.Unlock()
}

// maybeFetchScores pulls the aggregate score feed when the block counter
// crosses into a new window, replacing local reward state wholesale.
func (c *Client) maybeFetchScores(ctx context.Context) {
	block, err := c.coord.CurrentBlock(ctx)
	if err != nil {
		c.log.Warnf("Failed to fetch current block: %v", err)
		return
	}
	window := int64(block / c.cfg.ScoresBlockInterval)
	if c.lastScoresWindow >= window {
		return
	}

	snapshot, err := c.coord.FetchScores(ctx)
	if err != nil {
		c.log.Warnf("Failed to fetch scores: %v", err)
		return
	}
	if snapshot == nil {
		return
	}

	expectedStart := uint64(window) * c.cfg.ScoresBlockInterval
	if snapshot.BlockWindowStart != expectedStart {
		c.log.Warnf("Score window mismatch: expected start %d, got %d; skipping",
			expectedStart, snapshot.BlockWindowStart)
		return
	}

	c.rewards.Replace(ctx, snapshot)
	c.lastScoresWindow = window
	metrics.RewardHotkeys.Set(float64(c.rewards.Len()))
}

// flushPending retries delivery of already-graded results. Units are never
// re-graded; only the submission is retried.
func (c *Client) flushPending(ctx context.Context) {
	if len(c.pendingResults) > 0 {
		if err := c.coord.SubmitResults(ctx, c.pendingResults); err != nil {
			c.log.Warnf("Failed to submit %d result(s), retaining for retry: %v", len(c.pendingResults), err)
			metrics.SubmitRetriesTotal.Inc()
			c.statsMu.Lock()
			c.stats.SubmitFailures++
			c.statsMu.Unlock()
		} else {
			c.log.Infof("Submitted %d validation result(s)", len(c.pendingResults))
			c.pendingResults = nil
		}
	}

	if c.pendingBatch != nil {
		pb := c.pendingBatch
		if err := c.coord.SubmitBatchVerdict(ctx, pb.batchID, pb.minerHotkey, pb.verdict); err != nil {
			c.log.Warnf("Failed to submit batch verdict %s, retaining for retry: %v", pb.batchID, err)
			metrics.SubmitRetriesTotal.Inc()
			c.statsMu.Lock()
			c.stats.SubmitFailures++
			c.statsMu.Unlock()
		} else {
			c.log.Infof("Submitted batch verdict %s", pb.batchID)
			c.pendingBatch = nil
		}
	}
}

// cycleValidations fetches and grades per-submission work units. Returns
// false when the cycle failed at a boundary.
func (c *Client) cycleValidations(ctx context.Context) bool {
	payloads, err := c.coord.FetchValidations(ctx)
	if err != nil {
		c.log.Warnf("Failed to fetch validations: %v", err)
		metrics.CyclesTotal.WithLabelValues("error").Inc()
		return false
	}
	if len(payloads) == 0 {
		metrics.CyclesTotal.WithLabelValues("empty").Inc()
		return true
	}
	c.log.Infof("Fetched %d validation(s)", len(payloads))
	if c.monitor != nil {
		c.monitor.UpdateStatus(ctx, workers.StatusGrading)
	}

	for _, p := range payloads {
		if ctx.Err() != nil {
			// Shutdown mid-unit: the unit id stays unadvanced; a
			// restarted process re-fetches and re-grades it.
			return true
		}
		if !c.shouldProcess(ctx, p) {
			continue
		}

		start := c.clock.Now()
		result := c.grader.GradeValidation(ctx, p)
		metrics.GradeDuration.Observe(c.clock.Since(start).Seconds())

		code := ""
		if result.FailureReason != nil {
			code = string(result.FailureReason.Code)
		}
		metrics.ObserveVerdict(code)
		c.log.WithFields(logrus.Fields{
			"validation_id": p.ValidationID,
			"miner_hotkey":  p.MinerHotkey,
			"success":       result.Success,
			"code":          code,
		}).Info("Graded validation")

		c.pendingResults = append(c.pendingResults, result)
		c.lastUnitID = p.ValidationID
		c.statsMu.Lock()
		c.stats.UnitsGraded++
		c.statsMu.Unlock()
		if c.monitor != nil {
			c.monitor.IncrementCycles(ctx, c.lastUnitID)
		}
	}

	c.flushPending(ctx)
	metrics.CyclesTotal.WithLabelValues("ok").Inc()
	return true
}

// shouldProcess applies the idempotence guards: the last-processed id check
// and, when configured, the two-layer deduplicator.
func (c *Client) shouldProcess(ctx context.Context, p *models.ValidationPayload) bool {
	if p.ValidationID == c.lastUnitID {
		c.log.Debugf("Skipping already-processed unit %s", p.ValidationID)
		c.markSkipped()
		return false
	}
	if c.dedup != nil {
		key := c.dedup.GenerateKey(p.MinerHotkey, p.ValidationID)
		isNew, err := c.dedup.CheckAndMark(ctx, key)
		if err != nil {
			// Dedup backend failure degrades to the local id check
			// rather than blocking grading.
			c.log.Debugf("Dedup check failed for %s: %v", p.ValidationID, err)
			return true
		}
		if !isNew {
			c.log.Debugf("Skipping duplicate unit %s", p.ValidationID)
			c.markSkipped()
			return false
		}
	}
	return true
}

func (c *Client) markSkipped() {
	metrics.CyclesTotal.WithLabelValues("skipped").Inc()
	c.statsMu.Lock()
	c.stats.UnitsSkipped++
	c.statsMu.Unlock()
}

// cycleBatch fetches and grades one batch work unit fail-fast.
func (c *Client) cycleBatch(ctx context.Context) bool {
	if c.pendingBatch != nil {
		// A graded verdict is still awaiting delivery; don't take on
		// new work until it clears.
		return true
	}

	batch, err := c.coord.FetchBatch(ctx)
	if err != nil {
		c.log.Warnf("Failed to fetch batch: %v", err)
		metrics.CyclesTotal.WithLabelValues("error").Inc()
		return false
	}
	if batch == nil {
		metrics.CyclesTotal.WithLabelValues("empty").Inc()
		return true
	}
	if batch.BatchID == c.lastUnitID {
		c.log.Debugf("Skipping already-processed batch %s", batch.BatchID)
		c.markSkipped()
		return true
	}

	if c.monitor != nil {
		c.monitor.UpdateStatus(ctx, workers.StatusGrading)
	}
	var verdict *models.Verdict
	if err := batch.Validate(); err != nil {
		verdict = models.Invalid(models.NewGradeError(models.ErrComputeError, err.Error(), "", 0))
	} else {
		start := c.clock.Now()
		verdict = c.grader.GradeBatch(ctx, batch.Posts)
		metrics.GradeDuration.Observe(c.clock.Since(start).Seconds())
	}

	code := ""
	if verdict.Err != nil {
		code = string(verdict.Err.Code)
	}
	metrics.ObserveVerdict(code)
	c.log.WithFields(logrus.Fields{
		"batch_id":    batch.BatchID,
		"hotkey":      batch.Hotkey,
		"valid":       verdict.Valid,
		"final_score": verdict.FinalScore,
		"code":        code,
	}).Info("Graded batch")

	c.pendingBatch = &pendingBatchVerdict{
		batchID:     batch.BatchID,
		minerHotkey: batch.Hotkey,
		verdict:     verdict,
	}
	c.lastUnitID = batch.BatchID
	c.statsMu.Lock()
	c.stats.UnitsGraded++
	c.statsMu.Unlock()
	if c.monitor != nil {
		c.monitor.IncrementCycles(ctx, c.lastUnitID)
	}

	c.flushPending(ctx)
	metrics.CyclesTotal.WithLabelValues("ok").Inc()
	return true
}

// Stats returns a snapshot of loop counters.
func (c *Client) Stats() Stats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return c.stats
}

// LastUnitID returns the last processed work unit id.
func (c *Client) LastUnitID() string {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return c.stats.LastUnitID
}
