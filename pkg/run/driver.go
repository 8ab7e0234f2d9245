package run

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/vanderheijden86/netcover/pkg/config"
	"github.com/vanderheijden86/netcover/pkg/coverage"
	"github.com/vanderheijden86/netcover/pkg/metrics"
	"github.com/vanderheijden86/netcover/pkg/model"
	"github.com/vanderheijden86/netcover/pkg/pathfind"
	"github.com/vanderheijden86/netcover/pkg/sampling"
	"github.com/vanderheijden86/netcover/pkg/validate"
)

// Relaxation ladder: each plateau lowers the minimum node distance by
// the step, clamped at the floor.
const (
	relaxationStep  = 2
	relaxationFloor = 1
)

// sourceRandom tags paths produced by the random sampling approach.
const sourceRandom = "random"

// Driver owns the sampling loop and all of its mutable state: the
// coverage tracker, the dedup index, and the run metrics. It is built
// per run and not reusable.
type Driver struct {
	cfg   config.RunConfig
	vcfg  validate.Config
	cat   *model.Catalog
	store Store
	log   zerolog.Logger
}

// NewDriver builds a driver over an immutable catalog. The store
// receives every persisted artifact of the run.
func NewDriver(cat *model.Catalog, store Store, cfg config.RunConfig, logger zerolog.Logger) *Driver {
	return &Driver{
		cfg:   cfg,
		vcfg:  validate.DefaultConfig(),
		cat:   cat,
		store: store,
		log:   logger,
	}
}

// runState bundles the per-run collaborators and counters.
type runState struct {
	runID     string
	startedAt time.Time

	scope     *coverage.Scope
	tracker   *coverage.Tracker
	universe  *sampling.Universe
	sampler   *sampling.Sampler
	finder    *pathfind.Finder
	validator *validate.Validator

	// seen is the per-run dedup index: content hash -> path id.
	seen map[model.PathHash]int64

	metrics     Metrics
	relaxLevels int

	// Per-unique-path figures for the summary statistics.
	nodeCounts []float64
	linkCounts []float64
	lengths    []float64
}

// Run executes the sampling loop until the coverage target is reached
// or a stop condition triggers. Per-attempt failures are absorbed into
// metrics; only scope emptiness, an unusable universe, and cooperative
// stops reach the caller.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	if err := d.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("run config: %w", err)
	}
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	st := &runState{
		runID:     uuid.NewString(),
		startedAt: time.Now(),
		seen:      make(map[model.PathHash]int64),
	}

	rec := Record{
		ID:        st.runID,
		Tag:       d.runTag(st.startedAt),
		StartedAt: st.startedAt,
		Config:    d.cfg,
	}
	if err := d.store.CreateRun(ctx, rec); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	if err := d.prepare(st); err != nil {
		d.storeStatus(ctx, st, StatusFailed)
		if errors.Is(err, sampling.ErrUniverseTooSmall) {
			res := d.finalize(ctx, st, ReasonUniverseEmpty)
			return res, err
		}
		return nil, err
	}

	d.log.Info().
		Str("run_id", st.runID).
		Int("nodes", st.scope.NodeCount()).
		Int("links", st.scope.LinkCount()).
		Int("toolsets", st.universe.ToolsetCount()).
		Float64("target", d.cfg.CoverageTarget).
		Msg("run started")
	d.storeStatus(ctx, st, StatusRunning)

	reason := d.loop(ctx, st)
	return d.finalize(ctx, st, reason), nil
}

// prepare materializes the scope, universe, and collaborators before
// the loop starts. The hot path does no catalog work afterwards.
func (d *Driver) prepare(st *runState) error {
	defer metrics.Timer(metrics.ScopeResolve)()

	scope, err := coverage.ResolveScope(d.cat, d.cfg.Filter)
	if err != nil {
		return err
	}
	st.scope = scope
	st.tracker = coverage.NewTracker(scope, d.cfg.Bias.CoverageHistorySize, d.cfg.Bias.MinCoverageImprovement)

	universe, err := sampling.BuildUniverse(d.cat, d.cfg.Filter, d.cfg.IsInterToolset)
	if err != nil {
		return err
	}
	st.universe = universe

	seed := d.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	adj := pathfind.NewAdjacency(d.cat.Links)
	st.sampler = sampling.NewSampler(universe, adj, d.cfg.Bias, sampling.Options{
		InterToolset:   d.cfg.IsInterToolset,
		LegacyDistance: d.cfg.LegacyDistance,
	}, rng)
	st.finder = pathfind.NewFinder(d.cat, adj, d.cfg.BFSDepthLimit)
	st.validator = validate.New(d.cat, d.vcfg)
	return nil
}

// loop is the outer sampling loop. It returns the termination reason;
// it never returns an error.
func (d *Driver) loop(ctx context.Context, st *runState) TerminationReason {
	for {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return ReasonTimedOut
			}
			return ReasonCancelled
		}
		if st.tracker.Coverage() >= d.cfg.CoverageTarget {
			return ReasonTargetReached
		}
		if st.metrics.TotalAttempts >= d.cfg.AttemptsCeiling {
			return ReasonAttemptsCeiling
		}

		st.metrics.TotalAttempts++
		metrics.Attempts.Inc()

		stop, reason := d.attempt(ctx, st)
		if stop {
			return reason
		}

		st.tracker.RecordObservation()
		if st.tracker.IsPlateau(d.cfg.Bias.PlateauThreshold) {
			if st.relaxLevels >= d.cfg.MaxRelaxationLevels {
				return ReasonPlateauExhausted
			}
			st.relaxLevels++
			newMin := st.sampler.Relax(relaxationStep, relaxationFloor)
			st.tracker.ResetPlateau()
			d.log.Info().
				Int("level", st.relaxLevels).
				Int("min_distance", newMin).
				Float64("coverage", st.tracker.Coverage()).
				Msg("plateau reached, relaxing sampling constraints")
		}
	}
}

// attempt runs one iteration: sample, find, dedup, cover, persist,
// validate. It only signals a stop on context cancellation mid-find.
func (d *Driver) attempt(ctx context.Context, st *runState) (bool, TerminationReason) {
	pair, ok := st.sampler.Pair()
	if !ok {
		st.metrics.FailedAttempts++
		metrics.FailedAttempts.Inc()
		d.storeAttempt(ctx, st, AttemptError, "sampler retries exhausted")
		return false, ""
	}

	findTimer := metrics.Timer(metrics.PathFind)
	path := st.finder.Find(ctx, pair.Start.NodeID, pair.End.NodeID)
	findTimer()

	if path == nil {
		if err := ctx.Err(); err != nil {
			// The aborted attempt is discarded without persistence.
			st.metrics.TotalAttempts--
			if errors.Is(err, context.DeadlineExceeded) {
				return true, ReasonTimedOut
			}
			return true, ReasonCancelled
		}
		st.metrics.FailedAttempts++
		metrics.FailedAttempts.Inc()
		d.storeAttempt(ctx, st, AttemptNotFound, "")
		if pair.Start.IsUsed && pair.End.IsUsed {
			d.storeReview(ctx, st, ReviewFlag{
				RunID:      st.runID,
				Reason:     "NOT_FOUND",
				StartPocID: pair.Start.ID,
				EndPocID:   pair.End.ID,
				Notes:      fmt.Sprintf("no path between used pocs (nodes %d -> %d)", pair.Start.NodeID, pair.End.NodeID),
			})
		}
		return false, ""
	}

	st.metrics.PathsFound++
	metrics.PathsFound.Inc()

	path.StartPocID = pair.Start.ID
	path.EndPocID = pair.End.ID
	path.StartEquipmentID = pair.Start.EquipmentID
	path.EndEquipmentID = pair.End.EquipmentID
	path.Enrich(d.cat)

	if !st.tracker.WouldImprove(path) {
		d.storeAttempt(ctx, st, AttemptFound, "no coverage improvement")
		return false, ""
	}

	hash := path.Hash()
	if _, dup := st.seen[hash]; dup {
		st.metrics.DuplicatePaths++
		d.storeAttempt(ctx, st, AttemptFound, "duplicate path, no improvement")
		return false, ""
	}

	d.acceptPath(ctx, st, path, hash)
	d.storeAttempt(ctx, st, AttemptFound, "")
	return false, ""
}

// acceptPath persists a new unique path, advances coverage, and runs
// validation. The in-memory coverage must advance before the next
// WouldImprove call; persistence failures are logged and absorbed.
func (d *Driver) acceptPath(ctx context.Context, st *runState, path *model.Path, hash model.PathHash) {
	storeTimer := metrics.Timer(metrics.StoreWrite)
	pathID, err := d.store.SavePath(ctx, PathRecord{
		RunID:      st.runID,
		Hash:       hash,
		Path:       path,
		SourceType: sourceRandom,
		Filter:     d.cfg.Filter,
	})
	storeTimer()
	if err != nil {
		d.log.Warn().Err(err).Str("hash", hash.String()).Msg("path persistence failed")
	}
	st.seen[hash] = pathID
	st.metrics.UniquePaths++
	metrics.UniquePaths.Inc()

	applyTimer := metrics.Timer(metrics.CoverageApply)
	applied := st.tracker.Apply(path)
	applyTimer()
	metrics.CoverageFraction.Set(st.tracker.Coverage())

	if err := d.store.SaveCoveredElements(ctx, st.runID, applied.NewNodeIDs, applied.NewLinkIDs); err != nil {
		d.log.Warn().Err(err).Msg("coverage persistence failed")
	}
	if err := d.store.SaveCoverageSummary(ctx, d.coverageSummary(st)); err != nil {
		d.log.Warn().Err(err).Msg("coverage summary persistence failed")
	}

	st.nodeCounts = append(st.nodeCounts, float64(path.NodeCount()))
	st.linkCounts = append(st.linkCounts, float64(path.LinkCount()))
	st.lengths = append(st.lengths, path.TotalLengthMM)

	validateTimer := metrics.Timer(metrics.PathValidate)
	report := st.validator.ValidatePath(st.runID, pathID, path)
	validateTimer()

	st.metrics.ValidationErrors += len(report.Errors)
	st.metrics.CriticalErrors += report.Critical
	for i := range report.Errors {
		metrics.ValidationErrors.WithLabelValues(string(report.Errors[i].Severity)).Inc()
	}
	if len(report.Errors) > 0 {
		if err := d.store.SaveValidationErrors(ctx, report.Errors); err != nil {
			d.log.Warn().Err(err).Msg("validation persistence failed")
		}
	}
	if report.Critical > 0 {
		d.storeReview(ctx, st, ReviewFlag{
			RunID:  st.runID,
			Reason: "CRITICAL_VALIDATION",
			PathID: pathID,
			Notes:  fmt.Sprintf("%d critical validation errors", report.Critical),
		})
	}

	d.log.Debug().
		Int64("path_id", pathID).
		Int("nodes", path.NodeCount()).
		Int("links", path.LinkCount()).
		Int("nodes_added", applied.NodesAdded).
		Int("links_added", applied.LinksAdded).
		Float64("coverage", st.tracker.Coverage()).
		Msg("path accepted")
}

// finalize writes the coverage summary and run summary and builds the
// caller-facing result.
func (d *Driver) finalize(ctx context.Context, st *runState, reason TerminationReason) *Result {
	elapsed := time.Since(st.startedAt)
	var samplingStats sampling.Stats
	if st.sampler != nil {
		samplingStats = st.sampler.Stats()
		st.metrics.ToolsetsSampled = samplingStats.ToolsetsSampled
	}

	res := &Result{
		RunID:            st.runID,
		Reason:           reason,
		Metrics:          st.metrics,
		Sampling:         samplingStats,
		RelaxationLevels: st.relaxLevels,
		Elapsed:          elapsed,
	}
	if st.tracker != nil {
		res.FinalCoverage = st.tracker.Coverage()
		res.NodeCoverage = st.tracker.NodeCoverage()
		res.LinkCoverage = st.tracker.LinkCoverage()
	}

	if st.tracker != nil {
		if err := d.store.SaveCoverageSummary(ctx, d.coverageSummary(st)); err != nil {
			d.log.Warn().Err(err).Msg("coverage summary persistence failed")
		}
	}

	sum := Summary{
		RunID:            st.runID,
		Status:           statusFor(reason),
		Reason:           reason,
		Metrics:          st.metrics,
		Sampling:         samplingStats,
		TargetCoverage:   d.cfg.CoverageTarget,
		AchievedCoverage: res.FinalCoverage,
		AvgPathNodes:     meanOrZero(st.nodeCounts),
		StdPathNodes:     stddevOrZero(st.nodeCounts),
		AvgPathLinks:     meanOrZero(st.linkCounts),
		AvgPathLength:    meanOrZero(st.lengths),
		StartedAt:        st.startedAt,
		EndedAt:          st.startedAt.Add(elapsed),
	}
	if d.cfg.CoverageTarget > 0 {
		sum.CoverageEfficiency = res.FinalCoverage / d.cfg.CoverageTarget
	}
	if st.metrics.TotalAttempts > 0 {
		sum.SuccessRate = float64(st.metrics.PathsFound) / float64(st.metrics.TotalAttempts)
	}
	if err := d.store.SaveSummary(ctx, sum); err != nil {
		d.log.Warn().Err(err).Msg("run summary persistence failed")
	}

	d.storeStatus(ctx, st, statusFor(reason))

	d.log.Info().
		Str("run_id", st.runID).
		Str("reason", string(reason)).
		Int("attempts", st.metrics.TotalAttempts).
		Int("unique_paths", st.metrics.UniquePaths).
		Float64("coverage", res.FinalCoverage).
		Dur("elapsed", elapsed).
		Msg("run finished")
	return res
}

func (d *Driver) coverageSummary(st *runState) CoverageSummary {
	return CoverageSummary{
		RunID:        st.runID,
		TotalNodes:   st.scope.NodeCount(),
		TotalLinks:   st.scope.LinkCount(),
		CoveredNodes: st.tracker.CoveredNodes(),
		CoveredLinks: st.tracker.CoveredLinks(),
		NodePct:      st.tracker.NodeCoverage() * 100,
		LinkPct:      st.tracker.LinkCoverage() * 100,
		OverallPct:   st.tracker.Coverage() * 100,
		UniquePaths:  st.metrics.UniquePaths,
	}
}

func (d *Driver) runTag(startedAt time.Time) string {
	tag := startedAt.Format("20060102") + "_random_simple"
	if d.cfg.Tag != "" {
		tag += "_" + d.cfg.Tag
	}
	return tag
}

func (d *Driver) storeAttempt(ctx context.Context, st *runState, status AttemptStatus, note string) {
	if err := d.store.SaveAttempt(ctx, st.runID, status, note); err != nil {
		d.log.Warn().Err(err).Msg("attempt persistence failed")
	}
}

func (d *Driver) storeReview(ctx context.Context, st *runState, flag ReviewFlag) {
	st.metrics.ReviewFlags++
	if err := d.store.SaveReviewFlag(ctx, flag); err != nil {
		d.log.Warn().Err(err).Msg("review flag persistence failed")
	}
}

func (d *Driver) storeStatus(ctx context.Context, st *runState, status Status) {
	var cov float64
	var nodes, links int
	if st.tracker != nil {
		cov = st.tracker.Coverage()
	}
	if st.scope != nil {
		nodes = st.scope.NodeCount()
		links = st.scope.LinkCount()
	}
	if err := d.store.UpdateRunStatus(ctx, st.runID, status, cov, nodes, links); err != nil {
		d.log.Warn().Err(err).Msg("run status persistence failed")
	}
}

func meanOrZero(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

func stddevOrZero(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}
