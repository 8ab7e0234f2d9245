package coverage

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/vanderheijden86/netcover/pkg/model"
)

// Applied reports the effect of folding one path into the tracker.
type Applied struct {
	NodesAdded int
	LinksAdded int
	// Improvement is the change in overall coverage fraction.
	Improvement float64

	// Newly flipped ids, in path order. Handed to the persistence
	// layer for the covered-element streams.
	NewNodeIDs []int64
	NewLinkIDs []int64
}

// Tracker owns the two coverage bit-vectors for a run plus the plateau
// bookkeeping: a bounded FIFO of recent coverage samples, the best
// coverage seen, and the count of observations without improvement.
//
// The tracker is not safe for concurrent use. The sampling driver is
// its sole owner; a parallel finder must serialize Apply/WouldImprove
// through the driver.
type Tracker struct {
	scope *Scope
	nodes *bitset.BitSet
	links *bitset.BitSet

	history        []float64
	historySize    int
	minImprovement float64

	best             float64
	sinceImprovement int
}

// NewTracker returns a zeroed tracker over the scope's index spaces.
// historySize bounds the observation FIFO; minImprovement is the
// coverage delta below which an observation does not count as
// progress.
func NewTracker(scope *Scope, historySize int, minImprovement float64) *Tracker {
	if historySize < 1 {
		historySize = 1
	}
	return &Tracker{
		scope:          scope,
		nodes:          bitset.New(uint(scope.NodeCount())),
		links:          bitset.New(uint(scope.LinkCount())),
		history:        make([]float64, 0, historySize),
		historySize:    historySize,
		minImprovement: minImprovement,
	}
}

// WouldImprove reports, without mutating state, whether the path maps
// to at least one unset node or link bit. Out-of-scope ids are
// ignored. Path lengths are tiny relative to N+L, so a scan over the
// path's indices beats materializing transient bit-vectors.
func (t *Tracker) WouldImprove(p *model.Path) bool {
	for _, id := range p.Nodes {
		if idx, ok := t.scope.NodeIndex(id); ok && !t.nodes.Test(uint(idx)) {
			return true
		}
	}
	for _, id := range p.Links {
		if idx, ok := t.scope.LinkIndex(id); ok && !t.links.Test(uint(idx)) {
			return true
		}
	}
	return false
}

// Apply sets the bits for every in-scope node and link of the path and
// returns what changed. Out-of-scope ids are silently skipped: a found
// path may legitimately wander outside a tight scope. Bits are never
// cleared within a run, so coverage is monotone across Apply calls.
func (t *Tracker) Apply(p *model.Path) Applied {
	before := t.Coverage()
	var a Applied

	for _, id := range p.Nodes {
		idx, ok := t.scope.NodeIndex(id)
		if !ok || t.nodes.Test(uint(idx)) {
			continue
		}
		t.nodes.Set(uint(idx))
		a.NodesAdded++
		a.NewNodeIDs = append(a.NewNodeIDs, id)
	}
	for _, id := range p.Links {
		idx, ok := t.scope.LinkIndex(id)
		if !ok || t.links.Test(uint(idx)) {
			continue
		}
		t.links.Set(uint(idx))
		a.LinksAdded++
		a.NewLinkIDs = append(a.NewLinkIDs, id)
	}

	a.Improvement = t.Coverage() - before
	return a
}

// Coverage returns (covered nodes + covered links) / (N + L), or 0
// when the scope is empty.
func (t *Tracker) Coverage() float64 {
	total := t.scope.Total()
	if total == 0 {
		return 0
	}
	return float64(t.nodes.Count()+t.links.Count()) / float64(total)
}

// NodeCoverage returns the covered fraction of in-scope nodes.
func (t *Tracker) NodeCoverage() float64 {
	if t.scope.NodeCount() == 0 {
		return 0
	}
	return float64(t.nodes.Count()) / float64(t.scope.NodeCount())
}

// LinkCoverage returns the covered fraction of in-scope links.
func (t *Tracker) LinkCoverage() float64 {
	if t.scope.LinkCount() == 0 {
		return 0
	}
	return float64(t.links.Count()) / float64(t.scope.LinkCount())
}

// CoveredNodes returns the popcount of the node bit-vector.
func (t *Tracker) CoveredNodes() int { return int(t.nodes.Count()) }

// CoveredLinks returns the popcount of the link bit-vector.
func (t *Tracker) CoveredLinks() int { return int(t.links.Count()) }

// Best returns the highest coverage fraction observed so far. It is
// monotone non-decreasing over the life of the tracker.
func (t *Tracker) Best() float64 { return t.best }

// AttemptsWithoutImprovement returns the current plateau counter.
func (t *Tracker) AttemptsWithoutImprovement() int { return t.sinceImprovement }

// RecordObservation pushes the current coverage into the bounded FIFO
// and recomputes the plateau counter: an observation counts as
// progress only when it beats the best seen by at least the minimum
// improvement.
func (t *Tracker) RecordObservation() {
	cov := t.Coverage()

	if len(t.history) == t.historySize {
		copy(t.history, t.history[1:])
		t.history = t.history[:t.historySize-1]
	}
	t.history = append(t.history, cov)

	if cov >= t.best+t.minImprovement && cov > t.best {
		t.sinceImprovement = 0
	} else {
		t.sinceImprovement++
	}
	if cov > t.best {
		t.best = cov
	}
}

// IsPlateau reports whether the run has gone at least threshold
// observations without a counted improvement.
func (t *Tracker) IsPlateau(threshold int) bool {
	return t.sinceImprovement >= threshold
}

// ResetPlateau clears the plateau counter. The driver calls this when
// it steps down the relaxation ladder.
func (t *Tracker) ResetPlateau() { t.sinceImprovement = 0 }

// History returns a copy of the recent coverage samples, oldest first.
func (t *Tracker) History() []float64 {
	out := make([]float64, len(t.history))
	copy(out, t.history)
	return out
}
