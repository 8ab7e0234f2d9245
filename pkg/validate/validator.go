// Package validate runs the structural and utility-consistency check
// suite over found paths. The validator is pure with respect to the
// graph and catalog: it reads them, never mutates them, and emits
// typed error records as values.
package validate

import (
	"github.com/vanderheijden86/netcover/pkg/model"
)

// Config holds the validator's tunable thresholds.
type Config struct {
	// LongPathNodes is the node count above which a performance
	// warning is emitted.
	LongPathNodes int
	// NodeLinkRatioWarn is the node-to-link ratio above which a
	// complexity warning is emitted.
	NodeLinkRatioWarn float64
}

// DefaultConfig returns the documented validator thresholds.
func DefaultConfig() Config {
	return Config{
		LongPathNodes:     500,
		NodeLinkRatioWarn: 1.5,
	}
}

// Report aggregates one path's validation findings.
type Report struct {
	Errors []model.ValidationError
	// Critical counts findings with critical severity.
	Critical int
}

// Passed reports whether the path passed validation: no critical
// finding.
func (r *Report) Passed() bool { return r.Critical == 0 }

// Validator checks found paths against the catalog. Safe for
// concurrent use; it holds only read-only views.
type Validator struct {
	cat *model.Catalog
	cfg Config
}

// New builds a validator over the catalog.
func New(cat *model.Catalog, cfg Config) *Validator {
	if cfg.LongPathNodes <= 0 {
		cfg.LongPathNodes = DefaultConfig().LongPathNodes
	}
	if cfg.NodeLinkRatioWarn <= 0 {
		cfg.NodeLinkRatioWarn = DefaultConfig().NodeLinkRatioWarn
	}
	return &Validator{cat: cat, cfg: cfg}
}

// collector accumulates findings, deduplicated by
// (test code, object kind, object id).
type collector struct {
	runID  string
	pathID int64
	seen   map[model.DedupKey]struct{}
	out    []model.ValidationError
}

func (c *collector) add(e model.ValidationError) {
	e.RunID = c.runID
	e.PathID = c.pathID
	if _, dup := c.seen[e.Key()]; dup {
		return
	}
	c.seen[e.Key()] = struct{}{}
	c.out = append(c.out, e)
}

// ValidatePath runs every check family over a path and returns the
// deduplicated findings. Checks are independent; their order does not
// affect the result.
func (v *Validator) ValidatePath(runID string, pathID int64, p *model.Path) Report {
	c := &collector{runID: runID, pathID: pathID, seen: make(map[model.DedupKey]struct{})}

	v.checkConnectivity(c, p)
	v.checkUtilityConsistency(c, p)
	v.checkPocConfiguration(c, p)
	v.checkStructure(c, p)
	v.checkDataQuality(c, p)

	r := Report{Errors: c.out}
	for i := range c.out {
		if c.out[i].IsCritical() {
			r.Critical++
		}
	}
	return r
}
