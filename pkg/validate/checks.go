package validate

import (
	"fmt"

	"github.com/vanderheijden86/netcover/pkg/model"
)

// checkConnectivity covers the connectivity family (critical, except a
// broken sequence, which is high): every id on the path
// must exist in the catalog, the path must have at least two nodes and
// one link with link_count = node_count - 1, and each consecutive node
// pair must be joined by its link in an allowed direction.
func (v *Validator) checkConnectivity(c *collector, p *model.Path) {
	if len(p.Nodes) < 2 {
		c.add(model.ValidationError{
			TestCode:   "CONN_001",
			Severity:   model.SeverityCritical,
			Scope:      model.ScopeConnectivity,
			ErrorType:  "TOO_FEW_NODES",
			ObjectKind: model.ObjectPath,
			Message:    fmt.Sprintf("path has %d nodes, need at least 2", len(p.Nodes)),
		})
	}
	if len(p.Links) < 1 {
		c.add(model.ValidationError{
			TestCode:   "CONN_002",
			Severity:   model.SeverityCritical,
			Scope:      model.ScopeConnectivity,
			ErrorType:  "NO_LINKS",
			ObjectKind: model.ObjectPath,
			Message:    "path has no links",
		})
	}
	if len(p.Nodes) > 0 && len(p.Links) != len(p.Nodes)-1 {
		c.add(model.ValidationError{
			TestCode:   "CONN_003",
			Severity:   model.SeverityCritical,
			Scope:      model.ScopeConnectivity,
			ErrorType:  "COUNT_MISMATCH",
			ObjectKind: model.ObjectPath,
			Message:    fmt.Sprintf("link count %d does not equal node count %d - 1", len(p.Links), len(p.Nodes)),
		})
	}

	for _, id := range p.Nodes {
		if _, ok := v.cat.Nodes[id]; !ok {
			c.add(model.ValidationError{
				TestCode:   "CONN_004",
				Severity:   model.SeverityCritical,
				Scope:      model.ScopeConnectivity,
				ErrorType:  "MISSING_NODE",
				ObjectKind: model.ObjectNode,
				ObjectID:   id,
				Message:    "node does not exist in catalog",
			})
		}
	}
	for _, id := range p.Links {
		if _, ok := v.cat.Links[id]; !ok {
			c.add(model.ValidationError{
				TestCode:   "CONN_005",
				Severity:   model.SeverityCritical,
				Scope:      model.ScopeConnectivity,
				ErrorType:  "MISSING_LINK",
				ObjectKind: model.ObjectLink,
				ObjectID:   id,
				Message:    "link does not exist in catalog",
			})
		}
	}

	// Adjacency: links[i] must join nodes[i] and nodes[i+1] in an
	// allowed direction.
	for i := 0; i < len(p.Links) && i+1 < len(p.Nodes); i++ {
		l, ok := v.cat.Links[p.Links[i]]
		if !ok {
			continue
		}
		if !l.Connects(p.Nodes[i], p.Nodes[i+1]) {
			c.add(model.ValidationError{
				TestCode:   "CONN_006",
				Severity:   model.SeverityHigh,
				Scope:      model.ScopeConnectivity,
				ErrorType:  "BROKEN_SEQUENCE",
				ObjectKind: model.ObjectLink,
				ObjectID:   l.ID,
				Message:    fmt.Sprintf("link does not connect %d -> %d", p.Nodes[i], p.Nodes[i+1]),
			})
		}
	}
}

// checkUtilityConsistency covers the utility family: nodes that should
// carry a utility must, adjacent utility changes need an allowed
// transition or an equipment-logical intermediary, and each maximal
// constant-utility segment is checked for stragglers.
func (v *Validator) checkUtilityConsistency(c *collector, p *model.Path) {
	for i, id := range p.Nodes {
		n, ok := v.cat.Nodes[id]
		if !ok {
			continue
		}
		if n.UtilityNo == nil && shouldHaveUtility(n) {
			c.add(model.ValidationError{
				TestCode:   "UTIL_001",
				Severity:   model.SeverityMedium,
				Scope:      model.ScopeUtility,
				ErrorType:  "MISSING_UTILITY",
				ObjectKind: model.ObjectNode,
				ObjectID:   id,
				Message:    "node has no utility assignment",
			})
		}

		if i == 0 {
			continue
		}
		prev, ok := v.cat.Nodes[p.Nodes[i-1]]
		if !ok || prev.UtilityNo == nil || n.UtilityNo == nil {
			continue
		}
		from, to := *prev.UtilityNo, *n.UtilityNo
		if from == to {
			continue
		}
		if prev.IsLogical || n.IsLogical || v.cat.AllowsTransition(from, to) {
			continue
		}
		e := model.ValidationError{
			TestCode:   "UTIL_002",
			Severity:   model.SeverityHigh,
			Scope:      model.ScopeUtility,
			ErrorType:  "INVALID_TRANSITION",
			ObjectKind: model.ObjectNode,
			ObjectID:   id,
			Message:    fmt.Sprintf("utility transition %d -> %d is not allowed", from, to),
			Data:       map[string]any{"from_utility": from, "to_utility": to},
		}
		// Point at the crossing link when the sequence carries one.
		if i-1 < len(p.Links) {
			e.ObjectKind = model.ObjectLink
			e.ObjectID = p.Links[i-1]
		}
		c.add(e)
	}

	v.checkUtilitySegments(c, p)
}

// checkUtilitySegments partitions the path into maximal segments of
// constant utility and flags nodes whose utility disagrees with their
// segment.
func (v *Validator) checkUtilitySegments(c *collector, p *model.Path) {
	type segment struct {
		utility int64
		start   int
		end     int // inclusive
	}

	var segments []segment
	cur := -1
	for i, id := range p.Nodes {
		n, ok := v.cat.Nodes[id]
		if !ok || n.UtilityNo == nil {
			cur = -1
			continue
		}
		u := *n.UtilityNo
		if cur >= 0 && segments[cur].utility == u && segments[cur].end == i-1 {
			segments[cur].end = i
			continue
		}
		segments = append(segments, segment{utility: u, start: i, end: i})
		cur = len(segments) - 1
	}

	// A one-node segment whose neighbouring segments on both sides share
	// one utility, whatever their length, reads as a segment
	// inconsistency rather than a real transition.
	for i := 1; i+1 < len(segments); i++ {
		s := segments[i]
		if s.start != s.end {
			continue
		}
		if segments[i-1].utility != segments[i+1].utility {
			continue
		}
		c.add(model.ValidationError{
			TestCode:   "UTIL_003",
			Severity:   model.SeverityLow,
			Scope:      model.ScopeUtility,
			ErrorType:  "SEGMENT_INCONSISTENCY",
			ObjectKind: model.ObjectNode,
			ObjectID:   p.Nodes[s.start],
			Message: fmt.Sprintf("node utility %d differs from surrounding segment utility %d",
				s.utility, segments[i-1].utility),
		})
	}
}

// shouldHaveUtility reports whether a node is expected to carry a
// utility assignment: non-virtual, non-equipment-logical, and used.
func shouldHaveUtility(n *model.Node) bool {
	return !n.IsVirtual && !n.IsLogical && n.IsUsed
}

// checkPocConfiguration covers the endpoint PoC family.
func (v *Validator) checkPocConfiguration(c *collector, p *model.Path) {
	v.checkPoc(c, p.StartPocID, "start")
	v.checkPoc(c, p.EndPocID, "end")
}

func (v *Validator) checkPoc(c *collector, pocID int64, role string) {
	if pocID == 0 {
		return
	}
	poc, ok := v.cat.Pocs[pocID]
	if !ok {
		c.add(model.ValidationError{
			TestCode:   "POC_001",
			Severity:   model.SeverityCritical,
			Scope:      model.ScopeConnectivity,
			ErrorType:  "MISSING_POC",
			ObjectKind: model.ObjectPoc,
			ObjectID:   pocID,
			Message:    fmt.Sprintf("%s poc not found in catalog", role),
		})
		return
	}

	if !poc.IsUsed {
		c.add(model.ValidationError{
			TestCode:   "POC_002",
			Severity:   model.SeverityHigh,
			Scope:      model.ScopeConnectivity,
			ErrorType:  "POC_NOT_USED",
			ObjectKind: model.ObjectPoc,
			ObjectID:   pocID,
			Message:    fmt.Sprintf("%s poc is not marked as used", role),
		})
		return
	}

	// Used PoCs must be fully configured; each missing field is a
	// separate finding.
	if poc.UtilityNo == nil {
		c.add(model.ValidationError{
			TestCode:   "POC_003",
			Severity:   model.SeverityMedium,
			Scope:      model.ScopeUtility,
			ErrorType:  "MISSING_UTILITY",
			ObjectKind: model.ObjectPoc,
			ObjectID:   pocID,
			Message:    fmt.Sprintf("%s poc missing utility number", role),
		})
	}
	if poc.Markers == "" {
		c.add(model.ValidationError{
			TestCode:   "POC_004",
			Severity:   model.SeverityMedium,
			Scope:      model.ScopeQA,
			ErrorType:  "MISSING_MARKERS",
			ObjectKind: model.ObjectPoc,
			ObjectID:   pocID,
			Message:    fmt.Sprintf("%s poc missing markers", role),
		})
	}
	if poc.Reference == "" {
		c.add(model.ValidationError{
			TestCode:   "POC_005",
			Severity:   model.SeverityMedium,
			Scope:      model.ScopeQA,
			ErrorType:  "MISSING_REFERENCE",
			ObjectKind: model.ObjectPoc,
			ObjectID:   pocID,
			Message:    fmt.Sprintf("%s poc missing reference", role),
		})
	}
	if poc.IsLoopback {
		c.add(model.ValidationError{
			TestCode:   "POC_006",
			Severity:   model.SeverityLow,
			Scope:      model.ScopeQA,
			ErrorType:  "LOOPBACK_ENDPOINT",
			ObjectKind: model.ObjectPoc,
			ObjectID:   pocID,
			Message:    fmt.Sprintf("%s poc is a loopback", role),
		})
	}
}

// checkStructure covers the structural family: length, cost, interior
// repeats, very long paths, and redundant pass-through nodes.
func (v *Validator) checkStructure(c *collector, p *model.Path) {
	if p.TotalLengthMM <= 0 {
		c.add(model.ValidationError{
			TestCode:   "STRUCT_001",
			Severity:   model.SeverityMedium,
			Scope:      model.ScopeStructural,
			ErrorType:  "INVALID_LENGTH",
			ObjectKind: model.ObjectPath,
			Message:    fmt.Sprintf("path length %.1fmm is not positive", p.TotalLengthMM),
		})
	}
	if p.TotalCost < 0 {
		c.add(model.ValidationError{
			TestCode:   "STRUCT_002",
			Severity:   model.SeverityLow,
			Scope:      model.ScopePerformance,
			ErrorType:  "NEGATIVE_COST",
			ObjectKind: model.ObjectPath,
			Message:    fmt.Sprintf("negative path cost %.2f", p.TotalCost),
		})
	}

	// Interior repeats point at potential cycles.
	counts := make(map[int64]int, len(p.Nodes))
	for _, id := range p.Nodes {
		counts[id]++
	}
	for i := 1; i+1 < len(p.Nodes); i++ {
		id := p.Nodes[i]
		if counts[id] > 1 {
			c.add(model.ValidationError{
				TestCode:   "STRUCT_003",
				Severity:   model.SeverityMedium,
				Scope:      model.ScopeStructural,
				ErrorType:  "REPEATED_NODE",
				ObjectKind: model.ObjectNode,
				ObjectID:   id,
				Message:    fmt.Sprintf("node appears %d times in path", counts[id]),
			})
		}
	}

	if len(p.Nodes) > v.cfg.LongPathNodes {
		c.add(model.ValidationError{
			TestCode:   "STRUCT_004",
			Severity:   model.SeverityLow,
			Scope:      model.ScopePerformance,
			ErrorType:  "LONG_PATH",
			ObjectKind: model.ObjectPath,
			Message:    fmt.Sprintf("path has %d nodes, threshold %d", len(p.Nodes), v.cfg.LongPathNodes),
		})
	}

	// Interior nodes appearing once with path-degree 2 are plain
	// pass-throughs.
	for i := 1; i+1 < len(p.Nodes); i++ {
		id := p.Nodes[i]
		if counts[id] == 1 {
			c.add(model.ValidationError{
				TestCode:   "STRUCT_005",
				Severity:   model.SeverityLow,
				Scope:      model.ScopeStructural,
				ErrorType:  "REDUNDANT_NODE",
				ObjectKind: model.ObjectNode,
				ObjectID:   id,
				Message:    "interior node is a plain pass-through",
			})
		}
	}
}

// checkDataQuality covers the low-severity data quality family.
func (v *Validator) checkDataQuality(c *collector, p *model.Path) {
	for _, id := range p.Nodes {
		n, ok := v.cat.Nodes[id]
		if !ok {
			continue
		}
		if n.DataCode == 0 {
			c.add(model.ValidationError{
				TestCode:   "QA_001",
				Severity:   model.SeverityLow,
				Scope:      model.ScopeQA,
				ErrorType:  "MISSING_DATA_CODE",
				ObjectKind: model.ObjectNode,
				ObjectID:   id,
				Message:    "node has no data code",
			})
		}
		if n.Markers == "" && n.IsUsed && !n.IsVirtual {
			c.add(model.ValidationError{
				TestCode:   "QA_002",
				Severity:   model.SeverityLow,
				Scope:      model.ScopeQA,
				ErrorType:  "MISSING_MARKERS",
				ObjectKind: model.ObjectNode,
				ObjectID:   id,
				Message:    "node has no markers",
			})
		}
	}

	// Ratio is meaningless for single-link paths (always 2).
	if len(p.Links) >= 2 {
		ratio := float64(len(p.Nodes)) / float64(len(p.Links))
		if ratio > v.cfg.NodeLinkRatioWarn {
			c.add(model.ValidationError{
				TestCode:   "QA_003",
				Severity:   model.SeverityLow,
				Scope:      model.ScopePerformance,
				ErrorType:  "COMPLEX_TOPOLOGY",
				ObjectKind: model.ObjectPath,
				Message:    fmt.Sprintf("node-to-link ratio %.2f above %.2f", ratio, v.cfg.NodeLinkRatioWarn),
			})
		}
	}
}
