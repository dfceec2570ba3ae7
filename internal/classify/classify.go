// Package classify assigns each registered view its citation type and
// resolves its primary table, applying an explicit ordered decision list
// instead of scattered conditional overwrites. Evidence-based assignment
// and naming-convention fallbacks are separate passes so alias views can
// inherit base tables in between, never a guessed table of their own.
package classify

import (
	"log/slog"
	"strings"

	"github.com/leapstack-labs/lookscan/internal/registry"
	"github.com/leapstack-labs/lookscan/internal/tableref"
)

// Settings holds the table-location defaults used when no evidence
// resolves a view. Threaded explicitly so the same corpus can be
// evaluated under different configurations concurrently.
type Settings struct {
	DefaultProject  string
	DefaultDataset  string
	SnapshotProject string
	SnapshotDataset string
}

// Evidence is everything the extraction passes learned about views.
type Evidence struct {
	// Candidates maps view name to table references extracted from its
	// SQL body, in extraction order.
	Candidates map[string][]string
	// Unnest names views produced by unnesting a repeated field.
	Unnest map[string]bool
}

// AssignEvidence applies the evidence-based part of the decision list to
// every view: explore sources, direct table clauses, alias markers, unnest
// joins, and SQL-derived candidates, in that precedence. Views that no
// rule matches are left untouched for ApplyHeuristics.
func AssignEvidence(reg *registry.Registry, ev Evidence, logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	for _, name := range reg.Names() {
		v, _ := reg.Get(name)

		if v.Source != nil && v.Source.Kind == registry.SourceExploreSource {
			v.CitationType = registry.CitationDerivedExplore
			v.PrimaryTable = ""
			v.AdditionalTables = nil
			continue
		}

		if v.Source != nil && v.Source.Kind == registry.SourceTableName {
			raw := strings.ReplaceAll(v.Source.Raw, `"`, "")
			if table, ok := tableref.ParseTableName(raw); ok {
				v.CitationType = registry.CitationNative
				v.PrimaryTable = table
				v.AdditionalTables = nil
				continue
			}
		}

		// An alias marker placed during registry construction is never
		// downgraded by weaker evidence. Tables arrive later, copied
		// from the base view.
		if v.CitationType == registry.CitationDerivedFrom {
			continue
		}

		if ev.Unnest[name] {
			v.CitationType = registry.CitationUnnest
			v.PrimaryTable = ""
			v.AdditionalTables = nil
			continue
		}

		if candidates := ev.Candidates[name]; len(candidates) > 0 {
			primary, rest := ChoosePrimary(name, candidates, logger)
			v.PrimaryTable = primary
			v.AdditionalTables = FilterAdditional(primary, rest)
			if v.Source != nil && v.Source.Kind == registry.SourceTableName {
				v.CitationType = registry.CitationNative
			} else {
				v.CitationType = registry.CitationDerivedSQL
			}
		}
	}
}

// ApplyHeuristics resolves the views evidence could not: nested child
// views inherit the parent's tables, and the remaining tableless views get
// a location synthesized from naming conventions. Runs after alias
// resolution so derived_from views are never guessed.
func ApplyHeuristics(reg *registry.Registry, s Settings, logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	for _, name := range reg.Names() {
		v, _ := reg.Get(name)
		if resolvedType(v.CitationType) || v.HasTables() {
			continue
		}

		if prefix, _, found := strings.Cut(name, "__"); found && prefix != "" {
			if parent, ok := reg.Get(prefix); ok && parent.HasTables() {
				v.CitationType = registry.CitationNested
				v.PrimaryTable = parent.PrimaryTable
				v.AdditionalTables = append([]string(nil), parent.AdditionalTables...)
				continue
			}
		}

		switch {
		case strings.HasSuffix(name, "_snapshot"):
			v.CitationType = registry.CitationDerived
			v.PrimaryTable = s.SnapshotProject + "." + s.SnapshotDataset + "." + name
		case strings.HasPrefix(name, "dim_") || strings.HasPrefix(name, "fact_"):
			base := strings.ReplaceAll(name, "_v2", "")
			v.CitationType = registry.CitationDerived
			v.PrimaryTable = s.DefaultProject + "." + s.DefaultDataset + "." + base
		default:
			v.CitationType = registry.CitationDerived
			v.PrimaryTable = s.DefaultProject + "." + s.DefaultDataset + "." + name
		}
		logger.Debug("table location synthesized from naming convention",
			"view", name, "table", v.PrimaryTable)
	}
}

// resolvedType reports whether a citation type is final before the
// heuristic pass.
func resolvedType(t registry.CitationType) bool {
	switch t {
	case registry.CitationDerivedExplore,
		registry.CitationDerivedFrom,
		registry.CitationUnnest,
		registry.CitationDerivedSQL,
		registry.CitationNested:
		return true
	}
	return false
}

// ChoosePrimary picks the primary table among extracted candidates.
// Ordered tie-break: discard self-referential false positives when an
// alternative exists, then prefer a candidate whose terminal segment
// resembles the view name, then the shortest terminal segment. The
// heuristic has no correctness guarantee, so disagreement between the
// similarity and length preferences is logged rather than hidden.
func ChoosePrimary(viewName string, candidates []string, logger *slog.Logger) (string, []string) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	pool := discardSelfReferential(candidates)

	bySimilarity := pickSimilar(viewName, pool)
	byLength := pickShortestTerminal(pool)

	primary := byLength
	if bySimilarity != "" {
		primary = bySimilarity
		if byLength != bySimilarity {
			logger.Debug("primary table tie-break heuristics disagree",
				"view", viewName, "similar", bySimilarity, "shortest", byLength)
		}
	}

	rest := make([]string, 0, len(candidates)-1)
	for _, c := range candidates {
		if c != primary {
			rest = append(rest, c)
		}
	}
	return primary, rest
}

// discardSelfReferential drops 3-part candidates whose first and third
// segments are identical, a known false-positive shape, unless doing so
// would empty the pool.
func discardSelfReferential(candidates []string) []string {
	kept := make([]string, 0, len(candidates))
	for _, c := range candidates {
		parts := tableref.SplitParts(c)
		if len(parts) == 3 && parts[0] == parts[2] {
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		return candidates
	}
	return kept
}

func pickSimilar(viewName string, pool []string) string {
	viewBase := stripRolePrefix(viewName)
	for _, c := range pool {
		termBase := stripRolePrefix(terminalSegment(c))
		if strings.Contains(termBase, viewBase) || strings.Contains(viewBase, termBase) {
			return c
		}
	}
	return ""
}

func pickShortestTerminal(pool []string) string {
	best := ""
	bestLen := -1
	for _, c := range pool {
		n := len(terminalSegment(c))
		if bestLen < 0 || n < bestLen {
			best = c
			bestLen = n
		}
	}
	return best
}

func terminalSegment(table string) string {
	parts := tableref.SplitParts(table)
	return parts[len(parts)-1]
}

// stripRolePrefix removes the dimensional-modeling role prefix so
// fact_orders and the orders table compare as similar.
func stripRolePrefix(name string) string {
	name = strings.TrimPrefix(name, "fact_")
	return strings.TrimPrefix(name, "dim_")
}

// FilterAdditional shapes the non-primary candidates for reporting: only
// complete 3-part identifiers, no temp-table terminal segments, no
// case-insensitive duplicates, and never the primary itself.
func FilterAdditional(primary string, rest []string) []string {
	var out []string
	seen := map[string]bool{strings.ToLower(primary): true}
	for _, c := range rest {
		if !tableref.IsComplete(c) {
			continue
		}
		if strings.HasPrefix(terminalSegment(c), "_") {
			continue
		}
		key := strings.ToLower(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
