package explore

import (
	"log/slog"

	"github.com/leapstack-labs/lookscan/internal/dag"
	"github.com/leapstack-labs/lookscan/internal/lkml"
	"github.com/leapstack-labs/lookscan/internal/registry"
)

// ResolveAliases propagates table provenance from base views to their
// aliases. Relations are applied in dependency order so chained aliases
// (a from b, b from c) resolve against already-resolved bases. Cycles are
// reported as warnings and every edge inside one is skipped.
func ResolveAliases(reg *registry.Registry, relations []AliasRelation, logger *slog.Logger) []lkml.Warning {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var warnings []lkml.Warning

	g := dag.New()
	// Edge direction is base -> alias so a topological order visits the
	// base before anything derived from it.
	edges := make(map[string][]AliasRelation)
	for _, rel := range relations {
		if rel.Alias == rel.Base {
			continue
		}
		g.AddNode(rel.Alias)
		g.AddNode(rel.Base)
		if err := g.AddEdge(rel.Base, rel.Alias); err != nil {
			warnings = append(warnings, lkml.Warnf("", "alias %s: %v", rel.Alias, err))
			continue
		}
		edges[rel.Alias] = append(edges[rel.Alias], rel)
	}

	order, err := g.TopologicalSort()
	if err != nil {
		if ok, cycle := g.HasCycle(); ok {
			warnings = append(warnings, lkml.Warnf("", "alias cycle detected: %v", cycle))
			logger.Warn("alias cycle, affected aliases unresolved", "cycle", cycle)
		}
		// Fall back to declaration order for nodes outside the cycle.
		order = acyclicOrder(g, relations)
	}

	for _, name := range order {
		rels, ok := edges[name]
		if !ok {
			continue
		}
		for _, rel := range rels {
			resolveOne(reg, rel, logger)
		}
	}
	return warnings
}

func resolveOne(reg *registry.Registry, rel AliasRelation, logger *slog.Logger) {
	alias, ok := reg.Get(rel.Alias)
	if !ok {
		alias = reg.MarkDerivedFrom(rel.Alias, rel.Base, "")
	}
	if alias.CitationType != registry.CitationDerivedFrom {
		// The view was upgraded by stronger evidence, an explore source
		// or its own table clause. Provenance from the base does not
		// apply then.
		return
	}

	base, ok := reg.Get(rel.Base)
	if ok && base.HasTables() {
		alias.PrimaryTable = base.PrimaryTable
		alias.AdditionalTables = append([]string(nil), base.AdditionalTables...)
		logger.Debug("alias resolved", "alias", rel.Alias, "base", rel.Base, "table", base.PrimaryTable)
		return
	}
	// Tableless or unknown base: the alias stays explicitly empty,
	// never guessed.
	alias.PrimaryTable = ""
	alias.AdditionalTables = nil
	logger.Debug("alias base has no tables", "alias", rel.Alias, "base", rel.Base)
}

// acyclicOrder returns the nodes not on any cycle, in a valid dependency
// order, by repeatedly taking nodes whose parents are already emitted.
func acyclicOrder(g *dag.Graph, relations []AliasRelation) []string {
	emitted := make(map[string]bool)
	var order []string
	seen := make(map[string]bool)
	var names []string
	for _, rel := range relations {
		for _, n := range []string{rel.Base, rel.Alias} {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}

	for changed := true; changed; {
		changed = false
		for _, n := range names {
			if emitted[n] {
				continue
			}
			ready := true
			for _, p := range g.Parents(n) {
				if !emitted[p] {
					ready = false
					break
				}
			}
			if ready {
				emitted[n] = true
				order = append(order, n)
				changed = true
			}
		}
	}
	return order
}
