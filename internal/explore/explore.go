// Package explore parses explore blocks out of model files and builds the
// explore/view relationship graph: which views an explore touches, which
// joins alias another view via from:, and which joins are produced by
// unnesting a repeated field.
package explore

import (
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/leapstack-labs/lookscan/internal/lkml"
)

// Explore is a named entry point composing a base view with joined views.
type Explore struct {
	Name  string
	Model string
	File  string
	// BaseView is the from: target when present, else the explore name.
	BaseView string
	// Views is the ordered set of all views the explore touches: the base
	// view plus every join, including nested joins.
	Views []string
}

// HasView reports whether the explore touches the named view.
func (e *Explore) HasView(name string) bool {
	for _, v := range e.Views {
		if v == name {
			return true
		}
	}
	return false
}

// AliasRelation records that alias is declared with a from: clause naming
// a different base view.
type AliasRelation struct {
	Alias string
	Base  string
}

// Graph is the result of scanning all model files.
type Graph struct {
	explores map[string]*Explore
	order    []string
	// Aliases holds every alias -> base relation found at explore or join
	// sites, discovery-ordered.
	Aliases []AliasRelation
	// UnnestViews are join views whose SQL clause unnests a repeated
	// field and that have no direct table reference of their own.
	UnnestViews map[string]bool
}

// Get returns the named explore, if present.
func (g *Graph) Get(name string) (*Explore, bool) {
	e, ok := g.explores[name]
	return e, ok
}

// Names returns explore names in discovery order.
func (g *Graph) Names() []string {
	return append([]string(nil), g.order...)
}

// Len returns the number of explores.
func (g *Graph) Len() int {
	return len(g.explores)
}

// ViewExploreCounts returns, per view, how many explores touch it.
func (g *Graph) ViewExploreCounts() map[string]int {
	counts := make(map[string]int)
	for _, name := range g.order {
		for _, v := range g.explores[name].Views {
			counts[v]++
		}
	}
	return counts
}

var (
	fromClauseRe = regexp.MustCompile(`from:\s+(\w+)`)
	unnestSQLRe  = regexp.MustCompile(`(?i)sql:\s+.*unnest\(`)

	// Presence checks used to decide whether a view already references a
	// table directly; such views are never unnest-derived.
	tableNameClauseRe   = regexp.MustCompile(`sql_table_name:\s+[^;]+;`)
	derivedTableStartRe = regexp.MustCompile(`derived_table\s*:\s*{`)
)

// Builder scans model and view files into a Graph.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder creates a builder. A nil logger discards output.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{logger: logger}
}

// Build scans every model file for explore blocks and assembles the
// graph. View files are consulted only to find views with direct table
// references, which suppresses false unnest detection. Malformed blocks
// are skipped with a warning, never fatal.
func (b *Builder) Build(models, views []lkml.SourceFile) (*Graph, []lkml.Warning) {
	g := &Graph{
		explores:    make(map[string]*Explore),
		UnnestViews: make(map[string]bool),
	}
	var warnings []lkml.Warning

	withTableRef := viewsWithTableReference(views)

	for _, f := range models {
		model := modelName(f.Path)
		blocks, ws := lkml.FindNamedBlocks(f.Content, "explore")
		for _, w := range ws {
			w.Path = f.Path
			warnings = append(warnings, w)
			b.logger.Warn("skipping malformed explore block", "file", f.Path, "detail", w.Message)
		}

		for _, block := range blocks {
			e := &Explore{
				Name:  block.Name,
				Model: model,
				File:  f.Path,
			}
			body := block.Body(f.Content)

			e.BaseView = block.Name
			if m := fromClauseRe.FindStringSubmatch(body); m != nil {
				e.BaseView = m[1]
				if m[1] != block.Name {
					g.Aliases = append(g.Aliases, AliasRelation{Alias: block.Name, Base: m[1]})
				}
			}
			e.addView(e.BaseView)

			ws := b.scanJoins(g, e, body, withTableRef, f.Path)
			warnings = append(warnings, ws...)

			if _, dup := g.explores[e.Name]; !dup {
				g.explores[e.Name] = e
				g.order = append(g.order, e.Name)
			} else {
				// Same explore declared twice; merge the view sets.
				existing := g.explores[e.Name]
				for _, v := range e.Views {
					existing.addView(v)
				}
			}
		}
	}

	b.logger.Info("explore scan complete",
		"explores", len(g.explores),
		"aliases", len(g.Aliases),
		"unnest_views", len(g.UnnestViews))
	return g, warnings
}

// scanJoins walks every join block in body, recursing into nested joins.
func (b *Builder) scanJoins(g *Graph, e *Explore, body string, withTableRef map[string]bool, path string) []lkml.Warning {
	joins, warnings := lkml.FindNamedBlocks(body, "join")
	for i := range warnings {
		warnings[i].Path = path
	}

	// The scanner reports every join header in body, including those
	// nested inside another join. Keep only top-level ones here; the
	// recursive call below handles each nesting level exactly once.
	lastEnd := -1
	for _, join := range joins {
		if join.Start < lastEnd {
			continue
		}
		lastEnd = join.BodyEnd
		e.addView(join.Name)
		joinBody := join.Body(body)

		if m := fromClauseRe.FindStringSubmatch(joinBody); m != nil && m[1] != join.Name {
			g.Aliases = append(g.Aliases, AliasRelation{Alias: join.Name, Base: m[1]})
			b.logger.Debug("alias join", "alias", join.Name, "base", m[1], "explore", e.Name)
		}

		if unnestSQLRe.MatchString(joinBody) && !withTableRef[join.Name] {
			g.UnnestViews[join.Name] = true
			b.logger.Debug("unnest join", "view", join.Name, "explore", e.Name)
		}

		// FindNamedBlocks only returns top-level matches per invocation
		// body, so recursion walks arbitrarily deep nesting.
		warnings = append(warnings, b.scanJoins(g, e, joinBody, withTableRef, path)...)
	}
	return warnings
}

func (e *Explore) addView(name string) {
	if !e.HasView(name) {
		e.Views = append(e.Views, name)
	}
}

// viewsWithTableReference collects view names that declare either a
// sql_table_name or a derived_table of their own.
func viewsWithTableReference(views []lkml.SourceFile) map[string]bool {
	out := make(map[string]bool)
	for _, f := range views {
		blocks, _ := lkml.FindNamedBlocks(f.Content, "view")
		for _, block := range blocks {
			body := block.Body(f.Content)
			if tableNameClauseRe.MatchString(body) || derivedTableStartRe.MatchString(body) {
				out[block.Name] = true
			}
		}
	}
	return out
}

// modelName derives an owning-model name from a file path, handling both
// models/<name>.lkml and <name>.model.lkml conventions.
func modelName(path string) string {
	base := filepath.Base(path)
	switch {
	case strings.HasSuffix(base, ".model.lkml"):
		return strings.TrimSuffix(base, ".model.lkml")
	case strings.HasSuffix(base, ".lkml"):
		return strings.TrimSuffix(base, ".lkml")
	default:
		return base
	}
}
