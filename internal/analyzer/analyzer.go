// Package analyzer orchestrates one full scan of a LookML project: file
// discovery, parallel reads, view registration, explore graph
// construction, source-definition and table-reference extraction, alias
// resolution and citation classification. Each stage feeds the next an
// explicit snapshot; nothing here survives across runs.
package analyzer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/lookscan/internal/classify"
	"github.com/leapstack-labs/lookscan/internal/explore"
	"github.com/leapstack-labs/lookscan/internal/index"
	"github.com/leapstack-labs/lookscan/internal/lkml"
	"github.com/leapstack-labs/lookscan/internal/registry"
	"github.com/leapstack-labs/lookscan/internal/sourcedef"
	"github.com/leapstack-labs/lookscan/internal/tableref"
)

// Analyzer runs scans of a project directory. Safe for repeated Run
// calls; each run is independent.
type Analyzer struct {
	settings classify.Settings
	logger   *slog.Logger
}

// New creates an analyzer. A nil logger discards output.
func New(settings classify.Settings, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Analyzer{settings: settings, logger: logger}
}

// Result is the complete outcome of one run. Warnings are advisory; a
// result with warnings is still usable.
type Result struct {
	RunID    string
	Root     string
	Registry *registry.Registry
	Graph    *explore.Graph
	Warnings []lkml.Warning
}

// Run scans the project rooted at root. Unreadable files and malformed
// blocks degrade to warnings; only discovery failure of the root itself
// is an error.
func (a *Analyzer) Run(ctx context.Context, root string) (*Result, error) {
	res := &Result{
		RunID: uuid.New().String(),
		Root:  root,
	}
	logger := a.logger.With("run_id", res.RunID)
	logger.Info("scan started", "root", root)

	files, err := index.Discover(root)
	if err != nil {
		return nil, err
	}
	logger.Debug("files discovered",
		"models", len(files.ModelPaths), "views", len(files.ViewPaths))

	models, ws, err := readAll(ctx, root, files.ModelPaths)
	if err != nil {
		return nil, err
	}
	res.Warnings = append(res.Warnings, ws...)
	views, ws, err := readAll(ctx, root, files.ViewPaths)
	if err != nil {
		return nil, err
	}
	res.Warnings = append(res.Warnings, ws...)

	reg := registry.New()
	ev := classify.Evidence{Candidates: make(map[string][]string)}

	// Register every view and extract its defining clause in one pass
	// over the view files.
	for _, f := range views {
		blocks, blockWarnings := lkml.FindNamedBlocks(f.Content, "view")
		for _, w := range blockWarnings {
			w.Path = f.Path
			res.Warnings = append(res.Warnings, w)
		}
		for _, block := range blocks {
			v := reg.Ensure(block.Name, f.Path)
			def := sourcedef.Extract(block.Body(f.Content))
			if v.Source == nil || v.Source.Kind == registry.SourceUnknown {
				v.Source = def
			}
			if tables := extractCandidates(def); len(tables) > 0 {
				if _, done := ev.Candidates[block.Name]; !done {
					ev.Candidates[block.Name] = tables
				}
			}
		}
	}

	graph, graphWarnings := explore.NewBuilder(logger).Build(models, views)
	res.Warnings = append(res.Warnings, graphWarnings...)
	res.Graph = graph
	ev.Unnest = graph.UnnestViews

	// Alias markers go in before evidence assignment so the precedence
	// rules can see them; table copying waits until bases are resolved.
	for _, rel := range graph.Aliases {
		reg.MarkDerivedFrom(rel.Alias, rel.Base, "")
	}

	classify.AssignEvidence(reg, ev, logger)
	res.Warnings = append(res.Warnings, explore.ResolveAliases(reg, graph.Aliases, logger)...)
	classify.ApplyHeuristics(reg, a.settings, logger)

	res.Registry = reg
	logger.Info("scan complete",
		"views", reg.Len(), "explores", graph.Len(), "warnings", len(res.Warnings))
	return res, nil
}

// extractCandidates pulls table references out of a defining clause. A
// direct table clause also goes through SQL extraction so templated or
// otherwise unparseable references still yield candidates.
func extractCandidates(def *registry.SourceDefinition) []string {
	switch def.Kind {
	case registry.SourceDerivedSQL:
		return tableref.FromSQL(sourcedef.Normalized(def))
	case registry.SourceTableName:
		normalized := sourcedef.Normalized(def)
		if _, ok := tableref.ParseTableName(normalized); ok {
			return nil
		}
		return tableref.FromSQL(normalized)
	default:
		return nil
	}
}

// readAll reads every root-relative path concurrently, preserving input
// order in the result. Unreadable files become warnings, not errors; the
// only error returned is context cancellation.
func readAll(ctx context.Context, root string, paths []string) ([]lkml.SourceFile, []lkml.Warning, error) {
	out := make([]lkml.SourceFile, len(paths))

	var mu sync.Mutex
	var warnings []lkml.Warning

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(filepath.Join(root, path))
			if err != nil {
				mu.Lock()
				warnings = append(warnings, lkml.Warnf(path, "unreadable: %v", err))
				mu.Unlock()
				return nil
			}
			out[i] = lkml.SourceFile{Path: path, Content: string(data)}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	read := out[:0]
	for _, f := range out {
		if f.Path != "" {
			read = append(read, f)
		}
	}
	return read, warnings, nil
}
