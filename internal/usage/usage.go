// Package usage ingests explore usage counts exported from the BI tool's
// activity dashboard and distributes them across the views each explore
// touches.
package usage

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/leapstack-labs/lookscan/internal/explore"
	"github.com/leapstack-labs/lookscan/internal/registry"
)

// ExploreUsage maps explore name to its recorded usage count.
type ExploreUsage map[string]int

// Load reads an activity export CSV. The expected shape is a header row
// followed by rows whose first column is the explore name and third
// column the usage count, thousands separators allowed. Rows with fewer
// columns or unparseable counts are skipped.
func Load(path string, logger *slog.Logger) (ExploreUsage, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open activity export: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	out := make(ExploreUsage)
	header := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read activity export: %w", err)
		}
		if header {
			header = false
			continue
		}
		if len(row) < 3 {
			continue
		}
		name := strings.TrimSpace(row[0])
		count, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(row[2]), ",", ""))
		if err != nil {
			logger.Debug("skipping activity row with unparseable count",
				"explore", name, "value", row[2])
			continue
		}
		out[name] = count
	}
	logger.Info("activity export loaded", "path", path, "explores", len(out))
	return out, nil
}

// ViewUsage distributes explore usage onto views: every view an explore
// touches receives that explore's full count, summed across explores.
// A nil usage map yields nil, meaning usage is unknown rather than zero.
func ViewUsage(reg *registry.Registry, g *explore.Graph, eu ExploreUsage) map[string]int {
	if eu == nil {
		return nil
	}
	out := make(map[string]int, reg.Len())
	for _, name := range reg.Names() {
		out[name] = 0
	}
	for _, exploreName := range g.Names() {
		count, ok := eu[exploreName]
		if !ok {
			continue
		}
		e, _ := g.Get(exploreName)
		for _, view := range e.Views {
			out[view] += count
		}
	}
	return out
}
