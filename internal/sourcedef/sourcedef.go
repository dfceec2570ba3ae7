// Package sourcedef classifies a view's defining clause: a direct
// sql_table_name reference, a derived_table with an embedded SQL body or
// an explore_source, or nothing recognizable at all.
package sourcedef

import (
	"regexp"
	"strings"

	"github.com/leapstack-labs/lookscan/internal/lkml"
	"github.com/leapstack-labs/lookscan/internal/registry"
)

var (
	sqlTableNameRe  = regexp.MustCompile(`(?s)sql_table_name:\s*(.*?)\s*;;`)
	exploreSourceRe = regexp.MustCompile(`explore_source\s*:\s*(\w+)`)
	sqlClauseRe     = regexp.MustCompile(`(?s)sql\s*:\s*(.*?);;`)

	// Fallback delimiters for sql: clauses missing the canonical ;;
	// terminator, tried in order from most to least specific.
	sqlFallbackRes = []*regexp.Regexp{
		regexp.MustCompile(`sql:\s*{{{([^}]+)}}}`),
		regexp.MustCompile(`(?s)sql:\s*"""(.+?)"""`),
		regexp.MustCompile(`(?s)sql:\s*{(.+?)}`),
		regexp.MustCompile(`sql:\s*"([^"]+)"`),
	}
)

// Extract classifies the defining clause of a single view body. Comment
// lines are stripped first so commented-out examples never match. The
// result always has a Kind; unknown is a valid outcome, not an error.
func Extract(viewBody string) *registry.SourceDefinition {
	body := lkml.StripCommentLines(viewBody)

	if m := sqlTableNameRe.FindStringSubmatch(body); m != nil {
		return &registry.SourceDefinition{
			Kind: registry.SourceTableName,
			Raw:  strings.TrimSpace(m[1]),
		}
	}

	if block, ok := lkml.FindKeywordBlock(body, "derived_table"); ok {
		if m := exploreSourceRe.FindStringSubmatch(block); m != nil {
			return &registry.SourceDefinition{
				Kind:        registry.SourceExploreSource,
				Raw:         "explore_source: " + m[1],
				ExploreName: m[1],
			}
		}
		if sql, ok := extractSQLClause(block); ok {
			return &registry.SourceDefinition{
				Kind: registry.SourceDerivedSQL,
				Raw:  sql,
			}
		}
	}

	return &registry.SourceDefinition{Kind: registry.SourceUnknown}
}

func extractSQLClause(block string) (string, bool) {
	if m := sqlClauseRe.FindStringSubmatch(block); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	for _, re := range sqlFallbackRes {
		if m := re.FindStringSubmatch(block); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}

// Normalized returns the definition text used for table extraction:
// double quotes are stripped from SQL-bearing kinds because the dialect
// quotes identifiers inconsistently. Other kinds pass through verbatim.
func Normalized(def *registry.SourceDefinition) string {
	if def == nil {
		return ""
	}
	switch def.Kind {
	case registry.SourceTableName, registry.SourceDerivedSQL:
		return strings.ReplaceAll(def.Raw, `"`, "")
	default:
		return def.Raw
	}
}
