// Package tableref extracts dotted table identifiers from SQL text and
// from Liquid conditional blocks embedded in it. Extraction is pattern
// based, not a SQL parse: the goal is a conservative superset of the
// tables a query could touch under any runtime condition.
package tableref

import (
	"regexp"
	"strings"
)

// Quoting in LookML SQL is inconsistent: identifiers show up bare, in
// backticks, or in double quotes, sometimes mixed within one reference.
// Stripping double quotes up front collapses everything to two forms
// (bare and backticked) that the patterns below handle.

var (
	lineCommentRe  = regexp.MustCompile(`--[^\n]*(\n|$)`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// Normalize prepares SQL text for pattern matching: double quotes are
// stripped, SQL comments become whitespace, and whitespace runs collapse
// to single spaces. Normalizing already-normalized text is a no-op, so
// extraction is idempotent.
func Normalize(sql string) string {
	sql = strings.ReplaceAll(sql, `"`, "")
	sql = lineCommentRe.ReplaceAllString(sql, " ")
	sql = blockCommentRe.ReplaceAllString(sql, " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(sql, " "))
}

// Liquid conditional regions. When no complete {% if %}...{% endif %}
// region exists, a partial match up to the next tag-free boundary keeps
// truncated captures usable.
var (
	liquidBlockRe   = regexp.MustCompile(`(?s){%\s*if[^%]*%}.*?{%\s*endif\s*%}`)
	liquidPartialRe = regexp.MustCompile(`(?s){%\s*if[^}]+}[^{]+`)
)

// Patterns applied inside a Liquid region, in order.
var liquidPatterns = []*regexp.Regexp{
	regexp.MustCompile("`([^`]+\\.[^`]+\\.[^`]+)`"),
	regexp.MustCompile("`([^`]+\\.[^`]+)`"),
	regexp.MustCompile(`(?i)FROM\s+([a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`(?i)JOIN\s+([a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`(?i)FROM\s+([a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`(?i)JOIN\s+([a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+)`),
}

// Direct SQL patterns, in order. A 2-part pattern will also capture the
// leading two segments of a 3-part reference; the 3-part patterns run
// first, so the complete form always precedes its truncated shadow and
// downstream filtering discards the partials where required.
var sqlPatterns = []*regexp.Regexp{
	// Backticked project with bare dataset.table: `my-proj`.ds.t
	regexp.MustCompile("`([^`]+)`\\s*\\.\\s*([a-zA-Z0-9_-]+)\\.([a-zA-Z0-9_-]+)"),
	// Fully backticked references.
	regexp.MustCompile("`([^`]+\\.[^`]+\\.[^`]+)`"),
	regexp.MustCompile("`([^`]+\\.[^`]+)`"),
	// FROM/JOIN with or without a trailing alias or AS alias.
	regexp.MustCompile(`(?i)FROM\s+([a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`(?i)FROM\s+([a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`(?i)JOIN\s+([a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`(?i)JOIN\s+([a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+)`),
	regexp.MustCompile("(?i)FROM\\s+`([^`]+)`"),
	regexp.MustCompile("(?i)JOIN\\s+`([^`]+)`"),
	// Correlated UNNEST subqueries.
	regexp.MustCompile("(?i)UNNEST\\(\\(SELECT .*? FROM\\s+`?([^`\\s)]+\\.[^`\\s)]+\\.[^`\\s)]+)`?"),
	regexp.MustCompile("(?i)UNNEST\\(\\(SELECT .*? FROM\\s+`?([^`\\s)]+\\.[^`\\s)]+)`?"),
	// CTE bodies.
	regexp.MustCompile("(?i)WITH\\s+\\w+\\s+AS\\s*\\(.*?FROM\\s+`?([^`\\s)]+\\.[^`\\s)]+\\.[^`\\s)]+)`?"),
	regexp.MustCompile("(?i)WITH\\s+\\w+\\s+AS\\s*\\(.*?FROM\\s+`?([^`\\s)]+\\.[^`\\s)]+)`?"),
}

var (
	streamingSuffixRe = regexp.MustCompile(`_streaming$`)
	dateSuffixRe      = regexp.MustCompile(`_\d{8}$`)
)

// FromSQL extracts every table reference from the given SQL text: the
// Liquid-conditional pass first, then the direct pass, union-ed with
// first-seen order-stable deduplication, followed by base-form expansion
// for streaming/partition suffixes. Partial (1- or 2-part) identifiers
// are preserved exactly as written, never prefixed.
func FromSQL(sql string) []string {
	normalized := Normalize(sql)

	var tables []string
	seen := map[string]bool{}
	add := func(ref string) {
		if ref != "" && !seen[ref] {
			seen[ref] = true
			tables = append(tables, ref)
		}
	}

	for _, ref := range FromLiquid(normalized) {
		add(ref)
	}
	for _, ref := range fromDirect(normalized) {
		add(ref)
	}

	return ExpandBaseForms(tables)
}

// FromLiquid extracts table references from every Liquid conditional
// region in the text. All branches are extracted unconditionally: the
// condition cannot be evaluated statically, so the result is a superset
// of the tables reachable at render time.
func FromLiquid(text string) []string {
	text = strings.ReplaceAll(text, `"`, "")

	blocks := liquidBlockRe.FindAllString(text, -1)
	if len(blocks) == 0 {
		blocks = liquidPartialRe.FindAllString(text, -1)
	}

	var tables []string
	seen := map[string]bool{}
	for _, block := range blocks {
		for _, re := range liquidPatterns {
			for _, m := range re.FindAllStringSubmatch(block, -1) {
				ref := m[1]
				if !seen[ref] {
					seen[ref] = true
					tables = append(tables, ref)
				}
			}
		}
	}
	return tables
}

// fromDirect runs the ordered direct-SQL patterns over normalized text.
func fromDirect(sql string) []string {
	var tables []string
	seen := map[string]bool{}
	for _, re := range sqlPatterns {
		for _, m := range re.FindAllStringSubmatch(sql, -1) {
			var ref string
			if len(m) >= 4 && m[3] != "" {
				// Backtick-project form captures the three segments
				// separately.
				ref = m[1] + "." + m[2] + "." + m[3]
			} else {
				ref = m[1]
			}
			if !seen[ref] {
				seen[ref] = true
				tables = append(tables, ref)
			}
		}
	}
	return tables
}

// ExpandBaseForms appends the suffix-stripped base form of every table
// ending in _streaming or an 8-digit date, after all original entries.
// The original reference is always kept.
func ExpandBaseForms(tables []string) []string {
	seen := map[string]bool{}
	for _, t := range tables {
		seen[t] = true
	}
	out := tables
	for _, t := range tables {
		base := streamingSuffixRe.ReplaceAllString(t, "")
		base = dateSuffixRe.ReplaceAllString(base, "")
		if base != t && !seen[base] {
			seen[base] = true
			out = append(out, base)
		}
	}
	return out
}

// SplitParts splits a dotted reference into its segments with backticks
// removed from each segment.
func SplitParts(ref string) []string {
	parts := strings.Split(ref, ".")
	for i, p := range parts {
		parts[i] = strings.Trim(p, "`")
	}
	return parts
}

// IsComplete reports whether ref is a complete 3-part identifier with no
// empty segment.
func IsComplete(ref string) bool {
	parts := SplitParts(ref)
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}
