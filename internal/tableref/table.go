package tableref

import (
	"regexp"
	"strings"
)

var identSegmentRe = regexp.MustCompile(`^[A-Za-z0-9_$*-]+$`)

// ParseTableName normalizes a raw sql_table_name clause into a dotted
// 2- or 3-part identifier. It tolerates every quoting convention the
// dialect produces: per-segment backticks, a single backtick pair around
// the whole reference, double quotes, or no quoting at all. Returns false
// when the clause does not reduce to a valid partial or complete
// identifier.
func ParseTableName(raw string) (string, bool) {
	s := strings.ReplaceAll(raw, `"`, "")
	s = strings.ReplaceAll(s, "`", "")
	s = strings.TrimSuffix(strings.TrimSpace(s), ";;")
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	// A clause with embedded whitespace is not a plain reference
	// (templated or computed names fall through to SQL extraction).
	if strings.ContainsAny(s, " \t\n") {
		return "", false
	}

	parts := strings.Split(s, ".")
	if len(parts) != 2 && len(parts) != 3 {
		return "", false
	}
	for _, p := range parts {
		if !identSegmentRe.MatchString(p) {
			return "", false
		}
	}
	return strings.Join(parts, "."), true
}
