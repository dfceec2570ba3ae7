// Package lkml provides best-effort structural scanning of LookML text.
// It is not a grammar: blocks are located by `keyword: name {` headers and
// delimited by counting braces, which tolerates the semi-structured and
// occasionally malformed files found in real projects. Braces inside SQL
// string literals are not distinguished from structural braces.
package lkml

import (
	"fmt"
	"regexp"
	"strings"
)

// SourceFile is a LookML file read into memory. Immutable once read.
type SourceFile struct {
	Path    string
	Content string
}

// Warning records a non-fatal problem encountered while scanning.
// Nothing in the scan pipeline is fatal; a warning always means
// "this view has less information than hoped".
type Warning struct {
	Path    string
	Message string
}

func (w Warning) String() string {
	if w.Path == "" {
		return w.Message
	}
	return w.Path + ": " + w.Message
}

// Warnf builds a Warning with a formatted message.
func Warnf(path, format string, args ...any) Warning {
	return Warning{Path: path, Message: fmt.Sprintf(format, args...)}
}

// Block is a named, brace-delimited region inside some text. Offsets are
// into the text the block was scanned from. Nesting is purely positional:
// callers re-derive child blocks from a parent's body on demand.
type Block struct {
	Name      string
	Start     int // offset of the header match
	BodyStart int // offset just after the opening brace
	BodyEnd   int // offset of the matching closing brace
}

// Body returns the text between the block's braces.
func (b Block) Body(text string) string {
	return text[b.BodyStart:b.BodyEnd]
}

// maxViewNameLen rejects absurdly long header captures, which are almost
// always a regex false positive on embedded SQL.
const maxViewNameLen = 100

var headerPatterns = map[string]*regexp.Regexp{}

func headerPattern(keyword string) *regexp.Regexp {
	if re, ok := headerPatterns[keyword]; ok {
		return re
	}
	re := regexp.MustCompile(keyword + `:\s+(\w+)\s+{`)
	headerPatterns[keyword] = re
	return re
}

// FindBlockEnd returns the offset of the brace matching the opening brace
// at open, counting depth from there. Returns -1 when depth never returns
// to zero before end of text; callers treat that as a truncated block and
// skip it.
func FindBlockEnd(text string, open int) int {
	if open < 0 || open >= len(text) || text[open] != '{' {
		return -1
	}
	depth := 1
	for i := open + 1; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// FindNamedBlocks locates every `keyword: name {` header in text and
// returns the balanced block for each. Truncated blocks are skipped and
// reported in the warnings slice. The keyword match is case-sensitive.
func FindNamedBlocks(text, keyword string) ([]Block, []Warning) {
	var blocks []Block
	var warnings []Warning

	for _, loc := range headerPattern(keyword).FindAllStringSubmatchIndex(text, -1) {
		name := text[loc[2]:loc[3]]
		if len(name) > maxViewNameLen {
			continue
		}
		open := loc[1] - 1 // header pattern ends on the opening brace
		end := FindBlockEnd(text, open)
		if end < 0 {
			warnings = append(warnings, Warnf("", "unterminated %s block %q", keyword, name))
			continue
		}
		blocks = append(blocks, Block{
			Name:      name,
			Start:     loc[0],
			BodyStart: open + 1,
			BodyEnd:   end,
		})
	}
	return blocks, warnings
}

// FindKeywordBlock locates an unnamed `keyword { ... }` or `keyword: { ... }`
// region (as used by derived_table) and returns its body. The second return
// is false when the keyword is absent or the block is truncated.
func FindKeywordBlock(text, keyword string) (string, bool) {
	pos := strings.Index(text, keyword)
	if pos < 0 {
		return "", false
	}
	open := strings.IndexByte(text[pos:], '{')
	if open < 0 {
		return "", false
	}
	open += pos
	end := FindBlockEnd(text, open)
	if end < 0 {
		return "", false
	}
	return text[open+1 : end], true
}

// StripCommentLines removes lines whose first non-blank character starts a
// LookML line comment. Commented-out examples are a common source of false
// positives for the clause extractors.
func StripCommentLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
