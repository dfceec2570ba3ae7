package lkml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindBlockEnd(t *testing.T) {
	text := `view: orders { dimension: id { sql: ${TABLE}.id ;; } }`
	open := strings.Index(text, "{")
	end := FindBlockEnd(text, open)
	require.Greater(t, end, open)
	assert.Equal(t, len(text)-1, end)
}

func TestFindBlockEnd_Truncated(t *testing.T) {
	text := `view: orders { dimension: id {`
	open := strings.Index(text, "{")
	assert.Equal(t, -1, FindBlockEnd(text, open))
}

func TestFindBlockEnd_NotABrace(t *testing.T) {
	assert.Equal(t, -1, FindBlockEnd("abc", 0))
	assert.Equal(t, -1, FindBlockEnd("abc", 10))
	assert.Equal(t, -1, FindBlockEnd("abc", -1))
}

func TestFindNamedBlocks(t *testing.T) {
	text := `
view: orders {
  sql_table_name: proj.ds.orders ;;
}

view: customers {
  derived_table: {
    sql: SELECT 1 ;;
  }
}
`
	blocks, warnings := FindNamedBlocks(text, "view")
	require.Len(t, blocks, 2)
	assert.Empty(t, warnings)
	assert.Equal(t, "orders", blocks[0].Name)
	assert.Equal(t, "customers", blocks[1].Name)
	assert.Contains(t, blocks[0].Body(text), "sql_table_name")
	assert.Contains(t, blocks[1].Body(text), "derived_table")
}

func TestFindNamedBlocks_SkipsTruncated(t *testing.T) {
	text := `
view: good {
  sql_table_name: a.b.c ;;
}
view: truncated {
  derived_table: {
`
	blocks, warnings := FindNamedBlocks(text, "view")
	require.Len(t, blocks, 1)
	assert.Equal(t, "good", blocks[0].Name)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "truncated")
}

func TestFindKeywordBlock(t *testing.T) {
	text := `view: v {
  derived_table: {
    sql: SELECT * FROM a.b.c ;;
  }
}`
	body, ok := FindKeywordBlock(text, "derived_table")
	require.True(t, ok)
	assert.Contains(t, body, "SELECT * FROM a.b.c")

	_, ok = FindKeywordBlock(text, "explore")
	assert.False(t, ok)

	_, ok = FindKeywordBlock("derived_table: { sql: broken", "derived_table")
	assert.False(t, ok)
}

func TestStripCommentLines(t *testing.T) {
	text := "view: v {\n  # sql_table_name: commented.out.table ;;\n  sql_table_name: real.ds.table ;;\n}"
	stripped := StripCommentLines(text)
	assert.NotContains(t, stripped, "commented.out.table")
	assert.Contains(t, stripped, "real.ds.table")
}
