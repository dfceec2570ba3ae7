package tableref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	sql := `SELECT * -- trailing comment
FROM "proj"."ds"."orders"  /* block
comment */  WHERE 1=1`
	got := Normalize(sql)
	assert.Equal(t, "SELECT * FROM proj.ds.orders WHERE 1=1", got)
}

func TestNormalize_Idempotent(t *testing.T) {
	sql := `SELECT a FROM "p".ds.t -- c`
	once := Normalize(sql)
	assert.Equal(t, once, Normalize(once))
}

func TestFromSQL_JoinOrder(t *testing.T) {
	sql := `SELECT * FROM proj.ds.orders o JOIN proj.ds.customers c ON o.id = c.id`
	tables := FromSQL(sql)
	require.GreaterOrEqual(t, len(tables), 2)
	assert.Equal(t, "proj.ds.orders", tables[0])
	assert.Contains(t, tables, "proj.ds.customers")
	// orders precedes customers
	var oi, ci int
	for i, tab := range tables {
		switch tab {
		case "proj.ds.orders":
			oi = i
		case "proj.ds.customers":
			ci = i
		}
	}
	assert.Less(t, oi, ci)
}

func TestFromSQL_BacktickedProject(t *testing.T) {
	sql := "SELECT * FROM `my-proj`.ds.events e"
	tables := FromSQL(sql)
	assert.Contains(t, tables, "my-proj.ds.events")
}

func TestFromSQL_FullyBackticked(t *testing.T) {
	sql := "SELECT * FROM `proj.ds.events`"
	tables := FromSQL(sql)
	assert.Contains(t, tables, "proj.ds.events")
}

func TestFromSQL_TwoPartKeptVerbatim(t *testing.T) {
	sql := "SELECT * FROM CUSTOM_SYSTEM.PUBLIC"
	tables := FromSQL(sql)
	require.NotEmpty(t, tables)
	// Never prefixed with a default project.
	assert.Equal(t, "CUSTOM_SYSTEM.PUBLIC", tables[0])
}

func TestFromSQL_LiquidBranches(t *testing.T) {
	sql := `SELECT * {% if x %} FROM proj.ds.a {% else %} FROM proj.ds.b {% endif %}`
	tables := FromSQL(sql)
	assert.Contains(t, tables, "proj.ds.a")
	assert.Contains(t, tables, "proj.ds.b")
}

func TestFromLiquid_PartialBlock(t *testing.T) {
	// Truncated capture: no endif tag survived.
	text := `{% if dash._filters %} FROM proj.ds.live_events `
	tables := FromLiquid(text)
	assert.Contains(t, tables, "proj.ds.live_events")
}

func TestFromLiquid_BacktickedRefs(t *testing.T) {
	text := "{% if a %} SELECT * FROM `p.d.t1` JOIN `d2.t2` {% endif %}"
	tables := FromLiquid(text)
	assert.Contains(t, tables, "p.d.t1")
	assert.Contains(t, tables, "d2.t2")
}

func TestFromSQL_Unnest(t *testing.T) {
	sql := `SELECT * FROM UNNEST((SELECT items FROM proj.ds.orders)) item`
	tables := FromSQL(sql)
	assert.Contains(t, tables, "proj.ds.orders")
}

func TestFromSQL_WithClause(t *testing.T) {
	sql := "WITH recent AS (SELECT * FROM `proj.ds.sessions`) SELECT * FROM recent"
	tables := FromSQL(sql)
	assert.Contains(t, tables, "proj.ds.sessions")
}

func TestExpandBaseForms(t *testing.T) {
	tables := ExpandBaseForms([]string{"proj.ds.events_20230101", "proj.ds.clicks_streaming"})
	assert.Equal(t, []string{
		"proj.ds.events_20230101",
		"proj.ds.clicks_streaming",
		"proj.ds.events",
		"proj.ds.clicks",
	}, tables)
}

func TestExpandBaseForms_NoDuplicateBase(t *testing.T) {
	tables := ExpandBaseForms([]string{"proj.ds.events", "proj.ds.events_20230101"})
	assert.Equal(t, []string{"proj.ds.events", "proj.ds.events_20230101"}, tables)
}

func TestParseTableName(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"segment backticks", "`my-proj`.`ds`.`t1`", "my-proj.ds.t1", true},
		{"whole backticks", "`proj.ds.orders`", "proj.ds.orders", true},
		{"bare", "proj.ds.orders", "proj.ds.orders", true},
		{"double quoted", `"proj"."ds"."orders"`, "proj.ds.orders", true},
		{"two part", "CUSTOM_SYSTEM.PUBLIC", "CUSTOM_SYSTEM.PUBLIC", true},
		{"trailing terminator", "proj.ds.orders ;;", "proj.ds.orders", true},
		{"wildcard shard", "proj.ds.events_*", "proj.ds.events_*", true},
		{"single part", "orders", "", false},
		{"templated", "{% if x %} a.b.c {% endif %}", "", false},
		{"empty", "   ", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseTableName(tc.raw)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
