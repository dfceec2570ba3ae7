package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/lookscan/internal/registry"
)

var testSettings = Settings{
	DefaultProject:  "company-dwh",
	DefaultDataset:  "analytics_prod",
	SnapshotProject: "company-dwh-snapshot",
	SnapshotDataset: "analytics_prod_snapshots",
}

func TestAssignEvidence_ExploreSource(t *testing.T) {
	reg := registry.New()
	v := reg.Ensure("order_summary", "")
	v.Source = &registry.SourceDefinition{
		Kind:        registry.SourceExploreSource,
		ExploreName: "orders",
	}

	AssignEvidence(reg, Evidence{}, nil)

	assert.Equal(t, registry.CitationDerivedExplore, v.CitationType)
	assert.False(t, v.HasTables())
}

func TestAssignEvidence_SQLTableName(t *testing.T) {
	reg := registry.New()
	v := reg.Ensure("orders", "")
	v.Source = &registry.SourceDefinition{
		Kind: registry.SourceTableName,
		Raw:  "`my-proj`.`ds`.`t1`",
	}

	AssignEvidence(reg, Evidence{}, nil)

	assert.Equal(t, registry.CitationNative, v.CitationType)
	assert.Equal(t, "my-proj.ds.t1", v.PrimaryTable)
}

func TestAssignEvidence_TwoPartTableNameKept(t *testing.T) {
	reg := registry.New()
	v := reg.Ensure("external", "")
	v.Source = &registry.SourceDefinition{
		Kind: registry.SourceTableName,
		Raw:  "CUSTOM_SYSTEM.PUBLIC",
	}

	AssignEvidence(reg, Evidence{}, nil)

	assert.Equal(t, registry.CitationNative, v.CitationType)
	assert.Equal(t, "CUSTOM_SYSTEM.PUBLIC", v.PrimaryTable)
}

func TestAssignEvidence_TableClauseBeatsAliasMarker(t *testing.T) {
	reg := registry.New()
	v := reg.MarkDerivedFrom("orders_copy", "orders", "")
	v.Source = &registry.SourceDefinition{
		Kind: registry.SourceTableName,
		Raw:  "proj.ds.orders_copy",
	}

	AssignEvidence(reg, Evidence{}, nil)

	assert.Equal(t, registry.CitationNative, v.CitationType)
	assert.Equal(t, "proj.ds.orders_copy", v.PrimaryTable)
}

func TestAssignEvidence_AliasMarkerBeatsSQLCandidates(t *testing.T) {
	reg := registry.New()
	reg.MarkDerivedFrom("orders_copy", "orders", "")

	AssignEvidence(reg, Evidence{
		Candidates: map[string][]string{"orders_copy": {"proj.ds.something"}},
	}, nil)

	v, _ := reg.Get("orders_copy")
	assert.Equal(t, registry.CitationDerivedFrom, v.CitationType)
	assert.False(t, v.HasTables())
}

func TestAssignEvidence_Unnest(t *testing.T) {
	reg := registry.New()
	reg.Ensure("event_tags", "")

	AssignEvidence(reg, Evidence{
		Candidates: map[string][]string{"event_tags": {"proj.ds.events"}},
		Unnest:     map[string]bool{"event_tags": true},
	}, nil)

	v, _ := reg.Get("event_tags")
	assert.Equal(t, registry.CitationUnnest, v.CitationType)
	assert.Empty(t, v.PrimaryTable)
	assert.Empty(t, v.AdditionalTables)
}

func TestAssignEvidence_DerivedSQL(t *testing.T) {
	reg := registry.New()
	v := reg.Ensure("fact_orders", "")
	v.Source = &registry.SourceDefinition{Kind: registry.SourceDerivedSQL, Raw: "SELECT ..."}

	AssignEvidence(reg, Evidence{
		Candidates: map[string][]string{
			"fact_orders": {"proj.ds.orders", "proj.ds.customers"},
		},
	}, nil)

	assert.Equal(t, registry.CitationDerivedSQL, v.CitationType)
	assert.Equal(t, "proj.ds.orders", v.PrimaryTable)
	assert.Equal(t, []string{"proj.ds.customers"}, v.AdditionalTables)
}

func TestApplyHeuristics_NestedInheritsParentTables(t *testing.T) {
	reg := registry.New()
	parent := reg.Ensure("orders", "")
	parent.PrimaryTable = "proj.ds.orders"
	parent.AdditionalTables = []string{"proj.ds.customers"}
	reg.Ensure("orders__line_items", "")

	ApplyHeuristics(reg, testSettings, nil)

	child, _ := reg.Get("orders__line_items")
	assert.Equal(t, registry.CitationNested, child.CitationType)
	assert.Equal(t, "proj.ds.orders", child.PrimaryTable)
	assert.Equal(t, []string{"proj.ds.customers"}, child.AdditionalTables)

	parent.AdditionalTables[0] = "proj.ds.mutated"
	assert.Equal(t, []string{"proj.ds.customers"}, child.AdditionalTables)
}

func TestApplyHeuristics_SnapshotSuffix(t *testing.T) {
	reg := registry.New()
	reg.Ensure("orders_snapshot", "")

	ApplyHeuristics(reg, testSettings, nil)

	v, _ := reg.Get("orders_snapshot")
	assert.Equal(t, registry.CitationDerived, v.CitationType)
	assert.Equal(t, "company-dwh-snapshot.analytics_prod_snapshots.orders_snapshot", v.PrimaryTable)
}

func TestApplyHeuristics_DimFactPrefix(t *testing.T) {
	reg := registry.New()
	reg.Ensure("fact_orders_v2", "")

	ApplyHeuristics(reg, testSettings, nil)

	v, _ := reg.Get("fact_orders_v2")
	assert.Equal(t, registry.CitationDerived, v.CitationType)
	assert.Equal(t, "company-dwh.analytics_prod.fact_orders", v.PrimaryTable)
}

func TestApplyHeuristics_LastResortGuess(t *testing.T) {
	reg := registry.New()
	reg.Ensure("mystery", "")

	ApplyHeuristics(reg, testSettings, nil)

	v, _ := reg.Get("mystery")
	assert.Equal(t, registry.CitationDerived, v.CitationType)
	assert.Equal(t, "company-dwh.analytics_prod.mystery", v.PrimaryTable)
}

func TestApplyHeuristics_NeverGuessesForAliasViews(t *testing.T) {
	reg := registry.New()
	reg.MarkDerivedFrom("orders_copy", "gone_view", "")

	ApplyHeuristics(reg, testSettings, nil)

	v, _ := reg.Get("orders_copy")
	assert.Equal(t, registry.CitationDerivedFrom, v.CitationType)
	assert.False(t, v.HasTables())
}

func TestChoosePrimary_SelfReferentialDiscarded(t *testing.T) {
	primary, rest := ChoosePrimary("orders", []string{
		"orders.ds.orders",
		"proj.ds.orders",
	}, nil)
	assert.Equal(t, "proj.ds.orders", primary)
	assert.Equal(t, []string{"orders.ds.orders"}, rest)
}

func TestChoosePrimary_SimilarityBeatsLength(t *testing.T) {
	primary, _ := ChoosePrimary("fact_order_lines", []string{
		"proj.ds.tmp",
		"proj.ds.order_lines",
	}, nil)
	assert.Equal(t, "proj.ds.order_lines", primary)
}

func TestChoosePrimary_ShortestTerminalFallback(t *testing.T) {
	primary, _ := ChoosePrimary("aggregates", []string{
		"proj.ds.events_deduplicated",
		"proj.ds.events",
	}, nil)
	assert.Equal(t, "proj.ds.events", primary)
}

func TestFilterAdditional(t *testing.T) {
	got := FilterAdditional("proj.ds.orders", []string{
		"proj.ds.customers",
		"Proj.DS.Customers",
		"proj.ds._tmp_stage",
		"two.part",
		"proj.ds.orders",
	})
	assert.Equal(t, []string{"proj.ds.customers"}, got)
}

func TestFullPrecedenceOrder(t *testing.T) {
	reg := registry.New()

	es := reg.Ensure("summary", "")
	es.Source = &registry.SourceDefinition{Kind: registry.SourceExploreSource, ExploreName: "orders"}
	native := reg.Ensure("orders", "")
	native.Source = &registry.SourceDefinition{Kind: registry.SourceTableName, Raw: "proj.ds.orders"}
	reg.Ensure("orders__items", "")
	reg.Ensure("users_snapshot", "")

	AssignEvidence(reg, Evidence{}, nil)
	ApplyHeuristics(reg, testSettings, nil)

	for name, want := range map[string]registry.CitationType{
		"summary":        registry.CitationDerivedExplore,
		"orders":         registry.CitationNative,
		"orders__items":  registry.CitationNested,
		"users_snapshot": registry.CitationDerived,
	} {
		v, ok := reg.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, want, v.CitationType, name)
	}
}
