// Package registry holds the per-view analysis state: every declared view,
// its citation type, and the physical tables it resolves to. Views are
// keyed by name; fields are populated across pipeline passes as more
// evidence becomes available.
package registry

import (
	"slices"
	"sort"
)

// CitationType classifies how a view obtains its data.
type CitationType string

const (
	// CitationNative is a direct table reference (sql_table_name).
	CitationNative CitationType = "native"
	// CitationDerived is a best-effort guess from naming conventions.
	CitationDerived CitationType = "derived"
	// CitationDerivedSQL means tables were extracted from a derived_table
	// SQL body.
	CitationDerivedSQL CitationType = "derived_sql"
	// CitationDerivedExplore means the view is sourced from another
	// explore and has no physical table of its own.
	CitationDerivedExplore CitationType = "derived_explore"
	// CitationDerivedFrom marks an alias of another view; tables are
	// inherited from the base view, never guessed.
	CitationDerivedFrom CitationType = "derived_from"
	// CitationNested marks a struct/array child view (parent__child);
	// tables are inherited from the parent.
	CitationNested CitationType = "nested"
	// CitationUnnest marks a view produced by unnesting a repeated field.
	// Such views never have a backing table.
	CitationUnnest CitationType = "unnest"
)

// SourceKind identifies the defining clause of a view.
type SourceKind string

const (
	SourceTableName     SourceKind = "sql_table_name"
	SourceDerivedSQL    SourceKind = "derived_table_sql"
	SourceExploreSource SourceKind = "explore_source"
	SourceUnknown       SourceKind = "unknown"
)

// SourceDefinition is a view's defining clause, extracted verbatim.
type SourceDefinition struct {
	Kind SourceKind
	// Raw is the clause text as written: the table reference for
	// sql_table_name, the SQL body for derived_table_sql, or the
	// referenced explore name for explore_source.
	Raw string
	// ExploreName is set only for explore_source definitions.
	ExploreName string
}

// View is a single registered view and everything resolved about it.
type View struct {
	Name         string
	File         string
	CitationType CitationType
	// PrimaryTable is the fully qualified main table, empty when none.
	PrimaryTable string
	// AdditionalTables never contains PrimaryTable, never contains
	// case-insensitive duplicates, and holds complete 3-part names only.
	AdditionalTables []string
	// DerivedFrom names the base view when CitationType is derived_from.
	DerivedFrom string
	Source      *SourceDefinition
}

// Clone returns an independent copy. Table slices are copied so later
// mutation of the original never retroactively changes the clone.
func (v *View) Clone() *View {
	if v == nil {
		return nil
	}
	cp := *v
	cp.AdditionalTables = slices.Clone(v.AdditionalTables)
	if v.Source != nil {
		src := *v.Source
		cp.Source = &src
	}
	return &cp
}

// Tables returns the primary table followed by the additional tables.
func (v *View) Tables() []string {
	if v.PrimaryTable == "" && len(v.AdditionalTables) == 0 {
		return nil
	}
	out := make([]string, 0, 1+len(v.AdditionalTables))
	if v.PrimaryTable != "" {
		out = append(out, v.PrimaryTable)
	}
	return append(out, v.AdditionalTables...)
}

// HasTables reports whether any table has been resolved for the view.
func (v *View) HasTables() bool {
	return v.PrimaryTable != "" || len(v.AdditionalTables) > 0
}

// Registry is the set of all known views, insertion-ordered.
type Registry struct {
	views map[string]*View
	order []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{views: make(map[string]*View)}
}

// Ensure returns the view with the given name, registering it with default
// fields if absent. The dialect allows use-before-formal-registration, so
// unregistered names encountered mid-pipeline are always accepted.
func (r *Registry) Ensure(name, file string) *View {
	if v, ok := r.views[name]; ok {
		if v.File == "" {
			v.File = file
		}
		return v
	}
	v := &View{
		Name:         name,
		File:         file,
		CitationType: CitationNative,
	}
	r.views[name] = v
	r.order = append(r.order, name)
	return v
}

// Get returns the view with the given name, if registered.
func (r *Registry) Get(name string) (*View, bool) {
	v, ok := r.views[name]
	return v, ok
}

// MarkDerivedFrom records an alias relationship on the named view,
// registering it if needed. An already-assigned derived_from base is
// never silently overwritten: the first recorded base wins.
func (r *Registry) MarkDerivedFrom(alias, base, file string) *View {
	v := r.Ensure(alias, file)
	if v.CitationType == CitationDerivedFrom && v.DerivedFrom != "" {
		return v
	}
	v.CitationType = CitationDerivedFrom
	v.DerivedFrom = base
	return v
}

// Names returns view names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// SortedNames returns view names in lexical order, for deterministic
// reporting regardless of discovery order.
func (r *Registry) SortedNames() []string {
	names := slices.Clone(r.order)
	sort.Strings(names)
	return names
}

// Len returns the number of registered views.
func (r *Registry) Len() int {
	return len(r.views)
}
