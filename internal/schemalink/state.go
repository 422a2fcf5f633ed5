package schemalink

import (
	"sort"

	"github.com/sqlscout/sqlscout/internal/catalog"
)

const serializedSampleValues = 3

// TableLinkSet holds the columns currently linked for one table. Columns
// are appended in discovery order and never removed.
type TableLinkSet struct {
	Table   string                     `json:"table"`
	Columns []catalog.ColumnDescriptor `json:"columns"`
}

// contains reports whether an identity is already linked
func (t *TableLinkSet) contains(id string) bool {
	for _, col := range t.Columns {
		if col.ID() == id {
			return true
		}
	}

	return false
}

// LinkedSchema maps table names to their linked column sets. It is the
// accumulating answer the engine produces: merge only ever appends.
type LinkedSchema map[string]*TableLinkSet

// BuildLinkedSchema groups column descriptors into a fresh schema
func BuildLinkedSchema(cols []catalog.ColumnDescriptor) LinkedSchema {
	schema := make(LinkedSchema)
	schema.Merge(cols)

	return schema
}

// Merge appends descriptors absent by identity. Existing columns are never
// replaced or reordered.
func (s LinkedSchema) Merge(cols []catalog.ColumnDescriptor) {
	for _, col := range cols {
		set, ok := s[col.Table]
		if !ok {
			set = &TableLinkSet{Table: col.Table}
			s[col.Table] = set
		}

		if !set.contains(col.ID()) {
			set.Columns = append(set.Columns, col)
		}
	}
}

// Tables returns the linked table names in sorted order
func (s LinkedSchema) Tables() []string {
	tables := make([]string, 0, len(s))
	for table := range s {
		tables = append(tables, table)
	}

	sort.Strings(tables)

	return tables
}

// ColumnCount returns the total number of linked columns
func (s LinkedSchema) ColumnCount() int {
	n := 0
	for _, set := range s {
		n += len(set.Columns)
	}

	return n
}

// SerializedColumn is the persistence shape of one linked column
type SerializedColumn struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Role         string   `json:"role"`
	Description  string   `json:"description,omitempty"`
	SampleValues []string `json:"sample_values,omitempty"`
}

// SerializedTable is the persistence shape of one linked table
type SerializedTable struct {
	Columns []SerializedColumn `json:"columns"`
}

// Serialize converts the schema into its persistence shape, bounding sample
// values per column
func (s LinkedSchema) Serialize() map[string]SerializedTable {
	out := make(map[string]SerializedTable, len(s))

	for table, set := range s {
		cols := make([]SerializedColumn, 0, len(set.Columns))

		for _, col := range set.Columns {
			samples := col.SampleValues
			if len(samples) > serializedSampleValues {
				samples = samples[:serializedSampleValues]
			}

			cols = append(cols, SerializedColumn{
				Name:         col.Name,
				Type:         col.Type,
				Role:         col.Role(),
				Description:  col.Description,
				SampleValues: samples,
			})
		}

		out[table] = SerializedTable{Columns: cols}
	}

	return out
}

// TraceStep records the actions proposed in one step and the observations
// they produced. ForcedStop is set only on the final step of a run that
// exhausted its step budget without an explicit stop.
type TraceStep struct {
	Step         int           `json:"step"`
	Actions      []Action      `json:"actions"`
	Observations []Observation `json:"observations"`
	ForcedStop   bool          `json:"forced_stop"`
}

// Trace is the ordered, append-only audit log of one engine run
type Trace []TraceStep

// state is the working memory of one run, exclusively owned by one engine
// invocation
type state struct {
	dbID            string
	question        string
	candidateTables []string
	schema          LinkedSchema
	seenColumns     map[string]bool
	retrieveCache   map[string][]catalog.ColumnDescriptor
	trace           Trace
	step            int
}

// cachedColumns returns the union of all cached retrieval results keyed by
// identity
func (st *state) cachedColumns() map[string]catalog.ColumnDescriptor {
	index := make(map[string]catalog.ColumnDescriptor)

	for _, cols := range st.retrieveCache {
		for _, col := range cols {
			index[col.ID()] = col
		}
	}

	return index
}

// excludeSeen returns the seen identities as a slice for retrieval calls
func (st *state) excludeSeen() []string {
	ids := make([]string, 0, len(st.seenColumns))
	for id := range st.seenColumns {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}
