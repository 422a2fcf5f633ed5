package catalog

// ColumnDescriptor identifies one column of one table together with the
// metadata the linker needs to reason about it. Descriptors are immutable
// once produced by an Index.
type ColumnDescriptor struct {
	Table        string   `json:"table"`
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Description  string   `json:"description,omitempty"`
	IsPK         bool     `json:"is_pk,omitempty"`
	IsFK         bool     `json:"is_fk,omitempty"`
	SampleValues []string `json:"sample_values,omitempty"`
}

// ID returns the stable identity of the column, used for deduplication
// and exclusion lists.
func (c ColumnDescriptor) ID() string {
	return c.Table + "." + c.Name
}

// Role returns a short role tag for prompt rendering
func (c ColumnDescriptor) Role() string {
	switch {
	case c.IsPK:
		return "pk"
	case c.IsFK:
		return "fk"
	default:
		return "col"
	}
}
