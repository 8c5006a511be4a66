package match

import (
	"fmt"

	"github.com/Ramsey-B/clover/pkg/records"
)

// Roles maps feature roles to column names in the source record set. Only
// Index is required; a feature whose role is absent on either side simply
// does not run.
type Roles struct {
	Index      string
	Domain     string
	Address    string
	Phone      string
	Country    string
	EntityName string
}

// suffixed returns a copy of the roles with every declared column renamed to
// "{column}{suffix}".
func (r Roles) suffixed(suffix string) Roles {
	apply := func(col string) string {
		if col == "" {
			return ""
		}
		return col + suffix
	}
	return Roles{
		Index:      apply(r.Index),
		Domain:     apply(r.Domain),
		Address:    apply(r.Address),
		Phone:      apply(r.Phone),
		Country:    apply(r.Country),
		EntityName: apply(r.EntityName),
	}
}

// Frame is one side of a match run: a record set namespaced with a side
// suffix plus its role mapping. Frame columns are always the original column
// names suffixed with "_{name}" so the two sides stay distinct after the
// final join.
type Frame struct {
	name  string
	set   *records.RecordSet
	roles Roles
}

// NewFrame copies the record set, renames every column to "{column}_{name}",
// and namespaces the declared roles the same way.
func NewFrame(name string, set *records.RecordSet, roles Roles) (*Frame, error) {
	if name == "" {
		return nil, fmt.Errorf("frame name is required")
	}
	if roles.Index == "" {
		return nil, fmt.Errorf("frame %q: an index column is required", name)
	}

	for _, col := range []string{roles.Index, roles.Domain, roles.Address, roles.Phone, roles.Country, roles.EntityName} {
		if col == "" {
			continue
		}
		if !set.HasColumn(col) {
			return nil, fmt.Errorf("frame %q: record set has no column %q", name, col)
		}
	}

	suffix := "_" + name
	return &Frame{
		name:  name,
		set:   set.WithSuffix(suffix),
		roles: roles.suffixed(suffix),
	}, nil
}

// Name returns the side label.
func (f *Frame) Name() string {
	return f.name
}

// Set returns the suffixed record set.
func (f *Frame) Set() *records.RecordSet {
	return f.set
}

// Roles returns the suffixed role mapping.
func (f *Frame) Roles() Roles {
	return f.roles
}

// rowID returns the record identifier for a row, if present.
func (f *Frame) rowID(row records.Row) (string, bool) {
	id := row.Get(f.roles.Index)
	return id.String, id.Valid
}
