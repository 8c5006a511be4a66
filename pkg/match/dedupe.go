package match

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/Ramsey-B/clover/pkg/normalize"
	"github.com/Ramsey-B/clover/pkg/records"
)

// summarizeGroups builds one row per match group: the union of observed
// non-null values per original column across the group's members, with
// domain values re-extracted so raw URLs and emails collapse to hostnames.
// Rows are ordered by group size descending, then group id.
func (m *Matcher) summarizeGroups(set *records.RecordSet, roles Roles, groups map[string]string, opts Options) (*records.RecordSet, error) {
	members := groupMembers(groups)

	rowsByID := make(map[string][]records.Row, set.Len())
	for _, row := range set.Rows() {
		id := row.Get(roles.Index)
		if !id.Valid {
			continue
		}
		rowsByID[id.String] = append(rowsByID[id.String], row)
	}

	groupIDs := make([]string, 0, len(members))
	for id := range members {
		groupIDs = append(groupIDs, id)
	}
	sort.Slice(groupIDs, func(i, j int) bool {
		a, b := groupIDs[i], groupIDs[j]
		if len(members[a]) != len(members[b]) {
			return len(members[a]) > len(members[b])
		}
		return a < b
	})

	columns := append([]string{"match_group", "group_size"}, set.Columns()...)

	rows := make([]records.Row, 0, len(groupIDs))
	for _, groupID := range groupIDs {
		row := records.Row{
			"match_group": records.String(groupID),
			"group_size":  records.String(strconv.Itoa(len(members[groupID]))),
		}

		for _, col := range set.Columns() {
			values := make(map[string]struct{})
			for _, id := range members[groupID] {
				for _, member := range rowsByID[id] {
					val := member.Get(col)
					if !val.Valid {
						continue
					}
					observed := val.String
					if col == roles.Domain && !opts.ExactDomain {
						key, ok := normalize.Domain(observed)
						if !ok {
							continue
						}
						observed = key
					}
					values[observed] = struct{}{}
				}
			}
			row[col] = unionValue(values)
		}

		rows = append(rows, row)
	}

	return records.New(columns, rows)
}

// unionValue serializes a distinct value set: null when empty, the bare
// value for a single observation, a sorted JSON array otherwise.
func unionValue(values map[string]struct{}) records.Value {
	if len(values) == 0 {
		return records.Null()
	}

	sorted := make([]string, 0, len(values))
	for v := range values {
		sorted = append(sorted, v)
	}
	if len(sorted) == 1 {
		return records.String(sorted[0])
	}

	sort.Strings(sorted)
	encoded, err := json.Marshal(sorted)
	if err != nil {
		// Marshaling a []string cannot fail.
		panic(err)
	}
	return records.String(string(encoded))
}
