package match

import (
	"sort"
)

// unionFind is a disjoint-set structure over record identifiers with path
// compression and union by rank. Merging two already-formed groups on a
// late-arriving pair is the whole point: a single-pass "copy the left id's
// group" approach breaks transitivity when merges happen out of discovery
// order.
type unionFind struct {
	parent map[string]string
	rank   map[string]int
}

func newUnionFind() *unionFind {
	return &unionFind{
		parent: make(map[string]string),
		rank:   make(map[string]int),
	}
}

// add registers an identifier as its own singleton set if unseen.
func (u *unionFind) add(id string) {
	if _, ok := u.parent[id]; !ok {
		u.parent[id] = id
		u.rank[id] = 0
	}
}

// find returns the set representative for id, compressing the path walked.
func (u *unionFind) find(id string) string {
	u.add(id)
	root := id
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[id] != root {
		u.parent[id], id = root, u.parent[id]
	}
	return root
}

// union merges the sets containing a and b.
func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
}

// groupSummaries computes connected components over the retained pair graph
// and returns each identifier's group id. The group id is the smallest member
// identifier, so ids are stable regardless of pair discovery order.
func groupSummaries(summaries []Summary) map[string]string {
	uf := newUnionFind()
	for _, s := range summaries {
		uf.union(s.LeftID, s.RightID)
	}

	// Smallest member per component.
	groupID := make(map[string]string)
	for id := range uf.parent {
		root := uf.find(id)
		if current, ok := groupID[root]; !ok || id < current {
			groupID[root] = id
		}
	}

	groups := make(map[string]string, len(uf.parent))
	for id := range uf.parent {
		groups[id] = groupID[uf.find(id)]
	}
	return groups
}

// groupMembers inverts a grouping into group id -> sorted member ids.
func groupMembers(groups map[string]string) map[string][]string {
	members := make(map[string][]string)
	for id, group := range groups {
		members[group] = append(members[group], id)
	}
	for group := range members {
		sort.Strings(members[group])
	}
	return members
}
