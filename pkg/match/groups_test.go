package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnionFindMergesOutOfOrder(t *testing.T) {
	// Pairs arriving as (a,b), (c,d), (b,c) form two groups that must be
	// merged when the bridging pair shows up last.
	uf := newUnionFind()
	uf.union("a", "b")
	uf.union("c", "d")
	uf.union("b", "c")

	root := uf.find("a")
	for _, id := range []string{"b", "c", "d"} {
		assert.Equal(t, root, uf.find(id))
	}
}

func TestUnionFindDisjointSetsStaySeparate(t *testing.T) {
	uf := newUnionFind()
	uf.union("a", "b")
	uf.union("x", "y")

	assert.Equal(t, uf.find("a"), uf.find("b"))
	assert.Equal(t, uf.find("x"), uf.find("y"))
	assert.NotEqual(t, uf.find("a"), uf.find("x"))
}

func TestGroupSummariesTransitiveClosure(t *testing.T) {
	summaries := []Summary{
		{LeftID: "a", RightID: "b"},
		{LeftID: "c", RightID: "d"},
		{LeftID: "b", RightID: "c"},
		{LeftID: "z", RightID: "z"},
	}

	groups := groupSummaries(summaries)

	assert.Equal(t, "a", groups["a"])
	assert.Equal(t, "a", groups["b"])
	assert.Equal(t, "a", groups["c"])
	assert.Equal(t, "a", groups["d"])
	assert.Equal(t, "z", groups["z"])
}

func TestGroupMembersSorted(t *testing.T) {
	groups := map[string]string{
		"c": "a",
		"a": "a",
		"b": "a",
		"z": "z",
	}

	members := groupMembers(groups)

	assert.Equal(t, []string{"a", "b", "c"}, members["a"])
	assert.Equal(t, []string{"z"}, members["z"])
}
