package spatial

import "testing"

// contains reports whether id is in the candidate list.
func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// TestQueryRadius tests that nearby entities are candidates and
// distant ones are not.
func TestQueryRadius(t *testing.T) {
	g := NewGrid(1024, 16)
	g.Insert(1, 0, 0)
	g.Insert(2, 5, 5)
	g.Insert(3, 200, 200)
	g.Insert(4, -40, 12)

	got := g.QueryRadius(0, 0, 10)
	if !contains(got, 1) || !contains(got, 2) {
		t.Errorf("expected ids 1 and 2 in candidates, got %v", got)
	}
	if contains(got, 3) {
		t.Errorf("id 3 is 280 away and should not be a candidate, got %v", got)
	}
}

// TestQueryAcrossCells tests a radius spanning multiple cells.
func TestQueryAcrossCells(t *testing.T) {
	g := NewGrid(1024, 16)
	g.Insert(1, -20, 0)
	g.Insert(2, 20, 0)
	g.Insert(3, 0, -20)

	got := g.QueryRadius(0, 0, 25)
	for _, id := range []int64{1, 2, 3} {
		if !contains(got, id) {
			t.Errorf("expected id %d in candidates, got %v", id, got)
		}
	}
}

// TestClear tests that cleared cells return nothing.
func TestClear(t *testing.T) {
	g := NewGrid(256, 16)
	g.Insert(1, 0, 0)
	g.Clear()

	if got := g.QueryRadius(0, 0, 50); len(got) != 0 {
		t.Errorf("expected no candidates after clear, got %v", got)
	}

	// The grid stays usable after a clear.
	g.Insert(2, 1, 1)
	if got := g.QueryRadius(0, 0, 10); !contains(got, 2) {
		t.Errorf("expected id 2 after reinsert, got %v", got)
	}
}

// TestOutOfBoundsClamped tests that positions beyond the world extent
// land in edge cells instead of panicking.
func TestOutOfBoundsClamped(t *testing.T) {
	g := NewGrid(256, 16)
	g.Insert(1, 10000, -10000)
	g.Insert(2, -10000, 10000)

	if got := g.QueryRadius(10000, -10000, 1); !contains(got, 1) {
		t.Errorf("expected the clamped entity to be queryable, got %v", got)
	}
}
