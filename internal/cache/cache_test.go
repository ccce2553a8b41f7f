package cache

import (
	"testing"

	"github.com/sloked/sloked/internal/slkerr"
)

func identitySupplier(from, to uint64) ([]int, error) {
	vals := make([]int, 0, to-from+1)
	for k := from; k <= to; k++ {
		vals = append(vals, int(k)*10)
	}
	return vals, nil
}

func TestFetchFillsContiguousRun(t *testing.T) {
	c := New[int]()
	var calls [][2]uint64
	supplier := func(from, to uint64) ([]int, error) {
		calls = append(calls, [2]uint64{from, to})
		return identitySupplier(from, to)
	}

	vals, err := c.Fetch(2, 5, supplier)
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 4 || vals[0] != 20 || vals[3] != 50 {
		t.Fatalf("got %v", vals)
	}
	if len(calls) != 1 || calls[0] != [2]uint64{2, 5} {
		t.Fatalf("expected one supplier call over [2,5], got %v", calls)
	}
}

func TestFetchOnlyFillsMissingRuns(t *testing.T) {
	c := New[int]()
	c.Insert(3, []int{300, 400}) // keys 3,4 pre-filled

	var calls [][2]uint64
	supplier := func(from, to uint64) ([]int, error) {
		calls = append(calls, [2]uint64{from, to})
		return identitySupplier(from, to)
	}

	vals, err := c.Fetch(1, 6, supplier)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{10, 20, 300, 400, 50, 60}
	for i, w := range want {
		if vals[i] != w {
			t.Fatalf("index %d: got %d, want %d (full=%v)", i, vals[i], w, vals)
		}
	}
	if len(calls) != 2 || calls[0] != [2]uint64{1, 2} || calls[1] != [2]uint64{5, 6} {
		t.Fatalf("expected two runs [1,2] and [5,6], got %v", calls)
	}
}

func TestFetchUpdatedReturnsOnlyNewEntries(t *testing.T) {
	c := New[int]()
	if _, err := c.Fetch(0, 2, identitySupplier); err != nil {
		t.Fatal(err)
	}

	updated, err := c.FetchUpdated(0, 4, identitySupplier)
	if err != nil {
		t.Fatal(err)
	}
	if len(updated) != 2 || updated[0].Key != 3 || updated[1].Key != 4 {
		t.Fatalf("got %v, want entries for keys 3 and 4 only", updated)
	}
}

func TestFetchReversedRange(t *testing.T) {
	c := New[int]()
	_, err := c.Fetch(5, 2, identitySupplier)
	if !slkerr.Is(err, slkerr.ReversedRange) {
		t.Fatalf("got %v, want ReversedRange", err)
	}
}

func TestFetchSupplierSizeMismatch(t *testing.T) {
	c := New[int]()
	bad := func(from, to uint64) ([]int, error) { return []int{1}, nil }
	_, err := c.Fetch(0, 3, bad)
	if !slkerr.Is(err, slkerr.SupplierSizeMismatch) {
		t.Fatalf("got %v, want SupplierSizeMismatch", err)
	}
}

func TestDropAndClear(t *testing.T) {
	c := New[int]()
	if _, err := c.Fetch(0, 4, identitySupplier); err != nil {
		t.Fatal(err)
	}
	c.Drop(1, 2)
	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3 after dropping 2 keys", c.Len())
	}

	var calls int
	supplier := func(from, to uint64) ([]int, error) {
		calls++
		return identitySupplier(from, to)
	}
	if _, err := c.Fetch(0, 4, supplier); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("expected the dropped run to be refilled, got %d supplier calls", calls)
	}

	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("Len = %d after Clear, want 0", c.Len())
	}
}
