package identity

import (
	"context"
	"errors"
	"testing"
)

func TestIndexSelfQuery(t *testing.T) {
	idx := NewIndex()

	for i := int64(1); i <= 5; i++ {
		if err := idx.Insert(testRecord(i, float64(i)*30)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	// The nearest neighbor of an inserted embedding is the record itself.
	for i := int64(1); i <= 5; i++ {
		results := idx.Search(unitVec(float64(i)*30), 1, SearchAll, 0)
		if len(results) == 0 {
			t.Fatalf("record %d: no results", i)
		}
		if results[0].ID != i {
			t.Errorf("record %d: nearest neighbor is %d", i, results[0].ID)
		}
		if results[0].Distance > 1e-6 {
			t.Errorf("record %d: self distance %f, want ~0", i, results[0].Distance)
		}
	}
}

func TestIndexDuplicateInsert(t *testing.T) {
	idx := NewIndex()

	if err := idx.Insert(testRecord(1, 0)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	err := idx.Insert(testRecord(1, 10))
	var dup *DuplicateIDError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateIDError, got %v", err)
	}
	if dup.ID != 1 {
		t.Errorf("duplicate id = %d; want 1", dup.ID)
	}
}

func TestIndexEmptySearch(t *testing.T) {
	idx := NewIndex()
	if results := idx.Search(unitVec(0), 5, SearchAll, 0); len(results) != 0 {
		t.Errorf("empty index should return no results, got %v", results)
	}
}

func TestIndexSearchModes(t *testing.T) {
	idx := NewIndex()

	assigned := testRecord(1, 0)
	assigned.PersonUID = "p1"
	unknown := testRecord(2, 5)
	excluded := testRecord(3, 10)
	excluded.Excluded = true

	for _, rec := range []*FaceRecord{assigned, unknown, excluded} {
		if err := idx.Insert(rec); err != nil {
			t.Fatalf("insert %d: %v", rec.ID, err)
		}
	}

	tests := []struct {
		name    string
		mode    SearchMode
		wantIDs map[int64]bool
	}{
		{"matches", SearchMatches, map[int64]bool{1: true}},
		{"unknown", SearchUnknown, map[int64]bool{2: true}},
		{"all", SearchAll, map[int64]bool{1: true, 2: true}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			results := idx.Search(unitVec(0), 10, tc.mode, 0)
			if len(results) != len(tc.wantIDs) {
				t.Fatalf("got %d results, want %d", len(results), len(tc.wantIDs))
			}
			for _, r := range results {
				if !tc.wantIDs[r.ID] {
					t.Errorf("unexpected result id %d", r.ID)
				}
			}
		})
	}
}

func TestIndexExcludeInclude(t *testing.T) {
	idx := NewIndex()
	if err := idx.Insert(testRecord(1, 0)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if !idx.Exclude(1) {
		t.Fatal("exclude returned false for live entry")
	}
	if results := idx.Search(unitVec(0), 5, SearchAll, 0); len(results) != 0 {
		t.Errorf("excluded record still visible: %v", results)
	}

	if !idx.Include(1) {
		t.Fatal("include returned false for live entry")
	}
	results := idx.Search(unitVec(0), 5, SearchAll, 0)
	if len(results) != 1 || results[0].ID != 1 {
		t.Errorf("included record not visible again: %v", results)
	}

	if idx.Exclude(99) || idx.Include(99) {
		t.Error("exclude/include of unknown id should return false")
	}
}

// Metadata updates change only the updated record's visibility, never the
// ordering among unrelated records.
func TestIndexUpdateMetadataPreservesOrder(t *testing.T) {
	idx := NewIndex()
	for i := int64(1); i <= 4; i++ {
		if err := idx.Insert(testRecord(i, float64(i)*15)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	before := idx.Search(unitVec(0), 10, SearchAll, 0)

	if !idx.UpdateMetadata(3, "p9", 0.8, false) {
		t.Fatal("update returned false")
	}

	after := idx.Search(unitVec(0), 10, SearchAll, 0)
	if len(before) != len(after) {
		t.Fatalf("result count changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i].ID != after[i].ID {
			t.Errorf("position %d: id %d -> %d", i, before[i].ID, after[i].ID)
		}
	}
}

func TestIndexRemove(t *testing.T) {
	idx := NewIndex()
	if err := idx.Insert(testRecord(1, 0)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	idx.Remove(1)
	if idx.Contains(1) {
		t.Error("removed record still live")
	}
	if results := idx.Search(unitVec(0), 5, SearchAll, 0); len(results) != 0 {
		t.Errorf("removed record still returned: %v", results)
	}

	// The id can be reused after removal; the stale graph node must not
	// shadow or reject the new entry.
	if err := idx.Insert(testRecord(1, 20)); err != nil {
		t.Fatalf("reinsert: %v", err)
	}
	if !idx.Contains(1) {
		t.Error("reinserted record not live")
	}
	results := idx.Search(unitVec(20), 5, SearchAll, 0)
	if len(results) != 1 || results[0].ID != 1 {
		t.Fatalf("reinserted record not searchable: %v", results)
	}
	if results[0].Distance > 1e-6 {
		t.Errorf("reinserted record kept the old embedding, distance %f", results[0].Distance)
	}
}

func TestBuildIndex(t *testing.T) {
	records := []*FaceRecord{
		testRecord(1, 0),
		testRecord(2, 30),
		{ID: 3, PhotoUID: "no-embedding"},
	}

	idx, err := BuildIndex(context.Background(), records)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if idx.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", idx.Len())
	}
	if idx.Contains(3) {
		t.Error("record without embedding should not be indexed")
	}
}

func TestBuildIndexCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := BuildIndex(ctx, []*FaceRecord{testRecord(1, 0)})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
