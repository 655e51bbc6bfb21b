package identity

import (
	"context"
	"testing"
)

// assignAll labels the given records with one person.
func assignAll(t *testing.T, e *Engine, personUID string, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		if err := e.Assign(context.Background(), id, personUID, nil); err != nil {
			t.Fatalf("assign %d to %s: %v", id, personUID, err)
		}
	}
}

func TestAuditPersonFlagsOutlier(t *testing.T) {
	e := newTestEngine()
	addFaces(t, e,
		testRecord(1, 0),
		testRecord(2, 4),
		testRecord(3, 8),
		testRecord(4, 60), // far from the rest
	)
	assignAll(t, e, "p1", 1, 2, 3, 4)

	audit := e.AuditPerson("p1")
	if audit.FaceCount != 4 {
		t.Fatalf("face count = %d; want 4", audit.FaceCount)
	}
	if audit.MeanDistance <= 0 {
		t.Fatalf("mean distance = %f; want > 0", audit.MeanDistance)
	}
	if len(audit.Outliers) != 1 {
		t.Fatalf("got %d outliers, want 1: %v", len(audit.Outliers), audit.Outliers)
	}
	if audit.Outliers[0].RecordID != 4 {
		t.Errorf("flagged record %d; want 4", audit.Outliers[0].RecordID)
	}
	if audit.Outliers[0].Distance <= audit.MeanDistance {
		t.Errorf("outlier distance %f should exceed mean %f",
			audit.Outliers[0].Distance, audit.MeanDistance)
	}
}

func TestAuditPersonTooFewFaces(t *testing.T) {
	e := newTestEngine()
	addFaces(t, e, testRecord(1, 0), testRecord(2, 90))
	assignAll(t, e, "p1", 1, 2)

	audit := e.AuditPerson("p1")
	if audit.FaceCount != 2 {
		t.Fatalf("face count = %d; want 2", audit.FaceCount)
	}
	if audit.MeanDistance <= 0 {
		t.Error("mean should still be reported for small persons")
	}
	if len(audit.Outliers) != 0 {
		t.Errorf("no outliers expected below the minimum face count, got %v", audit.Outliers)
	}
}

func TestAuditPersonUnknown(t *testing.T) {
	e := newTestEngine()
	audit := e.AuditPerson("nobody")
	if audit.FaceCount != 0 || audit.MeanDistance != 0 || len(audit.Outliers) != 0 {
		t.Errorf("unexpected audit for unknown person: %+v", audit)
	}
}

func TestAuditPersonAbsolutePolicy(t *testing.T) {
	e := NewEngine(Config{
		Dimension: testDim,
		Outliers: OutlierPolicy{
			Mode:        OutlierModeAbsolute,
			MaxDistance: 0.2,
		},
	}, nil)
	addFaces(t, e,
		testRecord(1, 0),
		testRecord(2, 4),
		testRecord(3, 8),
		testRecord(4, 60),
	)
	assignAll(t, e, "p1", 1, 2, 3, 4)

	audit := e.AuditPerson("p1")
	if len(audit.Outliers) != 1 || audit.Outliers[0].RecordID != 4 {
		t.Fatalf("absolute policy should flag only record 4, got %v", audit.Outliers)
	}
	if audit.Outliers[0].Distance <= 0.2 {
		t.Errorf("flagged distance %f should exceed the absolute bound", audit.Outliers[0].Distance)
	}
}

func TestAuditAllOrdering(t *testing.T) {
	e := newTestEngine()

	// p1 is tight, p2 is spread out, p3 has too few faces to audit.
	addFaces(t, e,
		testRecord(1, 0), testRecord(2, 2), testRecord(3, 4),
		testRecord(4, 90), testRecord(5, 135), testRecord(6, 180),
		testRecord(7, 45),
	)
	assignAll(t, e, "p1", 1, 2, 3)
	assignAll(t, e, "p2", 4, 5, 6)
	assignAll(t, e, "p3", 7)

	audits := e.AuditAll()
	if len(audits) != 2 {
		t.Fatalf("got %d audits, want 2: %v", len(audits), audits)
	}
	if audits[0].PersonUID != "p2" || audits[1].PersonUID != "p1" {
		t.Errorf("audits not ordered by descending mean: %s, %s",
			audits[0].PersonUID, audits[1].PersonUID)
	}
	if audits[0].MeanDistance < audits[1].MeanDistance {
		t.Errorf("mean distances out of order: %f < %f",
			audits[0].MeanDistance, audits[1].MeanDistance)
	}
}

func TestAuditExcludedRecordsIgnored(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	addFaces(t, e,
		testRecord(1, 0),
		testRecord(2, 4),
		testRecord(3, 8),
		testRecord(4, 60),
	)
	assignAll(t, e, "p1", 1, 2, 3, 4)

	if err := e.ApplyExclusions(ctx, []int64{4}); err != nil {
		t.Fatalf("exclude: %v", err)
	}

	audit := e.AuditPerson("p1")
	if audit.FaceCount != 3 {
		t.Fatalf("face count = %d; want 3 after exclusion", audit.FaceCount)
	}
	if len(audit.Outliers) != 0 {
		t.Errorf("tight remainder should have no outliers, got %v", audit.Outliers)
	}
}
