package identity

import (
	"context"
	"testing"
)

func TestClusterUnknownEmpty(t *testing.T) {
	e := newTestEngine()
	if clusters := e.ClusterUnknown(); len(clusters) != 0 {
		t.Errorf("empty engine should cluster to nothing, got %v", clusters)
	}
}

// Scenario: three unknown faces within the cluster threshold of each other
// and one far away. Expect one cluster of three and a singleton.
func TestClusterUnknownGroups(t *testing.T) {
	e := newTestEngine()
	addFaces(t, e,
		testRecord(1, 0),
		testRecord(2, 5),
		testRecord(3, 10),
		testRecord(4, 120),
	)

	clusters := e.ClusterUnknown()
	if len(clusters) != 2 {
		t.Fatalf("got %d clusters, want 2: %v", len(clusters), clusters)
	}

	// Ordered by descending size.
	if clusters[0].Size != 3 || clusters[1].Size != 1 {
		t.Fatalf("cluster sizes = %d, %d; want 3, 1", clusters[0].Size, clusters[1].Size)
	}
	if clusters[1].Seed != 4 {
		t.Errorf("singleton seed = %d; want 4", clusters[1].Seed)
	}

	// The seed is its own first member at distance zero.
	lead := clusters[0].Members[0]
	if lead.RecordID != clusters[0].Seed || lead.Distance != 0 {
		t.Errorf("lead member = %+v; want seed at distance 0", lead)
	}
}

// Every unknown record lands in exactly one cluster.
func TestClusterUnknownPartition(t *testing.T) {
	e := newTestEngine()
	angles := []float64{0, 8, 16, 60, 68, 130, 175}
	for i, a := range angles {
		addFaces(t, e, testRecord(int64(i+1), a))
	}

	seen := make(map[int64]int)
	for _, c := range e.ClusterUnknown() {
		if c.Size != len(c.Members) {
			t.Errorf("cluster %s: size %d but %d members", c.ID, c.Size, len(c.Members))
		}
		for _, m := range c.Members {
			seen[m.RecordID]++
		}
	}
	if len(seen) != len(angles) {
		t.Errorf("clustered %d records, want %d", len(seen), len(angles))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("record %d appears in %d clusters", id, n)
		}
	}
}

// Membership is decided on distance to the seed, not transitively: a chain
// A-B-C where only consecutive links are close must not collapse into one
// cluster.
func TestClusterUnknownNoChaining(t *testing.T) {
	e := newTestEngine()
	// Pairwise: 0-40 within the 0.45 threshold (distance ~0.234),
	// 40-80 within as well, but 0-80 is far outside (distance ~0.826).
	addFaces(t, e,
		testRecord(1, 0),
		testRecord(2, 40),
		testRecord(3, 80),
	)

	clusters := e.ClusterUnknown()
	if len(clusters) != 2 {
		t.Fatalf("got %d clusters, want 2: %v", len(clusters), clusters)
	}
	if clusters[0].Size != 2 || clusters[1].Size != 1 {
		t.Errorf("cluster sizes = %d, %d; want 2, 1", clusters[0].Size, clusters[1].Size)
	}
}

// A review cluster larger than one search page must come back whole, not
// split at the page boundary.
func TestClusterUnknownLargeCluster(t *testing.T) {
	n := clusterSearchK + 44
	records := make([]*FaceRecord, 0, n)
	for i := 0; i < n; i++ {
		// All within a 30 degree fan, far inside the cluster threshold.
		records = append(records, testRecord(int64(i+1), float64(i)*0.1))
	}

	e := newTestEngine()
	if err := e.LoadRecords(context.Background(), records); err != nil {
		t.Fatalf("load: %v", err)
	}

	clusters := e.ClusterUnknown()
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}
	if clusters[0].Size != n {
		t.Errorf("cluster size = %d, want %d", clusters[0].Size, n)
	}
}

func TestClusterUnknownSkipsAssignedAndExcluded(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	addFaces(t, e,
		testRecord(1, 0),
		testRecord(2, 5),
		testRecord(3, 10),
	)
	if err := e.Assign(ctx, 1, "p1", nil); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := e.Exclude(ctx, 2); err != nil {
		t.Fatalf("exclude: %v", err)
	}

	clusters := e.ClusterUnknown()
	if len(clusters) != 1 || clusters[0].Size != 1 || clusters[0].Seed != 3 {
		t.Fatalf("expected a single singleton cluster of record 3, got %v", clusters)
	}
}

func TestClusterUnknownMemberOrdering(t *testing.T) {
	e := newTestEngine()
	addFaces(t, e,
		testRecord(1, 0),
		testRecord(2, 12),
		testRecord(3, 6),
	)

	clusters := e.ClusterUnknown()
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}
	members := clusters[0].Members
	for i := 1; i < len(members); i++ {
		if members[i].Distance < members[i-1].Distance {
			t.Errorf("members not ordered by distance: %v", members)
		}
	}
}
