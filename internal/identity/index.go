package identity

import (
	"context"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// HNSW parameters for 512-dim face embeddings.
const (
	// hnswMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	hnswMaxNeighbors = 16

	// searchMultiplier requests more candidates from HNSW than asked for,
	// so enough survive visibility filtering.
	searchMultiplier = 3

	// minSearchCandidates is the floor for the raw HNSW candidate pool.
	minSearchCandidates = 100

	// buildCancelInterval is how many inserts happen between context checks
	// during a rebuild.
	buildCancelInterval = 256
)

// SearchMode selects the visibility filter applied to index queries.
type SearchMode int

const (
	// SearchMatches returns assigned, non-excluded records (recognition).
	SearchMatches SearchMode = iota
	// SearchUnknown returns unassigned, non-excluded records (clustering).
	SearchUnknown
	// SearchAll returns every record still visible in the index.
	SearchAll
)

// Neighbor is a single similarity search result.
type Neighbor struct {
	ID        int64
	PhotoUID  string
	PersonUID string
	Verified  bool
	Distance  float64
}

// Index is an approximate nearest-neighbor index over face embeddings.
//
// The HNSW graph is keyed by record id and holds geometry only; all
// non-geometric metadata lives in an id-keyed side map, so assignment
// changes and soft exclusion never mutate the graph. Deleting a node from
// a navigable graph is expensive and error-prone, so "removed" records
// simply lose their side-map entry and get compacted away by the next
// rebuild.
//
// The engine swaps in a fresh instance on rebuild; readers that loaded the
// old pointer finish their queries against it.
type Index struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[int64]
	entries map[int64]*FaceRecord
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.CosineDistance
	return g
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		graph:   newGraph(),
		entries: make(map[int64]*FaceRecord),
	}
}

// BuildIndex constructs a fresh index from a record snapshot, skipping
// records without embeddings. The context is checked periodically so large
// rebuilds stay cancellable; a cancelled build returns ctx.Err() and no index.
func BuildIndex(ctx context.Context, records []*FaceRecord) (*Index, error) {
	idx := NewIndex()
	for i, rec := range records {
		if i%buildCancelInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if len(rec.Embedding) == 0 {
			continue
		}
		if err := idx.Insert(rec); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Insert adds a record's embedding to the graph and its metadata to the
// side map. Inserting an id that is already live fails with DuplicateIDError.
func (x *Index) Insert(rec *FaceRecord) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.entries[rec.ID]; ok {
		return &DuplicateIDError{ID: rec.ID}
	}
	// A soft-removed record may still have its node in the graph, and the
	// graph refuses to re-add a live key. Purge it before inserting.
	x.graph.Delete(rec.ID)
	x.graph.Add(hnsw.MakeNode(rec.ID, rec.Embedding))
	x.entries[rec.ID] = rec.clone()
	return nil
}

// UpdateMetadata changes the non-geometric fields of an entry in place.
// No graph mutation happens; this is what makes reassignment cheap.
// Returns false if the id is not live in the index.
func (x *Index) UpdateMetadata(id int64, personUID string, confidence float64, verified bool) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	entry, ok := x.entries[id]
	if !ok {
		return false
	}
	entry.PersonUID = personUID
	entry.Confidence = confidence
	entry.Verified = verified
	return true
}

// Exclude soft-deletes an entry: the graph keeps the node, queries skip it.
func (x *Index) Exclude(id int64) bool {
	return x.setExcluded(id, true)
}

// Include reverses a soft exclusion. Returns false when the id is not live
// in the index (for example after a compacting rebuild); the engine then
// re-inserts the record instead.
func (x *Index) Include(id int64) bool {
	return x.setExcluded(id, false)
}

func (x *Index) setExcluded(id int64, excluded bool) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	entry, ok := x.entries[id]
	if !ok {
		return false
	}
	entry.Excluded = excluded
	return true
}

// Remove retracts an entry from query results. The graph node stays until
// the next rebuild compacts it away.
func (x *Index) Remove(id int64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.entries, id)
}

// Contains reports whether the id is live in the index.
func (x *Index) Contains(id int64) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.entries[id]
	return ok
}

// Len returns the number of live entries.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

func visible(entry *FaceRecord, mode SearchMode) bool {
	if entry.Excluded {
		return false
	}
	switch mode {
	case SearchMatches:
		return entry.Assigned()
	case SearchUnknown:
		return !entry.Assigned()
	default:
		return true
	}
}

// Search returns up to k neighbors of the query embedding, ordered by
// ascending cosine distance and filtered by the given visibility mode.
// An empty index yields an empty result, not an error. The skip id, when
// non-zero, drops that record from the results (used when the probe is an
// indexed record itself).
func (x *Index) Search(query []float32, k int, mode SearchMode, skip int64) []Neighbor {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if k <= 0 || len(x.entries) == 0 {
		return nil
	}

	// Over-fetch so visibility filtering still leaves k results.
	searchK := k * searchMultiplier
	if searchK < minSearchCandidates {
		searchK = minSearchCandidates
	}

	nodes := x.graph.Search(query, searchK)

	results := make([]Neighbor, 0, k)
	for _, n := range nodes {
		entry, ok := x.entries[n.Key]
		if !ok || !visible(entry, mode) {
			continue
		}
		if skip != 0 && n.Key == skip {
			continue
		}
		// Recompute the exact cosine distance; the graph's internal
		// distances are float32 and not exposed per result.
		results = append(results, Neighbor{
			ID:        n.Key,
			PhotoUID:  entry.PhotoUID,
			PersonUID: entry.PersonUID,
			Verified:  entry.Verified,
			Distance:  CosineDistance(query, entry.Embedding),
		})
		if len(results) >= k {
			break
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	return results
}

// snapshotIn returns copies of live entries matching the mode, sorted by id
// for deterministic iteration.
func (x *Index) snapshotIn(mode SearchMode) []*FaceRecord {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]*FaceRecord, 0, len(x.entries))
	for _, entry := range x.entries {
		if visible(entry, mode) {
			out = append(out, entry.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// counts tallies live entries by state in one pass.
func (x *Index) counts() (indexed, excluded, assigned, verified, unknown int) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	for _, entry := range x.entries {
		indexed++
		switch {
		case entry.Excluded:
			excluded++
		case entry.Assigned():
			assigned++
		default:
			unknown++
		}
		if entry.Verified {
			verified++
		}
	}
	return
}
