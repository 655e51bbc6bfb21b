package identity

import (
	"sort"

	"github.com/google/uuid"
)

// clusterSearchK is the initial per-seed neighborhood query size. When a
// full page of results still ends inside the distance threshold the search
// widens, so a cluster larger than one page is not split.
const clusterSearchK = 256

// ClusterUnknown partitions all unassigned, non-excluded records into
// similarity clusters for batch human labeling.
//
// The algorithm is greedy single-linkage under the configured distance
// threshold: each unvisited record seeds a cluster and pulls in every
// unvisited unknown record within ClusterDistance of the seed. Membership
// is decided on seed distance only, never transitively through members'
// own neighborhoods, so a thin chain of pairwise-similar faces cannot drag
// an outlier into a large cluster.
//
// Every unknown active record lands in exactly one cluster; singletons are
// legitimate clusters of size 1. Clusters come back ordered by descending
// size, members by ascending distance to the seed so the most
// representative face leads. The result is transient and recomputed from
// live state on every call.
func (e *Engine) ClusterUnknown() []Cluster {
	idx := e.index.Load()
	candidates := idx.snapshotIn(SearchUnknown)
	if len(candidates) == 0 {
		return []Cluster{}
	}

	inCandidates := make(map[int64]bool, len(candidates))
	for _, rec := range candidates {
		inCandidates[rec.ID] = true
	}

	visited := make(map[int64]bool, len(candidates))
	clusters := make([]Cluster, 0)

	for _, seed := range candidates {
		if visited[seed.ID] {
			continue
		}
		visited[seed.ID] = true

		members := []ClusterMember{{RecordID: seed.ID, PhotoUID: seed.PhotoUID, Distance: 0}}

		for _, nb := range e.seedNeighborhood(idx, seed, len(candidates)) {
			if nb.Distance > e.cfg.ClusterDistance {
				break // results are distance-ordered
			}
			if visited[nb.ID] || !inCandidates[nb.ID] {
				continue
			}
			visited[nb.ID] = true
			members = append(members, ClusterMember{
				RecordID: nb.ID,
				PhotoUID: nb.PhotoUID,
				Distance: nb.Distance,
			})
		}

		sort.Slice(members, func(i, j int) bool {
			if members[i].Distance != members[j].Distance {
				return members[i].Distance < members[j].Distance
			}
			return members[i].RecordID < members[j].RecordID
		})

		clusters = append(clusters, Cluster{
			ID:      uuid.New().String(),
			Seed:    seed.ID,
			Members: members,
			Size:    len(members),
		})
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		if clusters[i].Size != clusters[j].Size {
			return clusters[i].Size > clusters[j].Size
		}
		return clusters[i].Seed < clusters[j].Seed
	})
	return clusters
}

// seedNeighborhood queries the seed's unknown neighbors, widening the page
// until its tail falls outside ClusterDistance or every candidate was seen.
func (e *Engine) seedNeighborhood(idx *Index, seed *FaceRecord, candidates int) []Neighbor {
	k := clusterSearchK
	for {
		if k > candidates {
			k = candidates
		}
		neighbors := idx.Search(seed.Embedding, k, SearchUnknown, seed.ID)
		if k >= candidates || len(neighbors) < k ||
			neighbors[len(neighbors)-1].Distance > e.cfg.ClusterDistance {
			return neighbors
		}
		k *= 2
	}
}
