// Package identity implements the face identity index and clustering engine.
// It keeps an in-memory record store plus an HNSW similarity index over face
// embeddings, matches probe embeddings to known people, groups unidentified
// faces into review clusters and audits per-person embedding consistency.
// Durable persistence lives elsewhere; this engine is a rebuildable cache
// loaded from the relational store at startup.
package identity

import "time"

// FaceRecord is one detected face instance tracked by the engine.
type FaceRecord struct {
	ID        int64
	PhotoUID  string
	Embedding []float32
	BBox      []float64 // [x1, y1, x2, y2] in pixel coordinates, display only
	DetScore  float64   // detection quality from the detector (0-1)

	PersonUID  string  // empty means unknown
	Confidence float64 // recognition confidence of the last match (0-1)
	Verified   bool    // human-confirmed assignment; automatic rematching never touches it
	Excluded   bool    // kept in the store but invisible to matching and clustering

	CreatedAt time.Time
}

// Assigned reports whether the record is assigned to a person.
func (r *FaceRecord) Assigned() bool {
	return r.PersonUID != ""
}

// clone returns a deep copy so index snapshots never alias store records.
func (r *FaceRecord) clone() *FaceRecord {
	c := *r
	c.Embedding = append([]float32(nil), r.Embedding...)
	c.BBox = append([]float64(nil), r.BBox...)
	return &c
}

// MatchResult is a confident recognition of a probe embedding.
type MatchResult struct {
	PersonUID  string  `json:"person_uid"`
	RecordID   int64   `json:"record_id"`
	Distance   float64 `json:"distance"`
	Confidence float64 `json:"confidence"`
}

// ClusterMember is a face inside a review cluster.
type ClusterMember struct {
	RecordID int64   `json:"record_id"`
	PhotoUID string  `json:"photo_uid"`
	Distance float64 `json:"distance"` // cosine distance to the cluster seed
}

// Cluster groups similar unknown faces for batch labeling. Clusters are
// transient; every call recomputes them from current engine state.
type Cluster struct {
	ID      string          `json:"id"`
	Seed    int64           `json:"seed"`
	Members []ClusterMember `json:"members"`
	Size    int             `json:"size"`
}

// AuditFinding flags a record whose embedding sits far from its person's centroid.
type AuditFinding struct {
	RecordID int64   `json:"record_id"`
	PhotoUID string  `json:"photo_uid"`
	Distance float64 `json:"distance"`
}

// PersonAudit is the consistency report for a single person.
type PersonAudit struct {
	PersonUID    string         `json:"person_uid"`
	FaceCount    int            `json:"face_count"`
	MeanDistance float64        `json:"mean_distance"`
	Outliers     []AuditFinding `json:"outliers"`
}

// Expected captures the prior assignment state for compare-and-swap writes.
// When passed to a mutating operation the engine rejects the write with a
// StaleWriteError if the record no longer matches.
type Expected struct {
	PersonUID string `json:"person_uid"`
	Verified  bool   `json:"verified"`
}

// Stats summarizes current engine state.
type Stats struct {
	Records   int       `json:"records"`
	Indexed   int       `json:"indexed"`
	Excluded  int       `json:"excluded"`
	Assigned  int       `json:"assigned"`
	Verified  int       `json:"verified"`
	Unknown   int       `json:"unknown"`
	Dimension int       `json:"dimension"`
	RebuiltAt time.Time `json:"rebuilt_at"`
}
