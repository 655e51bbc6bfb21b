package identity

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Default engine thresholds, overridable via configuration.
const (
	DefaultDimension       = 512
	DefaultMatchConfidence = 0.70
	DefaultClusterDistance = 0.45
	DefaultMinDetScore     = 0.50
	DefaultSearchK         = 10
)

// OutlierPolicy controls how the consistency auditor flags records.
// The product never pinned one statistic down, so both variants are
// supported: "relative" flags records farther than MeanMultiplier times the
// person's mean distance-to-centroid, "absolute" flags records beyond a
// fixed cosine distance.
type OutlierPolicy struct {
	Mode           string  `yaml:"mode"`
	MeanMultiplier float64 `yaml:"mean_multiplier"`
	MaxDistance    float64 `yaml:"max_distance"`
}

// OutlierPolicy modes.
const (
	OutlierModeRelative = "relative"
	OutlierModeAbsolute = "absolute"
)

// bound returns the distance above which a record counts as an outlier.
func (p OutlierPolicy) bound(meanDistance float64) float64 {
	if p.Mode == OutlierModeAbsolute {
		return p.MaxDistance
	}
	return p.MeanMultiplier * meanDistance
}

// Config holds the engine's tunables.
type Config struct {
	Dimension       int     // embedding dimensionality, fixed by the detector model
	MatchConfidence float64 // minimum confidence for a recognition match
	ClusterDistance float64 // max cosine distance to a cluster seed
	MinDetScore     float64 // detections below this never enter the index
	SearchK         int     // candidates fetched per recognition query
	Outliers        OutlierPolicy
}

func (c *Config) applyDefaults() {
	if c.Dimension <= 0 {
		c.Dimension = DefaultDimension
	}
	if c.MatchConfidence <= 0 {
		c.MatchConfidence = DefaultMatchConfidence
	}
	if c.ClusterDistance <= 0 {
		c.ClusterDistance = DefaultClusterDistance
	}
	if c.MinDetScore <= 0 {
		c.MinDetScore = DefaultMinDetScore
	}
	if c.SearchK <= 0 {
		c.SearchK = DefaultSearchK
	}
	if c.Outliers.Mode == "" {
		c.Outliers.Mode = OutlierModeRelative
	}
	if c.Outliers.MeanMultiplier <= 0 {
		c.Outliers.MeanMultiplier = 2.0
	}
	if c.Outliers.MaxDistance <= 0 {
		c.Outliers.MaxDistance = 0.65
	}
}

// Persister receives write-through calls after successful engine mutations.
// The engine is a cache over durable storage; persistence runs outside the
// lock guarding the in-memory state.
type Persister interface {
	SaveFace(ctx context.Context, rec *FaceRecord) error
	UpdateAssignment(ctx context.Context, id int64, personUID string, confidence float64, verified bool) error
	SetExcluded(ctx context.Context, id int64, excluded bool) error
	DeleteFace(ctx context.Context, id int64) error
}

// Engine is the face identity index and clustering engine. It owns the
// record store and the live similarity index and serializes every mutation;
// reads run lock-free against the current index snapshot, so a query that
// started before a rebuild finishes against the index it loaded.
type Engine struct {
	cfg     Config
	persist Persister // optional; nil disables write-through

	mu    sync.Mutex // serializes store and index mutations
	store *RecordStore
	index atomic.Pointer[Index]

	rebuiltAt atomic.Int64 // unix nanos of the last successful rebuild

	events chan Event
}

// NewEngine creates an engine with an empty store and index. The persister
// may be nil when durable storage is handled elsewhere (tests, dry runs).
func NewEngine(cfg Config, persist Persister) *Engine {
	cfg.applyDefaults()
	e := &Engine{
		cfg:     cfg,
		persist: persist,
		store:   NewRecordStore(cfg.Dimension),
		events:  make(chan Event, eventBufferSize),
	}
	e.index.Store(NewIndex())
	return e
}

// Config returns the engine's effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// indexable reports whether a record belongs in the similarity index.
// Low-quality detections and excluded records stay store-only.
func (e *Engine) indexable(rec *FaceRecord) bool {
	return len(rec.Embedding) > 0 && !rec.Excluded && rec.DetScore >= e.cfg.MinDetScore
}

// LoadRecords replaces the engine's state with a bulk snapshot, typically
// the relational store's active records at startup, and builds a fresh index.
func (e *Engine) LoadRecords(ctx context.Context, records []*FaceRecord) error {
	store := NewRecordStore(e.cfg.Dimension)
	indexable := make([]*FaceRecord, 0, len(records))
	for _, rec := range records {
		if err := store.Put(rec); err != nil {
			return fmt.Errorf("loading record %d: %w", rec.ID, err)
		}
		if e.indexable(rec) {
			indexable = append(indexable, rec)
		}
	}

	idx, err := BuildIndex(ctx, indexable)
	if err != nil {
		return fmt.Errorf("building index: %w", err)
	}

	e.mu.Lock()
	e.store = store
	e.index.Store(idx)
	e.mu.Unlock()

	e.rebuiltAt.Store(time.Now().UnixNano())
	return nil
}

// AddFace stores a new face record, inserts it into the index when eligible
// and runs automatic recognition against it. A confident match is written
// back onto the record with Verified left false; an inconclusive probe
// leaves the record unknown for the clustering workflow. Returns the match,
// if any.
func (e *Engine) AddFace(ctx context.Context, rec *FaceRecord) (*MatchResult, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	e.mu.Lock()
	idx := e.index.Load()
	if idx.Contains(rec.ID) {
		e.mu.Unlock()
		return nil, &DuplicateIDError{ID: rec.ID}
	}
	if err := e.store.Put(rec); err != nil {
		e.mu.Unlock()
		return nil, err
	}

	var match *MatchResult
	if e.indexable(rec) {
		if err := idx.Insert(rec); err != nil {
			e.mu.Unlock()
			return nil, err
		}
		// Recognize against everything but the record itself.
		match = e.recognize(idx, rec.Embedding, rec.ID)
		if match != nil {
			rec.PersonUID = match.PersonUID
			rec.Confidence = match.Confidence
			rec.Verified = false
			idx.UpdateMetadata(rec.ID, rec.PersonUID, rec.Confidence, false)
		}
	}
	e.mu.Unlock()

	if err := e.writeThrough(ctx, rec); err != nil {
		return match, err
	}
	e.emit(EventFaceAdded, rec.ID, rec.PersonUID)
	return match, nil
}

// RemoveFace deletes a record from the store and retracts it from the index,
// used when the owning photo or assignment is deleted.
func (e *Engine) RemoveFace(ctx context.Context, id int64) error {
	e.mu.Lock()
	if err := e.store.Remove(id); err != nil {
		e.mu.Unlock()
		return err
	}
	e.index.Load().Remove(id)
	e.mu.Unlock()

	if e.persist != nil {
		if err := e.persist.DeleteFace(ctx, id); err != nil {
			return fmt.Errorf("write-through delete for record %d: %w", id, err)
		}
	}
	e.emit(EventFaceRemoved, id, "")
	return nil
}

// checkExpected enforces compare-and-swap semantics for metadata writes.
func checkExpected(rec *FaceRecord, expect *Expected) error {
	if expect == nil {
		return nil
	}
	if rec.PersonUID != expect.PersonUID || rec.Verified != expect.Verified {
		return &StaleWriteError{ID: rec.ID}
	}
	return nil
}

// Assign sets the record's person. This is the human labeling path: the
// assignment is taken as certain (confidence 1.0) but stays unverified
// until explicitly confirmed. Pass expect to fail on concurrent changes.
func (e *Engine) Assign(ctx context.Context, id int64, personUID string, expect *Expected) error {
	e.mu.Lock()
	rec, err := e.store.Get(id)
	if err == nil {
		err = checkExpected(rec, expect)
	}
	if err != nil {
		e.mu.Unlock()
		return err
	}

	rec.PersonUID = personUID
	rec.Confidence = 1.0
	rec.Verified = false
	e.index.Load().UpdateMetadata(id, personUID, 1.0, false)
	e.mu.Unlock()

	if e.persist != nil {
		if err := e.persist.UpdateAssignment(ctx, id, personUID, 1.0, false); err != nil {
			return fmt.Errorf("write-through assign for record %d: %w", id, err)
		}
	}
	e.emit(EventAssigned, id, personUID)
	return nil
}

// Reject marks a record as not-a-usable-face: the person assignment is
// cleared and the record is excluded from matching and clustering while
// remaining in the store.
func (e *Engine) Reject(ctx context.Context, id int64, expect *Expected) error {
	e.mu.Lock()
	rec, err := e.store.Get(id)
	if err == nil {
		err = checkExpected(rec, expect)
	}
	if err != nil {
		e.mu.Unlock()
		return err
	}

	rec.PersonUID = ""
	rec.Confidence = 0
	rec.Verified = false
	rec.Excluded = true
	idx := e.index.Load()
	idx.UpdateMetadata(id, "", 0, false)
	idx.Exclude(id)
	e.mu.Unlock()

	if e.persist != nil {
		if err := e.persist.UpdateAssignment(ctx, id, "", 0, false); err != nil {
			return fmt.Errorf("write-through reject for record %d: %w", id, err)
		}
		if err := e.persist.SetExcluded(ctx, id, true); err != nil {
			return fmt.Errorf("write-through reject for record %d: %w", id, err)
		}
	}
	e.emit(EventRejected, id, "")
	return nil
}

// Verify confirms the record's current assignment. Verified is a terminal,
// human-set state: confidence becomes 1.0 and automatic rematching will
// never touch the record again. Verifying an unassigned record fails with
// ErrUnassigned. Idempotent.
func (e *Engine) Verify(ctx context.Context, id int64) error {
	e.mu.Lock()
	rec, err := e.store.Get(id)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if !rec.Assigned() {
		e.mu.Unlock()
		return ErrUnassigned
	}

	rec.Verified = true
	rec.Confidence = 1.0
	personUID := rec.PersonUID
	e.index.Load().UpdateMetadata(id, personUID, 1.0, true)
	e.mu.Unlock()

	if e.persist != nil {
		if err := e.persist.UpdateAssignment(ctx, id, personUID, 1.0, true); err != nil {
			return fmt.Errorf("write-through verify for record %d: %w", id, err)
		}
	}
	e.emit(EventVerified, id, personUID)
	return nil
}

// Exclude quarantines a record: it stays in the store but disappears from
// match and cluster results. Reversible via Include.
func (e *Engine) Exclude(ctx context.Context, id int64) error {
	e.mu.Lock()
	rec, err := e.store.Get(id)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	rec.Excluded = true
	e.index.Load().Exclude(id)
	e.mu.Unlock()

	if e.persist != nil {
		if err := e.persist.SetExcluded(ctx, id, true); err != nil {
			return fmt.Errorf("write-through exclude for record %d: %w", id, err)
		}
	}
	e.emit(EventExcluded, id, rec.PersonUID)
	return nil
}

// Include restores an excluded record's visibility. If a compacting rebuild
// dropped the record's graph node in the meantime, it is re-inserted.
func (e *Engine) Include(ctx context.Context, id int64) error {
	e.mu.Lock()
	rec, err := e.store.Get(id)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	rec.Excluded = false
	idx := e.index.Load()
	if !idx.Include(id) && e.indexable(rec) {
		if err := idx.Insert(rec); err != nil {
			e.mu.Unlock()
			return err
		}
	}
	e.mu.Unlock()

	if e.persist != nil {
		if err := e.persist.SetExcluded(ctx, id, false); err != nil {
			return fmt.Errorf("write-through include for record %d: %w", id, err)
		}
	}
	e.emit(EventIncluded, id, rec.PersonUID)
	return nil
}

// ApplyExclusions excludes each of the given records, typically audit
// findings a human decided to act on. Stops at the first error.
func (e *Engine) ApplyExclusions(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		if err := e.Exclude(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Rebuild constructs a fresh index from the current store contents and
// atomically swaps it in. Soft-excluded and low-quality records are
// compacted out of the new graph. A failed or cancelled rebuild leaves the
// live index untouched. Idempotent and safe to call at any time.
func (e *Engine) Rebuild(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var records []*FaceRecord
	for _, rec := range e.store.AllRecords() {
		if e.indexable(rec) {
			records = append(records, rec)
		}
	}

	idx, err := BuildIndex(ctx, records)
	if err != nil {
		return fmt.Errorf("rebuilding index: %w", err)
	}

	e.index.Store(idx)
	e.rebuiltAt.Store(time.Now().UnixNano())
	e.emit(EventRebuilt, 0, "")
	return nil
}

// Get returns a copy of a stored record.
func (e *Engine) Get(id int64) (*FaceRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}
	return rec.clone(), nil
}

// Stats reports current engine state.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	records := e.store.Len()
	e.mu.Unlock()

	indexed, excluded, assigned, verified, unknown := e.index.Load().counts()
	s := Stats{
		Records:   records,
		Indexed:   indexed,
		Excluded:  excluded,
		Assigned:  assigned,
		Verified:  verified,
		Unknown:   unknown,
		Dimension: e.cfg.Dimension,
	}
	if ns := e.rebuiltAt.Load(); ns > 0 {
		s.RebuiltAt = time.Unix(0, ns)
	}
	return s
}

// writeThrough persists a full record after a successful mutation.
func (e *Engine) writeThrough(ctx context.Context, rec *FaceRecord) error {
	if e.persist == nil {
		return nil
	}
	if err := e.persist.SaveFace(ctx, rec); err != nil {
		return fmt.Errorf("write-through save for record %d: %w", rec.ID, err)
	}
	return nil
}
