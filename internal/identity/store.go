package identity

import "math"

// RecordStore is the authoritative in-process set of face records.
// It is a passive collection: no locking of its own, callers serialize
// through the engine. Removing a record does not retract it from the
// similarity index; the engine does that.
type RecordStore struct {
	dim     int
	records map[int64]*FaceRecord
}

// NewRecordStore creates an empty store for embeddings of the given dimensionality.
func NewRecordStore(dim int) *RecordStore {
	return &RecordStore{
		dim:     dim,
		records: make(map[int64]*FaceRecord),
	}
}

// Dimension returns the fixed embedding dimensionality.
func (s *RecordStore) Dimension() int {
	return s.dim
}

// ValidateEmbedding checks dimensionality and rejects NaN/Inf components.
func (s *RecordStore) ValidateEmbedding(embedding []float32) error {
	return validateEmbedding(s.dim, embedding)
}

func validateEmbedding(dim int, embedding []float32) error {
	if len(embedding) != dim {
		return &InvalidEmbeddingError{Expected: dim, Actual: len(embedding)}
	}
	for _, v := range embedding {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return &InvalidEmbeddingError{Expected: dim, Actual: dim, Reason: "non-finite component"}
		}
	}
	return nil
}

// Put inserts or replaces a record by id.
func (s *RecordStore) Put(rec *FaceRecord) error {
	if err := s.ValidateEmbedding(rec.Embedding); err != nil {
		return err
	}
	s.records[rec.ID] = rec
	return nil
}

// Get returns the record for an id.
func (s *RecordStore) Get(id int64) (*FaceRecord, error) {
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Remove deletes a record. The caller must retract the id from the
// similarity index as well.
func (s *RecordStore) Remove(id int64) error {
	if _, ok := s.records[id]; !ok {
		return ErrNotFound
	}
	delete(s.records, id)
	return nil
}

// Len returns the number of stored records.
func (s *RecordStore) Len() int {
	return len(s.records)
}

// ActiveRecords returns records that carry an embedding and are not excluded.
func (s *RecordStore) ActiveRecords() []*FaceRecord {
	out := make([]*FaceRecord, 0, len(s.records))
	for _, rec := range s.records {
		if len(rec.Embedding) == 0 || rec.Excluded {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// AllRecords returns every stored record, excluded ones included.
func (s *RecordStore) AllRecords() []*FaceRecord {
	out := make([]*FaceRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out
}
