package identity

import (
	"context"
	"fmt"
)

// Recognize resolves a probe embedding to a known person. It returns the
// nearest assigned, non-excluded record's person when the derived confidence
// reaches the configured threshold, and nil otherwise: recognition never
// returns a low-confidence guess as a match, the ambiguous middle ground
// belongs to the clustering review workflow.
//
// Recognize is a pure read; it never mutates any record. It touches only the
// immutable config and the current index snapshot, never the store, so it
// runs safely alongside LoadRecords.
func (e *Engine) Recognize(embedding []float32) (*MatchResult, error) {
	if err := validateEmbedding(e.cfg.Dimension, embedding); err != nil {
		return nil, err
	}
	return e.recognize(e.index.Load(), embedding, 0), nil
}

// recognize runs the match policy against a specific index snapshot.
// skip removes the probe's own record from consideration.
func (e *Engine) recognize(idx *Index, embedding []float32, skip int64) *MatchResult {
	neighbors := idx.Search(embedding, e.cfg.SearchK, SearchMatches, skip)
	if len(neighbors) == 0 {
		return nil
	}

	best := neighbors[0]
	confidence := distanceToConfidence(best.Distance)
	if confidence < e.cfg.MatchConfidence {
		return nil
	}

	return &MatchResult{
		PersonUID:  best.PersonUID,
		RecordID:   best.ID,
		Distance:   best.Distance,
		Confidence: confidence,
	}
}

// RematchUnverified re-runs recognition over every active unverified record
// and writes confident matches back, last write wins. Verified records are
// never touched; detection quality is not consulted here, only recognition
// confidence. Returns the number of records whose assignment changed.
func (e *Engine) RematchUnverified(ctx context.Context) (int, error) {
	idx := e.index.Load()

	changed := 0
	for _, entry := range idx.snapshotIn(SearchAll) {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		if entry.Verified || entry.Excluded {
			continue
		}

		match := e.recognize(idx, entry.Embedding, entry.ID)
		if match == nil || (match.PersonUID == entry.PersonUID && match.Confidence == entry.Confidence) {
			continue
		}

		if err := e.applyRematch(ctx, entry.ID, match); err != nil {
			return changed, err
		}
		changed++
	}
	if changed > 0 {
		e.emit(EventRematched, 0, "")
	}
	return changed, nil
}

// applyRematch writes an automatic recognition result onto a record,
// re-checking under the lock that no human verified it in the meantime.
func (e *Engine) applyRematch(ctx context.Context, id int64, match *MatchResult) error {
	e.mu.Lock()
	rec, err := e.store.Get(id)
	if err != nil {
		e.mu.Unlock()
		if err == ErrNotFound {
			// Removed since the snapshot was taken; nothing to do.
			return nil
		}
		return err
	}
	if rec.Verified {
		e.mu.Unlock()
		return nil
	}

	rec.PersonUID = match.PersonUID
	rec.Confidence = match.Confidence
	rec.Verified = false
	e.index.Load().UpdateMetadata(id, match.PersonUID, match.Confidence, false)
	e.mu.Unlock()

	if e.persist != nil {
		if err := e.persist.UpdateAssignment(ctx, id, match.PersonUID, match.Confidence, false); err != nil {
			return fmt.Errorf("write-through rematch for record %d: %w", id, err)
		}
	}
	return nil
}
