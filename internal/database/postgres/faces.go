package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/mkadlec/facegallery/internal/database"
	"github.com/mkadlec/facegallery/internal/identity"
)

// FaceRepository provides PostgreSQL-backed face record storage. It is the
// durable side of the in-memory engine: the engine writes through to it and
// seeds itself from LoadActiveFaces at startup.
type FaceRepository struct {
	pool *Pool
}

// NewFaceRepository creates a new PostgreSQL face repository.
func NewFaceRepository(pool *Pool) *FaceRepository {
	return &FaceRepository{pool: pool}
}

const faceColumns = `id, photo_uid, embedding, bbox, det_score, person_uid, confidence, verified, excluded, created_at`

// InsertFace stores a brand-new face record and fills in its database ID.
// Called during photo ingestion, before the record enters the engine.
func (r *FaceRepository) InsertFace(ctx context.Context, rec *identity.FaceRecord) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO faces (photo_uid, embedding, bbox, det_score, person_uid, confidence, verified, excluded)
		VALUES ($1, $2::vector, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`,
		rec.PhotoUID,
		pgvector.NewVector(rec.Embedding),
		pq.Array(rec.BBox),
		rec.DetScore,
		nullString(rec.PersonUID),
		rec.Confidence,
		rec.Verified,
		rec.Excluded,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert face: %w", err)
	}
	return nil
}

// SaveFace upserts a full face record by ID.
func (r *FaceRepository) SaveFace(ctx context.Context, rec *identity.FaceRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO faces (id, photo_uid, embedding, bbox, det_score, person_uid, confidence, verified, excluded)
		VALUES ($1, $2, $3::vector, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			person_uid = EXCLUDED.person_uid,
			confidence = EXCLUDED.confidence,
			verified   = EXCLUDED.verified,
			excluded   = EXCLUDED.excluded
	`,
		rec.ID,
		rec.PhotoUID,
		pgvector.NewVector(rec.Embedding),
		pq.Array(rec.BBox),
		rec.DetScore,
		nullString(rec.PersonUID),
		rec.Confidence,
		rec.Verified,
		rec.Excluded,
	)
	if err != nil {
		return fmt.Errorf("save face %d: %w", rec.ID, err)
	}
	return nil
}

// UpdateAssignment persists an assignment change for one face record.
func (r *FaceRepository) UpdateAssignment(
	ctx context.Context, id int64, personUID string, confidence float64, verified bool,
) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE faces SET person_uid = $1, confidence = $2, verified = $3
		WHERE id = $4
	`, nullString(personUID), confidence, verified, id)
	if err != nil {
		return fmt.Errorf("update assignment for face %d: %w", id, err)
	}
	return nil
}

// SetExcluded persists the exclusion flag for one face record.
func (r *FaceRepository) SetExcluded(ctx context.Context, id int64, excluded bool) error {
	if _, err := r.pool.Exec(ctx, "UPDATE faces SET excluded = $1 WHERE id = $2", excluded, id); err != nil {
		return fmt.Errorf("set excluded for face %d: %w", id, err)
	}
	return nil
}

// DeleteFace removes one face record.
func (r *FaceRepository) DeleteFace(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM faces WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete face %d: %w", id, err)
	}
	return nil
}

// LoadActiveFaces returns all stored face records ordered by ID.
func (r *FaceRepository) LoadActiveFaces(ctx context.Context) ([]*identity.FaceRecord, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+faceColumns+" FROM faces ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query faces: %w", err)
	}
	defer rows.Close()

	return scanFaces(rows)
}

// GetFacesByPhoto returns all face records detected in one photo.
func (r *FaceRepository) GetFacesByPhoto(ctx context.Context, photoUID string) ([]*identity.FaceRecord, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+faceColumns+" FROM faces WHERE photo_uid = $1 ORDER BY id", photoUID)
	if err != nil {
		return nil, fmt.Errorf("query faces for photo %s: %w", photoUID, err)
	}
	defer rows.Close()

	return scanFaces(rows)
}

// DeleteFacesByPhoto removes all faces of a photo and returns the deleted
// record IDs so the caller can retract them from the engine.
func (r *FaceRepository) DeleteFacesByPhoto(ctx context.Context, photoUID string) ([]int64, error) {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, "SELECT id FROM faces WHERE photo_uid = $1", photoUID)
	if err != nil {
		return nil, fmt.Errorf("query face IDs: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan face ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate face IDs: %w", err)
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, "DELETE FROM faces WHERE photo_uid = $1", photoUID); err != nil {
		return nil, fmt.Errorf("delete faces: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return ids, nil
}

// CountFaces returns the total number of stored face records.
func (r *FaceRepository) CountFaces(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM faces").Scan(&count); err != nil {
		return 0, fmt.Errorf("count faces: %w", err)
	}
	return count, nil
}

func scanFaces(rows *sql.Rows) ([]*identity.FaceRecord, error) {
	var records []*identity.FaceRecord
	for rows.Next() {
		var rec identity.FaceRecord
		var vec pgvector.Vector
		var bbox pq.Float64Array
		var personUID sql.NullString

		err := rows.Scan(
			&rec.ID,
			&rec.PhotoUID,
			&vec,
			&bbox,
			&rec.DetScore,
			&personUID,
			&rec.Confidence,
			&rec.Verified,
			&rec.Excluded,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}

		rec.Embedding = vec.Slice()
		rec.BBox = []float64(bbox)
		if personUID.Valid {
			rec.PersonUID = personUID.String
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faces: %w", err)
	}
	return records, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Verify interface compliance.
var _ database.FaceStore = (*FaceRepository)(nil)
