package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mkadlec/facegallery/internal/database"
	"github.com/mkadlec/facegallery/internal/people"
)

// PersonRepository provides PostgreSQL-backed person storage.
type PersonRepository struct {
	pool *Pool
}

// NewPersonRepository creates a new PostgreSQL person repository.
func NewPersonRepository(pool *Pool) *PersonRepository {
	return &PersonRepository{pool: pool}
}

// CreatePerson creates a person with a fresh UID.
func (r *PersonRepository) CreatePerson(ctx context.Context, name string) (*people.Person, error) {
	p := &people.Person{
		UID:            uuid.New().String(),
		Name:           name,
		NormalizedName: people.NormalizeName(name),
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO people (uid, name, normalized_name)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, p.UID, p.Name, p.NormalizedName).Scan(&p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert person: %w", err)
	}
	return p, nil
}

// GetPerson returns a person by UID, or nil when unknown.
func (r *PersonRepository) GetPerson(ctx context.Context, uid string) (*people.Person, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT uid, name, normalized_name, created_at FROM people WHERE uid = $1
	`, uid)
	return scanPerson(row)
}

// FindPersonByName looks a person up by normalized name, or nil when unknown.
func (r *PersonRepository) FindPersonByName(ctx context.Context, name string) (*people.Person, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT uid, name, normalized_name, created_at FROM people WHERE normalized_name = $1
	`, people.NormalizeName(name))
	return scanPerson(row)
}

// ListPeople returns all people ordered by name.
func (r *PersonRepository) ListPeople(ctx context.Context) ([]people.Person, error) {
	rows, err := r.pool.Query(ctx, "SELECT uid, name, normalized_name, created_at FROM people ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query people: %w", err)
	}
	defer rows.Close()

	var result []people.Person
	for rows.Next() {
		var p people.Person
		if err := rows.Scan(&p.UID, &p.Name, &p.NormalizedName, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate people: %w", err)
	}
	return result, nil
}

// DeletePerson removes a person. Face rows referencing the UID get their
// person_uid nulled by the foreign key.
func (r *PersonRepository) DeletePerson(ctx context.Context, uid string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM people WHERE uid = $1", uid); err != nil {
		return fmt.Errorf("delete person %s: %w", uid, err)
	}
	return nil
}

func scanPerson(row *sql.Row) (*people.Person, error) {
	var p people.Person
	err := row.Scan(&p.UID, &p.Name, &p.NormalizedName, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan person: %w", err)
	}
	return &p, nil
}

// Verify interface compliance.
var _ database.PersonStore = (*PersonRepository)(nil)
