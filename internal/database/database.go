// Package database defines the storage interfaces the rest of the
// application programs against. The postgres subpackage provides the real
// implementation, the mock subpackage an in-memory one for tests.
package database

import (
	"context"

	"github.com/mkadlec/facegallery/internal/identity"
	"github.com/mkadlec/facegallery/internal/people"
)

// FaceStore is the durable side of the face engine. It extends the engine's
// write-through interface with the bulk and per-photo operations the server
// and CLI need.
type FaceStore interface {
	identity.Persister

	// InsertFace stores a new face record and fills in its generated ID
	// and creation timestamp.
	InsertFace(ctx context.Context, rec *identity.FaceRecord) error

	// LoadActiveFaces returns every stored face record, used to seed the
	// in-memory engine at startup.
	LoadActiveFaces(ctx context.Context) ([]*identity.FaceRecord, error)

	// GetFacesByPhoto returns all face records detected in one photo.
	GetFacesByPhoto(ctx context.Context, photoUID string) ([]*identity.FaceRecord, error)

	// DeleteFacesByPhoto removes every face of a photo and returns the
	// deleted record IDs so the engine can retract them.
	DeleteFacesByPhoto(ctx context.Context, photoUID string) ([]int64, error)

	// CountFaces returns the total number of stored face records.
	CountFaces(ctx context.Context) (int, error)
}

// PersonStore manages the person directory.
type PersonStore interface {
	// CreatePerson creates a person with a fresh UID. The name is stored
	// verbatim; a normalized form is kept alongside for lookups.
	CreatePerson(ctx context.Context, name string) (*people.Person, error)

	// GetPerson returns a person by UID, or nil when unknown.
	GetPerson(ctx context.Context, uid string) (*people.Person, error)

	// FindPersonByName looks a person up by normalized name, or nil when
	// unknown.
	FindPersonByName(ctx context.Context, name string) (*people.Person, error)

	// ListPeople returns all people ordered by name.
	ListPeople(ctx context.Context) ([]people.Person, error)

	// DeletePerson removes a person. Face assignments referencing the UID
	// are cleared by the caller through the engine.
	DeletePerson(ctx context.Context, uid string) error
}
