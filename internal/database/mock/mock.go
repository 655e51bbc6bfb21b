// Package mock provides in-memory implementations of the database
// interfaces for testing.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkadlec/facegallery/internal/database"
	"github.com/mkadlec/facegallery/internal/identity"
	"github.com/mkadlec/facegallery/internal/people"
)

// FaceStore is an in-memory implementation of database.FaceStore.
type FaceStore struct {
	mu     sync.RWMutex
	faces  map[int64]*identity.FaceRecord
	nextID int64

	// Track calls
	SaveFaceCalls         []int64
	UpdateAssignmentCalls []AssignmentCall
	SetExcludedCalls      []ExcludedCall
	DeleteFaceCalls       []int64

	// Error injection
	SaveFaceError         error
	UpdateAssignmentError error
	SetExcludedError      error
	DeleteFaceError       error
	LoadError             error
}

// AssignmentCall tracks an UpdateAssignment call.
type AssignmentCall struct {
	ID         int64
	PersonUID  string
	Confidence float64
	Verified   bool
}

// ExcludedCall tracks a SetExcluded call.
type ExcludedCall struct {
	ID       int64
	Excluded bool
}

// NewFaceStore creates a new in-memory face store.
func NewFaceStore() *FaceStore {
	return &FaceStore{faces: make(map[int64]*identity.FaceRecord)}
}

// AddFace seeds the store with a record, assigning an ID when unset.
func (m *FaceStore) AddFace(rec *identity.FaceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == 0 {
		m.nextID++
		rec.ID = m.nextID
	} else if rec.ID > m.nextID {
		m.nextID = rec.ID
	}
	m.faces[rec.ID] = rec
}

// InsertFace assigns an ID like the real repository does.
func (m *FaceStore) InsertFace(_ context.Context, rec *identity.FaceRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	m.AddFace(rec)
	return nil
}

// SaveFace upserts a record.
func (m *FaceStore) SaveFace(_ context.Context, rec *identity.FaceRecord) error {
	if m.SaveFaceError != nil {
		return m.SaveFaceError
	}
	m.SaveFaceCalls = append(m.SaveFaceCalls, rec.ID)
	m.AddFace(rec)
	return nil
}

// UpdateAssignment records an assignment change.
func (m *FaceStore) UpdateAssignment(
	_ context.Context, id int64, personUID string, confidence float64, verified bool,
) error {
	if m.UpdateAssignmentError != nil {
		return m.UpdateAssignmentError
	}
	m.UpdateAssignmentCalls = append(m.UpdateAssignmentCalls, AssignmentCall{
		ID: id, PersonUID: personUID, Confidence: confidence, Verified: verified,
	})
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.faces[id]; ok {
		rec.PersonUID = personUID
		rec.Confidence = confidence
		rec.Verified = verified
	}
	return nil
}

// SetExcluded records an exclusion change.
func (m *FaceStore) SetExcluded(_ context.Context, id int64, excluded bool) error {
	if m.SetExcludedError != nil {
		return m.SetExcludedError
	}
	m.SetExcludedCalls = append(m.SetExcludedCalls, ExcludedCall{ID: id, Excluded: excluded})
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.faces[id]; ok {
		rec.Excluded = excluded
	}
	return nil
}

// DeleteFace removes a record.
func (m *FaceStore) DeleteFace(_ context.Context, id int64) error {
	if m.DeleteFaceError != nil {
		return m.DeleteFaceError
	}
	m.DeleteFaceCalls = append(m.DeleteFaceCalls, id)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.faces, id)
	return nil
}

// LoadActiveFaces returns all stored records.
func (m *FaceStore) LoadActiveFaces(_ context.Context) ([]*identity.FaceRecord, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := make([]*identity.FaceRecord, 0, len(m.faces))
	for _, rec := range m.faces {
		records = append(records, rec)
	}
	return records, nil
}

// GetFacesByPhoto returns all records of one photo.
func (m *FaceStore) GetFacesByPhoto(_ context.Context, photoUID string) ([]*identity.FaceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var records []*identity.FaceRecord
	for _, rec := range m.faces {
		if rec.PhotoUID == photoUID {
			records = append(records, rec)
		}
	}
	return records, nil
}

// DeleteFacesByPhoto removes all records of one photo.
func (m *FaceStore) DeleteFacesByPhoto(_ context.Context, photoUID string) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id, rec := range m.faces {
		if rec.PhotoUID == photoUID {
			ids = append(ids, id)
			delete(m.faces, id)
		}
	}
	return ids, nil
}

// CountFaces returns the number of stored records.
func (m *FaceStore) CountFaces(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.faces), nil
}

// PersonStore is an in-memory implementation of database.PersonStore.
type PersonStore struct {
	mu     sync.RWMutex
	people map[string]*people.Person

	// Error injection
	CreateError error
	GetError    error
	ListError   error
	DeleteError error
}

// NewPersonStore creates a new in-memory person store.
func NewPersonStore() *PersonStore {
	return &PersonStore{people: make(map[string]*people.Person)}
}

// CreatePerson creates a person with a fresh UID.
func (m *PersonStore) CreatePerson(_ context.Context, name string) (*people.Person, error) {
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	p := &people.Person{
		UID:            uuid.New().String(),
		Name:           name,
		NormalizedName: people.NormalizeName(name),
		CreatedAt:      time.Now(),
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.people[p.UID] = p
	return p, nil
}

// GetPerson returns a person by UID, or nil when unknown.
func (m *PersonStore) GetPerson(_ context.Context, uid string) (*people.Person, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.people[uid], nil
}

// FindPersonByName looks a person up by normalized name.
func (m *PersonStore) FindPersonByName(_ context.Context, name string) (*people.Person, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	normalized := people.NormalizeName(name)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.people {
		if p.NormalizedName == normalized {
			return p, nil
		}
	}
	return nil, nil
}

// ListPeople returns all people.
func (m *PersonStore) ListPeople(_ context.Context) ([]people.Person, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]people.Person, 0, len(m.people))
	for _, p := range m.people {
		result = append(result, *p)
	}
	return result, nil
}

// DeletePerson removes a person.
func (m *PersonStore) DeletePerson(_ context.Context, uid string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.people, uid)
	return nil
}

// Verify interface compliance.
var _ database.FaceStore = (*FaceStore)(nil)
var _ database.PersonStore = (*PersonStore)(nil)
