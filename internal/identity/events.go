package identity

import "time"

// EventType classifies an engine activity event.
type EventType string

const (
	EventFaceAdded   EventType = "face_added"
	EventFaceRemoved EventType = "face_removed"
	EventAssigned    EventType = "assigned"
	EventRejected    EventType = "rejected"
	EventVerified    EventType = "verified"
	EventExcluded    EventType = "excluded"
	EventIncluded    EventType = "included"
	EventRematched   EventType = "rematched"
	EventRebuilt     EventType = "rebuilt"
)

// Event is a fire-and-forget notification dispatched after a successful
// engine mutation. Events are best-effort: a slow consumer loses events
// rather than blocking or failing the operation that produced them.
type Event struct {
	Type      EventType `json:"type"`
	RecordID  int64     `json:"record_id,omitempty"`
	PersonUID string    `json:"person_uid,omitempty"`
	At        time.Time `json:"at"`
}

const eventBufferSize = 256

// Events returns the engine's activity stream.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// emit publishes an event without ever blocking the calling operation.
func (e *Engine) emit(t EventType, recordID int64, personUID string) {
	ev := Event{Type: t, RecordID: recordID, PersonUID: personUID, At: time.Now()}
	select {
	case e.events <- ev:
	default:
		// Consumer is behind; drop rather than stall a core operation.
	}
}
