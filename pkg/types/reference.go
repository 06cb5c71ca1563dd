package types

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Reference points at a catalog item or inventory variant from a historical
// record. It is either Active (the row still exists) or Archived (the row was
// deleted and only the captured snapshot survives).
type Reference interface {
	isReference()
}

// Active is a reference whose target still exists.
type Active struct {
	ID   uuid.UUID
	Name string
}

// Archived is a reference whose target has been deleted.
type Archived struct {
	Name string
}

func (Active) isReference()   {}
func (Archived) isReference() {}

// NewReference converts a nullable foreign key plus snapshot name into a
// Reference.
func NewReference(id *uuid.UUID, name string) Reference {
	if id == nil || *id == uuid.Nil {
		return Archived{Name: name}
	}
	return Active{ID: *id, Name: name}
}

// MatchReference dispatches on the reference state. A nil reference is
// treated as archived with an empty name.
func MatchReference[T any](ref Reference, active func(Active) T, archived func(Archived) T) T {
	switch r := ref.(type) {
	case Active:
		return active(r)
	case Archived:
		return archived(r)
	default:
		return archived(Archived{})
	}
}

// IsActive reports whether ref still resolves to a live row.
func IsActive(ref Reference) bool {
	_, ok := ref.(Active)
	return ok
}

// ReferenceID returns the id of an active reference.
func ReferenceID(ref Reference) (uuid.UUID, bool) {
	if a, ok := ref.(Active); ok {
		return a.ID, true
	}
	return uuid.Nil, false
}

type referenceJSON struct {
	State string     `json:"state"`
	ID    *uuid.UUID `json:"id,omitempty"`
	Name  string     `json:"name"`
}

func (a Active) MarshalJSON() ([]byte, error) {
	id := a.ID
	return json.Marshal(referenceJSON{State: "active", ID: &id, Name: a.Name})
}

func (a Archived) MarshalJSON() ([]byte, error) {
	return json.Marshal(referenceJSON{State: "archived", Name: a.Name})
}
