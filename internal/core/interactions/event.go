package interactions

import (
	"time"

	"github.com/google/uuid"
)

// Kind is the relationship or interaction an event changes
type Kind string

const (
	KindFollow  Kind = "follow"
	KindRepost  Kind = "repost"
	KindLike    Kind = "like"
	KindSave    Kind = "save"
	KindArchive Kind = "archive"
)

// Op says whether the relationship is created or removed.
// For KindArchive, create archives the collage and delete restores it.
type Op string

const (
	OpCreate Op = "create"
	OpDelete Op = "delete"
)

// Event is one interaction mutation emitted by the interaction service.
// Actor is always a user ID. Subject is a user ID for follows and a
// collage ID for everything else.
type Event struct {
	Time    time.Time `json:"time"`
	Kind    Kind      `json:"kind"`
	Actor   string    `json:"actor"`
	Subject string    `json:"subject"`
	Op      Op        `json:"op"`
}

// Validate checks that the event is well-formed
func (e *Event) Validate() error {
	switch e.Kind {
	case KindFollow, KindRepost, KindLike, KindSave, KindArchive:
	default:
		return &InvalidEventError{Reason: "unknown kind " + string(e.Kind)}
	}
	if e.Op != OpCreate && e.Op != OpDelete {
		return &InvalidEventError{Reason: "unknown op " + string(e.Op)}
	}
	if _, err := uuid.Parse(e.Actor); err != nil {
		return &InvalidEventError{Reason: "actor must be a UUID"}
	}
	if _, err := uuid.Parse(e.Subject); err != nil {
		return &InvalidEventError{Reason: "subject must be a UUID"}
	}
	if e.Kind == KindFollow && e.Actor == e.Subject {
		return &InvalidEventError{Reason: "users cannot follow themselves"}
	}
	return nil
}
