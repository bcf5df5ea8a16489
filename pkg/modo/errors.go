package modo

import (
	"errors"

	"github.com/sdsc-ordes/modos-api/pkg/model"
)

// Error kinds surfaced by archive operations. All are fatal to the single
// operation in progress; nothing is retried.
var (
	// ErrAlreadyExists reports a create against a non-empty archive.
	ErrAlreadyExists = errors.New("modo: archive already exists")
	// ErrDuplicateID reports an add reusing an id already present in its type.
	ErrDuplicateID = errors.New("modo: duplicate element id")
	// ErrNotFound reports an operation referencing an absent element.
	ErrNotFound = errors.New("modo: element not found")
	// ErrTypeMismatch reports an update whose record type differs from the
	// stored element's type.
	ErrTypeMismatch = errors.New("modo: element type mismatch")
	// ErrInvalidPath reports a missing or unusable data_path when a file
	// operation needs one.
	ErrInvalidPath = errors.New("modo: invalid data path")

	// ErrUnknownType reports a record type outside the recognised set.
	ErrUnknownType = model.ErrUnknownType
	// ErrInvalidRelationship reports a has-part link the schema forbids.
	ErrInvalidRelationship = model.ErrInvalidRelationship
)
