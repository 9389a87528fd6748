package core

import "errors"

var (
	// ErrNotFound is returned when a note, entry or snapshot does not exist
	ErrNotFound = errors.New("not found")

	// ErrHistoryFull is returned when a bounded history rejects a push
	ErrHistoryFull = errors.New("history is full")

	// ErrTransientNote is returned for operations that need a persisted note id
	ErrTransientNote = errors.New("note has no persisted id")

	// ErrCorruptSnapshot is returned when a snapshot or journal fails validation
	ErrCorruptSnapshot = errors.New("corrupt snapshot")

	// ErrStoreUnavailable is returned when the note store cannot be read
	ErrStoreUnavailable = errors.New("note store unavailable")
)
