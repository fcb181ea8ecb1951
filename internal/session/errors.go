package session

import (
	"errors"
	"fmt"

	"github.com/banshee-data/keyscan/internal/keytemplate"
)

var (
	// ErrInsufficientFrames is returned by Complete before MinFrames
	// vectors have been accepted. The session stays in Capturing.
	ErrInsufficientFrames = errors.New("insufficient frames")
	// ErrEmptyTemplate is returned when verification is started against
	// a template with no vectors.
	ErrEmptyTemplate = keytemplate.ErrEmpty
	// ErrSessionActive is returned when a session is started while
	// another one is still active in the same Manager.
	ErrSessionActive = errors.New("another session is active")
	// ErrInvalidState is returned for an operation the current state
	// does not allow, such as frames after Abort.
	ErrInvalidState = errors.New("invalid session state")
	// ErrStorageFailure wraps any TemplateStore error.
	ErrStorageFailure = errors.New("storage failure")
	// ErrKeyNotFound is returned for an id with no enrolled template.
	ErrKeyNotFound = errors.New("key not found")
)

// InsufficientFramesError reports how many vectors were accepted and how
// many are required.
type InsufficientFramesError struct {
	Have int
	Need int
}

func (e *InsufficientFramesError) Error() string {
	return fmt.Sprintf("insufficient frames: have %d, need %d", e.Have, e.Need)
}

func (e *InsufficientFramesError) Unwrap() error { return ErrInsufficientFrames }
