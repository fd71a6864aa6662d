package engine

import "github.com/vango-dev/meld/internal/errors"

// Sentinel errors for errors.Is. Errors returned by the engine carry the same
// code with details attached.
var (
	// ErrNoRoot means no element carries the declared component id.
	ErrNoRoot = errors.New("M001")

	// ErrDuplicateComponent means the id is already registered.
	ErrDuplicateComponent = errors.New("M002")

	// ErrInvalidData means the root's data attribute is not a JSON object.
	ErrInvalidData = errors.New("M003")

	// ErrProtocol means the response was error-flagged or malformed.
	ErrProtocol = errors.New("M020")

	// ErrReconcile means the returned markup could not be applied.
	ErrReconcile = errors.New("M022")

	// ErrStaleResponse means the response was discarded because newer
	// actions were queued after dispatch.
	ErrStaleResponse = errors.New("M030")

	// ErrUnknownComponent means no registered component matches the id.
	ErrUnknownComponent = errors.New("M031")

	// ErrTargetNotFound means an injected event matched no element.
	ErrTargetNotFound = errors.New("M032")
)
