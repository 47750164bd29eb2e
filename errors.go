package modindex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/modindex/internal/format"
	"github.com/hupe1980/modindex/internal/keys"
	"github.com/hupe1980/modindex/internal/lock"
)

var (
	// ErrNotFound is returned by ReadIndex when the directory has no index.
	// It is the expected state before the first build.
	ErrNotFound = errors.New("index not found")

	// ErrBuilding is returned when another writer is building the index.
	// Callers should proceed without an index rather than wait.
	ErrBuilding = errors.New("index is being built")

	// ErrIO is matched by every I/O, corruption and format failure.
	ErrIO = errors.New("index I/O error")

	// ErrFormat is matched when the index has a foreign magic or an
	// unsupported version. Every ErrFormat is also an ErrIO.
	ErrFormat = errors.New("index format mismatch")

	// ErrCorrupt is matched when index content fails validation.
	// Every ErrCorrupt is also an ErrIO.
	ErrCorrupt = errors.New("index is corrupt")

	// ErrClosed is returned by lookups on a closed Index.
	ErrClosed = errors.New("index is closed")
)

// IOError describes a failed operation on an index file.
// errors.Is(err, ErrIO) reports true for every *IOError.
//
// The underlying error can be accessed via errors.Unwrap.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("modindex: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Is reports whether target is ErrIO.
func (e *IOError) Is(target error) bool { return target == ErrIO }

// LockOwner describes the writer holding a directory's build marker.
// Fields are zero when the marker body could not be read.
type LockOwner struct {
	PID     int
	Host    string
	Started time.Time
}

// BuildingError is returned when a directory's build marker is held.
// errors.Is(err, ErrBuilding) reports true.
type BuildingError struct {
	Path  string
	Owner LockOwner
}

func (e *BuildingError) Error() string {
	if e.Owner.PID == 0 {
		return fmt.Sprintf("modindex: %s: %v", e.Path, ErrBuilding)
	}
	return fmt.Sprintf("modindex: %s: %v by pid %d on %s", e.Path, ErrBuilding, e.Owner.PID, e.Owner.Host)
}

// Is reports whether target is ErrBuilding.
func (e *BuildingError) Is(target error) bool { return target == ErrBuilding }

func buildingError(path string, o lock.Owner) *BuildingError {
	return &BuildingError{Path: path, Owner: LockOwner{PID: o.PID, Host: o.Host, Started: o.Started}}
}

// Outcome classifies the result of ReadIndex or WriteIndex.
type Outcome int

const (
	// OutcomeReady means the operation succeeded.
	OutcomeReady Outcome = iota
	// OutcomeNotFound means no index exists.
	OutcomeNotFound
	// OutcomeBuilding means a concurrent writer holds the build marker.
	OutcomeBuilding
	// OutcomeIOError means the index could not be read or written.
	OutcomeIOError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReady:
		return "ready"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeBuilding:
		return "building"
	case OutcomeIOError:
		return "io_error"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// OutcomeOf classifies err. A nil error is OutcomeReady; any error that is
// neither ErrNotFound nor ErrBuilding is OutcomeIOError.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeReady
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrBuilding):
		return OutcomeBuilding
	default:
		return OutcomeIOError
	}
}

// translateError maps internal errors onto the public taxonomy.
func translateError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var ioe *IOError
	if errors.As(err, &ioe) {
		return err
	}
	var held *lock.HeldError
	if errors.As(err, &held) {
		return buildingError(path, held.Owner)
	}
	switch {
	case format.IsFormatMismatch(err):
		err = fmt.Errorf("%w: %w", ErrFormat, err)
	case errors.Is(err, format.ErrCorrupt):
		err = fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return &IOError{Op: op, Path: path, Err: err}
}

type ordinalError struct {
	ordinal uint32
	key     keys.Key
	modules int
}

func (e *ordinalError) Error() string {
	return fmt.Sprintf("posting list for %s references module %d of %d", e.key, e.ordinal, e.modules)
}

func (e *ordinalError) Unwrap() error { return format.ErrCorrupt }
