// Package lock implements the directory-level build marker.
//
// A writer creates the marker with O_EXCL and, where the platform supports
// it, holds an advisory flock on it until the index has been published. The
// marker body records who holds it. Readers never wait on the marker: its
// presence means "an index is being built; proceed without one".
//
// A writer that crashes leaves the marker behind. With flock, a marker that
// nobody holds locked is orphaned once it is older than a short grace period
// (which covers the window between create and lock). Without flock, a marker
// older than StaleAfter is treated as orphaned. The next writer breaks an
// orphaned marker; readers only report it.
package lock

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	gojson "github.com/goccy/go-json"
)

// State is the result of probing a marker.
type State int

const (
	// Absent means no marker exists.
	Absent State = iota
	// Held means a live writer owns the marker.
	Held
	// Orphaned means the marker was left behind by a writer that is gone.
	Orphaned
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Held:
		return "held"
	case Orphaned:
		return "orphaned"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrHeld is returned by Acquire when another writer holds the marker.
var ErrHeld = errors.New("lock held by another writer")

// HeldError carries the owner recorded in a held marker.
type HeldError struct {
	Path  string
	Owner Owner
}

func (e *HeldError) Error() string {
	return fmt.Sprintf("%s: %v (%s)", e.Path, ErrHeld, e.Owner)
}

func (e *HeldError) Is(target error) bool {
	return target == ErrHeld
}

// Owner is the marker body.
type Owner struct {
	PID     int       `json:"pid"`
	Host    string    `json:"host"`
	Started time.Time `json:"started"`
}

func (o Owner) String() string {
	if o.PID == 0 {
		return "unknown owner"
	}
	return fmt.Sprintf("pid %d on %s since %s", o.PID, o.Host, o.Started.Format(time.RFC3339))
}

// Options tune staleness detection.
type Options struct {
	// Grace is how long an unlocked marker is still considered held on
	// platforms with flock. Defaults to one second.
	Grace time.Duration
	// StaleAfter is the marker age after which it is considered orphaned on
	// platforms without flock. Defaults to ten minutes.
	StaleAfter time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Grace <= 0 {
		o.Grace = time.Second
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = 10 * time.Minute
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Lock is a held marker.
type Lock struct {
	path  string
	f     *os.File
	owner Owner
}

// Path returns the marker path.
func (l *Lock) Path() string { return l.path }

// Owner returns the owner record written into the marker.
func (l *Lock) Owner() Owner { return l.owner }

// maxBreakAttempts bounds the create/break loop when writers race.
const maxBreakAttempts = 3

// Acquire creates and locks the marker at path. It breaks an orphaned marker
// and returns a *HeldError if a live writer holds it.
func Acquire(path string, opts Options) (*Lock, error) {
	opts = opts.withDefaults()
	for range maxBreakAttempts {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
		if err == nil {
			return claim(path, f, opts)
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}
		if err := breakOrphan(path, opts); err != nil {
			return nil, err
		}
	}
	return nil, &HeldError{Path: path}
}

func claim(path string, f *os.File, opts Options) (*Lock, error) {
	fail := func(err error) (*Lock, error) {
		if sameFile(f, path) {
			_ = os.Remove(path)
		}
		_ = f.Close()
		return nil, err
	}
	// Probers lock a marker briefly to test it, so a fresh marker may be
	// locked for a moment by someone else. They never judge it orphaned
	// within the grace period.
	deadline := time.Now().Add(opts.Grace / 2)
	for {
		ok, err := tryLock(f)
		if err != nil {
			return fail(err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return fail(&HeldError{Path: path})
		}
		time.Sleep(time.Millisecond)
	}

	owner := Owner{PID: os.Getpid(), Started: opts.Now()}
	owner.Host, _ = os.Hostname()
	body, err := gojson.Marshal(owner)
	if err != nil {
		return fail(err)
	}
	if _, err := f.Write(body); err != nil {
		return fail(err)
	}
	return &Lock{path: path, f: f, owner: owner}, nil
}

// breakOrphan removes the marker at path if it is orphaned. It returns a
// *HeldError if the marker is live and nil if the caller should retry.
func breakOrphan(path string, opts Options) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	state, owner, err := probeFile(f, opts)
	if err != nil {
		return err
	}
	if state == Held {
		return &HeldError{Path: path, Owner: owner}
	}
	// The flock taken by probeFile stays held on f until it is closed, so a
	// concurrent breaker cannot also judge this marker orphaned.
	if !sameFile(f, path) {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Probe reports the state of the marker at path without modifying it.
func Probe(path string, opts Options) (State, Owner, error) {
	opts = opts.withDefaults()
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Absent, Owner{}, nil
	}
	if err != nil {
		return Absent, Owner{}, err
	}
	defer f.Close()
	return probeFile(f, opts)
}

func probeFile(f *os.File, opts Options) (State, Owner, error) {
	fi, err := f.Stat()
	if err != nil {
		return Absent, Owner{}, err
	}
	owner := readOwner(f)
	age := opts.Now().Sub(fi.ModTime())

	if !flockSupported {
		if age >= opts.StaleAfter {
			return Orphaned, owner, nil
		}
		return Held, owner, nil
	}

	ok, err := tryLock(f)
	if err != nil {
		return Absent, owner, err
	}
	if !ok || age < opts.Grace {
		return Held, owner, nil
	}
	return Orphaned, owner, nil
}

// readOwner decodes the marker body. A marker whose body has not been
// written yet, or is damaged, yields the zero Owner.
func readOwner(f *os.File) Owner {
	body, err := io.ReadAll(io.LimitReader(f, 4096))
	if err != nil {
		return Owner{}
	}
	var o Owner
	if err := gojson.Unmarshal(body, &o); err != nil {
		return Owner{}
	}
	return o
}

func sameFile(f *os.File, path string) bool {
	a, err := f.Stat()
	if err != nil {
		return false
	}
	b, err := os.Stat(path)
	if err != nil {
		return false
	}
	return os.SameFile(a, b)
}

// Release removes the marker if it is still ours and drops the lock.
// It is idempotent.
func (l *Lock) Release() error {
	if l.f == nil {
		return nil
	}
	var err error
	if sameFile(l.f, l.path) {
		if rmErr := os.Remove(l.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = rmErr
		}
	}
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}
