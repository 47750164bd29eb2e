// Package keys encodes identifier and selector spellings into one key space.
//
// An identifier key is the spelling itself. A selector key is the spelling
// prefixed with a NUL byte. NUL never occurs in a legal identifier, so an
// identifier "count" and a zero-argument selector "count" map to distinct keys.
package keys

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// SelectorDelimiter prefixes every selector key.
const SelectorDelimiter = '\x00'

// MaxLen is the longest encoded key the hash table can store.
const MaxLen = math.MaxUint16

// ErrInvalid is returned for spellings that cannot be encoded.
var ErrInvalid = errors.New("invalid key")

// Key is an encoded identifier or selector.
type Key string

// Identifier encodes a namespace-scope identifier spelling.
func Identifier(name string) (Key, error) {
	if err := validate(name, MaxLen); err != nil {
		return "", fmt.Errorf("identifier %q: %w", name, err)
	}
	return Key(name), nil
}

// Selector encodes a method selector spelling.
func Selector(sel string) (Key, error) {
	if err := validate(sel, MaxLen-1); err != nil {
		return "", fmt.Errorf("selector %q: %w", sel, err)
	}
	return Key(string(SelectorDelimiter) + sel), nil
}

func validate(s string, maxLen int) error {
	switch {
	case s == "":
		return fmt.Errorf("%w: empty spelling", ErrInvalid)
	case len(s) > maxLen:
		return fmt.Errorf("%w: spelling is %d bytes", ErrInvalid, len(s))
	case strings.IndexByte(s, SelectorDelimiter) >= 0:
		return fmt.Errorf("%w: spelling contains NUL", ErrInvalid)
	}
	return nil
}

// IsSelector reports whether k encodes a selector.
func (k Key) IsSelector() bool {
	return len(k) > 0 && k[0] == SelectorDelimiter
}

// Spelling returns the source spelling of k.
func (k Key) Spelling() string {
	if k.IsSelector() {
		return string(k[1:])
	}
	return string(k)
}

func (k Key) String() string {
	if k.IsSelector() {
		return "selector:" + k.Spelling()
	}
	return "identifier:" + string(k)
}
