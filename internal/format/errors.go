package format

import "errors"

var (
	// ErrBadMagic is returned when a file does not start with the expected magic.
	ErrBadMagic = errors.New("bad magic")

	// ErrUnsupportedVersion is returned for a format version this build cannot read.
	ErrUnsupportedVersion = errors.New("unsupported format version")

	// ErrCorrupt is returned on checksum mismatch, truncation, or inconsistent sizes.
	ErrCorrupt = errors.New("corrupt index data")
)

// IsFormatMismatch reports whether err denotes a header/version mismatch
// rather than damaged content.
func IsFormatMismatch(err error) bool {
	return errors.Is(err, ErrBadMagic) || errors.Is(err, ErrUnsupportedVersion)
}
