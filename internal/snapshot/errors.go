package snapshot

import "errors"

var (
	// ErrNotImplemented is returned for storage formats that are recognized
	// but not supported.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedFormat is returned when the file extension names no
	// known snapshot format.
	ErrUnsupportedFormat = errors.New("unsupported snapshot format")

	// ErrExists is returned when saving over an existing file without force.
	ErrExists = errors.New("snapshot file already exists")

	// ErrUnsupportedVersion is returned for documents written by a newer
	// format version.
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")

	// ErrInvalid is returned when a document decodes but is inconsistent.
	ErrInvalid = errors.New("invalid snapshot")
)
