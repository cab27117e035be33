// Package store defines the versioned document store the engine reads and writes graphs through.
package store

import (
	"context"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// AnyVersion as an expected version makes Put overwrite unconditionally
const AnyVersion = "*"

// Object is a stored document and the version token it was read at
type Object struct {
	Data    []byte
	Version string
}

// Store is a key to blob store with compare-and-set writes.
//
// Get reports found=false with a nil error when the key was never written.
// Put writes data only if the stored version still equals expectedVersion ("" when the key
// must not exist yet, AnyVersion to skip the check) and returns the new version token.
// A stale expectation fails with a conflict error and leaves the stored document unchanged.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (Object, bool, error)
	Put(ctx context.Context, key string, data []byte, expectedVersion string) (string, error)
}

// Closer is implemented by stores holding a connection or file handle
type Closer interface {
	Close(ctx context.Context) error
}

// Key returns the storage key of a graph
func Key(graphID string) string {
	return graphID + ".json"
}

// Version derives the version token of a document from its content
func Version(data []byte) string {
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}

// Matches reports whether a put expecting expected may replace a document stored at current.
// exists tells whether anything is stored at all.
func Matches(expected, current string, exists bool) bool {
	switch {
	case expected == AnyVersion:
		return true
	case !exists:
		return expected == ""
	default:
		return expected == current
	}
}
