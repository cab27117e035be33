// Package idalloc assigns entity identifiers during a merge.
package idalloc

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Options controls the shape of generated ids
type Options struct {
	PrefixLength int
	SuffixLength int
	MaxAttempts  int
	Random       io.Reader // defaults to crypto/rand
}

// DefaultOptions returns the id shape used when nothing is configured
func DefaultOptions() Options {
	return Options{PrefixLength: 4, SuffixLength: 6, MaxAttempts: 16}
}

// Allocator hands out ids of the form slug(name) + "." + suffix. Every id it returns is
// unique against the taken set it was created with and against every id it already returned.
// An Allocator is scoped to a single merge and is not safe for concurrent use.
type Allocator struct {
	opts  Options
	taken map[string]struct{}
}

// New creates an allocator. taken reports whether an id is already in use in the stored graph.
func New(opts Options, taken map[string]struct{}) *Allocator {
	def := DefaultOptions()
	if opts.PrefixLength <= 0 {
		opts.PrefixLength = def.PrefixLength
	}
	if opts.SuffixLength <= 0 {
		opts.SuffixLength = def.SuffixLength
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.Random == nil {
		opts.Random = rand.Reader
	}

	used := make(map[string]struct{}, len(taken))
	for id := range taken {
		used[id] = struct{}{}
	}
	return &Allocator{opts: opts, taken: used}
}

// Allocate returns a fresh id for an entity whose primary name is primaryName
func (a *Allocator) Allocate(primaryName string) (string, error) {
	prefix := Slug(primaryName, a.opts.PrefixLength)
	for attempt := 0; attempt < a.opts.MaxAttempts; attempt++ {
		suffix, err := a.suffix()
		if err != nil {
			return "", fmt.Errorf("failed to draw id suffix: %w", err)
		}
		id := prefix + "." + suffix
		if _, clash := a.taken[id]; clash {
			continue
		}
		a.taken[id] = struct{}{}
		return id, nil
	}
	return "", fmt.Errorf("no free id for %q after %d attempts", primaryName, a.opts.MaxAttempts)
}

// Reserve passes an existing id through unchanged and marks it as used
func (a *Allocator) Reserve(existingID string) string {
	a.taken[existingID] = struct{}{}
	return existingID
}

func (a *Allocator) suffix() (string, error) {
	var sb strings.Builder
	sb.Grow(a.opts.SuffixLength)
	base := big.NewInt(int64(len(alphabet)))
	for i := 0; i < a.opts.SuffixLength; i++ {
		n, err := rand.Int(a.opts.Random, base)
		if err != nil {
			return "", err
		}
		sb.WriteByte(alphabet[n.Int64()])
	}
	return sb.String(), nil
}

// Slug lower-cases name, replaces every non-alphanumeric character with '_' and keeps at most
// length characters. An empty name slugs to "_".
func Slug(name string, length int) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if sb.Len() >= length {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	if sb.Len() == 0 {
		return "_"
	}
	return sb.String()
}
