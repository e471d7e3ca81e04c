// Package slug derives unique URL identifiers from titles.
package slug

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultMaxAttempts bounds how many candidates Allocate probes.
const DefaultMaxAttempts = 10000

// FallbackBase is used when a title has no usable characters.
const FallbackBase = "untitled"

// ErrSlugExhausted matches every *SlugExhaustedError.
var ErrSlugExhausted = errors.New("slug: attempts exhausted")

// SlugExhaustedError means every probed candidate was taken. In practice this
// points at a faulty existence check rather than real collisions.
type SlugExhaustedError struct {
	Base     string
	Attempts int
}

func (e *SlugExhaustedError) Error() string {
	return fmt.Sprintf("slug: no free candidate for %q after %d attempts", e.Base, e.Attempts)
}

func (e *SlugExhaustedError) Is(target error) bool {
	return target == ErrSlugExhausted
}

// ExistsFunc reports whether candidate is already taken.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Normalize lowercases title, drops everything outside [a-z0-9 ] and joins
// the remaining words with single hyphens.
func Normalize(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), "-")
}

// Allocator hands out slugs that its ExistsFunc does not know about.
type Allocator struct {
	exists      ExistsFunc
	maxAttempts int
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithMaxAttempts overrides DefaultMaxAttempts. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(a *Allocator) {
		if n >= 1 {
			a.maxAttempts = n
		}
	}
}

// NewAllocator creates an allocator probing through exists.
func NewAllocator(exists ExistsFunc, opts ...Option) *Allocator {
	a := &Allocator{exists: exists, maxAttempts: DefaultMaxAttempts}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate returns the first free candidate among base, base-1, base-2, ...
// where base is Normalize(title). Probes run one at a time since each
// depends on the previous one being taken.
func (a *Allocator) Allocate(ctx context.Context, title string) (string, error) {
	base := Normalize(title)
	if base == "" {
		base = FallbackBase
	}

	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		candidate := base
		if attempt > 0 {
			candidate = base + "-" + strconv.Itoa(attempt)
		}

		taken, err := a.exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}

	return "", &SlugExhaustedError{Base: base, Attempts: a.maxAttempts}
}

// Allocate is a one-shot helper around NewAllocator(exists).Allocate.
func Allocate(ctx context.Context, title string, exists ExistsFunc) (string, error) {
	return NewAllocator(exists).Allocate(ctx, title)
}
