// Package directory resolves logical component names to their current
// handles and maintains the short-TTL cached allow-list of authorized
// writers. The allow-list fails closed: an expired set that cannot be
// refreshed rejects every caller rather than authorizing against stale data.
package directory

import (
	"context"
	"fmt"
)

// Resolver maps logical component names to current handles.
// Implementations may be backed by governance/upgrade machinery; this
// package only consumes the lookup surface.
type Resolver interface {
	// Resolve returns the current handle for name, failing if unresolved.
	Resolve(ctx context.Context, name string) (string, error)
	// ResolveOptional returns (handle, true) when name resolves, ("", false)
	// when it is simply absent. Errors are reserved for lookup failures.
	ResolveOptional(ctx context.Context, name string) (string, bool, error)
}

// Static is a fixed name->handle table. Handy for single-process wiring and
// tests; it never fails transiently.
type Static map[string]string

var _ Resolver = Static(nil)

func (s Static) Resolve(_ context.Context, name string) (string, error) {
	h, ok := s[name]
	if !ok {
		return "", fmt.Errorf("directory: %q unresolved", name)
	}
	return h, nil
}

func (s Static) ResolveOptional(_ context.Context, name string) (string, bool, error) {
	h, ok := s[name]
	return h, ok, nil
}
