package resource

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/ldesmirror/internal/tree"
)

var (
	// ErrNotFound is returned when a locator has no resource.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict is returned when a patch targets a missing resource or
	// deletes a triple the resource does not contain. A conflicting patch
	// changes nothing.
	ErrConflict = errors.New("resource conflict")
)

// Store is a locator-addressed graph store.
type Store interface {
	// Get returns the normalized graph stored at locator.
	Get(ctx context.Context, locator string) (tree.Graph, error)

	// Put creates or replaces the resource at locator.
	Put(ctx context.Context, locator string, g tree.Graph) error

	// Patch atomically removes del and adds insert. Every triple in del must
	// be present.
	Patch(ctx context.Context, locator string, insert, del tree.Graph) error

	// CreateChild stores g under a fresh locator inside container and returns
	// that locator.
	CreateChild(ctx context.Context, container string, g tree.Graph) (string, error)
}

// ChildLocator returns the locator of a new child of container.
// Names are UUIDv7, so children sort by creation time.
func ChildLocator(container string) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(container, "/") + "/" + id.String(), nil
}

// Exists reports whether locator has a resource.
func Exists(ctx context.Context, s Store, locator string) (bool, error) {
	_, err := s.Get(ctx, locator)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
