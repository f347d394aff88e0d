package resource

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/roach88/ldesmirror/internal/tree"
)

// Memory is an in-process Store. The zero value is not usable; call NewMemory.
type Memory struct {
	mu        sync.RWMutex
	resources map[string]tree.Graph
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{resources: make(map[string]tree.Graph)}
}

func (m *Memory) Get(ctx context.Context, locator string) (tree.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.resources[locator]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", locator, ErrNotFound)
	}
	return slices.Clone(g), nil
}

func (m *Memory) Put(ctx context.Context, locator string, g tree.Graph) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resources[locator] = g.Normalize()
	return nil
}

func (m *Memory) Patch(ctx context.Context, locator string, insert, del tree.Graph) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.resources[locator]
	if !ok {
		return fmt.Errorf("patch %s: %w", locator, ErrConflict)
	}
	for _, t := range del {
		if !current.Has(t) {
			return fmt.Errorf("patch %s: delete %s: %w", locator, t, ErrConflict)
		}
	}

	next := make(tree.Graph, 0, len(current)+len(insert))
	for _, t := range current {
		if !del.Has(t) {
			next = append(next, t)
		}
	}
	next = append(next, insert...)
	m.resources[locator] = next.Normalize()
	return nil
}

func (m *Memory) CreateChild(ctx context.Context, container string, g tree.Graph) (string, error) {
	locator, err := ChildLocator(container)
	if err != nil {
		return "", fmt.Errorf("create child of %s: %w", container, err)
	}
	if err := m.Put(ctx, locator, g); err != nil {
		return "", err
	}
	return locator, nil
}

// Locators returns every stored locator in sorted order.
func (m *Memory) Locators() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.resources))
}

// Len returns the number of stored resources.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.resources)
}
