package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/ldesmirror/internal/resource"
	"github.com/roach88/ldesmirror/internal/tree"
)

// ErrInjected is returned by FailingStore for locators marked as failing.
var ErrInjected = errors.New("injected failure")

// FailingStore wraps a resource.Store and fails operations on chosen
// locators. Reads can fail independently of writes.
type FailingStore struct {
	resource.Store

	mu          sync.Mutex
	failReads   map[string]bool
	failWrites  map[string]bool
	writeCounts map[string]int
}

// NewFailingStore wraps inner. No locator fails until marked.
func NewFailingStore(inner resource.Store) *FailingStore {
	return &FailingStore{
		Store:       inner,
		failReads:   make(map[string]bool),
		failWrites:  make(map[string]bool),
		writeCounts: make(map[string]int),
	}
}

// FailReads makes Get on locator fail until Heal is called.
func (f *FailingStore) FailReads(locator string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failReads[locator] = true
}

// FailWrites makes Put and Patch on locator fail until Heal is called.
func (f *FailingStore) FailWrites(locator string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrites[locator] = true
}

// Heal clears every injected failure.
func (f *FailingStore) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.failReads)
	clear(f.failWrites)
}

// Writes returns the number of successful writes to locator.
func (f *FailingStore) Writes(locator string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeCounts[locator]
}

func (f *FailingStore) readFails(locator string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failReads[locator]
}

func (f *FailingStore) writeFails(locator string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failWrites[locator]
}

func (f *FailingStore) wrote(locator string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeCounts[locator]++
}

func (f *FailingStore) Get(ctx context.Context, locator string) (tree.Graph, error) {
	if f.readFails(locator) {
		return nil, ErrInjected
	}
	return f.Store.Get(ctx, locator)
}

func (f *FailingStore) Put(ctx context.Context, locator string, g tree.Graph) error {
	if f.writeFails(locator) {
		return ErrInjected
	}
	if err := f.Store.Put(ctx, locator, g); err != nil {
		return err
	}
	f.wrote(locator)
	return nil
}

func (f *FailingStore) Patch(ctx context.Context, locator string, insert, del tree.Graph) error {
	if f.writeFails(locator) {
		return ErrInjected
	}
	if err := f.Store.Patch(ctx, locator, insert, del); err != nil {
		return err
	}
	f.wrote(locator)
	return nil
}
