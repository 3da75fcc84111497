package fileutils

import (
	"sync"
	"sync/atomic"
)

// ChangeToken represents a single-use change notification obtained from a
// Watchable FileSystem. Consumers either poll HasChanged or register a
// callback; ActiveChangeCallbacks says which approach the producing
// backend services efficiently.
type ChangeToken interface {
	// HasChanged returns true once a change has occurred. Tokens are
	// single-use; once true it stays true.
	HasChanged() bool

	// ActiveChangeCallbacks indicates whether the token proactively raises
	// callbacks. When false, consumers should poll HasChanged instead.
	ActiveChangeCallbacks() bool

	// RegisterChangeCallback registers a callback invoked when the change
	// occurs, and returns a function that unregisters it.
	RegisterChangeCallback(callback func()) (unregister func())
}

// CallbackChangeToken is a ChangeToken that supports active callbacks.
// Backends with native filesystem events call SignalChange when a matching
// change is observed.
type CallbackChangeToken struct {
	mu        sync.RWMutex
	changed   atomic.Bool
	callbacks []func()
}

// NewCallbackChangeToken creates a new ChangeToken that supports active callbacks.
func NewCallbackChangeToken() *CallbackChangeToken {
	return &CallbackChangeToken{}
}

func (t *CallbackChangeToken) HasChanged() bool {
	return t.changed.Load()
}

func (t *CallbackChangeToken) ActiveChangeCallbacks() bool {
	return true
}

func (t *CallbackChangeToken) RegisterChangeCallback(callback func()) (unregister func()) {
	t.mu.Lock()
	t.callbacks = append(t.callbacks, callback)
	index := len(t.callbacks) - 1
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if index < len(t.callbacks) {
			// Set to nil instead of removing to avoid index shifting
			t.callbacks[index] = nil
		}
	}
}

// SignalChange marks the token as changed and invokes all callbacks.
// This should be called by the backend when a change is detected.
func (t *CallbackChangeToken) SignalChange() {
	if t.changed.Swap(true) {
		return // Already changed
	}

	t.mu.RLock()
	callbacks := make([]func(), len(t.callbacks))
	copy(callbacks, t.callbacks)
	t.mu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb()
		}
	}
}

// CancelledChangeToken is a ChangeToken that never signals. Backends
// return it when watching is not available for a given pattern.
type CancelledChangeToken struct{}

func (CancelledChangeToken) HasChanged() bool            { return false }
func (CancelledChangeToken) ActiveChangeCallbacks() bool { return false }
func (CancelledChangeToken) RegisterChangeCallback(func()) (unregister func()) {
	return func() {}
}
