/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package handle provides a concurrency-safe table mapping opaque 32-bit handles to owned records.
//
// A handle is a capability token: possessing a live handle is enough to read or mutate its record.
// Handles are never reused while the record they name is still registered.
package handle

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// maxAllocAttempts bounds the retries on a (very unlikely) handle collision.
const maxAllocAttempts = 32

// ErrNotFound is returned when no live record exists for a handle.
var ErrNotFound = errors.New("handle not found")

type entry[T any] struct {
	mu    sync.Mutex
	value T
}

// Registry owns records of type T and hands out handles to them.
// The zero value is not usable, create registries with New.
type Registry[T any] struct {
	mu      sync.RWMutex
	entries map[uint32]*entry[T]
	// random is the handle source; replaced in tests.
	random func() (uint32, error)
}

// New returns an empty registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{
		entries: make(map[uint32]*entry[T]),
		random:  randomHandle,
	}
}

// Add inserts v and returns the newly allocated, non-zero handle.
func (r *Registry[T]) Add(v T) (uint32, error) {
	return r.AddFunc(func(uint32) T { return v })
}

// AddFunc allocates a handle and inserts the value fn builds for it. The value is visible only once
// it carries its handle. fn runs under the table lock and must not call back into the registry.
func (r *Registry[T]) AddFunc(fn func(h uint32) T) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 0; i < maxAllocAttempts; i++ {
		h, err := r.random()
		if err != nil {
			return 0, fmt.Errorf("allocate handle: %w", err)
		}

		if h == 0 {
			continue
		}

		if _, taken := r.entries[h]; taken {
			continue
		}

		r.entries[h] = &entry[T]{value: fn(h)}

		return h, nil
	}

	return 0, errors.New("allocate handle: no free handle found")
}

// IsValid reports whether a live record exists for h.
func (r *Registry[T]) IsValid(h uint32) bool {
	_, ok := r.lookup(h)

	return ok
}

// Get returns a copy of the record stored under h.
func (r *Registry[T]) Get(h uint32) (T, error) {
	e, ok := r.lookup(h)
	if !ok {
		var zero T

		return zero, fmt.Errorf("get %d: %w", h, ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.value, nil
}

// Mutate applies fn to a copy of the record under h and stores the copy only if fn succeeds.
// No other Mutate or Get on the same handle interleaves with fn.
func (r *Registry[T]) Mutate(h uint32, fn func(v *T) error) error {
	e, ok := r.lookup(h)
	if !ok {
		return fmt.Errorf("mutate %d: %w", h, ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// a record released while we waited for its lock must not be resurrected
	if cur, live := r.lookup(h); !live || cur != e {
		return fmt.Errorf("mutate %d: %w", h, ErrNotFound)
	}

	next := e.value
	if err := fn(&next); err != nil {
		return err
	}

	e.value = next

	return nil
}

// Release removes the record under h. Releasing an unknown handle returns ErrNotFound.
func (r *Registry[T]) Release(h uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[h]; !ok {
		return fmt.Errorf("release %d: %w", h, ErrNotFound)
	}

	delete(r.entries, h)

	return nil
}

// Len returns the number of live records.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Handles returns the live handles in ascending order.
func (r *Registry[T]) Handles() []uint32 {
	r.mu.RLock()
	handles := make([]uint32, 0, len(r.entries))

	for h := range r.entries {
		handles = append(handles, h)
	}
	r.mu.RUnlock()

	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })

	return handles
}

func (r *Registry[T]) lookup(h uint32) (*entry[T], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[h]

	return e, ok
}

func randomHandle() (uint32, error) {
	var b [4]byte

	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint32(b[:]), nil
}
