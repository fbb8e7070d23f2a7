/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package command

import (
	"io"
	"sync"
)

// Exec is the function signature of REST-bound command execution.
type Exec func(rw io.Writer, req io.Reader) Error

// Executor runs command operations off the calling goroutine.
type Executor interface {
	// Go schedules fn. It must not block on fn's completion. It reports false when fn was not scheduled.
	Go(fn func()) bool
}

// GoExecutor runs every operation on its own goroutine. Once Wait has started it rejects new operations.
type GoExecutor struct {
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Go runs fn on a new goroutine.
func (e *GoExecutor) Go(fn func()) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return false
	}

	e.wg.Add(1)

	go func() {
		defer e.wg.Done()

		fn()
	}()

	return true
}

// Wait closes the executor and blocks until every operation it scheduled has returned.
func (e *GoExecutor) Wait() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.wg.Wait()
}
