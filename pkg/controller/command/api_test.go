/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package command

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGoExecutor(t *testing.T) {
	t.Run("wait returns after scheduled operations", func(t *testing.T) {
		var ran int32

		e := &GoExecutor{}

		for i := 0; i < 5; i++ {
			require.True(t, e.Go(func() { atomic.AddInt32(&ran, 1) }))
		}

		e.Wait()
		require.Equal(t, int32(5), atomic.LoadInt32(&ran))
	})

	t.Run("rejects operations once closed", func(t *testing.T) {
		var ran int32

		e := &GoExecutor{}
		e.Wait()

		require.False(t, e.Go(func() { atomic.AddInt32(&ran, 1) }))

		e.Wait()
		require.Zero(t, atomic.LoadInt32(&ran))
	})

	t.Run("running operation cannot schedule once wait started", func(t *testing.T) {
		e := &GoExecutor{}
		release := make(chan struct{})
		nested := make(chan bool, 1)

		require.True(t, e.Go(func() {
			<-release
			nested <- e.Go(func() {})
		}))

		done := make(chan struct{})

		go func() {
			e.Wait()
			close(done)
		}()

		require.Eventually(t, func() bool {
			e.mu.Lock()
			defer e.mu.Unlock()

			return e.closed
		}, time.Second, time.Millisecond)

		close(release)
		<-done

		require.False(t, <-nested)
	})
}
