/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyedMutex(t *testing.T) {
	t.Run("serializes a key", func(t *testing.T) {
		var (
			locks   KeyedMutex
			wg      sync.WaitGroup
			counter int
		)

		for i := 0; i < 50; i++ {
			wg.Add(1)

			go func() {
				defer wg.Done()

				unlock := locks.Lock(threadKey("t1", connection))
				defer unlock()

				current := counter
				time.Sleep(time.Microsecond)
				counter = current + 1
			}()
		}

		wg.Wait()

		require.Equal(t, 50, counter)
		require.Zero(t, locks.size())
	})

	t.Run("keys are independent", func(t *testing.T) {
		var locks KeyedMutex

		unlock := locks.Lock(threadKey("t1", connection))
		defer unlock()

		done := make(chan struct{})

		go func() {
			release := locks.Lock(threadKey("t1", "other"))
			release()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("lock of another key blocked")
		}

		require.Equal(t, 1, locks.size())
	})
}
