package lock

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	k := NewKeyedMutex()

	var (
		wg      sync.WaitGroup
		active  atomic.Int32
		maxSeen atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k.Lock("task")
			defer k.Unlock("task")

			n := active.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load())
	assert.Equal(t, 0, k.Len(), "idle keys are dropped")
}

func TestKeyedMutex_DifferentKeysIndependent(t *testing.T) {
	k := NewKeyedMutex()

	k.Lock("a")
	done := make(chan struct{})
	go func() {
		k.Lock("b")
		k.Unlock("b")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
	k.Unlock("a")
}

func TestKeyedMutex_TryLock(t *testing.T) {
	k := NewKeyedMutex()

	assert.True(t, k.TryLock("task"))
	assert.False(t, k.TryLock("task"))
	assert.Equal(t, 1, k.Len())

	k.Unlock("task")
	assert.Equal(t, 0, k.Len())
	assert.True(t, k.TryLock("task"))
	k.Unlock("task")
}

func TestKeyedMutex_UnlockUnheldPanics(t *testing.T) {
	assert.Panics(t, func() { NewKeyedMutex().Unlock("nope") })
}
