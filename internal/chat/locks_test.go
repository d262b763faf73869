package chat

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPairLocksMutualExclusion(t *testing.T) {
	locks := newPairLocks()
	key := pairKey{characterID: 1, userID: 1}

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locks.lock(key)
			counter++
			locks.unlock(key)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestPairLocksIndependentKeys(t *testing.T) {
	locks := newPairLocks()
	a := pairKey{characterID: 1, userID: 1}
	b := pairKey{characterID: 1, userID: 2}

	locks.lock(a)

	acquired := make(chan struct{})
	go func() {
		locks.lock(b)
		close(acquired)
		locks.unlock(b)
	}()

	<-acquired
	locks.unlock(a)
}

func TestPairLocksMapShrinksWhenIdle(t *testing.T) {
	locks := newPairLocks()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		key := pairKey{characterID: uint(i), userID: uint(i)}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				locks.lock(key)
				locks.unlock(key)
			}
		}()
	}
	wg.Wait()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.locks, "idle pairs must not linger in the map")
}
