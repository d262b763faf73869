package chat

import (
	"sync"
)

type pairKey struct {
	characterID uint
	userID      uint
}

// pairLocks serializes turn processing per (character, user) pair.
// Turns for different pairs proceed in parallel; a second turn for the
// same pair must not start building its context until the previous
// turn's writes (or definitive failure) have completed, or both turns
// would compute histories missing each other's pending messages.
//
// Entries are reference counted so the map does not grow with every
// pair ever seen.
type pairLocks struct {
	mu    sync.Mutex
	locks map[pairKey]*pairLock
}

type pairLock struct {
	mu   sync.Mutex
	refs int
}

func newPairLocks() *pairLocks {
	return &pairLocks{locks: make(map[pairKey]*pairLock)}
}

func (p *pairLocks) lock(key pairKey) {
	p.mu.Lock()
	l, ok := p.locks[key]
	if !ok {
		l = &pairLock{}
		p.locks[key] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
}

func (p *pairLocks) unlock(key pairKey) {
	p.mu.Lock()
	l := p.locks[key]
	l.refs--
	if l.refs == 0 {
		delete(p.locks, key)
	}
	p.mu.Unlock()

	l.mu.Unlock()
}
