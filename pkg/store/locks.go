package store

import "sync"

// keyedLocks serializes mutations per record id. Entries are kept for the
// process lifetime; the map is bounded by the number of distinct records
// touched, which is small for a back-office tool.
type keyedLocks struct {
	mu sync.Mutex
	m  map[uint]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{m: make(map[uint]*sync.Mutex)}
}

// lock acquires the mutex for id and returns its unlock func.
func (k *keyedLocks) lock(id uint) func() {
	k.mu.Lock()
	l, ok := k.m[id]
	if !ok {
		l = &sync.Mutex{}
		k.m[id] = l
	}
	k.mu.Unlock()
	l.Lock()
	return l.Unlock
}
