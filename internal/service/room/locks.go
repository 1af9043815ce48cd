package room

import "sync"

// roomLocks hands out one mutex per room id so mutations on the same
// room are linearized while different rooms proceed in parallel.
// Entries are refcounted and dropped at zero to keep the map from
// growing with dead rooms.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[string]*roomLock)}
}

func (l *roomLocks) acquire(id string) *roomLock {
	l.mu.Lock()
	entry, exists := l.locks[id]
	if !exists {
		entry = &roomLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return entry
}

func (l *roomLocks) release(id string, entry *roomLock) {
	entry.mu.Unlock()

	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, id)
	}
	l.mu.Unlock()
}
