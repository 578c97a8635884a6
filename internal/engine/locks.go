package engine

import "sync"

// userLocks serializes mutations per chat: a tick's evaluation and a
// concurrent inbound event must not interleave on the same record,
// while distinct users proceed independently.
type userLocks struct {
	mu sync.Mutex
	m  map[int64]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{m: make(map[int64]*sync.Mutex)}
}

// acquire locks the given chat's mutex and returns it for unlocking.
func (l *userLocks) acquire(chatID int64) *sync.Mutex {
	l.mu.Lock()
	um, ok := l.m[chatID]
	if !ok {
		um = &sync.Mutex{}
		l.m[chatID] = um
	}
	l.mu.Unlock()

	um.Lock()
	return um
}
