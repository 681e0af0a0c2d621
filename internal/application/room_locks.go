package application

import "sync"

// roomLocks hands out one mutex per room so booking mutations for the same
// room run one at a time while different rooms proceed independently.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for roomID and returns its release function.
func (r *roomLocks) Lock(roomID string) func() {
	r.mu.Lock()
	lock, ok := r.locks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[roomID] = lock
	}
	r.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
