package app

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 256

// userLocks serialises read-modify-write cycles per user inside one process.
// Users hashing to the same stripe share a mutex.
type userLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (l *userLocks) lock(userID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	m := &l.stripes[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}
