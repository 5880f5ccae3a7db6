package executor

import (
	"sync"

	"github.com/google/uuid"
)

// jobLocks hands out one mutex per job ID so the status read-modify-write at
// the start of an execution attempt is exclusive even when the dispatch layer
// redelivers the same job concurrently. Entries are reference-counted and
// removed once the last holder releases, so the map does not grow with the
// total number of jobs ever executed.
type jobLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*jobLockEntry
}

type jobLockEntry struct {
	mu   sync.Mutex
	refs int
}

func newJobLocks() *jobLocks {
	return &jobLocks{locks: make(map[uuid.UUID]*jobLockEntry)}
}

// acquire blocks until the caller holds the exclusive lock for jobID.
// The returned function releases it.
func (l *jobLocks) acquire(jobID uuid.UUID) func() {
	l.mu.Lock()
	entry, ok := l.locks[jobID]
	if !ok {
		entry = &jobLockEntry{}
		l.locks[jobID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, jobID)
		}
		l.mu.Unlock()
	}
}
