package memrepo

import "sync"

// rowLocks stands in for database row locks: a name is held by one transaction until it commits or rolls back,
// and other transactions asking for it wait.
type rowLocks struct {
	mu      sync.Mutex
	free    *sync.Cond
	holders map[string]*tx
}

func newRowLocks() *rowLocks {
	l := &rowLocks{holders: make(map[string]*tx)}
	l.free = sync.NewCond(&l.mu)
	return l
}

func (l *rowLocks) acquire(t *tx, name string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for {
		holder, held := l.holders[name]
		if !held {
			break
		}
		if holder == t {
			return
		}
		l.free.Wait()
	}
	l.holders[name] = t
	t.onClose = append(t.onClose, func() { l.release(name) })
}

func (l *rowLocks) release(name string) {
	l.mu.Lock()
	delete(l.holders, name)
	l.mu.Unlock()
	l.free.Broadcast()
}
