package account

import (
	"sync"

	"github.com/amintahir16/lpg-gas-app-sub000/ledger"
)

// customerLocks serializes mutating operations per customer. Balance
// recomputation assumes a consistent snapshot of that customer's full
// history; operations on different customers run in parallel.
type customerLocks struct {
	mu    sync.Mutex
	locks map[ledger.CustomerID]*sync.Mutex
}

func (l *customerLocks) lock(id ledger.CustomerID) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[ledger.CustomerID]*sync.Mutex)
	}
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
