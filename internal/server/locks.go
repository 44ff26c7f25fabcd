package server

import (
	"errors"
	"sync"
)

// ErrTableBusy is returned when another operation holds the table. Callers
// may retry, but should not spin.
var ErrTableBusy = errors.New("table busy, retry")

// TableLocks hands out one mutex per table id, so different tables never
// contend with each other.
type TableLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTableLocks creates an empty lock set.
func NewTableLocks() *TableLocks {
	return &TableLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *TableLocks) get(tableID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[tableID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[tableID] = m
	}
	return m
}

// TryLock takes the table lock without waiting. Player requests use it.
func (l *TableLocks) TryLock(tableID string) (unlock func(), err error) {
	m := l.get(tableID)
	if !m.TryLock() {
		return nil, ErrTableBusy
	}
	return m.Unlock, nil
}

// Lock waits for the table lock. Only timer and scheduling paths use it;
// they hold it briefly and must not be dropped.
func (l *TableLocks) Lock(tableID string) (unlock func()) {
	m := l.get(tableID)
	m.Lock()
	return m.Unlock
}
