// Package memstore provides in-memory implementations of the account,
// post, session, object and event stores. They back the "memory" storage
// mode and the tests, and support injecting failures per operation.
package memstore

import (
	"sync"
	"time"
)

// Faults holds injected failures keyed by operation name (the method
// name, e.g. "SetAvatar" or "Delete").
type Faults struct {
	mu   sync.Mutex
	errs map[string]error
}

// Fail makes every later call of op return err until Heal is called.
func (f *Faults) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errs == nil {
		f.errs = make(map[string]error)
	}
	f.errs[op] = err
}

// Heal removes the injected failure for op.
func (f *Faults) Heal(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.errs, op)
}

func (f *Faults) check(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[op]
}

// clock hands out strictly increasing timestamps so that ordering by
// creation time is stable even for records created in the same instant.
type clock struct {
	mu   sync.Mutex
	last time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := time.Now().UTC()
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
