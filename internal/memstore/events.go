package memstore

import (
	"context"
	"sync"

	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/events"
)

// Events is an in-memory events.Store.
type Events struct {
	Faults

	mu  sync.Mutex
	log []events.Event
}

// NewEvents creates an empty event log.
func NewEvents() *Events {
	return &Events{}
}

var _ events.Store = (*Events)(nil)

func (s *Events) Append(_ context.Context, e *events.Event) (int64, error) {
	if err := s.check("Append"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := int64(len(s.log)) + 1
	stored := *e
	stored.Seq = seq
	s.log = append(s.log, stored)
	return seq, nil
}

func (s *Events) Replay(ctx context.Context, since int64, fn func(events.Event) error) error {
	s.mu.Lock()
	snapshot := append([]events.Event(nil), s.log...)
	s.mu.Unlock()

	for _, e := range snapshot {
		if e.Seq <= since {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// Types returns the types of all logged events in order.
func (s *Events) Types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.log))
	for i, e := range s.log {
		out[i] = e.Type
	}
	return out
}
