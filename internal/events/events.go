package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Event types.
const (
	IdentityCreated = "identity.created"
	IdentityUpdated = "identity.updated"
	IdentityDeleted = "identity.deleted"
	PostCreated     = "post.created"
	PostUpdated     = "post.updated"
	PostDeleted     = "post.deleted"
	CommentCreated  = "comment.created"
	CommentUpdated  = "comment.updated"
	CommentDeleted  = "comment.deleted"
)

// Event is one graph mutation as seen by feed consumers.
type Event struct {
	Seq       int64           `json:"seq"`
	Type      string          `json:"type"`
	SubjectID string          `json:"subject"`
	ActorID   string          `json:"actor,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Time      time.Time       `json:"time"`
}

// Store assigns sequence numbers and keeps events for replay.
type Store interface {
	// Append stores e and returns its sequence number. Sequence numbers
	// increase monotonically.
	Append(ctx context.Context, e *Event) (int64, error)
	// Replay calls fn for every event with Seq > since, in order.
	Replay(ctx context.Context, since int64, fn func(Event) error) error
}

// subscriber represents a connected feed consumer. The fields after
// done are guarded by Manager.mu.
type subscriber struct {
	ch   chan []byte
	done chan struct{}

	// While replaying, live frames wait in pending so they are sent
	// after the replayed ones. Frames with seq <= after were already
	// replayed and are skipped.
	replaying bool
	pending   []liveFrame
	after     int64
}

type liveFrame struct {
	seq  int64
	data []byte
}

// Manager handles event sequencing, persistence, and fan-out to
// WebSocket subscribers.
type Manager struct {
	store Store

	mu   sync.RWMutex
	subs map[*subscriber]struct{}
	done chan struct{}
}

// NewManager creates a Manager.
func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		subs:  make(map[*subscriber]struct{}),
		done:  make(chan struct{}),
	}
}

// Emit persists an event and broadcasts its frame to all subscribers.
// Persistence failures are logged and swallowed: the feed never fails
// the mutation that produced it. Safe to call on a nil Manager.
func (m *Manager) Emit(ctx context.Context, eventType, subjectID, actorID string, payload any) {
	if m == nil {
		return
	}
	e := &Event{
		Type:      eventType,
		SubjectID: subjectID,
		ActorID:   actorID,
		Time:      time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			log.Printf("Warning: events: encode %s payload: %v", eventType, err)
			return
		}
		e.Payload = data
	}

	seq, err := m.store.Append(ctx, e)
	if err != nil {
		log.Printf("Warning: events: persist %s %s: %v", eventType, subjectID, err)
		return
	}
	e.Seq = seq

	frame, err := json.Marshal(e)
	if err != nil {
		log.Printf("Warning: events: encode frame: %v", err)
		return
	}
	m.broadcast(seq, frame)
}

// Subscribe returns a channel of pre-serialized JSON frames. If since
// is non-nil, events after that cursor are replayed before live frames.
// The returned cancel function must be called when the subscriber is done.
func (m *Manager) Subscribe(ctx context.Context, since *int64) (<-chan []byte, func(), error) {
	sub := &subscriber{
		ch:        make(chan []byte, 256),
		done:      make(chan struct{}),
		replaying: since != nil,
	}

	// Register before replay so nothing emitted in between is missed.
	m.mu.Lock()
	m.subs[sub] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, sub)
			m.mu.Unlock()
			close(sub.done)
		})
	}

	if since != nil {
		go func() {
			last := *since
			err := m.store.Replay(ctx, *since, func(e Event) error {
				frame, err := json.Marshal(e)
				if err != nil {
					return fmt.Errorf("encode seq %d: %w", e.Seq, err)
				}
				if err := m.deliver(ctx, sub, frame); err != nil {
					return err
				}
				last = e.Seq
				return nil
			})
			m.finishReplay(sub, last, err)
		}()
	}

	return sub.ch, cancel, nil
}

// Shutdown closes the manager and all subscriber channels.
func (m *Manager) Shutdown() {
	close(m.done)
	m.mu.Lock()
	defer m.mu.Unlock()
	for sub := range m.subs {
		close(sub.ch)
		delete(m.subs, sub)
	}
}

// finishReplay switches sub to live delivery: frames broadcast during
// the replay are sent in order, minus those the replay already covered.
// A failed replay drops the subscriber so it reconnects with a cursor
// instead of silently missing events.
func (m *Manager) finishReplay(sub *subscriber, last int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, live := m.subs[sub]; !live {
		return
	}
	if err != nil {
		log.Printf("Warning: replay error: %v", err)
		m.drop(sub)
		return
	}

	sub.after = last
	pending := sub.pending
	sub.pending = nil
	sub.replaying = false
	for _, f := range pending {
		if !m.send(sub, f.seq, f.data) {
			return
		}
	}
}

var errSubscriberGone = errors.New("subscriber cancelled")

// deliver sends one replayed frame, waiting while the subscriber's buffer
// is full. Channels are only closed under the write lock, so sending
// under the read lock after a membership check cannot hit a closed
// channel.
func (m *Manager) deliver(ctx context.Context, sub *subscriber, frame []byte) error {
	for {
		m.mu.RLock()
		_, live := m.subs[sub]
		sent := false
		if live {
			select {
			case sub.ch <- frame:
				sent = true
			default:
			}
		}
		m.mu.RUnlock()

		switch {
		case sent:
			return nil
		case !live:
			return errSubscriberGone
		}

		select {
		case <-time.After(10 * time.Millisecond):
		case <-sub.done:
			return errSubscriberGone
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// broadcast sends a frame to all subscribers. Slow consumers whose
// buffers are full get their channel closed (they should reconnect).
func (m *Manager) broadcast(seq int64, frame []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for sub := range m.subs {
		if sub.replaying {
			if len(sub.pending) >= cap(sub.ch) {
				m.drop(sub)
				continue
			}
			sub.pending = append(sub.pending, liveFrame{seq: seq, data: frame})
			continue
		}
		m.send(sub, seq, frame)
	}
}

// send delivers one live frame without blocking. It reports false when
// sub was dropped. The caller holds the write lock.
func (m *Manager) send(sub *subscriber, seq int64, frame []byte) bool {
	if seq <= sub.after {
		return true
	}
	select {
	case sub.ch <- frame:
		return true
	default:
		m.drop(sub)
		return false
	}
}

// drop closes a subscriber's channel. The caller holds the write lock.
func (m *Manager) drop(sub *subscriber) {
	close(sub.ch)
	delete(m.subs, sub)
}
