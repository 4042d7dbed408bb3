package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/events"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/memstore"
)

func next(t *testing.T, ch <-chan []byte) events.Event {
	t.Helper()
	select {
	case frame, ok := <-ch:
		require.True(t, ok, "channel closed")
		var e events.Event
		require.NoError(t, json.Unmarshal(frame, &e))
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
	}
	return events.Event{}
}

func TestEmitBroadcastsLive(t *testing.T) {
	m := events.NewManager(memstore.NewEvents())
	ctx := context.Background()

	frames, cancel, err := m.Subscribe(ctx, nil)
	require.NoError(t, err)
	defer cancel()

	m.Emit(ctx, events.PostCreated, "post-1", "alice", map[string]string{"title": "Hello"})

	e := next(t, frames)
	assert.Equal(t, int64(1), e.Seq)
	assert.Equal(t, events.PostCreated, e.Type)
	assert.Equal(t, "post-1", e.SubjectID)
	assert.Equal(t, "alice", e.ActorID)
	assert.JSONEq(t, `{"title":"Hello"}`, string(e.Payload))
}

func TestSubscribeReplaysFromCursor(t *testing.T) {
	m := events.NewManager(memstore.NewEvents())
	ctx := context.Background()
	m.Emit(ctx, events.IdentityCreated, "a", "a", nil)
	m.Emit(ctx, events.PostCreated, "p", "a", nil)
	m.Emit(ctx, events.CommentCreated, "c", "a", nil)

	since := int64(1)
	frames, cancel, err := m.Subscribe(ctx, &since)
	require.NoError(t, err)
	defer cancel()

	assert.Equal(t, int64(2), next(t, frames).Seq)
	assert.Equal(t, int64(3), next(t, frames).Seq)
}

// hookedStore calls before when a replay starts and after once the first
// replayed event has been delivered.
type hookedStore struct {
	*memstore.Events
	before func()
	after  func()
}

func (s *hookedStore) Replay(ctx context.Context, since int64, fn func(events.Event) error) error {
	if s.before != nil {
		s.before()
	}
	first := true
	return s.Events.Replay(ctx, since, func(e events.Event) error {
		if err := fn(e); err != nil {
			return err
		}
		if first && s.after != nil {
			first = false
			s.after()
		}
		return nil
	})
}

func seqs(t *testing.T, ch <-chan []byte, n int) []int64 {
	t.Helper()
	out := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, next(t, ch).Seq)
	}
	return out
}

func assertNoFrame(t *testing.T, ch <-chan []byte) {
	t.Helper()
	select {
	case frame := <-ch:
		t.Fatalf("unexpected frame %s", frame)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestLiveEventsWaitForReplay(t *testing.T) {
	store := &hookedStore{Events: memstore.NewEvents()}
	m := events.NewManager(store)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		m.Emit(ctx, events.PostCreated, "p", "a", nil)
	}
	store.after = func() { m.Emit(ctx, events.PostDeleted, "p", "a", nil) }

	since := int64(0)
	frames, cancel, err := m.Subscribe(ctx, &since)
	require.NoError(t, err)
	defer cancel()

	assert.Equal(t, []int64{1, 2, 3, 4}, seqs(t, frames, 4))
	assertNoFrame(t, frames)
}

func TestEventStoredDuringReplayIsSentOnce(t *testing.T) {
	store := &hookedStore{Events: memstore.NewEvents()}
	m := events.NewManager(store)
	ctx := context.Background()
	m.Emit(ctx, events.PostCreated, "p", "a", nil)
	// Stored and broadcast after the subscription, but before the replay
	// reads the log, so the replay sees it too.
	store.before = func() { m.Emit(ctx, events.PostUpdated, "p", "a", nil) }

	since := int64(0)
	frames, cancel, err := m.Subscribe(ctx, &since)
	require.NoError(t, err)
	defer cancel()

	assert.Equal(t, []int64{1, 2}, seqs(t, frames, 2))
	assertNoFrame(t, frames)

	m.Emit(ctx, events.PostDeleted, "p", "a", nil)
	assert.Equal(t, int64(3), next(t, frames).Seq)
}

func TestEmitPersistFailureIsSwallowed(t *testing.T) {
	store := memstore.NewEvents()
	m := events.NewManager(store)
	ctx := context.Background()

	frames, cancel, err := m.Subscribe(ctx, nil)
	require.NoError(t, err)
	defer cancel()

	store.Fail("Append", errors.New("disk full"))
	m.Emit(ctx, events.PostDeleted, "p", "a", nil)
	store.Heal("Append")
	m.Emit(ctx, events.PostCreated, "q", "a", nil)

	e := next(t, frames)
	assert.Equal(t, "q", e.SubjectID)
	assert.Equal(t, []string{events.PostCreated}, store.Types())
}

func TestSlowConsumerIsDropped(t *testing.T) {
	m := events.NewManager(memstore.NewEvents())
	ctx := context.Background()

	frames, cancel, err := m.Subscribe(ctx, nil)
	require.NoError(t, err)
	defer cancel()

	for i := 0; i < 300; i++ {
		m.Emit(ctx, events.CommentCreated, "c", "a", nil)
	}

	n := 0
	for range frames {
		n++
	}
	assert.Equal(t, 256, n)
}

func TestShutdownClosesSubscribers(t *testing.T) {
	m := events.NewManager(memstore.NewEvents())
	frames, cancel, err := m.Subscribe(context.Background(), nil)
	require.NoError(t, err)

	m.Shutdown()
	_, ok := <-frames
	assert.False(t, ok)

	cancel()
	cancel()
}

func TestNilManagerEmit(t *testing.T) {
	var m *events.Manager
	assert.NotPanics(t, func() {
		m.Emit(context.Background(), events.PostCreated, "p", "a", nil)
	})
}
