package telemetry

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/feedstore/internal/action"
	"github.com/vk/feedstore/internal/registry"
)

// storeStub records DispatchLater calls from the ping loop.
type storeStub struct {
	mu      sync.Mutex
	later   []action.Action
	laterCh chan action.Action
}

func (s *storeStub) Dispatch(action.Action) error { return nil }

func (s *storeStub) DispatchLater(a action.Action) {
	s.mu.Lock()
	s.later = append(s.later, a)
	s.mu.Unlock()
	if s.laterCh != nil {
		select {
		case s.laterCh <- a:
		default:
		}
	}
}

func (s *storeStub) State() map[string]any { return nil }

func buildFeed(t *testing.T, options map[string]any) *Feed {
	t.Helper()
	m := &Module{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Options: options,
	}
	r := registry.New()
	m.Register(r)
	factory, ok := r.Lookup(Key)
	require.True(t, ok)
	f, ok := factory().(*Feed)
	require.True(t, ok)
	return f
}

func TestFeed_CountsEventsByType(t *testing.T) {
	f := buildFeed(t, nil)
	require.NoError(t, f.Init(context.Background()))

	require.NoError(t, f.OnAction(action.New("A")))
	require.NoError(t, f.OnAction(action.New("A")))
	require.NoError(t, f.OnAction(action.New("B")))

	snap := f.Snapshot()
	assert.Equal(t, 2, snap.Events["A"])
	assert.Equal(t, 1, snap.Events["B"])
	assert.Equal(t, 0, snap.Errors)
	assert.NotEmpty(t, snap.Session)
}

func TestFeed_CountsReportedFeedErrors(t *testing.T) {
	f := buildFeed(t, nil)
	require.NoError(t, f.Init(context.Background()))

	report := action.WithPayload(TypeFeedError, FeedErrorPayload{
		Feed:       "feeds.broken",
		ActionType: "PING",
		Message:    "boom",
	})
	require.NoError(t, f.OnAction(report))
	require.NoError(t, f.OnAction(report))

	snap := f.Snapshot()
	assert.Equal(t, 2, snap.Errors)
	assert.Equal(t, 2, snap.Events[TypeFeedError])
}

func TestFeed_EachInitStartsAFreshSession(t *testing.T) {
	f := buildFeed(t, nil)
	require.NoError(t, f.Init(context.Background()))
	first := f.Snapshot().Session
	require.NoError(t, f.Init(context.Background()))
	assert.NotEqual(t, first, f.Snapshot().Session)
}

func TestFeed_PingLoopDispatchesLocalOnlySummaries(t *testing.T) {
	f := buildFeed(t, map[string]any{"ping_interval": "10ms"})
	stub := &storeStub{laterCh: make(chan action.Action, 1)}
	f.BindStore(stub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, f.Init(ctx))
	require.NoError(t, f.OnAction(action.New("A")))

	select {
	case ping := <-stub.laterCh:
		assert.Equal(t, TypePing, ping.Type)
		assert.True(t, ping.Meta.SkipRelay, "pings never cross the relay")
		assert.Equal(t, Key, ping.Meta.Source)
		payload, ok := ping.Payload.(PingPayload)
		require.True(t, ok)
		assert.Equal(t, 1, payload.Events["A"])
	case <-time.After(2 * time.Second):
		t.Fatal("ping loop did not dispatch in time")
	}
}

func TestFeed_PingLoopStopsOnContextCancel(t *testing.T) {
	f := buildFeed(t, map[string]any{"ping_interval": "10ms"})
	stub := &storeStub{}
	f.BindStore(stub)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, f.Init(ctx))
	cancel()

	// Give the loop a moment to observe the cancellation, then make sure the
	// dispatch count has settled.
	time.Sleep(50 * time.Millisecond)
	stub.mu.Lock()
	settled := len(stub.later)
	stub.mu.Unlock()
	time.Sleep(50 * time.Millisecond)
	stub.mu.Lock()
	after := len(stub.later)
	stub.mu.Unlock()
	assert.Equal(t, settled, after)
}

func TestModule_MalformedPingIntervalDisablesPings(t *testing.T) {
	f := buildFeed(t, map[string]any{"ping_interval": "often"})
	assert.Zero(t, f.pingInterval)
}
