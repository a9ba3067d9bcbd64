package timer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// ─── Fakes ───

type stopCall struct {
	sessionID  uuid.UUID
	durationMs int64
}

type fakeAPI struct {
	mu         sync.Mutex
	started    []uuid.UUID
	stops      []stopCall
	heartbeats []stopCall
	totals     map[uuid.UUID]int64
	failStop   bool
}

func (f *fakeAPI) StartSession(ctx context.Context, sessionID, topicID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, sessionID)
	return nil
}

func (f *fakeAPI) StopSession(ctx context.Context, sessionID uuid.UUID, durationMs int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStop {
		return errors.New("connection refused")
	}
	f.stops = append(f.stops, stopCall{sessionID, durationMs})
	return nil
}

func (f *fakeAPI) Heartbeat(ctx context.Context, sessionID uuid.UUID, totalMs int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeats = append(f.heartbeats, stopCall{sessionID, totalMs})
	return nil
}

func (f *fakeAPI) Totals(ctx context.Context, topicIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	return f.totals, nil
}

func (f *fakeAPI) stopCalls() []stopCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]stopCall(nil), f.stops...)
}

type memStore struct {
	cp *Checkpoint
}

func (m *memStore) Load() (*Checkpoint, error) { return m.cp, nil }
func (m *memStore) Save(cp *Checkpoint) error  { m.cp = cp; return nil }
func (m *memStore) Clear() error               { m.cp = nil; return nil }

type fakeBeacon struct {
	sent []stopCall
}

func (b *fakeBeacon) Send(sessionID uuid.UUID, durationMs int64) {
	b.sent = append(b.sent, stopCall{sessionID, durationMs})
}

func newTestEngine(api *fakeAPI, store CheckpointStore) (*Engine, *time.Time) {
	e := NewEngine(api, store, nil)
	current := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return current }
	e.stopLoopsLocked() // no background loops in tests
	return e, &current
}

// startQuiet starts a session and immediately stops the background loops so
// tests stay deterministic.
func startQuiet(t *testing.T, e *Engine, topicID uuid.UUID) *Session {
	t.Helper()
	s, err := e.Start(context.Background(), topicID, uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	e.Close()
	return s
}

// ─── Single Active Session (stop-before-start) ───

func TestStartStopsPreviousSession(t *testing.T) {
	api := &fakeAPI{}
	store := &memStore{}
	e, now := newTestEngine(api, store)

	topicA, topicB := uuid.New(), uuid.New()

	first := startQuiet(t, e, topicA)
	*now = now.Add(90 * time.Second)

	second := startQuiet(t, e, topicB)

	if first.SessionID == second.SessionID {
		t.Fatal("Expected a fresh session id for the second start")
	}

	active := e.Active()
	if active == nil || active.SessionID != second.SessionID {
		t.Error("Expected the second session to be the running one")
	}

	stops := api.stopCalls()
	if len(stops) != 1 {
		t.Fatalf("Expected exactly one stop for the first session, got %d", len(stops))
	}
	if stops[0].sessionID != first.SessionID {
		t.Error("Stop targeted the wrong session")
	}
	if stops[0].durationMs != 90_000 {
		t.Errorf("Expected 90000 ms credited to the first session, got %d", stops[0].durationMs)
	}
}

// ─── Duration Overwrite Semantics ───

func TestStopRecordsFullElapsedTotal(t *testing.T) {
	api := &fakeAPI{}
	e, now := newTestEngine(api, &memStore{})

	topicID := uuid.New()
	session := startQuiet(t, e, topicID)

	*now = now.Add(150 * time.Second)
	durationMs, err := e.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if durationMs != 150_000 {
		t.Errorf("Expected 150000 ms, got %d", durationMs)
	}

	stops := api.stopCalls()
	if len(stops) != 1 || stops[0].sessionID != session.SessionID {
		t.Fatal("Expected one stop for the started session")
	}
	if stops[0].durationMs != 150_000 {
		t.Errorf("Expected stop to carry the full total, got %d", stops[0].durationMs)
	}

	if got := e.Elapsed(topicID); got != 150*time.Second {
		t.Errorf("Expected saved total 150s, got %s", got)
	}
}

func TestStopFailureKeepsStateForRetry(t *testing.T) {
	api := &fakeAPI{failStop: true}
	store := &memStore{}
	e, now := newTestEngine(api, store)

	topicID := uuid.New()
	startQuiet(t, e, topicID)
	*now = now.Add(30 * time.Second)

	_, err := e.Stop(context.Background())
	if !errors.Is(err, ErrStopFailed) {
		t.Fatalf("Expected ErrStopFailed, got %v", err)
	}

	if e.Active() == nil {
		t.Error("Engine must stay Running after a failed stop")
	}
	if store.cp == nil {
		t.Error("Checkpoint must survive a failed stop")
	}

	// Retry succeeds once the network is back.
	api.failStop = false
	durationMs, err := e.Stop(context.Background())
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if durationMs != 30_000 {
		t.Errorf("Expected 30000 ms on retry, got %d", durationMs)
	}
	if store.cp != nil {
		t.Error("Checkpoint must be cleared after a successful stop")
	}
}

// ─── Checkpoint Round-Trip ───

func TestRestoreResumesYoungCheckpoint(t *testing.T) {
	api := &fakeAPI{}
	store := &memStore{}
	e, now := newTestEngine(api, store)

	topicID := uuid.New()
	original := startQuiet(t, e, topicID)

	// Simulate a process restart: new engine, same store.
	e2, now2 := newTestEngine(api, store)
	*now2 = now.Add(10 * time.Minute)

	restored, err := e2.Restore(context.Background())
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	e2.Close()

	if restored == nil {
		t.Fatal("Expected a restored session")
	}
	if restored.SessionID != original.SessionID {
		t.Error("Restore must keep the same session id")
	}
	if restored.TopicID != topicID {
		t.Error("Restore must keep the same topic")
	}
	if !restored.StartTime.Equal(original.StartTime) {
		t.Errorf("Restore must keep the original start time, got %s want %s",
			restored.StartTime, original.StartTime)
	}

	if len(api.stopCalls()) != 0 {
		t.Error("No stop should be written when resuming a young checkpoint")
	}
}

// ─── Ceiling Finalization ───

func TestRestoreFinalizesStaleCheckpoint(t *testing.T) {
	api := &fakeAPI{}
	store := &memStore{}
	e, now := newTestEngine(api, store)

	topicID := uuid.New()
	original := startQuiet(t, e, topicID)

	e2, now2 := newTestEngine(api, store)
	*now2 = now.Add(3 * time.Hour)

	restored, err := e2.Restore(context.Background())
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if restored != nil {
		t.Fatal("A stale checkpoint must not resume")
	}

	stops := api.stopCalls()
	if len(stops) != 1 {
		t.Fatalf("Expected exactly one synthetic stop, got %d", len(stops))
	}
	if stops[0].sessionID != original.SessionID {
		t.Error("Synthetic stop targeted the wrong session")
	}
	if stops[0].durationMs != MaxCheckpointAge.Milliseconds() {
		t.Errorf("Expected duration capped at %d ms, got %d",
			MaxCheckpointAge.Milliseconds(), stops[0].durationMs)
	}
	if store.cp != nil {
		t.Error("Stale checkpoint must be cleared")
	}
}

// ─── Teardown Flush ───

func TestFlushSendsThroughBothTransportsAndClears(t *testing.T) {
	api := &fakeAPI{}
	store := &memStore{}
	beacon := &fakeBeacon{}
	e := NewEngine(api, store, beacon)
	current := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return current }

	topicID := uuid.New()
	session := startQuiet(t, e, topicID)
	current = current.Add(45 * time.Second)

	e.Flush(context.Background())

	if len(beacon.sent) != 1 || beacon.sent[0].sessionID != session.SessionID {
		t.Error("Expected one beacon transmission for the active session")
	}
	if beacon.sent[0].durationMs != 45_000 {
		t.Errorf("Expected beacon duration 45000 ms, got %d", beacon.sent[0].durationMs)
	}

	stops := api.stopCalls()
	if len(stops) != 1 || stops[0].durationMs != 45_000 {
		t.Error("Expected a duplicated stop through the primary transport")
	}

	if store.cp != nil {
		t.Error("Flush must clear the checkpoint so Restore cannot double count")
	}
	if e.Active() != nil {
		t.Error("Engine must be Idle after Flush")
	}
}

func TestFlushIdleIsNoOp(t *testing.T) {
	api := &fakeAPI{}
	beacon := &fakeBeacon{}
	e, _ := newTestEngine(api, &memStore{})
	e.beacon = beacon

	e.Flush(context.Background())

	if len(beacon.sent) != 0 || len(api.stopCalls()) != 0 {
		t.Error("Idle flush must send nothing")
	}
}

// ─── Derived Elapsed ───

func TestElapsedCombinesSavedAndLive(t *testing.T) {
	api := &fakeAPI{}
	e, now := newTestEngine(api, &memStore{})

	topicID := uuid.New()
	startQuiet(t, e, topicID)
	*now = now.Add(time.Minute)

	if got := e.Elapsed(topicID); got != time.Minute {
		t.Errorf("Expected 1m live elapsed, got %s", got)
	}

	if _, err := e.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	startQuiet(t, e, topicID)
	*now = now.Add(30 * time.Second)

	if got := e.Elapsed(topicID); got != 90*time.Second {
		t.Errorf("Expected saved+live 90s, got %s", got)
	}

	other := uuid.New()
	if got := e.Elapsed(other); got != 0 {
		t.Errorf("Expected 0 for an unrelated topic, got %s", got)
	}
}

func TestSyncTotalsOverwritesLocalMap(t *testing.T) {
	topicID := uuid.New()
	api := &fakeAPI{totals: map[uuid.UUID]int64{topicID: 600_000}}
	e, _ := newTestEngine(api, &memStore{})

	if err := e.SyncTotals(context.Background(), []uuid.UUID{topicID}); err != nil {
		t.Fatalf("SyncTotals failed: %v", err)
	}

	if got := e.Elapsed(topicID); got != 10*time.Minute {
		t.Errorf("Expected 10m from server totals, got %s", got)
	}
}

func TestStopWhenIdle(t *testing.T) {
	e, _ := newTestEngine(&fakeAPI{}, &memStore{})

	_, err := e.Stop(context.Background())
	if !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("Expected ErrNoActiveSession, got %v", err)
	}
}
