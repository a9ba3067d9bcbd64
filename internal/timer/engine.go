package timer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// MaxCheckpointAge is the ceiling for restoring a checkpoint. Anything
	// older is treated as abandoned and finalized capped at this value, so a
	// crashed tab can never inflate a topic's total by more than an hour.
	MaxCheckpointAge = time.Hour

	heartbeatInterval = 30 * time.Second
	tickInterval      = time.Second
)

// RemoteAPI is the server collaborator the engine records sessions against.
// Duration arguments always carry the full elapsed total in milliseconds;
// the server overwrites, never increments, so repeats are harmless.
type RemoteAPI interface {
	StartSession(ctx context.Context, sessionID, topicID uuid.UUID) error
	StopSession(ctx context.Context, sessionID uuid.UUID, durationMs int64) error
	Heartbeat(ctx context.Context, sessionID uuid.UUID, totalMs int64) error
	Totals(ctx context.Context, topicIDs []uuid.UUID) (map[uuid.UUID]int64, error)
}

// Beacon is a second, fire-and-forget transport used only at teardown, when
// no acknowledgment can be observed. Delivery is not guaranteed; the engine
// sends through both Beacon and RemoteAPI on Flush.
type Beacon interface {
	Send(sessionID uuid.UUID, durationMs int64)
}

// Session identifies the one running timed session.
type Session struct {
	SessionID    uuid.UUID
	TopicID      uuid.UUID
	DisciplineID uuid.UUID
	StudyID      uuid.UUID
	StartTime    time.Time
}

// Engine tracks a single active study session across restarts and teardown.
// At most one session is running at any instant; starting while running stops
// the previous session first.
type Engine struct {
	api    RemoteAPI
	store  CheckpointStore
	beacon Beacon
	now    func() time.Time

	// OnTick, when set, is invoked about once a second while running with the
	// active topic and its derived elapsed total (saved + live). Purely a UI
	// refresh hook; nothing it sees is persisted.
	OnTick func(topicID uuid.UUID, elapsed time.Duration)

	mu          sync.Mutex
	active      *Session
	savedTotals map[uuid.UUID]int64
	done        chan struct{}
}

func NewEngine(api RemoteAPI, store CheckpointStore, beacon Beacon) *Engine {
	return &Engine{
		api:         api,
		store:       store,
		beacon:      beacon,
		now:         time.Now,
		savedTotals: make(map[uuid.UUID]int64),
	}
}

// Start begins a session on the topic. A running session is stopped first; if
// that stop fails the start is aborted so no time is silently lost.
func (e *Engine) Start(ctx context.Context, topicID, disciplineID, studyID uuid.UUID) (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active != nil {
		if err := e.stopLocked(ctx); err != nil {
			return nil, err
		}
	}

	session := &Session{
		SessionID:    uuid.New(),
		TopicID:      topicID,
		DisciplineID: disciplineID,
		StudyID:      studyID,
		StartTime:    e.now(),
	}

	if err := e.api.StartSession(ctx, session.SessionID, topicID); err != nil {
		return nil, fmt.Errorf("start session (topic_id: %s): %w", topicID, err)
	}

	if err := e.store.Save(checkpointOf(session)); err != nil {
		// The remote row exists; a missing checkpoint only costs crash
		// recovery, so the session still starts.
		zap.L().Warn("save timer checkpoint", zap.Error(err))
	}

	e.active = session
	e.startLoopsLocked()
	return session, nil
}

// Stop finalizes the running session, crediting the full wall-clock elapsed
// time. On remote failure the engine stays Running and the checkpoint stays
// put, so the caller can retry without losing anything.
func (e *Engine) Stop(ctx context.Context) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopLockedDuration(ctx)
}

func (e *Engine) stopLocked(ctx context.Context) error {
	_, err := e.stopLockedDuration(ctx)
	return err
}

func (e *Engine) stopLockedDuration(ctx context.Context) (int64, error) {
	if e.active == nil {
		return 0, ErrNoActiveSession
	}

	session := e.active
	durationMs := e.now().Sub(session.StartTime).Milliseconds()

	if err := e.api.StopSession(ctx, session.SessionID, durationMs); err != nil {
		return 0, fmt.Errorf("%w (session_id: %s): %v", ErrStopFailed, session.SessionID, err)
	}

	e.savedTotals[session.TopicID] += durationMs

	if err := e.store.Clear(); err != nil {
		zap.L().Warn("clear timer checkpoint", zap.Error(err))
	}

	e.active = nil
	e.stopLoopsLocked()
	return durationMs, nil
}

// Restore resumes a checkpointed session after a restart. A checkpoint older
// than MaxCheckpointAge is abandoned: one synthetic stop is written with the
// duration capped at the ceiling, and the checkpoint is cleared.
func (e *Engine) Restore(ctx context.Context) (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cp, err := e.store.Load()
	if err != nil {
		return nil, err
	}
	if cp == nil {
		return nil, nil
	}

	start := time.UnixMilli(cp.StartTime)
	elapsed := e.now().Sub(start)

	if elapsed > MaxCheckpointAge {
		capped := elapsed.Milliseconds()
		if capped > MaxCheckpointAge.Milliseconds() {
			capped = MaxCheckpointAge.Milliseconds()
		}
		if err := e.api.StopSession(ctx, cp.SessionID, capped); err != nil {
			zap.L().Warn("finalize abandoned session",
				zap.String("session_id", cp.SessionID.String()),
				zap.Error(err))
		}
		if err := e.store.Clear(); err != nil {
			zap.L().Warn("clear timer checkpoint", zap.Error(err))
		}
		return nil, nil
	}

	session := &Session{
		SessionID:    cp.SessionID,
		TopicID:      cp.TopicID,
		DisciplineID: cp.DisciplineID,
		StudyID:      cp.StudyID,
		StartTime:    start,
	}
	e.active = session
	e.startLoopsLocked()
	return session, nil
}

// Flush is the page-teardown path: a best-effort stop sent through two
// independent transports, then the checkpoint is cleared so a later Restore
// cannot double-count. No failure is observable at this point by design.
func (e *Engine) Flush(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	session := e.active
	if session == nil {
		return
	}

	durationMs := e.now().Sub(session.StartTime).Milliseconds()

	if e.beacon != nil {
		e.beacon.Send(session.SessionID, durationMs)
	}
	if err := e.api.StopSession(ctx, session.SessionID, durationMs); err != nil {
		zap.L().Warn("flush session stop",
			zap.String("session_id", session.SessionID.String()),
			zap.Error(err))
	}

	e.savedTotals[session.TopicID] += durationMs

	if err := e.store.Clear(); err != nil {
		zap.L().Warn("clear timer checkpoint", zap.Error(err))
	}

	e.active = nil
	e.stopLoopsLocked()
}

// Active returns the running session, or nil when idle.
func (e *Engine) Active() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return nil
	}
	copy := *e.active
	return &copy
}

// Elapsed is the derived "time spent so far" for a topic: the saved total
// plus, if this topic owns the running session, the live elapsed time.
func (e *Engine) Elapsed(topicID uuid.UUID) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	total := e.savedTotals[topicID]
	if e.active != nil && e.active.TopicID == topicID {
		total += e.now().Sub(e.active.StartTime).Milliseconds()
	}
	return time.Duration(total) * time.Millisecond
}

// SyncTotals reconciles the local saved-totals map against the server.
func (e *Engine) SyncTotals(ctx context.Context, topicIDs []uuid.UUID) error {
	totals, err := e.api.Totals(ctx, topicIDs)
	if err != nil {
		return fmt.Errorf("sync totals: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for topicID, total := range totals {
		e.savedTotals[topicID] = total
	}
	return nil
}

// Close stops the background loops without touching the session; pair it
// with Flush when tearing the process down.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLoopsLocked()
}

func (e *Engine) startLoopsLocked() {
	e.stopLoopsLocked()

	done := make(chan struct{})
	e.done = done
	session := *e.active

	go e.heartbeatLoop(done, session)
	go e.tickLoop(done, session)
}

func (e *Engine) stopLoopsLocked() {
	if e.done != nil {
		close(e.done)
		e.done = nil
	}
}

// heartbeatLoop periodically overwrites the remote duration with the current
// total. Non-critical: the authoritative write happens at stop or flush, so
// failures are logged and dropped.
func (e *Engine) heartbeatLoop(done <-chan struct{}, session Session) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			totalMs := e.now().Sub(session.StartTime).Milliseconds()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := e.api.Heartbeat(ctx, session.SessionID, totalMs)
			cancel()
			if err != nil {
				zap.L().Warn("timer heartbeat",
					zap.String("session_id", session.SessionID.String()),
					zap.Error(err))
			}
		}
	}
}

func (e *Engine) tickLoop(done <-chan struct{}, session Session) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if e.OnTick != nil {
				e.OnTick(session.TopicID, e.Elapsed(session.TopicID))
			}
		}
	}
}

func checkpointOf(s *Session) *Checkpoint {
	return &Checkpoint{
		SessionID:    s.SessionID,
		TopicID:      s.TopicID,
		DisciplineID: s.DisciplineID,
		StudyID:      s.StudyID,
		StartTime:    s.StartTime.UnixMilli(),
	}
}
