package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"idle_clicker/internal/domain"
	"idle_clicker/internal/localstore"
	"idle_clicker/internal/offline"
	"idle_clicker/internal/progress"
)

type fakeRecordStore struct {
	mu     sync.Mutex
	record domain.Progress
}

func (s *fakeRecordStore) Get(ctx context.Context, userID int64) (*domain.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := s.record
	return &cp, nil
}

func (s *fakeRecordStore) UpdateFields(ctx context.Context, userID int64, fields map[string]any) error {
	return nil
}

type fakeDeltaStore struct {
	mu      sync.Mutex
	err     error
	batches []map[domain.Field]int64
}

func (s *fakeDeltaStore) ApplyDeltas(ctx context.Context, userID int64, deltas map[domain.Field]int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	cp := make(map[domain.Field]int64, len(deltas))
	for f, v := range deltas {
		cp[f] = v
	}
	s.batches = append(s.batches, cp)
	return nil
}

func (s *fakeDeltaStore) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func (s *fakeDeltaStore) lastBatch() map[domain.Field]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.batches) == 0 {
		return nil
	}
	return s.batches[len(s.batches)-1]
}

func newTestManager(t *testing.T, record domain.Progress, deltas *fakeDeltaStore) *Manager {
	t.Helper()

	records := &fakeRecordStore{record: record}
	writer := progress.NewRetryWriter(records, nil)
	loader := progress.NewLoader(records, writer, nil)
	offlineCalc := offline.NewCalculator(localstore.NewMemoryStore(), 8*time.Hour)

	m := NewManager(loader, deltas, writer, offlineCalc, nil, Config{
		Debounce:    20 * time.Millisecond,
		Retention:   50 * time.Millisecond,
		PassiveTick: time.Hour,
		Heartbeat:   time.Hour,
		BonusPoll:   time.Hour,
	})
	t.Cleanup(m.CloseAll)
	return m
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func baseRecord() domain.Progress {
	return domain.Progress{
		UserID:             1,
		Coins:              100,
		Diamonds:           5,
		Experience:         2500,
		Level:              3,
		ExperienceRequired: progress.ExperienceRequired,
		AutoClickPower:     2,
	}
}

func TestOpenExposesLoadedRecord(t *testing.T) {
	m := newTestManager(t, baseRecord(), &fakeDeltaStore{})

	s, err := m.Open(context.Background(), 1)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	view := s.View()
	if view.Coins != 100 || view.Diamonds != 5 || view.Experience != 2500 {
		t.Fatalf("view = %+v; want loaded balances", view)
	}
	if view.Level != 3 {
		t.Fatalf("level = %d; want 3", view.Level)
	}
	if view.AutoClickPower != 2 {
		t.Fatalf("auto click power = %d; want 2", view.AutoClickPower)
	}
}

func TestRecordDeltaIsImmediateAndFlushes(t *testing.T) {
	deltas := &fakeDeltaStore{}
	m := newTestManager(t, baseRecord(), deltas)

	s, err := m.Open(context.Background(), 1)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	s.RecordDelta(domain.FieldCoins, 5)
	s.RecordDelta(domain.FieldExperience, 5)

	view := s.View()
	if view.Coins != 105 {
		t.Fatalf("optimistic coins = %d; want 105", view.Coins)
	}
	if view.Experience != 2505 {
		t.Fatalf("optimistic experience = %d; want 2505", view.Experience)
	}

	waitFor(t, func() bool { return deltas.batchCount() == 1 })
	batch := deltas.lastBatch()
	if batch[domain.FieldCoins] != 5 || batch[domain.FieldExperience] != 5 {
		t.Fatalf("flushed batch = %v; want coins 5, experience 5", batch)
	}
}

func TestFlushFailureRevertsAndFlagsView(t *testing.T) {
	deltas := &fakeDeltaStore{err: errors.New("store down")}
	m := newTestManager(t, baseRecord(), deltas)

	s, err := m.Open(context.Background(), 1)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	s.RecordDelta(domain.FieldCoins, 50)
	waitFor(t, func() bool { return s.View().SaveFailed })

	if got := s.View().Coins; got != 100 {
		t.Fatalf("coins after revert = %d; want confirmed 100", got)
	}

	// the next user action clears the stale failure flag
	deltas.mu.Lock()
	deltas.err = nil
	deltas.mu.Unlock()
	s.RecordDelta(domain.FieldCoins, 1)
	if s.View().SaveFailed {
		t.Fatal("save_failed must clear on the next delta")
	}
	waitFor(t, func() bool { return deltas.batchCount() == 1 })
}

func TestCloseDrainsPendingDeltas(t *testing.T) {
	deltas := &fakeDeltaStore{}
	m := newTestManager(t, baseRecord(), deltas)

	s, err := m.Open(context.Background(), 1)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// close immediately, well inside the debounce window
	s.RecordDelta(domain.FieldCoins, 7)
	s.Close()

	if got := deltas.batchCount(); got != 1 {
		t.Fatalf("batches after close = %d; want 1", got)
	}
	if batch := deltas.lastBatch(); batch[domain.FieldCoins] != 7 {
		t.Fatalf("final batch = %v; want coins 7", batch)
	}
}

func TestOpenReplacesExistingSession(t *testing.T) {
	m := newTestManager(t, baseRecord(), &fakeDeltaStore{})
	ctx := context.Background()

	first, err := m.Open(ctx, 1)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	second, err := m.Open(ctx, 1)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}

	if first.ID == second.ID {
		t.Fatal("reopening must mint a new session")
	}
	active, ok := m.Get(1)
	if !ok || active.ID != second.ID {
		t.Fatalf("active session = %+v; want the second one", active)
	}
}

func TestGetOrOpenReusesActiveSession(t *testing.T) {
	m := newTestManager(t, baseRecord(), &fakeDeltaStore{})
	ctx := context.Background()

	first, err := m.GetOrOpen(ctx, 1)
	if err != nil {
		t.Fatalf("GetOrOpen: %v", err)
	}
	again, err := m.GetOrOpen(ctx, 1)
	if err != nil {
		t.Fatalf("GetOrOpen: %v", err)
	}
	if first.ID != again.ID {
		t.Fatal("GetOrOpen must return the existing session")
	}
}

type recordingNotifier struct {
	mu    sync.Mutex
	views []View
}

func (n *recordingNotifier) PublishProgress(userID int64, view View) {
	n.mu.Lock()
	n.views = append(n.views, view)
	n.mu.Unlock()
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.views)
}

func TestNotifierReceivesOptimisticViews(t *testing.T) {
	m := newTestManager(t, baseRecord(), &fakeDeltaStore{})
	notifier := &recordingNotifier{}
	m.SetNotifier(notifier)

	s, err := m.Open(context.Background(), 1)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	s.RecordDelta(domain.FieldCoins, 3)
	waitFor(t, func() bool { return notifier.count() > 0 })

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if got := notifier.views[0].Coins; got != 103 {
		t.Fatalf("pushed coins = %d; want 103", got)
	}
}
