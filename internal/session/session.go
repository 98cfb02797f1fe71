package session

import (
	"context"
	"sync"
	"time"

	"idle_clicker/internal/domain"
	"idle_clicker/internal/logger"
	"idle_clicker/internal/offline"
	"idle_clicker/internal/progress"
	"idle_clicker/internal/syncer"

	"github.com/google/uuid"
)

// DeltaStore persists summed optimistic deltas. Satisfied by the progress
// repository.
type DeltaStore interface {
	ApplyDeltas(ctx context.Context, userID int64, deltas map[domain.Field]int64) error
}

// Notifier pushes fresh optimistic views to connected clients.
type Notifier interface {
	PublishProgress(userID int64, view View)
}

// View is the immediately-consistent snapshot exposed to the UI.
type View struct {
	Coins              int64 `json:"coins"`
	Diamonds           int64 `json:"diamonds"`
	Experience         int64 `json:"experience"`
	Level              int   `json:"level"`
	ExperienceRequired int64 `json:"experience_required"`
	AutoClickPower     int64 `json:"auto_click_power"`
	Pending            bool  `json:"pending"`
	SaveFailed         bool  `json:"save_failed,omitempty"`
}

// Session owns the synchronizer and timers for one active player. Exactly
// one session exists per identity; opening a second closes the first.
type Session struct {
	ID     string
	UserID int64

	syncer *syncer.Syncer
	mgr    *Manager

	mu         sync.Mutex
	record     *domain.Progress
	lastBonus  int64
	saveFailed bool

	stop     chan struct{}
	stopOnce sync.Once
}

// Syncer exposes the session's synchronizer for delta recording and reads.
func (s *Session) Syncer() *syncer.Syncer {
	return s.syncer
}

// AutoClickPower returns the current passive income rate.
func (s *Session) AutoClickPower() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.AutoClickPower
}

// LastDailyReward returns the last claimed daily reward day, if any.
func (s *Session) LastDailyReward() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.LastDailyReward
}

// RecordDelta applies an optimistic change and clears any stale
// save-failure flag: the user is trying again.
func (s *Session) RecordDelta(field domain.Field, amount int64) {
	s.mu.Lock()
	s.saveFailed = false
	s.mu.Unlock()
	s.syncer.RecordDelta(field, amount)
}

// View assembles the optimistic snapshot. The level is derived from the
// optimistic experience, so the UI levels up before the flush lands.
func (s *Session) View() View {
	snap := s.syncer.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		Coins:              snap[domain.FieldCoins],
		Diamonds:           snap[domain.FieldDiamonds],
		Experience:         snap[domain.FieldExperience],
		Level:              progress.LevelFor(snap[domain.FieldExperience]),
		ExperienceRequired: progress.ExperienceRequired,
		AutoClickPower:     s.record.AutoClickPower,
		Pending:            s.syncer.HasPendingWork(),
		SaveFailed:         s.saveFailed,
	}
}

// SetAutoClickPower replaces the passive rate after the owned-upgrade set
// changed. Persisted as a replacement through the retrying corrective path,
// not as a delta.
func (s *Session) SetAutoClickPower(ctx context.Context, power int64) error {
	s.mu.Lock()
	s.record.AutoClickPower = power
	s.mu.Unlock()

	err := s.mgr.writer.Write(ctx, s.UserID, map[string]any{"auto_click_power": power})
	s.publish()
	return err
}

// SetLastDailyReward records a claimed daily reward day on the session's
// cached record.
func (s *Session) SetLastDailyReward(day time.Time) {
	s.mu.Lock()
	s.record.LastDailyReward = &day
	s.mu.Unlock()
}

func (s *Session) publish() {
	if s.mgr.notifier != nil {
		s.mgr.notifier.PublishProgress(s.UserID, s.View())
	}
}

func (s *Session) onFlushFailure(err error) {
	logger.Warn("progress flush failed, optimistic state reverted",
		"user_id", s.UserID, "error", err)
	s.mu.Lock()
	s.saveFailed = true
	s.mu.Unlock()
}

// run drives the session timers: passive accrual, heartbeat and bonus
// polling. All of them stop on Close.
func (s *Session) run(passiveTick, heartbeat, bonusPoll time.Duration) {
	passive := time.NewTicker(passiveTick)
	beat := time.NewTicker(heartbeat)
	defer passive.Stop()
	defer beat.Stop()

	var bonusC <-chan time.Time
	if s.mgr.bonus != nil {
		bonus := time.NewTicker(bonusPoll)
		defer bonus.Stop()
		bonusC = bonus.C
	}

	for {
		select {
		case <-s.stop:
			return
		case <-passive.C:
			if power := s.AutoClickPower(); power > 0 {
				s.RecordDelta(domain.FieldCoins, power)
			}
		case <-beat.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.mgr.offline.UpdateLastActive(ctx, s.UserID); err != nil {
				logger.Warn("heartbeat failed", "user_id", s.UserID, "error", err)
			}
			cancel()
		case <-bonusC:
			s.pollBonus()
		}
	}
}

// pollBonus merges the external bonus balance when it changed: replacement
// into the overlay base plus a corrective write. Poll errors are logged,
// never escalated.
func (s *Session) pollBonus() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	balance, err := s.mgr.bonus.FetchBalance(ctx, s.UserID)
	if err != nil {
		logger.Warn("bonus balance poll failed", "user_id", s.UserID, "error", err)
		return
	}

	s.mu.Lock()
	changed := balance != s.lastBonus
	if changed {
		s.lastBonus = balance
		s.record.Diamonds = balance
	}
	s.mu.Unlock()

	if !changed {
		return
	}

	s.syncer.SetBase(domain.FieldDiamonds, balance)
	if err := s.mgr.writer.Write(ctx, s.UserID, map[string]any{"diamonds": balance}); err != nil {
		logger.Warn("bonus balance corrective write failed", "user_id", s.UserID, "error", err)
	}
}

// Close stops the timers, drains one final flush and refreshes the
// last-active timestamp so offline earnings start counting from now.
func (s *Session) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.syncer.Flush(ctx); err != nil {
			logger.Warn("final flush failed on session close",
				"user_id", s.UserID, "error", err)
		}
		s.syncer.Close()

		if err := s.mgr.offline.UpdateLastActive(ctx, s.UserID); err != nil {
			logger.Warn("last-active update failed on session close",
				"user_id", s.UserID, "error", err)
		}
	})
}

// Manager tracks the active session per user.
type Manager struct {
	loader   *progress.Loader
	deltas   DeltaStore
	writer   *progress.RetryWriter
	offline  *offline.Calculator
	bonus    progress.BalanceSource
	notifier Notifier

	debounce  time.Duration
	retention time.Duration

	passiveTick time.Duration
	heartbeat   time.Duration
	bonusPoll   time.Duration

	mu       sync.Mutex
	sessions map[int64]*Session
}

type Config struct {
	Debounce    time.Duration
	Retention   time.Duration
	PassiveTick time.Duration
	Heartbeat   time.Duration
	BonusPoll   time.Duration
}

func NewManager(
	loader *progress.Loader,
	deltas DeltaStore,
	writer *progress.RetryWriter,
	offlineCalc *offline.Calculator,
	bonus progress.BalanceSource,
	cfg Config,
) *Manager {
	return &Manager{
		loader:      loader,
		deltas:      deltas,
		writer:      writer,
		offline:     offlineCalc,
		bonus:       bonus,
		debounce:    cfg.Debounce,
		retention:   cfg.Retention,
		passiveTick: cfg.PassiveTick,
		heartbeat:   cfg.Heartbeat,
		bonusPoll:   cfg.BonusPoll,
		sessions:    make(map[int64]*Session),
	}
}

// SetNotifier wires the progress push hub. Optional.
func (m *Manager) SetNotifier(n Notifier) {
	m.notifier = n
}

// Get returns the active session for userID, if any.
func (m *Manager) Get(userID int64) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return s, ok
}

// GetOrOpen returns the active session, opening one when needed.
func (m *Manager) GetOrOpen(ctx context.Context, userID int64) (*Session, error) {
	if s, ok := m.Get(userID); ok {
		return s, nil
	}
	return m.Open(ctx, userID)
}

// Open loads and reconciles the record, then starts a fresh session. An
// existing session for the same identity is closed first: the record is
// owned by exactly one synchronizer at a time.
func (m *Manager) Open(ctx context.Context, userID int64) (*Session, error) {
	record, err := m.loader.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		mgr:       m,
		record:    record,
		lastBonus: record.Diamonds,
		stop:      make(chan struct{}),
	}

	base := map[domain.Field]int64{
		domain.FieldCoins:      record.Coins,
		domain.FieldDiamonds:   record.Diamonds,
		domain.FieldExperience: record.Experience,
	}
	s.syncer = syncer.New(base,
		func(ctx context.Context, deltas map[domain.Field]int64) error {
			return m.deltas.ApplyDeltas(ctx, userID, deltas)
		},
		syncer.Options{
			Debounce:  m.debounce,
			Retention: m.retention,
			OnFailure: s.onFlushFailure,
			OnChange:  s.publish,
		})

	m.mu.Lock()
	old := m.sessions[userID]
	m.sessions[userID] = s
	m.mu.Unlock()

	if old != nil {
		old.Close()
	}

	go s.run(m.passiveTick, m.heartbeat, m.bonusPoll)

	logger.Info("session opened", "user_id", userID, "session_id", s.ID)
	return s, nil
}

// CloseAll tears down every session. Used on server shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[int64]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
