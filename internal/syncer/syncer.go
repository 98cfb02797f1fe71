package syncer

import (
	"context"
	"sync"
	"time"

	"idle_clicker/internal/domain"
)

// FlushFunc persists summed per-field deltas to the record store. It is
// called at most once at a time per Syncer.
type FlushFunc func(ctx context.Context, deltas map[domain.Field]int64) error

// Options tunes a Syncer. Zero values fall back to defaults.
type Options struct {
	// Debounce is the quiet period after the last RecordDelta before a
	// flush is issued.
	Debounce time.Duration

	// Retention keeps confirmed deltas visible for a short while after a
	// successful flush so the UI can animate them.
	Retention time.Duration

	// FlushTimeout bounds a single flush attempt.
	FlushTimeout time.Duration

	// OnFailure is called after a flush fails and optimistic state has
	// been reverted. User-visible: silent loss of progress is not ok.
	OnFailure func(err error)

	// OnChange is called after any visible-value change.
	OnChange func()
}

const (
	defaultDebounce     = 300 * time.Millisecond
	defaultRetention    = time.Second
	defaultFlushTimeout = 10 * time.Second
)

type delta struct {
	field     domain.Field
	amount    int64
	createdAt time.Time

	confirmed   bool
	confirmedAt time.Time
}

// Syncer keeps an in-memory overlay of pending numeric deltas over a base
// record. Readers always see base plus every unconfirmed delta; writes are
// debounced, coalesced per field and flushed to the record store in a single
// in-flight request. A failed flush reverts the overlay to the last
// confirmed base.
//
// All mutation goes through one mutex; interleaved flush callbacks never
// clear deltas recorded after their snapshot was taken.
type Syncer struct {
	mu   sync.Mutex
	cond *sync.Cond

	opts  Options
	flush FlushFunc

	base    map[domain.Field]int64
	log     []*delta
	pending map[domain.Field]int64

	debounceTimer *time.Timer
	pruneTimer    *time.Timer
	inFlight      bool
	closed        bool
}

// New creates a Syncer over the given base values.
func New(base map[domain.Field]int64, flush FlushFunc, opts Options) *Syncer {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.Retention <= 0 {
		opts.Retention = defaultRetention
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = defaultFlushTimeout
	}

	s := &Syncer{
		opts:    opts,
		flush:   flush,
		base:    make(map[domain.Field]int64, len(base)),
		pending: make(map[domain.Field]int64),
	}
	s.cond = sync.NewCond(&s.mu)
	for f, v := range base {
		s.base[f] = v
	}
	return s
}

// RecordDelta applies a signed amount to a field optimistically. The change
// is visible to Value immediately; persistence happens after the debounce
// quiet period. Unknown fields are ignored.
func (s *Syncer) RecordDelta(field domain.Field, amount int64) {
	if !domain.KnownField(field) || amount == 0 {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.log = append(s.log, &delta{field: field, amount: amount, createdAt: time.Now()})
	s.pending[field] += amount
	pendingDeltas.Inc()
	s.armDebounceLocked()
	s.mu.Unlock()

	s.notifyChange()
}

// Value returns the immediately-consistent view of a field: confirmed base
// plus every unconfirmed delta recorded so far. Non-blocking.
func (s *Syncer) Value(field domain.Field) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.valueLocked(field)
}

func (s *Syncer) valueLocked(field domain.Field) int64 {
	v := s.base[field]
	for _, d := range s.log {
		if d.field == field && !d.confirmed {
			v += d.amount
		}
	}
	return v
}

// Snapshot returns the optimistic view of all synced fields.
func (s *Syncer) Snapshot() map[domain.Field]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := make(map[domain.Field]int64, 3)
	for _, f := range []domain.Field{domain.FieldCoins, domain.FieldDiamonds, domain.FieldExperience} {
		snap[f] = s.valueLocked(f)
	}
	return snap
}

// SetBase replaces the confirmed base value of a field. Used for reconciled
// replacement values (bonus balance merges), never for user deltas.
func (s *Syncer) SetBase(field domain.Field, value int64) {
	s.mu.Lock()
	s.base[field] = value
	s.mu.Unlock()

	s.notifyChange()
}

// HasPendingWork reports whether any delta exists that has not been
// confirmed-and-pruned or discarded, or a flush is still in flight.
func (s *Syncer) HasPendingWork() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(time.Now())
	return len(s.log) > 0 || s.inFlight
}

// armDebounceLocked (re)starts the debounce timer. Every RecordDelta call
// pushes the flush further out, so bursts coalesce into one write.
func (s *Syncer) armDebounceLocked() {
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	s.debounceTimer = time.AfterFunc(s.opts.Debounce, s.debounceFired)
}

func (s *Syncer) debounceFired() {
	s.mu.Lock()
	if s.closed || len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	if s.inFlight {
		// flush completion re-arms the timer if work remains
		s.mu.Unlock()
		return
	}

	batch, covered := s.snapshotBatchLocked()
	s.inFlight = true
	s.mu.Unlock()

	go s.runFlush(batch, covered)
}

// snapshotBatchLocked moves the pending accumulator out and remembers which
// log entries the batch covers. Deltas recorded after this point land in a
// fresh accumulator and are untouched by the outcome of this flush.
func (s *Syncer) snapshotBatchLocked() (map[domain.Field]int64, []*delta) {
	batch := s.pending
	s.pending = make(map[domain.Field]int64)

	var covered []*delta
	for _, d := range s.log {
		if !d.confirmed {
			covered = append(covered, d)
		}
	}
	return batch, covered
}

func (s *Syncer) runFlush(batch map[domain.Field]int64, covered []*delta) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.FlushTimeout)
	err := s.flush(ctx, batch)
	cancel()

	s.mu.Lock()
	s.inFlight = false

	if err != nil {
		// Pessimistic rollback: discard every optimistic entry, including
		// ones recorded after the snapshot. The caller must re-derive
		// amounts from the reverted view; blind retry risks duplicate
		// amounts if the store partially applied the write.
		dropped := len(s.log)
		s.log = nil
		s.pending = make(map[domain.Field]int64)
		if s.debounceTimer != nil {
			s.debounceTimer.Stop()
		}
		pendingDeltas.Sub(float64(dropped))
		flushTotal.WithLabelValues("error").Inc()
		s.cond.Broadcast()
		s.mu.Unlock()

		if s.opts.OnFailure != nil {
			s.opts.OnFailure(err)
		}
		s.notifyChange()
		return err
	}

	// Advance the confirmed base; covered deltas stay visible (confirmed)
	// until the retention window elapses.
	now := time.Now()
	for f, a := range batch {
		s.base[f] += a
		flushedAmount.WithLabelValues(string(f)).Add(abs(a))
	}
	for _, d := range covered {
		d.confirmed = true
		d.confirmedAt = now
	}
	flushTotal.WithLabelValues("ok").Inc()

	if s.pruneTimer != nil {
		s.pruneTimer.Stop()
	}
	s.pruneTimer = time.AfterFunc(s.opts.Retention, s.pruneNow)

	// deltas kept arriving during the flush: start a new debounce cycle
	if len(s.pending) > 0 && !s.closed {
		s.armDebounceLocked()
	}
	s.cond.Broadcast()
	s.mu.Unlock()
	return nil
}

func (s *Syncer) pruneNow() {
	s.mu.Lock()
	s.pruneLocked(time.Now())
	s.mu.Unlock()
}

// pruneLocked drops confirmed deltas older than the retention window.
func (s *Syncer) pruneLocked(now time.Time) {
	kept := s.log[:0]
	removed := 0
	for _, d := range s.log {
		if d.confirmed && now.Sub(d.confirmedAt) >= s.opts.Retention {
			removed++
			continue
		}
		kept = append(kept, d)
	}
	s.log = kept
	if len(s.log) == 0 {
		s.log = nil
	}
	pendingDeltas.Sub(float64(removed))
}

// Flush synchronously drains the pending accumulator. Used on session
// teardown and in tests; the debounce path never calls it.
func (s *Syncer) Flush(ctx context.Context) error {
	s.mu.Lock()
	for s.inFlight {
		s.cond.Wait()
	}
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return nil
	}
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	batch, covered := s.snapshotBatchLocked()
	s.inFlight = true
	s.mu.Unlock()

	return s.runFlush(batch, covered)
}

// Close stops all timers. In-flight flushes are not cancelled; their
// completion is harmless after close.
func (s *Syncer) Close() {
	s.mu.Lock()
	s.closed = true
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	if s.pruneTimer != nil {
		s.pruneTimer.Stop()
	}
	s.mu.Unlock()
}

func (s *Syncer) notifyChange() {
	if s.opts.OnChange != nil {
		s.opts.OnChange()
	}
}

func abs(n int64) float64 {
	if n < 0 {
		return float64(-n)
	}
	return float64(n)
}
