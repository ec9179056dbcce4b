package scheduler

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"opptick/internal/model"
)

// Fire times are never persisted. They are recomputed from an opportunity's
// deadline and priority, so recovery after a restart is plain recomputation:
// already-past offsets are simply not re-armed (the sweeper owns those) and
// recomputing twice yields the same timer set.

// Store is the slice of the opportunity store the scheduler needs.
type Store interface {
	ListSchedulable(ctx context.Context) ([]model.Opportunity, error)
	Get(ctx context.Context, oppID string) (*model.Opportunity, error)
}

// Notifier delivers one reminder. A single best-effort attempt; the
// scheduler logs failures and moves on.
type Notifier interface {
	NotifyReminder(ctx context.Context, opp model.Opportunity, offsetDays int) error
}

// FireOffsets returns the reminder offsets (days before deadline, 0 =
// deadline day) for a priority.
func FireOffsets(p model.Priority) []int {
	if p == model.PriorityHigh {
		return []int{14, 7, 3, 2, 1, 0}
	}
	return []int{7, 3, 1, 0}
}

// ComputeFireTimes derives the ordered set of future fire instants for a
// deadline: one per offset, strictly after now, deduplicated, ascending.
func ComputeFireTimes(deadline time.Time, p model.Priority, now time.Time) []time.Time {
	seen := make(map[time.Time]struct{})
	var times []time.Time
	for _, offset := range FireOffsets(p) {
		ft := deadline.AddDate(0, 0, -offset)
		if !ft.After(now) {
			continue
		}
		if _, dup := seen[ft]; dup {
			continue
		}
		seen[ft] = struct{}{}
		times = append(times, ft)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	return times
}

type timerKey struct {
	oppID  string
	offset int
}

// Scheduler owns the in-memory one-shot timer set. The set is a derived
// cache over the store, never authoritative: at fire time the record is
// re-fetched and skipped if it went done/archived/deleted in the meantime.
type Scheduler struct {
	store    Store
	notifier Notifier

	mu     sync.Mutex
	timers map[timerKey]*time.Timer

	now func() time.Time
}

func New(store Store, notifier Notifier) *Scheduler {
	return &Scheduler{
		store:    store,
		notifier: notifier,
		timers:   make(map[timerKey]*time.Timer),
		now:      time.Now,
	}
}

// Schedule arms one timer per still-future offset of the opportunity. Keys
// already armed are left alone, which makes repeated scheduling (and thus
// Recover) idempotent.
func (s *Scheduler) Schedule(opp model.Opportunity) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, offset := range FireOffsets(opp.Priority) {
		ft := opp.Deadline.AddDate(0, 0, -offset)
		if !ft.After(now) {
			continue
		}
		key := timerKey{oppID: opp.OppID, offset: offset}
		if _, armed := s.timers[key]; armed {
			continue
		}
		s.timers[key] = time.AfterFunc(ft.Sub(now), func() { s.fire(key) })
	}
}

// Cancel stops every pending timer for the opportunity. Safe to call for
// ids with no timers, and safe to call repeatedly.
func (s *Scheduler) Cancel(oppID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, timer := range s.timers {
		if key.oppID == oppID {
			timer.Stop()
			delete(s.timers, key)
		}
	}
}

// Recover rebuilds the timer set from the store. Called once at startup,
// but harmless to call again.
func (s *Scheduler) Recover(ctx context.Context) error {
	opps, err := s.store.ListSchedulable(ctx)
	if err != nil {
		return err
	}
	for _, opp := range opps {
		s.Schedule(opp)
	}
	log.Printf("[info] reminder recovery armed %d timer(s) for %d opportunit(ies)", s.Pending(), len(opps))
	return nil
}

// Stop cancels every pending timer. Shutdown helper.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
}

// Pending reports the number of armed timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// fire runs on the timer goroutine. Cancellation is re-checked against the
// store because the in-memory index is best-effort: a cancel that lost the
// race still wins here if the record's flags already flipped.
func (s *Scheduler) fire(key timerKey) {
	s.mu.Lock()
	if _, live := s.timers[key]; !live {
		// Cancelled between expiry and acquiring the lock.
		s.mu.Unlock()
		return
	}
	delete(s.timers, key)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	opp, err := s.store.Get(ctx, key.oppID)
	if err != nil {
		log.Printf("[warn] reminder fire %s/%dd: %v", key.oppID, key.offset, err)
		return
	}
	if !opp.Active() {
		return
	}
	if err := s.notifier.NotifyReminder(ctx, *opp, key.offset); err != nil {
		log.Printf("[warn] reminder delivery %s/%dd: %v", key.oppID, key.offset, err)
	}
}
