package service

import (
	"context"
	"log"
	"time"

	"opptick/internal/model"
	"opptick/internal/repository"
)

// MissedNotifier delivers one missed-deadline alert with a mark-done
// affordance.
type MissedNotifier interface {
	NotifyMissed(ctx context.Context, opp model.Opportunity) error
}

// Sweeper periodically scans for overdue, still-active opportunities that
// were never alerted. The MissedNotified flag makes each record's alert
// fire exactly once no matter how many sweeps observe it overdue.
type Sweeper struct {
	repo     *repository.OpportunityRepository
	notifier MissedNotifier
}

func NewSweeper(repo *repository.OpportunityRepository, notifier MissedNotifier) *Sweeper {
	return &Sweeper{repo: repo, notifier: notifier}
}

// Sweep runs one pass. Delivery failures leave the flag unset so the next
// sweep retries; flagging happens only after a successful send.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) error {
	overdue, err := s.repo.ListOverdueUnnotified(ctx, now)
	if err != nil {
		return err
	}
	for _, opp := range overdue {
		if err := s.notifier.NotifyMissed(ctx, opp); err != nil {
			log.Printf("[warn] missed alert %s: %v", opp.OppID, err)
			continue
		}
		if err := s.repo.MarkMissedNotified(ctx, opp.OppID); err != nil {
			log.Printf("[warn] mark missed %s: %v", opp.OppID, err)
		}
	}
	if len(overdue) > 0 {
		log.Printf("[info] sweep alerted %d missed deadline(s)", len(overdue))
	}
	return nil
}
