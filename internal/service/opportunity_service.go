package service

import (
	"context"
	"fmt"
	"time"

	"opptick/internal/capture"
	"opptick/internal/model"
	"opptick/internal/repository"
	"opptick/internal/scheduler"
)

// OpportunityService couples the store with the reminder scheduler: every
// lifecycle change that stops an opportunity being active also drops its
// pending timers.
type OpportunityService struct {
	repo  *repository.OpportunityRepository
	sched *scheduler.Scheduler
}

func NewOpportunityService(repo *repository.OpportunityRepository, sched *scheduler.Scheduler) *OpportunityService {
	return &OpportunityService{repo: repo, sched: sched}
}

// CreateFromDraft persists a finished capture draft as one opportunity and
// arms its reminders.
func (s *OpportunityService) CreateFromDraft(ctx context.Context, userID int64, draft capture.Draft) (*model.Opportunity, error) {
	if draft.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if draft.Deadline.IsZero() {
		return nil, fmt.Errorf("deadline is required")
	}

	opp := model.Opportunity{
		UserID:        userID,
		Title:         draft.Title,
		Category:      draft.Category,
		Description:   draft.Description,
		SourceLink:    draft.SourceLink,
		Priority:      draft.Priority,
		Deadline:      draft.Deadline.UTC(),
		RawSourceText: draft.RawText,
	}
	if err := s.repo.Insert(ctx, &opp); err != nil {
		return nil, err
	}
	s.sched.Schedule(opp)
	return &opp, nil
}

func (s *OpportunityService) Get(ctx context.Context, userID int64, oppID string) (*model.Opportunity, error) {
	return s.repo.FindByID(ctx, userID, oppID)
}

// Resolve accepts a full id or the short prefix shown in lists.
func (s *OpportunityService) Resolve(ctx context.Context, userID int64, idOrPrefix string) (*model.Opportunity, error) {
	return s.repo.ResolvePrefix(ctx, userID, idOrPrefix)
}

func (s *OpportunityService) ListActive(ctx context.Context, userID int64) ([]model.Opportunity, error) {
	return s.repo.ListActive(ctx, userID)
}

func (s *OpportunityService) ListArchived(ctx context.Context, userID int64) ([]model.Opportunity, error) {
	return s.repo.ListArchived(ctx, userID)
}

// MarkDone marks the opportunity done (which archives it) and cancels its
// pending reminders.
func (s *OpportunityService) MarkDone(ctx context.Context, userID int64, oppID string) (*model.Opportunity, error) {
	if err := s.repo.SetDone(ctx, userID, oppID); err != nil {
		return nil, err
	}
	s.sched.Cancel(oppID)
	return s.repo.FindByID(ctx, userID, oppID)
}

// Archive archives the opportunity and cancels its pending reminders.
func (s *OpportunityService) Archive(ctx context.Context, userID int64, oppID string) error {
	if err := s.repo.SetArchived(ctx, userID, oppID); err != nil {
		return err
	}
	s.sched.Cancel(oppID)
	return nil
}

// Delete removes the opportunity and cancels its pending reminders.
func (s *OpportunityService) Delete(ctx context.Context, userID int64, oppID string) error {
	if err := s.repo.Delete(ctx, userID, oppID); err != nil {
		return err
	}
	s.sched.Cancel(oppID)
	return nil
}

// Countdown renders the time left to a deadline (or OVERDUE).
func Countdown(deadline, now time.Time) string {
	delta := deadline.Sub(now)
	if delta <= 0 {
		return "⚠️ OVERDUE"
	}
	days := int(delta.Hours()) / 24
	hours := int(delta.Hours()) % 24
	minutes := int(delta.Minutes()) % 60
	switch {
	case days > 0:
		unit := "days"
		if days == 1 {
			unit = "day"
		}
		return fmt.Sprintf("%d %s %dh %dm", days, unit, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
