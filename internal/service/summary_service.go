package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"opptick/internal/model"
	"opptick/internal/repository"
)

const (
	summaryWindowDays = 30
	summaryMaxItems   = 10
)

// SummaryService builds human-readable digests of a user's deadlines.
type SummaryService struct {
	repo *repository.OpportunityRepository
}

func NewSummaryService(repo *repository.OpportunityRepository) *SummaryService {
	return &SummaryService{repo: repo}
}

// DailySummary lists the user's opportunities due within the next 30 days.
// The empty string means nothing is coming up, so no push should be sent.
func (s *SummaryService) DailySummary(ctx context.Context, userID int64, now time.Time) (string, error) {
	opps, err := s.repo.ListActive(ctx, userID)
	if err != nil {
		return "", err
	}

	var upcoming []model.Opportunity
	for _, opp := range opps {
		if opp.Deadline.After(now) && opp.Deadline.Before(now.AddDate(0, 0, summaryWindowDays)) {
			upcoming = append(upcoming, opp)
		}
	}
	if len(upcoming) == 0 {
		return "", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 <b>Daily summary</b> — %d upcoming\n\n", len(upcoming))
	shown := upcoming
	if len(shown) > summaryMaxItems {
		shown = shown[:summaryMaxItems]
	}
	for _, opp := range shown {
		fmt.Fprintf(&b, "%s %s (%s)\n", priorityMarker(opp.Priority), html.EscapeString(opp.Title), opp.Category)
		fmt.Fprintf(&b, "   ⏰ %s — %s\n\n", Countdown(opp.Deadline, now), opp.Deadline.Format("2006-01-02 15:04"))
	}
	if len(upcoming) > summaryMaxItems {
		fmt.Fprintf(&b, "… and %d more", len(upcoming)-summaryMaxItems)
	}
	return strings.TrimSpace(b.String()), nil
}

// WeeklySummary buckets the user's active opportunities into overdue / this
// week / this month / later.
func (s *SummaryService) WeeklySummary(ctx context.Context, userID int64, now time.Time) (string, error) {
	opps, err := s.repo.ListActive(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(opps) == 0 {
		return "📭 No active opportunities to summarize.", nil
	}

	var overdue, thisWeek, thisMonth, later []model.Opportunity
	for _, opp := range opps {
		switch days := int(opp.Deadline.Sub(now).Hours() / 24); {
		case opp.Deadline.Before(now):
			overdue = append(overdue, opp)
		case days <= 7:
			thisWeek = append(thisWeek, opp)
		case days <= 30:
			thisMonth = append(thisMonth, opp)
		default:
			later = append(later, opp)
		}
	}

	var b strings.Builder
	b.WriteString("📊 <b>Weekly summary</b>\n\n")
	if len(overdue) > 0 {
		fmt.Fprintf(&b, "⚠️ Overdue: %d\n", len(overdue))
	}
	if len(thisWeek) > 0 {
		fmt.Fprintf(&b, "🔴 This week: %d\n", len(thisWeek))
	}
	if len(thisMonth) > 0 {
		fmt.Fprintf(&b, "🟡 This month: %d\n", len(thisMonth))
	}
	if len(later) > 0 {
		fmt.Fprintf(&b, "🟢 Later: %d\n", len(later))
	}

	writeBucket(&b, "\n🔴 <b>This week</b>\n", thisWeek, now)
	writeBucket(&b, "\n🟡 <b>This month</b>\n", thisMonth, now)

	return strings.TrimSpace(b.String()), nil
}

func writeBucket(b *strings.Builder, header string, opps []model.Opportunity, now time.Time) {
	if len(opps) == 0 {
		return
	}
	b.WriteString(header)
	if len(opps) > 5 {
		opps = opps[:5]
	}
	for _, opp := range opps {
		fmt.Fprintf(b, "• %s — %s\n", html.EscapeString(opp.Title), Countdown(opp.Deadline, now))
	}
}

func priorityMarker(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "🔴"
	case model.PriorityLow:
		return "🟢"
	default:
		return "🟡"
	}
}
