package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestDailySummaryEmpty(t *testing.T) {
	repo := testOppRepo(t)
	svc := NewSummaryService(repo)

	got, err := svc.DailySummary(context.Background(), 1, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Fatalf("empty schedule produced %q, want no digest", got)
	}
}

func TestDailySummaryWindowAndEscaping(t *testing.T) {
	repo := testOppRepo(t)
	svc := NewSummaryService(repo)
	ctx := context.Background()
	now := time.Now()

	insertOpp(t, repo, "Research <Lab> role", now.AddDate(0, 0, 5))
	insertOpp(t, repo, "too far out", now.AddDate(0, 0, 45))
	insertOpp(t, repo, "already passed", now.AddDate(0, 0, -1))

	got, err := svc.DailySummary(ctx, 1, now)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "1 upcoming") {
		t.Errorf("digest = %q, only the in-window record should count", got)
	}
	if !strings.Contains(got, "Research &lt;Lab&gt; role") {
		t.Errorf("digest = %q, title must be HTML-escaped", got)
	}
	if strings.Contains(got, "too far out") || strings.Contains(got, "already passed") {
		t.Errorf("digest = %q, out-of-window records leaked in", got)
	}
}

func TestDailySummaryCapsItems(t *testing.T) {
	repo := testOppRepo(t)
	svc := NewSummaryService(repo)
	now := time.Now()

	for i := 0; i < 13; i++ {
		insertOpp(t, repo, fmt.Sprintf("opp %02d", i), now.AddDate(0, 0, i+1))
	}

	got, err := svc.DailySummary(context.Background(), 1, now)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "13 upcoming") {
		t.Errorf("digest = %q, want the full count in the header", got)
	}
	if !strings.Contains(got, "and 3 more") {
		t.Errorf("digest = %q, want a truncation note past 10 items", got)
	}
}

func TestWeeklySummaryBuckets(t *testing.T) {
	repo := testOppRepo(t)
	svc := NewSummaryService(repo)
	now := time.Now()

	insertOpp(t, repo, "overdue one", now.AddDate(0, 0, -2))
	insertOpp(t, repo, "due this week", now.AddDate(0, 0, 3))
	insertOpp(t, repo, "due this month", now.AddDate(0, 0, 20))
	insertOpp(t, repo, "far future", now.AddDate(0, 3, 0))

	got, err := svc.WeeklySummary(context.Background(), 1, now)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Overdue: 1", "This week: 1", "This month: 1", "Later: 1", "due this week", "due this month"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestWeeklySummaryNoActive(t *testing.T) {
	repo := testOppRepo(t)
	svc := NewSummaryService(repo)

	got, err := svc.WeeklySummary(context.Background(), 1, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "No active opportunities") {
		t.Fatalf("summary = %q", got)
	}
}

func TestCountdown(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		deadline time.Time
		want     string
	}{
		{now.Add(-time.Hour), "⚠️ OVERDUE"},
		{now, "⚠️ OVERDUE"},
		{now.Add(30 * time.Minute), "30m"},
		{now.Add(5*time.Hour + 20*time.Minute), "5h 20m"},
		{now.Add(24 * time.Hour), "1 day 0h 0m"},
		{now.Add(49*time.Hour + 5*time.Minute), "2 days 1h 5m"},
	}
	for _, tt := range tests {
		if got := Countdown(tt.deadline, now); got != tt.want {
			t.Errorf("Countdown(%v) = %q, want %q", tt.deadline, got, tt.want)
		}
	}
}
