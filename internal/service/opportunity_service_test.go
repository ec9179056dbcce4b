package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"opptick/internal/capture"
	"opptick/internal/model"
	"opptick/internal/repository"
	"opptick/internal/scheduler"
)

type noopReminder struct{}

func (noopReminder) NotifyReminder(ctx context.Context, opp model.Opportunity, offsetDays int) error {
	return nil
}

func testOppService(t *testing.T) (*OpportunityService, *scheduler.Scheduler) {
	t.Helper()
	repo := testOppRepo(t)
	sched := scheduler.New(repo, noopReminder{})
	t.Cleanup(sched.Stop)
	return NewOpportunityService(repo, sched), sched
}

func draftFor(deadline time.Time) capture.Draft {
	return capture.Draft{
		RawText:  "raw",
		Deadline: deadline,
		Category: model.CategoryInternship,
		Priority: model.PriorityHigh,
		Title:    "STEP Internship",
	}
}

func TestCreateFromDraftArmsReminders(t *testing.T) {
	svc, sched := testOppService(t)
	ctx := context.Background()

	opp, err := svc.CreateFromDraft(ctx, 1, draftFor(time.Now().AddDate(0, 1, 0)))
	if err != nil {
		t.Fatal(err)
	}
	if opp.OppID == "" {
		t.Fatal("saved opportunity has no id")
	}
	if got, want := sched.Pending(), len(scheduler.FireOffsets(model.PriorityHigh)); got != want {
		t.Fatalf("Pending = %d, want %d armed reminders", got, want)
	}
}

func TestCreateFromDraftValidation(t *testing.T) {
	svc, _ := testOppService(t)
	ctx := context.Background()

	d := draftFor(time.Now().AddDate(0, 1, 0))
	d.Title = ""
	if _, err := svc.CreateFromDraft(ctx, 1, d); err == nil {
		t.Fatal("missing title accepted")
	}

	d = draftFor(time.Time{})
	if _, err := svc.CreateFromDraft(ctx, 1, d); err == nil {
		t.Fatal("zero deadline accepted")
	}
}

func TestMarkDoneCancelsReminders(t *testing.T) {
	svc, sched := testOppService(t)
	ctx := context.Background()

	opp, err := svc.CreateFromDraft(ctx, 1, draftFor(time.Now().AddDate(0, 1, 0)))
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.MarkDone(ctx, 1, opp.OppID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Done || !got.Archived {
		t.Fatalf("done=%v archived=%v", got.Done, got.Archived)
	}
	if sched.Pending() != 0 {
		t.Fatalf("Pending = %d after done, want 0", sched.Pending())
	}
}

func TestDeleteCancelsRemindersAndChecksOwnership(t *testing.T) {
	svc, sched := testOppService(t)
	ctx := context.Background()

	opp, err := svc.CreateFromDraft(ctx, 1, draftFor(time.Now().AddDate(0, 1, 0)))
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, 2, opp.OppID); !errors.Is(err, repository.ErrNotFoundOrUnauthorized) {
		t.Fatalf("foreign delete: err = %v", err)
	}
	if sched.Pending() == 0 {
		t.Fatal("foreign delete must not cancel reminders")
	}

	if err := svc.Delete(ctx, 1, opp.OppID); err != nil {
		t.Fatal(err)
	}
	if sched.Pending() != 0 {
		t.Fatalf("Pending = %d after delete, want 0", sched.Pending())
	}
	if _, err := svc.Get(ctx, 1, opp.OppID); !errors.Is(err, repository.ErrNotFoundOrUnauthorized) {
		t.Fatalf("deleted lookup: err = %v", err)
	}
}

// Full capture-to-reminder walk for a "next week" message sent just before
// midnight: end-of-day normalization puts the 7-day fire instant behind the
// submission moment, so only the closer offsets survive.
func TestCaptureToRemindersLateEvening(t *testing.T) {
	now := time.Date(2025, 6, 1, 23, 59, 30, 0, time.UTC)

	sess, _ := capture.Start("Hackathon registration closes next week", time.UTC, now)
	sess.Advance(capture.Button(capture.ActionYes), now)
	sess.Advance(capture.Button(capture.TypePrefix+"Event"), now)
	sess.Advance(capture.Button(capture.PrioPrefix+"Low"), now)
	sess.Advance(capture.Text("yes"), now)
	sess.Advance(capture.Text("skip"), now)
	sess.Advance(capture.Text("skip"), now)
	sess.Advance(capture.Button(capture.ActionYes), now)
	if sess.Step != capture.StepSaved {
		t.Fatalf("capture ended at step %v", sess.Step)
	}

	wantDeadline := time.Date(2025, 6, 8, 23, 59, 0, 0, time.UTC)
	if !sess.Draft.Deadline.Equal(wantDeadline) {
		t.Fatalf("Deadline = %v, want %v", sess.Draft.Deadline, wantDeadline)
	}

	fires := scheduler.ComputeFireTimes(sess.Draft.Deadline, sess.Draft.Priority, now)
	if len(fires) != 3 {
		t.Fatalf("fire times = %v, want the 3/1/0 day offsets", fires)
	}
	for _, offset := range []int{3, 1, 0} {
		want := wantDeadline.AddDate(0, 0, -offset)
		found := false
		for _, ft := range fires {
			if ft.Equal(want) {
				found = true
			}
		}
		if !found {
			t.Errorf("missing fire time for the %d-day offset (%v)", offset, want)
		}
	}
}
