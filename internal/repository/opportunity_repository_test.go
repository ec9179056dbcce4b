package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"opptick/internal/model"
)

func testRepo(t *testing.T) *OpportunityRepository {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return NewOpportunityRepository(db)
}

func seed(t *testing.T, r *OpportunityRepository, opp model.Opportunity) model.Opportunity {
	t.Helper()
	if err := r.Insert(context.Background(), &opp); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return opp
}

func baseOpp(userID int64, title string, deadline time.Time) model.Opportunity {
	return model.Opportunity{
		UserID:   userID,
		Title:    title,
		Category: model.CategoryInternship,
		Priority: model.PriorityMedium,
		Deadline: deadline,
	}
}

func TestInsertAssignsID(t *testing.T) {
	r := testRepo(t)
	opp := seed(t, r, baseOpp(1, "a", time.Now().AddDate(0, 0, 5)))
	if opp.OppID == "" {
		t.Fatal("Insert left OppID empty")
	}

	got, err := r.FindByID(context.Background(), 1, opp.OppID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "a" {
		t.Fatalf("Title = %q", got.Title)
	}
}

func TestOwnershipScoping(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	opp := seed(t, r, baseOpp(1, "mine", time.Now().AddDate(0, 0, 5)))

	if _, err := r.FindByID(ctx, 2, opp.OppID); !errors.Is(err, ErrNotFoundOrUnauthorized) {
		t.Fatalf("FindByID across users: err = %v", err)
	}
	if err := r.SetDone(ctx, 2, opp.OppID); !errors.Is(err, ErrNotFoundOrUnauthorized) {
		t.Fatalf("SetDone across users: err = %v", err)
	}
	if err := r.Delete(ctx, 2, opp.OppID); !errors.Is(err, ErrNotFoundOrUnauthorized) {
		t.Fatalf("Delete across users: err = %v", err)
	}

	// Still intact for the owner.
	if _, err := r.FindByID(ctx, 1, opp.OppID); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}
}

func TestSetDoneImpliesArchived(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	opp := seed(t, r, baseOpp(1, "a", time.Now().AddDate(0, 0, 5)))

	if err := r.SetDone(ctx, 1, opp.OppID); err != nil {
		t.Fatal(err)
	}
	got, err := r.Get(ctx, opp.OppID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Done || !got.Archived {
		t.Fatalf("done=%v archived=%v, done must imply archived", got.Done, got.Archived)
	}
	if got.Active() {
		t.Fatal("done opportunity reported active")
	}
}

func TestListActiveOrdering(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	now := time.Now()

	seed(t, r, baseOpp(1, "later", now.AddDate(0, 0, 20)))
	seed(t, r, baseOpp(1, "soon", now.AddDate(0, 0, 2)))
	mid := seed(t, r, baseOpp(1, "mid", now.AddDate(0, 0, 10)))
	seed(t, r, baseOpp(2, "other user", now.AddDate(0, 0, 1)))
	if err := r.SetArchived(ctx, 1, mid.OppID); err != nil {
		t.Fatal(err)
	}

	got, err := r.ListActive(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("ListActive len = %d, want 2", len(got))
	}
	if got[0].Title != "soon" || got[1].Title != "later" {
		t.Fatalf("order = %q, %q; want soonest deadline first", got[0].Title, got[1].Title)
	}

	archived, err := r.ListArchived(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(archived) != 1 || archived[0].Title != "mid" {
		t.Fatalf("ListArchived = %v", archived)
	}
}

func TestListSchedulableSpansUsers(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	now := time.Now()

	seed(t, r, baseOpp(1, "a", now.AddDate(0, 0, 5)))
	seed(t, r, baseOpp(2, "b", now.AddDate(0, 0, 5)))
	done := seed(t, r, baseOpp(1, "c", now.AddDate(0, 0, 5)))
	if err := r.SetDone(ctx, 1, done.OppID); err != nil {
		t.Fatal(err)
	}

	got, err := r.ListSchedulable(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("ListSchedulable len = %d, want active records of both users", len(got))
	}
}

func TestListOverdueUnnotified(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	now := time.Now()

	overdue := seed(t, r, baseOpp(1, "overdue", now.AddDate(0, 0, -1)))
	seed(t, r, baseOpp(1, "future", now.AddDate(0, 0, 1)))
	notified := seed(t, r, baseOpp(1, "already alerted", now.AddDate(0, 0, -2)))
	if err := r.MarkMissedNotified(ctx, notified.OppID); err != nil {
		t.Fatal(err)
	}
	archivedOverdue := seed(t, r, baseOpp(1, "archived", now.AddDate(0, 0, -3)))
	if err := r.SetArchived(ctx, 1, archivedOverdue.OppID); err != nil {
		t.Fatal(err)
	}

	got, err := r.ListOverdueUnnotified(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].OppID != overdue.OppID {
		t.Fatalf("ListOverdueUnnotified = %v, want only the unnotified overdue record", got)
	}
}

func TestResolvePrefix(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	deadline := time.Now().AddDate(0, 0, 5)

	a := baseOpp(1, "a", deadline)
	a.OppID = "abc11111-0000-0000-0000-000000000000"
	seed(t, r, a)
	b := baseOpp(1, "b", deadline)
	b.OppID = "abd22222-0000-0000-0000-000000000000"
	seed(t, r, b)
	c := baseOpp(2, "c", deadline)
	c.OppID = "abc33333-0000-0000-0000-000000000000"
	seed(t, r, c)

	got, err := r.ResolvePrefix(ctx, 1, "abc1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "a" {
		t.Fatalf("resolved %q", got.Title)
	}

	// Ambiguous within the user.
	if _, err := r.ResolvePrefix(ctx, 1, "ab"); !errors.Is(err, ErrNotFoundOrUnauthorized) {
		t.Fatalf("ambiguous prefix: err = %v", err)
	}
	// Another user's record never matches.
	if _, err := r.ResolvePrefix(ctx, 1, "abc3"); !errors.Is(err, ErrNotFoundOrUnauthorized) {
		t.Fatalf("foreign prefix: err = %v", err)
	}
	if _, err := r.ResolvePrefix(ctx, 1, ""); !errors.Is(err, ErrNotFoundOrUnauthorized) {
		t.Fatalf("empty prefix: err = %v", err)
	}
}

func TestUserPreferences(t *testing.T) {
	r := testRepo(t)
	users := NewUserRepository(r.db)
	ctx := context.Background()

	if _, err := users.UpsertFromTelegram(ctx, 42, "Ada", "", "ada"); err != nil {
		t.Fatal(err)
	}

	pref, err := users.Preference(ctx, 42)
	if err != nil {
		t.Fatal(err)
	}
	if pref.TimezoneOffset != 0 {
		t.Fatalf("default TimezoneOffset = %d", pref.TimezoneOffset)
	}

	if err := users.SetTimezoneOffset(ctx, 42, 5); err != nil {
		t.Fatal(err)
	}
	if err := users.SetDailySummary(ctx, 42, true); err != nil {
		t.Fatal(err)
	}

	pref, err = users.Preference(ctx, 42)
	if err != nil {
		t.Fatal(err)
	}
	if pref.TimezoneOffset != 5 || !pref.DailySummary {
		t.Fatalf("pref = %+v", pref)
	}
	if _, offset := time.Now().In(pref.Location()).Zone(); offset != 5*3600 {
		t.Fatalf("Location offset = %d seconds", offset)
	}

	recipients, err := users.ListSummaryRecipients(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recipients) != 1 || recipients[0].UserID != 42 {
		t.Fatalf("recipients = %+v", recipients)
	}
}
