package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/focuslab/focusguard/internal/repository"
)

type mockStatsRepository struct {
	daily []repository.DailyTotalsRow
	apps  []repository.AppUsageTotalsRow
	since time.Time
}

func (m *mockStatsRepository) DailyTotals(_ context.Context, _ string, since time.Time) ([]repository.DailyTotalsRow, error) {
	m.since = since
	return m.daily, nil
}

func (m *mockStatsRepository) AppUsageTotals(_ context.Context, _ string, since time.Time) ([]repository.AppUsageTotalsRow, error) {
	m.since = since
	return m.apps, nil
}

func utcDate(daysAgo int) string {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -daysAgo).Format("2006-01-02")
}

func TestDailyFocus_RejectsOutOfRangeWindows(t *testing.T) {
	svc := NewService(&mockStatsRepository{})
	for _, days := range []int{0, -1, 91} {
		if _, err := svc.DailyFocus(context.Background(), "user-1", days); !errors.Is(err, ErrInvalidDays) {
			t.Errorf("days=%d: expected ErrInvalidDays, got %v", days, err)
		}
	}
}

func TestDailyFocus_FillsEmptyWindow(t *testing.T) {
	svc := NewService(&mockStatsRepository{})
	filled, err := svc.DailyFocus(context.Background(), "user-1", 7)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(filled) != 7 {
		t.Fatalf("expected 7 entries, got %d", len(filled))
	}
	for i, stat := range filled {
		if stat.FocusSeconds != 0 || stat.DistractionSeconds != 0 || stat.SessionCount != 0 || stat.FocusPercentage != 0 {
			t.Fatalf("entry %d not zeroed: %+v", i, stat)
		}
	}
}

func TestDailyFocus_ContiguousOrderedDates(t *testing.T) {
	repo := &mockStatsRepository{daily: []repository.DailyTotalsRow{
		{Date: utcDate(3), FocusSeconds: 300, DistractionSeconds: 100, SessionCount: 2},
	}}
	svc := NewService(repo)

	filled, err := svc.DailyFocus(context.Background(), "user-1", 7)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(filled) != 7 {
		t.Fatalf("expected 7 entries, got %d", len(filled))
	}
	for i := 1; i < len(filled); i++ {
		prev, _ := time.Parse("2006-01-02", filled[i-1].Date)
		cur, _ := time.Parse("2006-01-02", filled[i].Date)
		if !cur.Equal(prev.AddDate(0, 0, 1)) {
			t.Fatalf("dates not contiguous at %d: %s -> %s", i, filled[i-1].Date, filled[i].Date)
		}
	}
	if filled[6].Date != utcDate(0) {
		t.Fatalf("expected last entry to be today, got %s", filled[6].Date)
	}
	if filled[3].FocusSeconds != 300 || filled[3].FocusPercentage != 75 {
		t.Fatalf("expected grouped row to land on its date: %+v", filled[3])
	}
}

func TestDailyFocus_ZeroDenominatorPercentage(t *testing.T) {
	repo := &mockStatsRepository{daily: []repository.DailyTotalsRow{
		{Date: utcDate(0), FocusSeconds: 0, DistractionSeconds: 0, SessionCount: 1},
	}}
	svc := NewService(repo)

	filled, err := svc.DailyFocus(context.Background(), "user-1", 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if filled[0].FocusPercentage != 0 {
		t.Fatalf("expected 0%% for zero denominator, got %d", filled[0].FocusPercentage)
	}
	if filled[0].SessionCount != 1 {
		t.Fatalf("expected session count to survive, got %+v", filled[0])
	}
}

func TestDailyFocus_PercentageRounds(t *testing.T) {
	repo := &mockStatsRepository{daily: []repository.DailyTotalsRow{
		{Date: utcDate(0), FocusSeconds: 2, DistractionSeconds: 1, SessionCount: 1},
	}}
	svc := NewService(repo)

	filled, err := svc.DailyFocus(context.Background(), "user-1", 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if filled[0].FocusPercentage != 67 {
		t.Fatalf("expected 67, got %d", filled[0].FocusPercentage)
	}
}

func TestDailyAppUsage_SortsDescendingWithDisplayNames(t *testing.T) {
	repo := &mockStatsRepository{apps: []repository.AppUsageTotalsRow{
		{AppKey: "chrome", TotalSeconds: 120},
		{AppKey: "Code_exe", TotalSeconds: 300},
		{AppKey: "slack", TotalSeconds: 60},
	}}
	svc := NewService(repo)

	list, err := svc.DailyAppUsage(context.Background(), "user-1", 7)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(list))
	}
	if list[0].AppName != "Code.exe" || list[0].TotalSeconds != 300 {
		t.Fatalf("expected Code.exe first, got %+v", list[0])
	}
	if list[1].AppName != "chrome" || list[2].AppName != "slack" {
		t.Fatalf("unexpected order: %+v", list)
	}
}

func TestDailyAppUsage_RejectsOutOfRangeWindows(t *testing.T) {
	svc := NewService(&mockStatsRepository{})
	if _, err := svc.DailyAppUsage(context.Background(), "user-1", 0); !errors.Is(err, ErrInvalidDays) {
		t.Fatalf("expected ErrInvalidDays, got %v", err)
	}
}

func TestWindowStartIncludesToday(t *testing.T) {
	repo := &mockStatsRepository{}
	svc := NewService(repo)
	if _, err := svc.DailyFocus(context.Background(), "user-1", 1); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want, _ := time.Parse("2006-01-02", utcDate(0))
	if !repo.since.Equal(want) {
		t.Fatalf("expected window start %v, got %v", want, repo.since)
	}
}
