package stats

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/focuslab/focusguard/internal/repository"
	"github.com/focuslab/focusguard/internal/session"
)

const (
	MinWindowDays = 1
	MaxWindowDays = 90
)

// ErrInvalidDays reports a requested window outside [MinWindowDays, MaxWindowDays].
var ErrInvalidDays = errors.New("invalid number of days requested")

// DailyStat is one calendar day in a requested window. Days with no sessions
// are synthesized with all-zero values so the date axis has no gaps.
type DailyStat struct {
	Date               string `json:"date"`
	FocusSeconds       int64  `json:"focusTime"`
	DistractionSeconds int64  `json:"distractionTime"`
	SessionCount       int    `json:"sessionCount"`
	FocusPercentage    int    `json:"focusPercentage"`
}

type AppUsage struct {
	AppName      string `json:"appName"`
	TotalSeconds int64  `json:"totalTime"`
}

// Service derives daily and per-app rollups from the persisted sessions.
type Service struct {
	repo repository.StatsRepository
}

func NewService(repo repository.StatsRepository) *Service {
	return &Service{repo: repo}
}

// DailyFocus returns exactly one entry per calendar day (UTC) for the last
// `days` days, oldest first, gap-filled with zero entries.
func (s *Service) DailyFocus(ctx context.Context, userID string, days int) ([]DailyStat, error) {
	if days < MinWindowDays || days > MaxWindowDays {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDays, days)
	}
	start := windowStart(days)

	rows, err := s.repo.DailyTotals(ctx, userID, start)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily totals: %w", err)
	}
	byDate := make(map[string]repository.DailyTotalsRow, len(rows))
	for _, row := range rows {
		byDate[row.Date] = row
	}

	filled := make([]DailyStat, 0, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		row, ok := byDate[date]
		if !ok {
			filled = append(filled, DailyStat{Date: date})
			continue
		}
		filled = append(filled, DailyStat{
			Date:               date,
			FocusSeconds:       row.FocusSeconds,
			DistractionSeconds: row.DistractionSeconds,
			SessionCount:       row.SessionCount,
			FocusPercentage:    focusPercentage(row.FocusSeconds, row.DistractionSeconds),
		})
	}
	return filled, nil
}

// DailyAppUsage sums per-app time across the window and sorts descending by
// total. Apps absent on a given day simply contribute nothing; no gap fill.
func (s *Service) DailyAppUsage(ctx context.Context, userID string, days int) ([]AppUsage, error) {
	if days < MinWindowDays || days > MaxWindowDays {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDays, days)
	}

	rows, err := s.repo.AppUsageTotals(ctx, userID, windowStart(days))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate app usage: %w", err)
	}

	// Restoring display names can merge keys, so re-total before sorting.
	totals := make(map[string]int64, len(rows))
	for _, row := range rows {
		totals[session.RestoreAppName(row.AppKey)] += row.TotalSeconds
	}
	list := make([]AppUsage, 0, len(totals))
	for name, seconds := range totals {
		list = append(list, AppUsage{AppName: name, TotalSeconds: seconds})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].TotalSeconds != list[j].TotalSeconds {
			return list[i].TotalSeconds > list[j].TotalSeconds
		}
		return list[i].AppName < list[j].AppName
	})
	return list, nil
}

// windowStart is UTC midnight `days-1` days ago, so the window includes today.
func windowStart(days int) time.Time {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -(days - 1))
}

func focusPercentage(focus, distraction int64) int {
	total := focus + distraction
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(focus) / float64(total)))
}
