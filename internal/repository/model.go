package repository

import "time"

// Session is one tracking period for a user. EndedAt is nil while the session
// is open; at most one open session may exist per user.
type Session struct {
	ID                 string
	UserID             string
	StartedAt          time.Time
	EndedAt            *time.Time
	FocusSeconds       int64
	DistractionSeconds int64
	AppUsage           map[string]int64
	LatestActivity     *Activity
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (s *Session) IsOpen() bool {
	return s.EndedAt == nil
}

// Activity is the most recent ingest snapshot, overwritten wholesale on every
// accepted data point. Service carries the raw (unsanitized) app name.
type Activity struct {
	Service      string
	Productivity string
	Reason       string
	Timestamp    time.Time
}

type User struct {
	ID                      string
	TotalFocusSeconds       int64
	TotalDistractionSeconds int64
	AppUsage                map[string]int64
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// DailyTotalsRow is one calendar day's aggregate, keyed by a YYYY-MM-DD UTC
// date string. Days with no sessions produce no row.
type DailyTotalsRow struct {
	Date               string
	FocusSeconds       int64
	DistractionSeconds int64
	SessionCount       int
}

type AppUsageTotalsRow struct {
	AppKey       string
	TotalSeconds int64
}
