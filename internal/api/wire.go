// Package api defines the wire contract between the backend and the desktop
// agent, plus the client interface the agent consumes.
package api

import "time"

type SessionPayload struct {
	ID              string           `json:"id"`
	UserID          string           `json:"userId"`
	StartTime       time.Time        `json:"startTime"`
	EndTime         *time.Time       `json:"endTime"`
	FocusTime       int64            `json:"focusTime"`
	DistractionTime int64            `json:"distractionTime"`
	AppUsage        map[string]int64 `json:"appUsage"`
	LatestActivity  *ActivityPayload `json:"latestActivity,omitempty"`
}

type ActivityPayload struct {
	Service      string    `json:"service"`
	Productivity string    `json:"productivity"`
	Reason       string    `json:"reason"`
	Timestamp    time.Time `json:"timestamp"`
}

type SessionResponse struct {
	Message string         `json:"message,omitempty"`
	Session SessionPayload `json:"session"`
}

// IngestRequest is one engine report. Pointer fields let the backend reject
// payloads where a key is absent rather than merely zero.
type IngestRequest struct {
	Focus    *bool   `json:"focus"`
	AppName  string  `json:"appName"`
	Activity *string `json:"activity"`
}

type LifetimeStatsPayload struct {
	TotalFocusTime       int64            `json:"totalFocusTime"`
	TotalDistractionTime int64            `json:"totalDistractionTime"`
	AppUsage             map[string]int64 `json:"appUsage"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
