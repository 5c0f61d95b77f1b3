package models

import "time"

// QuerySummary is one logged query as returned by the sessions review API.
type QuerySummary struct {
	Question     string    `json:"question"`
	Response     string    `json:"response"`
	ResponseTime float64   `json:"response_time"`
	Timestamp    time.Time `json:"timestamp"`
}

// SessionsStats aggregates a user's whole query history for the
// review dashboard. Response-time fields are nil when no queries exist.
type SessionsStats struct {
	TotalSessions        int      `json:"total_sessions"`
	TotalQueries         int      `json:"total_queries"`
	AvgResponseTime      *float64 `json:"avg_response_time"`
	MinResponseTime      *float64 `json:"min_response_time"`
	MaxResponseTime      *float64 `json:"max_response_time"`
	TotalResponseTime    *float64 `json:"total_response_time"`
	AvgQueriesPerSession float64  `json:"avg_queries_per_session"`
}

// SessionSummary is a session plus aggregate statistics over its queries.
type SessionSummary struct {
	ID                string         `json:"id"`
	StartedAt         time.Time      `json:"started_at"`
	QueryCount        int            `json:"query_count"`
	AvgResponseTime   *float64       `json:"avg_response_time"`
	TotalResponseTime *float64       `json:"total_response_time"`
	Queries           []QuerySummary `json:"queries"`
}
