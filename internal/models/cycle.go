package models

import "time"

// CycleSummary aggregates the outcome of one scan cycle for logging and
// notification.
type CycleSummary struct {
	CycleID         string
	StartedAt       time.Time
	Duration        time.Duration
	ExchangesOK     int
	ExchangesFailed int
	Quotes          int
	Symbols         int
	Opportunities   int
	Alerted         int
}
