package domain

import "time"

// ReconcileStats holds statistics about one reconciliation tick.
type ReconcileStats struct {
	Products    int
	Refreshed   int
	Skipped     int
	Failed      int
	Blocked     int
	AlertsSent  int
	AlertErrors int
	Duration    time.Duration
}
