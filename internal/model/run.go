package model

import "time"

// RunSummary is the tally of one campaign pass over the fleet.
type RunSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Wallets   int
	Spins     int
	Transfers int
	Deposits  int
	Skipped   int
	Refreshed int
	Failed    int

	// Interrupted is set when the run stopped early on context cancellation.
	Interrupted bool
}

func (s RunSummary) Duration() time.Duration {
	if s.FinishedAt.Before(s.StartedAt) {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
