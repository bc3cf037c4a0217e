package planner

import (
	"time"

	"WalletCampaign/internal/freshness"
	"WalletCampaign/internal/model"
)

// Decision is an action plus a short reason for the logs.
type Decision struct {
	Action model.Action
	Reason string
}

// Decide picks the first-phase action for a wallet. First matching rule wins.
func Decide(rec *model.WalletRecord, now time.Time) Decision {
	if freshness.FullyCompletedToday(rec, now) {
		return Decision{model.ActionSkip, "transfer done, no spins left, no boundary crossed"}
	}

	cached := rec != nil && !freshness.IsNewDay(rec, now) && freshness.HasFullData(rec)
	if cached {
		if freshness.DailyTransferDoneToday(rec, now) {
			return Decision{model.ActionRefreshThenDecide, "transferred today, cached spins untrusted"}
		}
		if freshness.ShouldRefreshSpins(rec, now) {
			return Decision{model.ActionRefreshThenDecide, "spin budget may have reset"}
		}
		if *rec.SpinsAvailable > 0 {
			return Decision{model.ActionConsumeSpins, "cached spins available"}
		}
		return Decision{model.ActionSkip, "cached spins exhausted"}
	}

	switch {
	case rec == nil:
		return Decision{model.ActionRefreshThenDecide, "no record yet"}
	case freshness.IsNewDay(rec, now):
		return Decision{model.ActionRefreshThenDecide, "new day"}
	default:
		return Decision{model.ActionRefreshThenDecide, "incomplete data"}
	}
}

// DecideAfterRefresh picks the second-phase action from a freshly observed spin count.
// An unknown count is treated as nothing to spend.
func DecideAfterRefresh(observedSpins *int) Decision {
	if observedSpins != nil && *observedSpins > 0 {
		return Decision{model.ActionConsumeSpins, "live spins available"}
	}
	if observedSpins == nil {
		return Decision{model.ActionSkip, "spin count not visible"}
	}
	return Decision{model.ActionSkip, "no live spins"}
}
