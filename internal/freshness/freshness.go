// Package freshness answers "is this wallet's cached state still valid for today".
// Every function is pure: same record and clock, same answer. All dates are UTC.
package freshness

import (
	"time"

	"WalletCampaign/internal/model"
)

// SpinBoundaryHour is the UTC hour at which a new day's spin budget becomes available.
const SpinBoundaryHour = 3

// DateLayout is the on-disk format for calendar dates.
const DateLayout = "2006-01-02"

// Today returns now's UTC calendar date as YYYY-MM-DD.
func Today(now time.Time) string {
	return now.UTC().Format(DateLayout)
}

func sameDay(t, now time.Time) bool {
	return Today(t) == Today(now)
}

// IsNewDay reports whether the wallet is entering a new cycle. Transfer date and activity date
// are independent signals; either one pointing at an earlier day is enough.
func IsNewDay(rec *model.WalletRecord, now time.Time) bool {
	if rec == nil {
		return true
	}
	if rec.LastTransferDate != "" && rec.LastTransferDate != Today(now) {
		return true
	}
	touched := rec.LastActivityAt
	if touched == nil {
		touched = rec.ConnectedAt
	}
	if touched != nil && !sameDay(*touched, now) {
		return true
	}
	return false
}

// ShouldRefreshSpins reports whether the cached spin count may be stale. A spin before the
// 03:00 UTC boundary belongs to the previous budget even on the same calendar date.
func ShouldRefreshSpins(rec *model.WalletRecord, now time.Time) bool {
	if rec == nil || rec.LastSpinAt == nil {
		return true
	}
	last := rec.LastSpinAt.UTC()
	now = now.UTC()
	if !sameDay(last, now) {
		return true
	}
	return now.Hour() >= SpinBoundaryHour && last.Hour() < SpinBoundaryHour
}

// HasFullData reports whether spins, prizes and games have all been observed. Zero counts.
func HasFullData(rec *model.WalletRecord) bool {
	return rec != nil && rec.SpinsAvailable != nil && rec.PrizesWon != nil && rec.GamesPlayed != nil
}

// DailyTransferDoneToday reports whether the recorded transfer date is today.
func DailyTransferDoneToday(rec *model.WalletRecord, now time.Time) bool {
	return rec != nil && rec.LastTransferDate == Today(now)
}

// DepositDoneToday reports whether a top-up deposit was already confirmed today.
func DepositDoneToday(rec *model.WalletRecord, now time.Time) bool {
	return rec != nil && rec.LastDepositDate == Today(now)
}

// ShouldClearTransferFlag reports a done-flag left over from an earlier day.
func ShouldClearTransferFlag(rec *model.WalletRecord, now time.Time) bool {
	return rec != nil && rec.DailyTransferDoneToday && !DailyTransferDoneToday(rec, now)
}

// FullyCompletedToday reports a wallet with nothing left to do until the next boundary.
func FullyCompletedToday(rec *model.WalletRecord, now time.Time) bool {
	return DailyTransferDoneToday(rec, now) &&
		rec.SpinsAvailable != nil && *rec.SpinsAvailable == 0 &&
		!ShouldRefreshSpins(rec, now)
}
