package model

import (
	"strings"
	"time"
)

// WalletRecord is the persisted daily state of one wallet.
// Pointer fields are nil until first observed; nil is not the same as zero.
type WalletRecord struct {
	Address string `json:"address"`

	EthBalance   string `json:"ethBalance,omitempty"`
	TokenBalance string `json:"tokenBalance,omitempty"`

	SpinsAvailable      *int   `json:"spinsAvailable,omitempty"`
	PrizesWon           *int   `json:"prizesWon,omitempty"`
	GamesPlayed         *int   `json:"gamesPlayed,omitempty"`
	DayStreak           *int   `json:"dayStreak,omitempty"`
	NextSpinRefreshTime string `json:"nextSpinRefreshTime,omitempty"`

	LastSpinAt     *time.Time `json:"lastSpinAt,omitempty"`
	LastActivityAt *time.Time `json:"lastActivityAt,omitempty"`
	ConnectedAt    *time.Time `json:"connectedAt,omitempty"`

	DailyTransferDoneToday bool   `json:"dailyTransferDoneToday"`
	LastTransferDate       string `json:"lastTransferDate,omitempty"` // YYYY-MM-DD, UTC
	TransferAmount         string `json:"transferAmount,omitempty"`

	LastDepositDate string `json:"lastDepositDate,omitempty"`
	LastTxRef       string `json:"lastTxRef,omitempty"`
}

// WalletUpdate is a partial update. Nil / empty fields leave the stored value untouched.
type WalletUpdate struct {
	EthBalance   *string
	TokenBalance *string

	SpinsAvailable      *int
	PrizesWon           *int
	GamesPlayed         *int
	DayStreak           *int
	NextSpinRefreshTime *string

	LastSpinAt     *time.Time
	LastActivityAt *time.Time
	ConnectedAt    *time.Time

	DailyTransferDoneToday *bool
	LastTransferDate       *string
	TransferAmount         *string

	LastDepositDate *string
	LastTxRef       *string
}

// Snapshot is the whole persisted document: every wallet plus the last write time.
type Snapshot struct {
	LastUpdate time.Time                `json:"lastUpdate"`
	Wallets    map[string]*WalletRecord `json:"wallets"`
}

// NewSnapshot returns an empty, valid snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{Wallets: make(map[string]*WalletRecord)}
}

// CanonicalAddress lower-cases and trims an address so lookups are case-insensitive.
func CanonicalAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Apply merges u into r. Only fields present in u are written.
func (r *WalletRecord) Apply(u WalletUpdate) {
	setString(&r.EthBalance, u.EthBalance)
	setString(&r.TokenBalance, u.TokenBalance)
	setInt(&r.SpinsAvailable, u.SpinsAvailable)
	setInt(&r.PrizesWon, u.PrizesWon)
	setInt(&r.GamesPlayed, u.GamesPlayed)
	setInt(&r.DayStreak, u.DayStreak)
	setString(&r.NextSpinRefreshTime, u.NextSpinRefreshTime)
	setTime(&r.LastSpinAt, u.LastSpinAt)
	setTime(&r.LastActivityAt, u.LastActivityAt)
	setTime(&r.ConnectedAt, u.ConnectedAt)
	if u.DailyTransferDoneToday != nil {
		r.DailyTransferDoneToday = *u.DailyTransferDoneToday
	}
	setString(&r.LastTransferDate, u.LastTransferDate)
	setString(&r.TransferAmount, u.TransferAmount)
	setString(&r.LastDepositDate, u.LastDepositDate)
	setString(&r.LastTxRef, u.LastTxRef)
}

// Clone returns a deep copy so callers never alias stored pointers.
func (r *WalletRecord) Clone() *WalletRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.SpinsAvailable = cloneInt(r.SpinsAvailable)
	c.PrizesWon = cloneInt(r.PrizesWon)
	c.GamesPlayed = cloneInt(r.GamesPlayed)
	c.DayStreak = cloneInt(r.DayStreak)
	c.LastSpinAt = cloneTime(r.LastSpinAt)
	c.LastActivityAt = cloneTime(r.LastActivityAt)
	c.ConnectedAt = cloneTime(r.ConnectedAt)
	return &c
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst **int, v *int) {
	if v != nil {
		*dst = cloneInt(v)
	}
}

func setTime(dst **time.Time, v *time.Time) {
	if v != nil {
		t := v.UTC()
		*dst = &t
	}
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	t := *v
	return &t
}

// Ptr returns a pointer to v. Handy for building WalletUpdate literals.
func Ptr[T any](v T) *T {
	return &v
}
