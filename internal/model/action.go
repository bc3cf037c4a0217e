package model

import "github.com/shopspring/decimal"

// Action is the single thing the planner decides to do with a wallet in one pass.
type Action string

const (
	ActionSkip              Action = "SKIP"
	ActionRefreshThenDecide Action = "REFRESH_THEN_DECIDE"
	ActionConsumeSpins      Action = "CONSUME_SPINS"
)

// ObservedState is what the campaign page reported. Every field is optional.
type ObservedState struct {
	EthBalance     *decimal.Decimal
	TokenBalance   *decimal.Decimal
	SpinsAvailable *int
	PrizesWon      *int
	GamesPlayed    *int
	DayStreak      *int
	NextRefresh    *string
}

// SpinResult is the outcome of one successful spin.
type SpinResult struct {
	RewardText string
}

// Wallet pairs an address with the secret that controls it.
type Wallet struct {
	Address string
	Secret  string
}
