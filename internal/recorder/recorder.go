package recorder

import (
	"time"

	"WalletCampaign/internal/model"
)

// Kinds of journaled wallet actions.
const (
	KindDeposit       = "DEPOSIT"
	KindTransfer      = "TRANSFER"
	KindSpin          = "SPIN"
	KindSkip          = "SKIP"
	KindRefreshFailed = "REFRESH_FAILED"
	KindFailed        = "FAILED"
)

// ActionEvent is one journaled step taken for a wallet.
type ActionEvent struct {
	RunID   string
	At      time.Time
	Address string
	Kind    string // one of the Kind* constants
	TxRef   string
	Amount  string
	Reward  string
	Error   string
}

// Recorder persists campaign history for later analysis.
type Recorder interface {
	RecordAction(evt *ActionEvent) error
	RecordRun(sum *model.RunSummary) error
	Close() error
}
