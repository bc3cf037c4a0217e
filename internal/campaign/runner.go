// Package campaign runs the daily pass over the wallet fleet: financial checks,
// the two-phase spin decision, the spin loop and pacing between wallets.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"WalletCampaign/internal/ledger"
	"WalletCampaign/internal/model"
	"WalletCampaign/internal/notifier"
	"WalletCampaign/internal/pacing"
	"WalletCampaign/internal/page"
	"WalletCampaign/internal/recorder"
	"WalletCampaign/internal/store"
)

// ErrCollaborator marks a failed read or action against the page or the ledger.
// It only ever degrades the current wallet.
var ErrCollaborator = errors.New("collaborator failed")

const DefaultMaxSpinsPerWallet = 10

// Runner executes campaign passes. Build it with NewRunner; the exported
// function fields exist so tests can pin time and skip real waits.
type Runner struct {
	store    *store.Store
	source   page.Source
	ledger   ledger.Client
	pacing   *pacing.Policy
	recorder recorder.Recorder
	notifier notifier.Notifier
	log      *zap.Logger

	TransferAmount    decimal.Decimal
	DepositAmount     decimal.Decimal
	MaxSpinsPerWallet int

	Now     func() time.Time
	Sleep   func(ctx context.Context, d time.Duration) error
	Shuffle func(n int, swap func(i, j int))
}

// NewRunner wires a runner. A nil recorder or notifier disables that output.
func NewRunner(st *store.Store, src page.Source, lc ledger.Client, pol *pacing.Policy,
	rec recorder.Recorder, nt notifier.Notifier, log *zap.Logger) *Runner {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if nt == nil {
		nt = notifier.NoopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if pol == nil {
		pol = pacing.NewPolicy(nil)
	}
	return &Runner{
		store:             st,
		source:            src,
		ledger:            lc,
		pacing:            pol,
		recorder:          rec,
		notifier:          nt,
		log:               log,
		MaxSpinsPerWallet: DefaultMaxSpinsPerWallet,
		Now:               time.Now,
		Sleep:             sleepCtx,
		Shuffle:           rand.Shuffle,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run makes one pass over wallets in a fresh random order. Per-wallet failures are
// logged and counted; only context cancellation ends the pass early.
func (r *Runner) Run(ctx context.Context, wallets []model.Wallet) (model.RunSummary, error) {
	sum := model.RunSummary{RunID: uuid.NewString(), StartedAt: r.Now().UTC()}
	log := r.log.With(zap.String("run", sum.RunID))

	order := make([]model.Wallet, len(wallets))
	copy(order, wallets)
	r.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	log.Info("campaign run started", zap.Int("wallets", len(order)))

	var runErr error
	for i, w := range order {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		sum.Wallets++

		out := r.processWallet(ctx, sum.RunID, w)
		sum.Spins += out.spins
		if out.transferred {
			sum.Transfers++
		}
		if out.deposited {
			sum.Deposits++
		}
		if out.refreshed {
			sum.Refreshed++
		}
		if out.skipped {
			sum.Skipped++
		}
		if out.failed {
			sum.Failed++
		}

		if i == len(order)-1 {
			break
		}
		if pacing.Exempt(out.balancePositive, out.transferDone, out.spinsLeft) {
			log.Debug("no delay for completed wallet", zap.String("address", out.address))
			continue
		}
		d := r.pacing.Delay(out.spins > 0)
		log.Debug("pacing", zap.Duration("delay", d))
		if err := r.Sleep(ctx, d); err != nil {
			runErr = err
			break
		}
	}

	sum.FinishedAt = r.Now().UTC()
	sum.Interrupted = runErr != nil
	log.Info("campaign run finished",
		zap.Int("wallets", sum.Wallets), zap.Int("spins", sum.Spins),
		zap.Int("transfers", sum.Transfers), zap.Int("deposits", sum.Deposits),
		zap.Int("skipped", sum.Skipped), zap.Int("failed", sum.Failed),
		zap.Duration("duration", sum.Duration()))

	if err := r.recorder.RecordRun(&sum); err != nil {
		log.Error("record run", zap.Error(err))
	}
	// The summary still goes out after cancellation.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
	defer cancel()
	if err := r.notifier.Notify(notifyCtx, notifier.FormatRunSummary(sum)); err != nil {
		log.Error("send run summary", zap.Error(err))
	}
	return sum, runErr
}

// WalletsFromSecrets derives each secret's address. Key material never appears in errors.
func WalletsFromSecrets(secrets []string) ([]model.Wallet, error) {
	out := make([]model.Wallet, 0, len(secrets))
	seen := make(map[string]bool, len(secrets))
	for i, s := range secrets {
		addr, err := ledger.AddressFromSecret(s)
		if err != nil {
			return nil, fmt.Errorf("secret #%d: %w", i+1, err)
		}
		if seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, model.Wallet{Address: addr, Secret: s})
	}
	return out, nil
}
