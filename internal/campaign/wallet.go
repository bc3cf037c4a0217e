package campaign

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"WalletCampaign/internal/freshness"
	"WalletCampaign/internal/model"
	"WalletCampaign/internal/planner"
	"WalletCampaign/internal/recorder"
)

// walletOutcome is what one wallet contributed to the run and to pacing.
type walletOutcome struct {
	address string

	spins       int
	transferred bool
	deposited   bool
	refreshed   bool
	skipped     bool
	failed      bool

	balancePositive bool
	transferDone    bool
	spinsLeft       *int
}

// walletPass carries per-wallet context through the steps.
type walletPass struct {
	r      *Runner
	runID  string
	wallet model.Wallet
	log    *zap.Logger
	out    *walletOutcome
}

func (r *Runner) processWallet(ctx context.Context, runID string, w model.Wallet) (out walletOutcome) {
	addr := model.CanonicalAddress(w.Address)
	out.address = addr
	p := &walletPass{
		r:      r,
		runID:  runID,
		wallet: model.Wallet{Address: addr, Secret: w.Secret},
		log:    r.log.With(zap.String("run", runID), zap.String("address", addr)),
		out:    &out,
	}

	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error("wallet panicked", zap.Any("panic", rec), zap.ByteString("stack", debug.Stack()))
			out.failed = true
			p.journal(recorder.KindFailed, "", "", "", fmt.Sprintf("panic: %v", rec))
		}
	}()

	p.run(ctx)
	return out
}

func (p *walletPass) run(ctx context.Context) {
	r := p.r
	addr := p.wallet.Address

	rec, _ := r.store.Get(addr)
	if freshness.ShouldClearTransferFlag(rec, r.Now()) {
		p.log.Info("clearing stale transfer flag", zap.String("last_transfer", rec.LastTransferDate))
		cleared := r.store.Upsert(addr, model.WalletUpdate{DailyTransferDoneToday: model.Ptr(false)})
		rec = &cleared
	}
	if ctx.Err() != nil {
		return
	}

	balance, balanceKnown := p.readBalance(ctx)
	if balanceKnown {
		p.out.balancePositive = balance.IsPositive()
		if rec != nil {
			updated := r.store.Upsert(addr, model.WalletUpdate{EthBalance: model.Ptr(balance.String())})
			rec = &updated
		}
	}

	if p.out.balancePositive && ctx.Err() == nil {
		rec = p.topUp(ctx, rec, balance.String())
	}
	if p.out.balancePositive && ctx.Err() == nil {
		rec = p.dailyTransfer(ctx, rec, balance.String())
	}
	p.out.transferDone = freshness.DailyTransferDoneToday(rec, r.Now())
	if ctx.Err() != nil {
		return
	}

	decision := p.plan(ctx, rec)
	p.log.Info("planned", zap.String("action", string(decision.Action)), zap.String("reason", decision.Reason))

	switch decision.Action {
	case model.ActionConsumeSpins:
		p.consumeSpins(ctx)
	default:
		p.out.skipped = true
		p.journal(recorder.KindSkip, "", "", "", decision.Reason)
	}

	if final, ok := r.store.Get(addr); ok {
		p.out.spinsLeft = final.SpinsAvailable
	}
}

func (p *walletPass) readBalance(ctx context.Context) (decimal.Decimal, bool) {
	bal, err := p.r.ledger.BalanceOf(ctx, p.wallet.Address)
	if err != nil {
		p.fail("balance read", err)
		return decimal.Zero, false
	}
	return bal, true
}

// topUp converts ETH into campaign tokens when the known token balance is exactly zero.
// At most one deposit per UTC day.
func (p *walletPass) topUp(ctx context.Context, rec *model.WalletRecord, ethBalance string) *model.WalletRecord {
	r := p.r
	if rec == nil || rec.TokenBalance == "" {
		return rec
	}
	tokens, err := decimal.NewFromString(rec.TokenBalance)
	if err != nil || !tokens.IsZero() {
		return rec
	}
	if freshness.DepositDoneToday(rec, r.Now()) {
		return rec
	}

	ref, err := r.ledger.Deposit(ctx, p.wallet.Secret, r.DepositAmount)
	if err != nil {
		p.fail("deposit", err)
		p.journal(recorder.KindFailed, "", r.DepositAmount.String(), "", "deposit: "+err.Error())
		return rec
	}
	now := r.Now().UTC()
	updated := r.store.Upsert(p.wallet.Address, model.WalletUpdate{
		EthBalance:      model.Ptr(ethBalance),
		LastDepositDate: model.Ptr(freshness.Today(now)),
		LastTxRef:       model.Ptr(ref),
		LastActivityAt:  &now,
	})
	p.out.deposited = true
	p.log.Info("deposit confirmed", zap.String("tx", ref), zap.String("amount", r.DepositAmount.String()))
	p.journal(recorder.KindDeposit, ref, r.DepositAmount.String(), "", "")
	return &updated
}

// dailyTransfer sends the daily amount once per UTC day. The record changes only after a
// confirmed receipt; this is also the point where a never-seen wallet gets its record.
func (p *walletPass) dailyTransfer(ctx context.Context, rec *model.WalletRecord, ethBalance string) *model.WalletRecord {
	r := p.r
	if freshness.DailyTransferDoneToday(rec, r.Now()) {
		return rec
	}

	ref, err := r.ledger.Transfer(ctx, p.wallet.Secret, r.TransferAmount)
	if err != nil {
		p.fail("transfer", err)
		p.journal(recorder.KindFailed, "", r.TransferAmount.String(), "", "transfer: "+err.Error())
		return rec
	}
	now := r.Now().UTC()
	updated := r.store.Upsert(p.wallet.Address, model.WalletUpdate{
		EthBalance:             model.Ptr(ethBalance),
		DailyTransferDoneToday: model.Ptr(true),
		LastTransferDate:       model.Ptr(freshness.Today(now)),
		TransferAmount:         model.Ptr(r.TransferAmount.String()),
		LastTxRef:              model.Ptr(ref),
		LastActivityAt:         &now,
	})
	p.out.transferred = true
	p.log.Info("transfer confirmed", zap.String("tx", ref), zap.String("amount", r.TransferAmount.String()))
	p.journal(recorder.KindTransfer, ref, r.TransferAmount.String(), "", "")
	return &updated
}

// plan drives the planner machine, performing the live refresh when it asks for one.
func (p *walletPass) plan(ctx context.Context, rec *model.WalletRecord) planner.Decision {
	m := planner.NewMachine()
	state, err := m.Start(rec, p.r.Now())
	if err != nil {
		return planner.Decision{Action: model.ActionSkip, Reason: err.Error()}
	}
	if state != planner.StateAwaitingRefresh {
		return m.Decision()
	}

	obs, err := p.refresh(ctx)
	if err != nil {
		p.log.Warn("refresh failed, skipping wallet", zap.Error(err))
		p.journal(recorder.KindRefreshFailed, "", "", "", err.Error())
		d, _ := m.RefreshFailed(err)
		return d
	}
	p.out.refreshed = true
	d, err := m.Refreshed(obs.SpinsAvailable)
	if err != nil {
		return planner.Decision{Action: model.ActionSkip, Reason: err.Error()}
	}
	return d
}

// refresh reads the live card and persists what it shows. Nothing is written on failure.
func (p *walletPass) refresh(ctx context.Context) (model.ObservedState, error) {
	r := p.r
	if !r.source.WaitForCard(ctx, p.wallet.Address) {
		return model.ObservedState{}, fmt.Errorf("%w: wallet card did not load", ErrCollaborator)
	}
	obs, err := r.source.ExtractState(ctx, p.wallet.Address)
	if err != nil {
		return model.ObservedState{}, fmt.Errorf("%w: extract state: %v", ErrCollaborator, err)
	}
	now := r.Now().UTC()
	u := observedUpdate(obs)
	u.ConnectedAt = &now
	r.store.Upsert(p.wallet.Address, u)
	return obs, nil
}

// consumeSpins spends spins until the stored count hits zero, a spin fails or the cap is reached.
func (p *walletPass) consumeSpins(ctx context.Context) {
	r := p.r
	addr := p.wallet.Address

	for i := 0; i < r.MaxSpinsPerWallet; i++ {
		if ctx.Err() != nil {
			return
		}
		rec, ok := r.store.Get(addr)
		if !ok || rec.SpinsAvailable == nil || *rec.SpinsAvailable <= 0 {
			return
		}
		cached := *rec.SpinsAvailable

		res, err := r.source.PerformSpin(ctx, addr)
		if err != nil {
			now := r.Now().UTC()
			r.store.Upsert(addr, model.WalletUpdate{LastActivityAt: &now})
			p.fail("spin", err)
			p.journal(recorder.KindFailed, "", "", "", "spin: "+err.Error())
			return
		}

		now := r.Now().UTC()
		r.store.Upsert(addr, model.WalletUpdate{LastSpinAt: &now, LastActivityAt: &now})
		p.out.spins++
		p.log.Info("spin done", zap.String("reward", res.RewardText), zap.Int("spin", i+1))
		p.journal(recorder.KindSpin, "", "", res.RewardText, "")

		obs, err := r.source.ExtractState(ctx, addr)
		if err != nil {
			left := max(cached-1, 0)
			p.log.Warn("post-spin refresh failed, decrementing cached count", zap.Int("spins_left", left), zap.Error(err))
			r.store.Upsert(addr, model.WalletUpdate{SpinsAvailable: &left})
			continue
		}
		r.store.Upsert(addr, observedUpdate(obs))
	}
	p.log.Info("spin cap reached", zap.Int("cap", r.MaxSpinsPerWallet))
}

func (p *walletPass) fail(step string, err error) {
	p.out.failed = true
	p.log.Error(step+" failed", zap.Error(fmt.Errorf("%w: %v", ErrCollaborator, err)))
}

func (p *walletPass) journal(kind, txRef, amount, reward, errText string) {
	evt := &recorder.ActionEvent{
		RunID:   p.runID,
		At:      p.r.Now().UTC(),
		Address: p.wallet.Address,
		Kind:    kind,
		TxRef:   txRef,
		Amount:  amount,
		Reward:  reward,
		Error:   errText,
	}
	if err := p.r.recorder.RecordAction(evt); err != nil {
		p.log.Error("record action", zap.Error(err))
	}
}

// observedUpdate maps page observations onto a partial update; absent fields stay nil.
func observedUpdate(obs model.ObservedState) model.WalletUpdate {
	u := model.WalletUpdate{
		SpinsAvailable:      obs.SpinsAvailable,
		PrizesWon:           obs.PrizesWon,
		GamesPlayed:         obs.GamesPlayed,
		DayStreak:           obs.DayStreak,
		NextSpinRefreshTime: obs.NextRefresh,
	}
	if obs.EthBalance != nil {
		u.EthBalance = model.Ptr(obs.EthBalance.String())
	}
	if obs.TokenBalance != nil {
		u.TokenBalance = model.Ptr(obs.TokenBalance.String())
	}
	return u
}
