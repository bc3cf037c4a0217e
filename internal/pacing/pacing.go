package pacing

import (
	"math/rand/v2"
	"time"
)

// Policy draws randomized waits between wallets.
type Policy struct {
	SpinMin, SpinMax time.Duration
	IdleMin, IdleMax time.Duration

	rng *rand.Rand
}

// NewPolicy returns a policy with the default windows: 15-45s after spins, 30-120s otherwise.
func NewPolicy(rng *rand.Rand) *Policy {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Policy{
		SpinMin: 15 * time.Second,
		SpinMax: 45 * time.Second,
		IdleMin: 30 * time.Second,
		IdleMax: 120 * time.Second,
		rng:     rng,
	}
}

// Delay returns a wait drawn uniformly from the window matching the outcome.
func (p *Policy) Delay(spinsPerformed bool) time.Duration {
	if spinsPerformed {
		return p.uniform(p.SpinMin, p.SpinMax)
	}
	return p.uniform(p.IdleMin, p.IdleMax)
}

func (p *Policy) uniform(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(p.rng.Int64N(int64(hi-lo)+1))
}

// Exempt reports a fully quiescent wallet: funded, transferred, and no spins left.
func Exempt(balancePositive, transferDone bool, spinsAvailable *int) bool {
	return balancePositive && transferDone && spinsAvailable != nil && *spinsAvailable == 0
}
