package planner

import (
	"fmt"
	"time"

	"WalletCampaign/internal/model"
)

// State is where a wallet's plan stands within one pass.
type State string

const (
	StateDeciding        State = "DECIDING"
	StateAwaitingRefresh State = "AWAITING_REFRESH"
	StateReady           State = "READY"
)

// Machine makes the two-phase decision explicit: decide, optionally wait for a live
// refresh, then settle on Skip or ConsumeSpins. It never touches the store.
type Machine struct {
	state    State
	decision Decision
}

// NewMachine returns a machine in the Deciding state.
func NewMachine() *Machine {
	return &Machine{state: StateDeciding}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Decision returns the latest decision. Only final once State is Ready.
func (m *Machine) Decision() Decision { return m.decision }

// Start runs the first phase and returns the resulting state.
func (m *Machine) Start(rec *model.WalletRecord, now time.Time) (State, error) {
	if m.state != StateDeciding {
		return m.state, fmt.Errorf("start: machine is %s", m.state)
	}
	m.decision = Decide(rec, now)
	if m.decision.Action == model.ActionRefreshThenDecide {
		m.state = StateAwaitingRefresh
	} else {
		m.state = StateReady
	}
	return m.state, nil
}

// Refreshed feeds the live spin count into the second phase.
func (m *Machine) Refreshed(observedSpins *int) (Decision, error) {
	if m.state != StateAwaitingRefresh {
		return m.decision, fmt.Errorf("refreshed: machine is %s", m.state)
	}
	m.decision = DecideAfterRefresh(observedSpins)
	m.state = StateReady
	return m.decision, nil
}

// RefreshFailed settles on Skip; the wallet is retried on the next run.
func (m *Machine) RefreshFailed(cause error) (Decision, error) {
	if m.state != StateAwaitingRefresh {
		return m.decision, fmt.Errorf("refresh failed: machine is %s", m.state)
	}
	reason := "refresh failed"
	if cause != nil {
		reason = "refresh failed: " + cause.Error()
	}
	m.decision = Decision{model.ActionSkip, reason}
	m.state = StateReady
	return m.decision, nil
}
