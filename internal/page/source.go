package page

import (
	"context"
	"fmt"

	"WalletCampaign/internal/model"
)

// Source reads the campaign page for a wallet and performs spins on it.
type Source interface {
	WaitForCard(ctx context.Context, address string) bool
	ExtractState(ctx context.Context, address string) (model.ObservedState, error)
	PerformSpin(ctx context.Context, address string) (model.SpinResult, error)
	Name() string
}

// MockSource serves fixed page state per wallet, for development and testing.
// Each successful spin decrements the wallet's spin count unless Sticky is set.
type MockSource struct {
	States   map[string]model.ObservedState
	CardMiss map[string]bool
	Sticky   bool
	Reward   string

	Spins int
}

func NewMockSource() *MockSource {
	return &MockSource{States: make(map[string]model.ObservedState), CardMiss: make(map[string]bool), Reward: "10 points"}
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) WaitForCard(_ context.Context, address string) bool {
	return !m.CardMiss[address]
}

func (m *MockSource) ExtractState(_ context.Context, address string) (model.ObservedState, error) {
	st, ok := m.States[address]
	if !ok {
		return model.ObservedState{}, fmt.Errorf("mock: no page for %s", address)
	}
	return st, nil
}

func (m *MockSource) PerformSpin(_ context.Context, address string) (model.SpinResult, error) {
	st, ok := m.States[address]
	if !ok || st.SpinsAvailable == nil || *st.SpinsAvailable <= 0 {
		return model.SpinResult{}, fmt.Errorf("mock: no spins for %s", address)
	}
	m.Spins++
	if !m.Sticky {
		left := *st.SpinsAvailable - 1
		st.SpinsAvailable = &left
		m.States[address] = st
	}
	return model.SpinResult{RewardText: m.Reward}, nil
}
