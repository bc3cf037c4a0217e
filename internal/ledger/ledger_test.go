package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known dev key (hardhat account #0).
const (
	devKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	devAddress = "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"
)

type fakeClient struct {
	balance  decimal.Decimal
	reads    int
	failNext error
}

func (f *fakeClient) BalanceOf(_ context.Context, _ string) (decimal.Decimal, error) {
	f.reads++
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return decimal.Zero, err
	}
	return f.balance, nil
}

func (f *fakeClient) Deposit(_ context.Context, _ string, amount decimal.Decimal) (string, error) {
	f.balance = f.balance.Sub(amount)
	return "0xdeposit", nil
}

func (f *fakeClient) Transfer(_ context.Context, _ string, amount decimal.Decimal) (string, error) {
	f.balance = f.balance.Sub(amount)
	return "0xtransfer", nil
}

func TestAddressFromSecret(t *testing.T) {
	addr, err := AddressFromSecret(devKey)
	require.NoError(t, err)
	assert.Equal(t, devAddress, addr)

	addr, err = AddressFromSecret("0x" + devKey + "\n")
	require.NoError(t, err)
	assert.Equal(t, devAddress, addr)

	_, err = AddressFromSecret("not-a-key")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "not-a-key")
}

func TestCachedClient_MemoizesBalance(t *testing.T) {
	inner := &fakeClient{balance: decimal.RequireFromString("1.5")}
	c, err := NewCachedClient(inner, time.Minute)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		bal, err := c.BalanceOf(ctx, devAddress)
		require.NoError(t, err)
		assert.True(t, bal.Equal(decimal.RequireFromString("1.5")))
	}
	assert.Equal(t, 1, inner.reads)
}

func TestCachedClient_InvalidatesAfterTransfer(t *testing.T) {
	inner := &fakeClient{balance: decimal.RequireFromString("1")}
	c, err := NewCachedClient(inner, time.Minute)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	_, err = c.BalanceOf(ctx, devAddress)
	require.NoError(t, err)

	ref, err := c.Transfer(ctx, devKey, decimal.RequireFromString("0.25"))
	require.NoError(t, err)
	assert.Equal(t, "0xtransfer", ref)

	bal, err := c.BalanceOf(ctx, devAddress)
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.RequireFromString("0.75")), bal.String())
	assert.Equal(t, 2, inner.reads)
}

func TestCachedClient_ErrorsNotCached(t *testing.T) {
	inner := &fakeClient{balance: decimal.RequireFromString("2"), failNext: errors.New("rpc down")}
	c, err := NewCachedClient(inner, time.Minute)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	_, err = c.BalanceOf(ctx, devAddress)
	require.Error(t, err)

	bal, err := c.BalanceOf(ctx, devAddress)
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.RequireFromString("2")))
}
