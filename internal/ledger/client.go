package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// ErrTxFailed is returned when a transaction was mined but reverted.
var ErrTxFailed = errors.New("transaction reverted")

// Client moves value on the ledger. Deposit and Transfer return only after the
// transaction is confirmed; a returned tx hash always means a successful receipt.
type Client interface {
	BalanceOf(ctx context.Context, address string) (decimal.Decimal, error)
	Deposit(ctx context.Context, secret string, amount decimal.Decimal) (string, error)
	Transfer(ctx context.Context, secret string, amount decimal.Decimal) (string, error)
}

// AddressFromSecret derives the lower-cased 0x address controlled by a hex private key.
func AddressFromSecret(secret string) (string, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(secret), "0x"))
	if err != nil {
		// Never echo the key material.
		return "", fmt.Errorf("invalid private key")
	}
	return strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex()), nil
}
