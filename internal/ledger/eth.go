package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// depositSelector is the 4-byte selector of the token contract's payable deposit().
var depositSelector = []byte{0xd0, 0xe3, 0x0d, 0xb0}

const weiDecimals = 18

// ErrChainMismatch is returned once the endpoint reports a chain other than the configured one.
var ErrChainMismatch = errors.New("rpc chain id mismatch")

// EthClient implements Client over a JSON-RPC endpoint with EIP-1559 transactions.
type EthClient struct {
	rpc            *ethclient.Client
	wantChainID    int64
	tokenContract  common.Address
	recipient      *common.Address
	confirmTimeout time.Duration
	log            *zap.Logger

	chainMu  sync.Mutex
	chainID  *big.Int
	chainErr error
}

// EthConfig configures EthClient.
type EthConfig struct {
	RPCURL         string
	ChainID        int64
	TokenContract  string
	Recipient      string // empty: the daily transfer goes back to the sender
	ConfirmTimeout time.Duration
}

// NewEthClient prepares a client for the RPC endpoint. The chain id is checked on first use,
// so an endpoint that is down at startup surfaces as per-call errors.
func NewEthClient(ctx context.Context, cfg EthConfig, log *zap.Logger) (*EthClient, error) {
	rpc, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	c := &EthClient{
		rpc:            rpc,
		wantChainID:    cfg.ChainID,
		tokenContract:  common.HexToAddress(cfg.TokenContract),
		confirmTimeout: cfg.ConfirmTimeout,
		log:            log,
	}
	if cfg.Recipient != "" {
		r := common.HexToAddress(cfg.Recipient)
		c.recipient = &r
	}
	if c.confirmTimeout <= 0 {
		c.confirmTimeout = 3 * time.Minute
	}
	return c, nil
}

// Close closes the RPC connection.
func (c *EthClient) Close() {
	c.rpc.Close()
}

// chain returns the endpoint's chain id, fetched once. A transport failure is retried on the
// next call; a mismatch with the configured id sticks.
func (c *EthClient) chain(ctx context.Context) (*big.Int, error) {
	c.chainMu.Lock()
	defer c.chainMu.Unlock()
	if c.chainErr != nil {
		return nil, c.chainErr
	}
	if c.chainID != nil {
		return c.chainID, nil
	}

	id, err := c.rpc.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	if c.wantChainID != 0 && id.Int64() != c.wantChainID {
		c.chainErr = fmt.Errorf("%w: endpoint reports %s, configured %d", ErrChainMismatch, id, c.wantChainID)
		c.log.Error("rpc endpoint is on the wrong chain", zap.Error(c.chainErr))
		return nil, c.chainErr
	}
	c.chainID = id
	return id, nil
}

// BalanceOf returns the native balance in ETH.
func (c *EthClient) BalanceOf(ctx context.Context, address string) (decimal.Decimal, error) {
	if _, err := c.chain(ctx); err != nil {
		return decimal.Zero, err
	}
	wei, err := c.rpc.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance of %s: %w", address, err)
	}
	return decimal.NewFromBigInt(wei, -weiDecimals), nil
}

// Deposit converts amount ETH into campaign tokens via the token contract.
func (c *EthClient) Deposit(ctx context.Context, secret string, amount decimal.Decimal) (string, error) {
	to := c.tokenContract
	return c.send(ctx, secret, &to, amount, depositSelector)
}

// Transfer sends the daily amount to the recipient, or to the sender itself.
func (c *EthClient) Transfer(ctx context.Context, secret string, amount decimal.Decimal) (string, error) {
	return c.send(ctx, secret, c.recipient, amount, nil)
}

func (c *EthClient) send(ctx context.Context, secret string, to *common.Address, amount decimal.Decimal, data []byte) (string, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(secret), "0x"))
	if err != nil {
		return "", fmt.Errorf("invalid private key")
	}
	chainID, err := c.chain(ctx)
	if err != nil {
		return "", err
	}
	from := crypto.PubkeyToAddress(key.PublicKey)
	if to == nil {
		to = &from
	}
	value := amount.Shift(weiDecimals).BigInt()

	nonce, err := c.rpc.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	tip, err := c.rpc.SuggestGasTipCap(ctx)
	if err != nil {
		return "", fmt.Errorf("gas tip: %w", err)
	}
	head, err := c.rpc.HeaderByNumber(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("latest header: %w", err)
	}
	if head.BaseFee == nil {
		return "", fmt.Errorf("chain %s has no base fee; EIP-1559 required", chainID)
	}
	feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))

	gas, err := c.rpc.EstimateGas(ctx, ethereum.CallMsg{From: from, To: to, Value: value, Data: data})
	if err != nil {
		return "", fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        to,
		Value:     value,
		Data:      data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return "", fmt.Errorf("sign tx: %w", err)
	}
	if err := c.rpc.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("send tx: %w", err)
	}
	hash := signed.Hash().Hex()
	c.log.Info("transaction submitted", zap.String("from", strings.ToLower(from.Hex())), zap.String("tx", hash))

	waitCtx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, c.rpc, signed)
	if err != nil {
		return "", fmt.Errorf("wait for %s: %w", hash, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("%s: %w", hash, ErrTxFailed)
	}
	return hash, nil
}
