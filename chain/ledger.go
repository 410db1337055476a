package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

const (
	DefaultConfirmTimeout = 120 * time.Second
	DefaultPollInterval   = 2 * time.Second
	DefaultRetryInterval  = 500 * time.Millisecond
	DefaultMaxRetries     = 5

	// gas estimates get a 20% safety margin
	gasMarginPercent = 120
)

// ErrTransactionReverted represents a transaction that was mined with a failure status
var ErrTransactionReverted = errors.New("transaction reverted")

// RevertedError carries the reverted transaction reference. It is never retried.
type RevertedError struct {
	TxHash  common.Hash
	GasUsed uint64
	Block   uint64
}

func (e *RevertedError) Error() string {
	return fmt.Sprintf("transaction %s reverted in block %d (gas used %d)", e.TxHash.Hex(), e.Block, e.GasUsed)
}

func (e *RevertedError) Unwrap() error {
	return ErrTransactionReverted
}

// Backend is the subset of ethclient.Client used by the ledger
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// LedgerConfig holds the ledger's retry and confirmation settings
type LedgerConfig struct {
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
	RetryInterval  time.Duration
	MaxRetries     uint64
	Logger         *zap.Logger
}

// Ledger reads chain state and submits transactions, retrying transient RPC failures
type Ledger struct {
	backend Backend
	closer  func()
	chainID *big.Int
	config  LedgerConfig
	logger  *zap.Logger
}

// Dial connects to an RPC endpoint and returns a Ledger for it
func Dial(ctx context.Context, rpcURL string, config LedgerConfig) (*Ledger, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	ledger, err := NewLedger(ctx, client, config)
	if err != nil {
		client.Close()
		return nil, err
	}
	ledger.closer = client.Close
	return ledger, nil
}

// NewLedger wraps an existing backend
func NewLedger(ctx context.Context, backend Backend, config LedgerConfig) (*Ledger, error) {
	if config.ConfirmTimeout == 0 {
		config.ConfirmTimeout = DefaultConfirmTimeout
	}
	if config.PollInterval == 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.RetryInterval == 0 {
		config.RetryInterval = DefaultRetryInterval
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &Ledger{
		backend: backend,
		config:  config,
		logger:  logger,
	}

	var chainID *big.Int
	err := l.retry(ctx, "chain id", func() (err error) {
		chainID, err = backend.ChainID(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	l.chainID = chainID

	return l, nil
}

// ChainID returns the chain ID reported by the node
func (l *Ledger) ChainID() *big.Int {
	return new(big.Int).Set(l.chainID)
}

// BalanceAt returns the native balance of addr at block (nil = latest)
func (l *Ledger) BalanceAt(ctx context.Context, addr common.Address, block *big.Int) (*big.Int, error) {
	var balance *big.Int
	err := l.retry(ctx, "balance", func() (err error) {
		balance, err = l.backend.BalanceAt(ctx, addr, block)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get balance of %s: %w", addr.Hex(), err)
	}
	return balance, nil
}

// BlockTimestamp returns the timestamp of block (nil = latest)
func (l *Ledger) BlockTimestamp(ctx context.Context, block *big.Int) (uint64, error) {
	var header *types.Header
	err := l.retry(ctx, "header", func() (err error) {
		header, err = l.backend.HeaderByNumber(ctx, block)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get block header: %w", err)
	}
	return header.Time, nil
}

// LatestBlock returns the current block number
func (l *Ledger) LatestBlock(ctx context.Context) (uint64, error) {
	var number uint64
	err := l.retry(ctx, "block number", func() (err error) {
		number, err = l.backend.BlockNumber(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get block number: %w", err)
	}
	return number, nil
}

// FilterLogs returns the logs matching q
func (l *Ledger) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	var logs []types.Log
	err := l.retry(ctx, "logs", func() (err error) {
		logs, err = l.backend.FilterLogs(ctx, q)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to filter logs: %w", err)
	}
	return logs, nil
}

// Call packs a view call, executes it against the latest state and unpacks the result
func (l *Ledger) Call(ctx context.Context, parsed *abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	callData, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	var result []byte
	err = l.retry(ctx, method, func() (err error) {
		result, err = l.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: callData}, nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}

	values, err := parsed.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return values, nil
}

// Send signs a transaction from the given account, submits it and blocks until it is mined.
// A mined transaction with a failure status returns *RevertedError.
func (l *Ledger) Send(ctx context.Context, from *Account, to common.Address, value *big.Int, data []byte) (*types.Receipt, error) {
	if value == nil {
		value = new(big.Int)
	}

	var nonce uint64
	err := l.retry(ctx, "nonce", func() (err error) {
		nonce, err = l.backend.PendingNonceAt(ctx, from.Address)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	var gasPrice *big.Int
	err = l.retry(ctx, "gas price", func() (err error) {
		gasPrice, err = l.backend.SuggestGasPrice(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	// Estimation failures are usually reverts in simulation, so they are not retried
	gasLimit, err := l.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  from.Address,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}
	gasLimit = gasLimit * gasMarginPercent / 100

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(l.chainID), from.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := l.backend.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	l.logger.Debug("transaction sent",
		zap.String("tx", signedTx.Hash().Hex()),
		zap.String("from", from.Address.Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("nonce", nonce),
	)

	return l.WaitMined(ctx, signedTx.Hash())
}

// WaitMined polls for the receipt of txHash until it is mined or the confirm timeout elapses.
// Transient RPC failures while polling are retried with exponential backoff.
func (l *Ledger) WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, l.config.ConfirmTimeout)
	defer cancel()

	errPending := errors.New("pending")

	for {
		var receipt *types.Receipt
		err := l.retry(timeoutCtx, "receipt", func() error {
			r, err := l.backend.TransactionReceipt(timeoutCtx, txHash)
			if errors.Is(err, ethereum.NotFound) {
				return backoff.Permanent(errPending)
			}
			if err != nil {
				return err
			}
			receipt = r
			return nil
		})

		switch {
		case err == nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, &RevertedError{
					TxHash:  txHash,
					GasUsed: receipt.GasUsed,
					Block:   blockNumber(receipt),
				}
			}
			return receipt, nil
		case errors.Is(err, errPending):
		default:
			if timeoutCtx.Err() != nil {
				return nil, fmt.Errorf("timeout waiting for transaction receipt %s: %w", txHash.Hex(), err)
			}
			return nil, fmt.Errorf("failed to get receipt for %s: %w", txHash.Hex(), err)
		}

		select {
		case <-timeoutCtx.Done():
			return nil, fmt.Errorf("timeout waiting for transaction receipt: %s", txHash.Hex())
		case <-time.After(l.config.PollInterval):
		}
	}
}

// Close closes the underlying RPC connection if the ledger owns it
func (l *Ledger) Close() {
	if l.closer != nil {
		l.closer()
	}
}

// GasCost returns the fee paid for a mined transaction
func GasCost(receipt *types.Receipt) *big.Int {
	if receipt == nil || receipt.EffectiveGasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), receipt.EffectiveGasPrice)
}

func blockNumber(receipt *types.Receipt) uint64 {
	if receipt.BlockNumber == nil {
		return 0
	}
	return receipt.BlockNumber.Uint64()
}

func (l *Ledger) retry(ctx context.Context, what string, op func() error) error {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = l.config.RetryInterval
	expo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(expo, l.config.MaxRetries), ctx)

	return backoff.RetryNotify(op, policy, func(err error, next time.Duration) {
		l.logger.Warn("rpc call failed, retrying",
			zap.String("call", what),
			zap.Error(err),
			zap.Duration("backoff", next),
		)
	})
}
