package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var errTransient = errors.New("connection reset by peer")

type receiptResponse struct {
	receipt *types.Receipt
	err     error
}

// fakeBackend is an in-memory node. Receipt responses are served from a
// queue; once it is empty every sent transaction is reported mined.
type fakeBackend struct {
	mu sync.Mutex

	chainID      *big.Int
	chainIDFails int
	estimateErr  error
	call         func(msg ethereum.CallMsg) ([]byte, error)
	receipts     []receiptResponse
	minedLogs    func(tx *types.Transaction) []*types.Log
	minedStatus  uint64

	calls map[string]int
	sent  []*types.Transaction
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chainID:     big.NewInt(26409),
		minedStatus: types.ReceiptStatusSuccessful,
		calls:       make(map[string]int),
	}
}

func (b *fakeBackend) count(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[name]++
}

func (b *fakeBackend) callCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[name]
}

func (b *fakeBackend) ChainID(ctx context.Context) (*big.Int, error) {
	b.count("ChainID")
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.chainIDFails > 0 {
		b.chainIDFails--
		return nil, errTransient
	}
	return b.chainID, nil
}

func (b *fakeBackend) BlockNumber(ctx context.Context) (uint64, error) {
	b.count("BlockNumber")
	return 100, nil
}

func (b *fakeBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	b.count("HeaderByNumber")
	return &types.Header{Number: big.NewInt(100), Time: 1_700_000_000}, nil
}

func (b *fakeBackend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	b.count("BalanceAt")
	return big.NewInt(1_000), nil
}

func (b *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	b.count("CallContract")
	if b.call == nil {
		return nil, errors.New("no contract code")
	}
	return b.call(msg)
}

func (b *fakeBackend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	b.count("FilterLogs")
	return nil, nil
}

func (b *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	b.count("PendingNonceAt")
	return 4, nil
}

func (b *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	b.count("SuggestGasPrice")
	return big.NewInt(1_000_000_000), nil
}

func (b *fakeBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	b.count("EstimateGas")
	if b.estimateErr != nil {
		return 0, b.estimateErr
	}
	return 100_000, nil
}

func (b *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.count("SendTransaction")
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, tx)
	return nil
}

func (b *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	b.count("TransactionReceipt")
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.receipts) > 0 {
		next := b.receipts[0]
		b.receipts = b.receipts[1:]
		if next.receipt != nil {
			next.receipt.TxHash = txHash
		}
		return next.receipt, next.err
	}

	receipt := &types.Receipt{
		Status:            b.minedStatus,
		TxHash:            txHash,
		GasUsed:           80_000,
		EffectiveGasPrice: big.NewInt(1_000_000_000),
		BlockNumber:       big.NewInt(101),
	}
	if b.minedLogs != nil && len(b.sent) > 0 {
		receipt.Logs = b.minedLogs(b.sent[len(b.sent)-1])
	}
	return receipt, nil
}

func (b *fakeBackend) lastSent(t *testing.T) *types.Transaction {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.sent, "no transaction sent")
	return b.sent[len(b.sent)-1]
}

func newTestLedger(t *testing.T, backend *fakeBackend) *Ledger {
	t.Helper()
	ledger, err := NewLedger(context.Background(), backend, LedgerConfig{
		ConfirmTimeout: time.Second,
		PollInterval:   time.Millisecond,
		RetryInterval:  time.Millisecond,
		MaxRetries:     3,
		Logger:         zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	return ledger
}

func newTestAccount(t *testing.T) *Account {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return AccountFromKey(key)
}
