package chain

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// SeaportV16Address is the canonical Seaport 1.6 deployment, identical on every chain
const SeaportV16Address = "0x0000000000000068F116a894984e2DB1123eB395"

var maxSalt = new(big.Int).Lsh(big.NewInt(1), 256)

// Seaport is a client for the Seaport order-matching protocol
type Seaport struct {
	ledger  *Ledger
	address common.Address
	domain  apitypes.TypedDataDomain
}

// NewSeaport creates a Seaport client for the deployment at address
func NewSeaport(ledger *Ledger, address common.Address) *Seaport {
	return &Seaport{
		ledger:  ledger,
		address: address,
		domain:  NewSeaportDomain(ledger.ChainID(), address),
	}
}

// Address returns the Seaport contract address
func (s *Seaport) Address() common.Address {
	return s.address
}

// Domain returns the EIP712 domain orders are signed under
func (s *Seaport) Domain() apitypes.TypedDataDomain {
	return s.domain
}

// Counter returns the offerer's current Seaport counter
func (s *Seaport) Counter(ctx context.Context, offerer common.Address) (*big.Int, error) {
	values, err := s.ledger.Call(ctx, &seaportABI, s.address, "getCounter", offerer)
	if err != nil {
		return nil, err
	}
	counter, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("getCounter: unexpected result type %T", values[0])
	}
	return counter, nil
}

// RemoteOrderHash asks the contract for the hash of the components
func (s *Seaport) RemoteOrderHash(ctx context.Context, c *OrderComponents) (common.Hash, error) {
	values, err := s.ledger.Call(ctx, &seaportABI, s.address, "getOrderHash", *c)
	if err != nil {
		return common.Hash{}, err
	}
	hash, ok := values[0].([32]byte)
	if !ok {
		return common.Hash{}, fmt.Errorf("getOrderHash: unexpected result type %T", values[0])
	}
	return common.Hash(hash), nil
}

// OrderStatus returns Seaport's on-chain status for orderHash
func (s *Seaport) OrderStatus(ctx context.Context, orderHash common.Hash) (*OrderStatus, error) {
	values, err := s.ledger.Call(ctx, &seaportABI, s.address, "getOrderStatus", [32]byte(orderHash))
	if err != nil {
		return nil, err
	}
	if len(values) != 4 {
		return nil, fmt.Errorf("getOrderStatus returned %d values", len(values))
	}
	return &OrderStatus{
		IsValidated: values[0].(bool),
		IsCancelled: values[1].(bool),
		TotalFilled: values[2].(*big.Int),
		TotalSize:   values[3].(*big.Int),
	}, nil
}

// CreateOrder completes the order components for signer (full-open, no zone,
// random salt, default conduit, current counter), checks the locally computed
// hash against the contract and signs the order.
func (s *Seaport) CreateOrder(ctx context.Context, input OrderInput, signer *Account) (*SignedOrder, error) {
	if len(input.Offer) == 0 || len(input.Consideration) == 0 {
		return nil, fmt.Errorf("order needs at least one offer and one consideration item")
	}

	counter, err := s.Counter(ctx, signer.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to get counter: %w", err)
	}

	salt, err := rand.Int(rand.Reader, maxSalt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	components := OrderComponents{
		Offerer:       signer.Address,
		Offer:         input.Offer,
		Consideration: input.Consideration,
		OrderType:     OrderTypeFullOpen,
		StartTime:     new(big.Int).SetUint64(input.StartTime),
		EndTime:       new(big.Int).SetUint64(input.EndTime),
		Salt:          salt,
		Counter:       counter,
	}

	hash, err := OrderHash(s.domain, &components)
	if err != nil {
		return nil, err
	}

	remoteHash, err := s.RemoteOrderHash(ctx, &components)
	if err != nil {
		return nil, fmt.Errorf("failed to get order hash from Seaport: %w", err)
	}
	if remoteHash != hash {
		return nil, fmt.Errorf("order hash mismatch: local %s, Seaport %s", hash.Hex(), remoteHash.Hex())
	}

	signature, err := SignOrder(s.domain, &components, signer.Key)
	if err != nil {
		return nil, err
	}

	return &SignedOrder{
		Components: components,
		Signature:  signature,
		Hash:       hash,
	}, nil
}

// FulfillOrder fulfills a signed order from fulfiller, paying value in native currency
func (s *Seaport) FulfillOrder(ctx context.Context, order *SignedOrder, fulfiller *Account, value *big.Int) (*types.Receipt, error) {
	data, err := seaportABI.Pack("fulfillOrder", SeaportOrder{
		Parameters: order.Parameters(),
		Signature:  order.Signature,
	}, [32]byte{})
	if err != nil {
		return nil, fmt.Errorf("failed to pack fulfillOrder: %w", err)
	}

	receipt, err := s.ledger.Send(ctx, fulfiller, s.address, value, data)
	if err != nil {
		return receipt, fmt.Errorf("failed to fulfill order %s: %w", order.Hash.Hex(), err)
	}
	return receipt, nil
}

// CancelOrder cancels a signed order; only its offerer may do so
func (s *Seaport) CancelOrder(ctx context.Context, order *SignedOrder, offerer *Account) (*types.Receipt, error) {
	if order == nil || offerer == nil {
		return nil, fmt.Errorf("cancel needs a signed order and its offerer")
	}
	if offerer.Address != order.Components.Offerer {
		return nil, fmt.Errorf("account %s is not the offerer of order %s", offerer.Address.Hex(), order.Hash.Hex())
	}

	data, err := seaportABI.Pack("cancel", []OrderComponents{order.Components})
	if err != nil {
		return nil, fmt.Errorf("failed to pack cancel: %w", err)
	}

	receipt, err := s.ledger.Send(ctx, offerer, s.address, nil, data)
	if err != nil {
		return receipt, fmt.Errorf("failed to cancel order %s: %w", order.Hash.Hex(), err)
	}
	return receipt, nil
}
