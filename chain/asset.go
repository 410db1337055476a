package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// AssetContract handles interactions with an enforced-royalty ERC721 collection.
// Writes are signed by the collection owner.
type AssetContract struct {
	ledger  *Ledger
	address common.Address
	owner   *Account
}

// NewAssetContract creates a new AssetContract bound to the owner account
func NewAssetContract(ledger *Ledger, address common.Address, owner *Account) *AssetContract {
	return &AssetContract{
		ledger:  ledger,
		address: address,
		owner:   owner,
	}
}

// Address returns the collection address
func (a *AssetContract) Address() common.Address {
	return a.address
}

// Owner returns the collection's contract owner
func (a *AssetContract) Owner(ctx context.Context) (common.Address, error) {
	return a.callAddress(ctx, "owner")
}

// TransferValidator returns the transfer validator configured on the collection
func (a *AssetContract) TransferValidator(ctx context.Context) (common.Address, error) {
	return a.callAddress(ctx, "getTransferValidator")
}

// OwnerOf returns the holder of tokenID
func (a *AssetContract) OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error) {
	return a.callAddress(ctx, "ownerOf", tokenID)
}

// RoyaltyInfo returns the ERC2981 royalty receiver and amount for a sale of tokenID at salePrice
func (a *AssetContract) RoyaltyInfo(ctx context.Context, tokenID, salePrice *big.Int) (common.Address, *big.Int, error) {
	values, err := a.ledger.Call(ctx, &assetABI, a.address, "royaltyInfo", tokenID, salePrice)
	if err != nil {
		return common.Address{}, nil, err
	}
	if len(values) != 2 {
		return common.Address{}, nil, fmt.Errorf("royaltyInfo returned %d values", len(values))
	}

	receiver, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, nil, fmt.Errorf("royaltyInfo: unexpected receiver type %T", values[0])
	}
	amount, ok := values[1].(*big.Int)
	if !ok {
		return common.Address{}, nil, fmt.Errorf("royaltyInfo: unexpected amount type %T", values[1])
	}
	return receiver, amount, nil
}

// Mint mints a token with the given metadata URI to to and returns its id,
// decoded from the receipt's Transfer event
func (a *AssetContract) Mint(ctx context.Context, to common.Address, uri string) (*big.Int, *types.Receipt, error) {
	data, err := assetABI.Pack("safeMint", to, uri)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to pack safeMint: %w", err)
	}

	receipt, err := a.ledger.Send(ctx, a.owner, a.address, nil, data)
	if err != nil {
		return nil, receipt, fmt.Errorf("failed to mint: %w", err)
	}

	tokenID, err := DecodeMintedTokenID(receipt.Logs, a.address)
	if err != nil {
		return nil, receipt, fmt.Errorf("mint tx %s: %w", receipt.TxHash.Hex(), err)
	}
	return tokenID, receipt, nil
}

// Approve approves operator to transfer tokenID
func (a *AssetContract) Approve(ctx context.Context, operator common.Address, tokenID *big.Int) (*types.Receipt, error) {
	data, err := assetABI.Pack("approve", operator, tokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to pack approve: %w", err)
	}

	receipt, err := a.ledger.Send(ctx, a.owner, a.address, nil, data)
	if err != nil {
		return receipt, fmt.Errorf("failed to approve %s for token %s: %w", operator.Hex(), tokenID, err)
	}
	return receipt, nil
}

// SetTransferSecurityLevel sets the collection's security level on validator,
// keeping the operator filter registry, security policy and validator enabled
func (a *AssetContract) SetTransferSecurityLevel(ctx context.Context, validator common.Address, level uint8) (*types.Receipt, error) {
	data, err := validatorABI.Pack("setTransferSecurityLevelOfCollection", a.address, level, false, false, false)
	if err != nil {
		return nil, fmt.Errorf("failed to pack setTransferSecurityLevelOfCollection: %w", err)
	}

	receipt, err := a.ledger.Send(ctx, a.owner, validator, nil, data)
	if err != nil {
		return receipt, fmt.Errorf("failed to set transfer security level: %w", err)
	}
	return receipt, nil
}

func (a *AssetContract) callAddress(ctx context.Context, method string, args ...interface{}) (common.Address, error) {
	values, err := a.ledger.Call(ctx, &assetABI, a.address, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	if len(values) != 1 {
		return common.Address{}, fmt.Errorf("%s returned %d values", method, len(values))
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s: unexpected result type %T", method, values[0])
	}
	return addr, nil
}
