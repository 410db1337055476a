package chain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrMintEventNotFound represents a mint receipt without a matching Transfer log
	ErrMintEventNotFound = errors.New("mint transfer event not found")

	// ErrOrderFulfilledNotFound represents a receipt without the expected OrderFulfilled log
	ErrOrderFulfilledNotFound = errors.New("OrderFulfilled event not found")
)

var (
	// TransferEventSignature is topic0 of Transfer(address,address,uint256).
	// ERC20 shares the signature; ERC721 is told apart by its three indexed arguments.
	TransferEventSignature = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

	// OrderFulfilledEventSignature is topic0 of Seaport's OrderFulfilled event
	OrderFulfilledEventSignature = seaportABI.Events["OrderFulfilled"].ID
)

const erc721TransferTopics = 4

// Transfer is a decoded ERC721 Transfer event
type Transfer struct {
	From    common.Address
	To      common.Address
	TokenID *big.Int
}

// DecodeTransfer decodes an ERC721 Transfer log
func DecodeTransfer(log *types.Log) (*Transfer, error) {
	if len(log.Topics) != erc721TransferTopics || log.Topics[0] != TransferEventSignature {
		return nil, fmt.Errorf("log %d is not an ERC721 Transfer", log.Index)
	}
	return &Transfer{
		From:    common.BytesToAddress(log.Topics[1].Bytes()),
		To:      common.BytesToAddress(log.Topics[2].Bytes()),
		TokenID: new(big.Int).SetBytes(log.Topics[3].Bytes()),
	}, nil
}

// DecodeMintedTokenID finds the token minted by contract in a receipt's logs:
// an ERC721 Transfer emitted by contract with a zero from address.
func DecodeMintedTokenID(logs []*types.Log, contract common.Address) (*big.Int, error) {
	for _, log := range logs {
		if log.Address != contract {
			continue
		}
		if len(log.Topics) != erc721TransferTopics || log.Topics[0] != TransferEventSignature {
			continue
		}
		transfer, err := DecodeTransfer(log)
		if err != nil {
			continue
		}
		if transfer.From == (common.Address{}) {
			return transfer.TokenID, nil
		}
	}
	return nil, ErrMintEventNotFound
}

// DecodeOrderFulfilled decodes a Seaport OrderFulfilled log
func DecodeOrderFulfilled(log *types.Log) (*OrderFulfilled, error) {
	if len(log.Topics) != 3 || log.Topics[0] != OrderFulfilledEventSignature {
		return nil, fmt.Errorf("log %d is not an OrderFulfilled event", log.Index)
	}

	var event OrderFulfilled
	if err := seaportABI.UnpackIntoInterface(&event, "OrderFulfilled", log.Data); err != nil {
		return nil, fmt.Errorf("failed to decode OrderFulfilled: %w", err)
	}

	event.Offerer = common.BytesToAddress(log.Topics[1].Bytes())
	event.Zone = common.BytesToAddress(log.Topics[2].Bytes())
	event.TxHash = log.TxHash
	event.BlockNumber = log.BlockNumber

	return &event, nil
}

// FindOrderFulfilled returns the OrderFulfilled event for orderHash emitted by seaport
func FindOrderFulfilled(logs []*types.Log, seaport common.Address, orderHash common.Hash) (*OrderFulfilled, error) {
	for _, log := range logs {
		if log.Address != seaport || len(log.Topics) == 0 || log.Topics[0] != OrderFulfilledEventSignature {
			continue
		}
		event, err := DecodeOrderFulfilled(log)
		if err != nil {
			return nil, err
		}
		if common.Hash(event.OrderHash) == orderHash {
			return event, nil
		}
	}
	return nil, fmt.Errorf("%w: order %s", ErrOrderFulfilledNotFound, orderHash.Hex())
}

// PaymentsTo returns the native consideration amounts paid to recipient
func (e *OrderFulfilled) PaymentsTo(recipient common.Address) *big.Int {
	total := new(big.Int)
	for _, item := range e.Consideration {
		if item.ItemType == 0 && item.Recipient == recipient && item.Amount != nil {
			total.Add(total, item.Amount)
		}
	}
	return total
}
