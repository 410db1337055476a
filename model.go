package royaltysale

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ItemType mirrors the marketplace protocol's item type enum
type ItemType uint8

const (
	ItemTypeNative ItemType = iota
	ItemTypeERC20
	ItemTypeERC721
	ItemTypeERC1155
	ItemTypeERC721WithCriteria
	ItemTypeERC1155WithCriteria
)

// AssetRef identifies a single non-fungible asset
type AssetRef struct {
	Contract common.Address
	ID       *big.Int
}

// Sale is created once per mint event and never modified afterwards
type Sale struct {
	Asset           AssetRef
	SalePrice       *big.Int
	RoyaltyBps      int64
	RoyaltyReceiver common.Address
	Seller          common.Address

	// Buyer pays SalePrice on fulfillment. Zero leaves the buyer's own
	// payment out of the reconciliation.
	Buyer common.Address
}

// Split is the result of applying a royalty rate to a sale price
type Split struct {
	Royalty *big.Int
	Seller  *big.Int
}

// OfferItem is an asset offered by the order's maker
type OfferItem struct {
	ItemType   ItemType
	Token      common.Address
	Identifier *big.Int
	Amount     *big.Int
}

// ConsiderationItem is a single payment obligation of the order.
// Position is meaningful: proceeds precede royalty.
type ConsiderationItem struct {
	ItemType  ItemType
	Token     common.Address
	Amount    *big.Int
	Recipient common.Address
}

// OrderStatus is the lifecycle state of an order
type OrderStatus int

const (
	OrderStatusDraft OrderStatus = iota
	OrderStatusSigned
	OrderStatusSubmitted
	OrderStatusFulfilled
	OrderStatusExpired
	OrderStatusCancelled
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusDraft:
		return "draft"
	case OrderStatusSigned:
		return "signed"
	case OrderStatusSubmitted:
		return "submitted"
	case OrderStatusFulfilled:
		return "fulfilled"
	case OrderStatusExpired:
		return "expired"
	case OrderStatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ParseOrderStatus is the inverse of OrderStatus.String
func ParseOrderStatus(s string) (OrderStatus, error) {
	for status := OrderStatusDraft; status <= OrderStatusCancelled; status++ {
		if status.String() == s {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown order status %q", s)
}

// Terminal reports whether no further transition is possible
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusFulfilled || s == OrderStatusExpired || s == OrderStatusCancelled
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusDraft:     {OrderStatusSigned, OrderStatusCancelled},
	OrderStatusSigned:    {OrderStatusSubmitted, OrderStatusCancelled},
	OrderStatusSubmitted: {OrderStatusFulfilled, OrderStatusExpired, OrderStatusCancelled},
}

// Order is a listing derived from exactly one Sale
type Order struct {
	Offer         []OfferItem
	Consideration []ConsiderationItem
	StartTime     uint64
	EndTime       uint64
	Status        OrderStatus
	Hash          common.Hash
}

// Transition moves the order to the next status, rejecting backwards or terminal moves
func (o *Order) Transition(to OrderStatus) error {
	for _, allowed := range orderTransitions[o.Status] {
		if allowed == to {
			o.Status = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
}

// Expired reports whether the order's window is over at now
func (o *Order) Expired(now uint64) bool {
	return now >= o.EndTime
}

// CheckFulfillable fails with ErrOrderExpired when the order can no longer be filled.
// A submitted order whose end time has passed is moved to Expired.
func (o *Order) CheckFulfillable(now uint64) error {
	switch o.Status {
	case OrderStatusExpired:
		return fmt.Errorf("%w: order %s ended at %d", ErrOrderExpired, o.Hash.Hex(), o.EndTime)
	case OrderStatusSubmitted:
		if o.Expired(now) {
			if err := o.Transition(OrderStatusExpired); err != nil {
				return err
			}
			return fmt.Errorf("%w: order %s ended at %d, now %d", ErrOrderExpired, o.Hash.Hex(), o.EndTime, now)
		}
		return nil
	default:
		return fmt.Errorf("%w: cannot fulfill order in status %s", ErrInvalidTransition, o.Status)
	}
}

// ConsiderationTotal sums every consideration amount. Missing amounts are reported as malformed.
func (o *Order) ConsiderationTotal() (*big.Int, error) {
	total := new(big.Int)
	for i, item := range o.Consideration {
		if item.Amount == nil {
			return nil, malformed("consideration item %d has no amount", i)
		}
		total.Add(total, item.Amount)
	}
	return total, nil
}

// BalanceSnapshot holds native balances keyed by address at one point in time
type BalanceSnapshot map[common.Address]*big.Int

// Delta returns post[addr] - pre[addr]; a missing entry counts as zero
func Delta(pre, post BalanceSnapshot, addr common.Address) *big.Int {
	before := pre[addr]
	if before == nil {
		before = new(big.Int)
	}
	after := post[addr]
	if after == nil {
		after = new(big.Int)
	}
	return new(big.Int).Sub(after, before)
}

// SettlementResult reconciles observed balance deltas with the expected split
type SettlementResult struct {
	ExpectedSellerDelta  *big.Int
	ExpectedRoyaltyDelta *big.Int
	ObservedSellerDelta  *big.Int
	ObservedRoyaltyDelta *big.Int
	GasCost              *big.Int
	Matched              bool
}

// TransactionResult represents the result of a blockchain transaction
type TransactionResult struct {
	TxHash  common.Hash
	GasUsed uint64
	GasCost *big.Int
	Block   uint64
}
