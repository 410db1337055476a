package royaltysale

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// DefaultLeadSeconds backdates the start time to tolerate clock skew against block timestamps
	DefaultLeadSeconds = 60

	// DefaultDurationSeconds keeps a listing open for one day
	DefaultDurationSeconds = 86400
)

// ListingParams holds the inputs for building a listing order
type ListingParams struct {
	Asset           AssetRef
	SalePrice       *big.Int
	SellerAmount    *big.Int
	RoyaltyAmount   *big.Int
	Seller          common.Address
	RoyaltyReceiver common.Address
	Now             uint64

	// LeadSeconds backdates StartTime from Now. Zero selects
	// DefaultLeadSeconds; a start of exactly Now is not offered, because block
	// timestamps trail the local clock and Seaport rejects orders that are not
	// yet active.
	LeadSeconds uint64

	// Zero selects DefaultDurationSeconds
	DurationSeconds uint64
}

// BuildListing assembles a Draft order offering one asset for exactly two
// native payments: proceeds to the seller first, royalty to the receiver second.
func BuildListing(p ListingParams) (*Order, error) {
	if err := validateListingParams(p); err != nil {
		return nil, err
	}

	lead := p.LeadSeconds
	if lead == 0 {
		lead = DefaultLeadSeconds
	}
	duration := p.DurationSeconds
	if duration == 0 {
		duration = DefaultDurationSeconds
	}

	start := uint64(0)
	if p.Now > lead {
		start = p.Now - lead
	}

	order := &Order{
		Offer: []OfferItem{
			{
				ItemType:   ItemTypeERC721,
				Token:      p.Asset.Contract,
				Identifier: new(big.Int).Set(p.Asset.ID),
				Amount:     big.NewInt(1),
			},
		},
		Consideration: []ConsiderationItem{
			{
				ItemType:  ItemTypeNative,
				Amount:    new(big.Int).Set(p.SellerAmount),
				Recipient: p.Seller,
			},
			{
				ItemType:  ItemTypeNative,
				Amount:    new(big.Int).Set(p.RoyaltyAmount),
				Recipient: p.RoyaltyReceiver,
			},
		},
		StartTime: start,
		EndTime:   p.Now + duration,
		Status:    OrderStatusDraft,
	}

	return order, nil
}

func validateListingParams(p ListingParams) error {
	if p.Asset.ID == nil {
		return malformed("asset id is required")
	}
	if p.Asset.Contract == (common.Address{}) {
		return malformed("asset contract is required")
	}
	if p.SellerAmount == nil {
		return malformed("seller amount is required")
	}
	if p.RoyaltyAmount == nil {
		return malformed("royalty amount is required")
	}
	if p.SalePrice == nil {
		return malformed("sale price is required")
	}
	if p.SellerAmount.Sign() < 0 || p.RoyaltyAmount.Sign() < 0 {
		return malformed("amounts must be non-negative")
	}
	if p.Seller == (common.Address{}) {
		return malformed("seller address is required")
	}
	if p.RoyaltyReceiver == (common.Address{}) {
		return malformed("royalty receiver address is required")
	}

	sum := new(big.Int).Add(p.SellerAmount, p.RoyaltyAmount)
	if sum.Cmp(p.SalePrice) != 0 {
		return malformed("seller %s + royalty %s = %s does not equal sale price %s",
			p.SellerAmount, p.RoyaltyAmount, sum, p.SalePrice)
	}
	return nil
}
