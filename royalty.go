package royaltysale

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// MaxRoyaltyBps is 100% expressed in basis points
const MaxRoyaltyBps = 10000

var bpsDenominator = uint256.NewInt(MaxRoyaltyBps)

// ComputeSplit divides salePrice into royalty and seller proceeds.
//
// royalty = floor(salePrice * rateBps / 10000) and seller = salePrice - royalty,
// so the integer division remainder always stays with the seller. Arithmetic is
// done on 256-bit words, the ledger's native value width.
func ComputeSplit(salePrice *big.Int, rateBps int64) (Split, error) {
	if rateBps < 0 || rateBps > MaxRoyaltyBps {
		return Split{}, fmt.Errorf("%w: %d bps is outside [0, %d]", ErrInvalidRate, rateBps, MaxRoyaltyBps)
	}
	if salePrice == nil {
		return Split{}, fmt.Errorf("%w: sale price is required", ErrMalformedOrder)
	}
	if salePrice.Sign() < 0 {
		return Split{}, fmt.Errorf("%w: sale price %s", ErrNegativeAmount, salePrice)
	}

	price, overflow := uint256.FromBig(salePrice)
	if overflow {
		return Split{}, fmt.Errorf("%w: sale price %s exceeds 256 bits", ErrArithmeticOverflow, salePrice)
	}

	product, overflow := new(uint256.Int).MulOverflow(price, uint256.NewInt(uint64(rateBps)))
	if overflow {
		return Split{}, fmt.Errorf("%w: %s * %d exceeds 256 bits", ErrArithmeticOverflow, salePrice, rateBps)
	}

	royalty := new(uint256.Int).Div(product, bpsDenominator)
	seller := new(uint256.Int).Sub(price, royalty)

	return Split{
		Royalty: royalty.ToBig(),
		Seller:  seller.ToBig(),
	}, nil
}

// Total returns royalty + seller
func (s Split) Total() *big.Int {
	total := new(big.Int)
	if s.Royalty != nil {
		total.Add(total, s.Royalty)
	}
	if s.Seller != nil {
		total.Add(total, s.Seller)
	}
	return total
}
