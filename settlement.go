package royaltysale

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	FieldRoyaltyReceiver = "royaltyReceiver"
	FieldSeller          = "seller"
)

// GasCharge attributes the fulfillment transaction's fee to the account that paid it
type GasCharge struct {
	Payer common.Address
	Cost  *big.Int

	// Tolerance is an absolute allowance on the payer's delta, for fees that
	// cannot be attributed exactly. Zero means exact accounting.
	Tolerance *big.Int
}

// VerifySettlement reconciles balance deltas across a fulfillment with the expected split.
//
// Expected deltas are accumulated per address: the royalty receiver gains
// split.Royalty and the seller split.Seller, the buyer pays sale.SalePrice
// and the gas payer pays the fee. One address may hold several of these roles.
// On a discrepancy the populated result is returned together with a
// *SettlementMismatchError naming the first field that did not reconcile.
func VerifySettlement(pre, post BalanceSnapshot, sale Sale, split Split, gas GasCharge) (*SettlementResult, error) {
	if split.Royalty == nil || split.Seller == nil {
		return nil, malformed("split amounts are required")
	}

	gasCost := new(big.Int)
	if gas.Cost != nil {
		gasCost.Set(gas.Cost)
	}
	tolerance := new(big.Int)
	if gas.Tolerance != nil {
		tolerance.Set(gas.Tolerance)
	}

	sameParty := sale.RoyaltyReceiver == sale.Seller
	if sale.Buyer != (common.Address{}) && sale.SalePrice == nil {
		return nil, malformed("sale price is required to reconcile the buyer")
	}

	expected := func(addr common.Address) *big.Int {
		delta := new(big.Int)
		if addr == sale.Seller {
			delta.Add(delta, split.Seller)
		}
		if addr == sale.RoyaltyReceiver {
			delta.Add(delta, split.Royalty)
		}
		if sale.Buyer != (common.Address{}) && addr == sale.Buyer {
			delta.Sub(delta, sale.SalePrice)
		}
		if addr == gas.Payer {
			delta.Sub(delta, gasCost)
		}
		return delta
	}

	expectedRoyalty := expected(sale.RoyaltyReceiver)
	expectedSeller := expected(sale.Seller)

	result := &SettlementResult{
		ExpectedSellerDelta:  expectedSeller,
		ExpectedRoyaltyDelta: expectedRoyalty,
		ObservedSellerDelta:  Delta(pre, post, sale.Seller),
		ObservedRoyaltyDelta: Delta(pre, post, sale.RoyaltyReceiver),
		GasCost:              gasCost,
	}

	royaltyTolerance := zeroIfNot(sale.RoyaltyReceiver == gas.Payer, tolerance)
	if !withinTolerance(result.ExpectedRoyaltyDelta, result.ObservedRoyaltyDelta, royaltyTolerance) {
		kind := RoyaltyOverpaid
		if result.ObservedRoyaltyDelta.Cmp(result.ExpectedRoyaltyDelta) < 0 {
			kind = RoyaltyUnderpaid
		}
		return result, &SettlementMismatchError{
			Field:    FieldRoyaltyReceiver,
			Address:  sale.RoyaltyReceiver,
			Expected: new(big.Int).Set(result.ExpectedRoyaltyDelta),
			Actual:   new(big.Int).Set(result.ObservedRoyaltyDelta),
			Kind:     kind,
		}
	}

	if !sameParty {
		sellerTolerance := zeroIfNot(sale.Seller == gas.Payer, tolerance)
		if !withinTolerance(result.ExpectedSellerDelta, result.ObservedSellerDelta, sellerTolerance) {
			kind := SellerOverpaid
			if result.ObservedSellerDelta.Cmp(result.ExpectedSellerDelta) < 0 {
				kind = SellerUnderpaid
			}
			return result, &SettlementMismatchError{
				Field:    FieldSeller,
				Address:  sale.Seller,
				Expected: new(big.Int).Set(result.ExpectedSellerDelta),
				Actual:   new(big.Int).Set(result.ObservedSellerDelta),
				Kind:     kind,
			}
		}
	}

	result.Matched = true
	return result, nil
}

func withinTolerance(expected, observed, tolerance *big.Int) bool {
	diff := new(big.Int).Sub(observed, expected)
	return diff.Abs(diff).Cmp(tolerance) <= 0
}

func zeroIfNot(cond bool, v *big.Int) *big.Int {
	if !cond {
		return new(big.Int)
	}
	return v
}

// String renders the result for audit output
func (r *SettlementResult) String() string {
	return fmt.Sprintf("seller %s/%s royalty %s/%s gas %s matched=%t",
		r.ObservedSellerDelta, r.ExpectedSellerDelta,
		r.ObservedRoyaltyDelta, r.ExpectedRoyaltyDelta,
		r.GasCost, r.Matched)
}
