package royaltysale

import (
	"math/big"
)

// ValidateOrder checks an assembled order before anything is sent on-chain.
// The consideration total must equal expectedTotal exactly and the window must
// be non-empty and still open at now.
func ValidateOrder(order *Order, expectedTotal *big.Int, now uint64) error {
	if order == nil {
		return malformed("order is nil")
	}
	if expectedTotal == nil {
		return malformed("expected total is required")
	}
	if len(order.Offer) == 0 {
		return malformed("order has no offer items")
	}
	if len(order.Consideration) == 0 {
		return malformed("order has no consideration items")
	}

	actual, err := order.ConsiderationTotal()
	if err != nil {
		return err
	}
	if actual.Cmp(expectedTotal) != 0 {
		return &ConsiderationMismatchError{
			Expected: new(big.Int).Set(expectedTotal),
			Actual:   actual,
		}
	}

	if order.StartTime >= order.EndTime || order.EndTime <= now {
		return &InvalidTimeWindowError{Start: order.StartTime, End: order.EndTime, Now: now}
	}

	return nil
}
