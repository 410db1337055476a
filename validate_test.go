package royaltysale

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestValidateOrder(t *testing.T) {
	p := testListingParams(t)
	order, err := BuildListing(p)
	require.NoError(t, err)

	assert.NoError(t, ValidateOrder(order, p.SalePrice, p.Now))
}

func TestValidateOrderConsiderationMismatch(t *testing.T) {
	for _, delta := range []int64{-1, 1} {
		p := testListingParams(t)
		order, err := BuildListing(p)
		require.NoError(t, err)

		expected := new(big.Int).Add(p.SalePrice, big.NewInt(delta))
		err = ValidateOrder(order, expected, p.Now)
		require.ErrorIs(t, err, ErrConsiderationMismatch)

		var mismatch *ConsiderationMismatchError
		require.True(t, errors.As(err, &mismatch))
		assert.Equal(t, 0, expected.Cmp(mismatch.Expected))
		assert.Equal(t, 0, p.SalePrice.Cmp(mismatch.Actual))
	}
}

func TestValidateOrderTimeWindow(t *testing.T) {
	p := testListingParams(t)

	tests := []struct {
		name  string
		start uint64
		end   uint64
		now   uint64
	}{
		{"start equals end", p.Now, p.Now, p.Now - 10},
		{"start after end", p.Now + 10, p.Now, p.Now - 20},
		{"end already passed", p.Now - 100, p.Now - 1, p.Now},
		{"end exactly now", p.Now - 100, p.Now, p.Now},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := BuildListing(p)
			require.NoError(t, err)
			order.StartTime, order.EndTime = tt.start, tt.end

			err = ValidateOrder(order, p.SalePrice, tt.now)
			require.ErrorIs(t, err, ErrInvalidTimeWindow)

			var window *InvalidTimeWindowError
			require.True(t, errors.As(err, &window))
			assert.Equal(t, tt.start, window.Start)
			assert.Equal(t, tt.end, window.End)
			assert.Equal(t, tt.now, window.Now)
		})
	}
}

func TestValidateOrderMalformed(t *testing.T) {
	p := testListingParams(t)

	assert.ErrorIs(t, ValidateOrder(nil, p.SalePrice, p.Now), ErrMalformedOrder)

	order, err := BuildListing(p)
	require.NoError(t, err)
	assert.ErrorIs(t, ValidateOrder(order, nil, p.Now), ErrMalformedOrder)

	order.Consideration[1].Amount = nil
	assert.ErrorIs(t, ValidateOrder(order, p.SalePrice, p.Now), ErrMalformedOrder)

	order.Consideration = nil
	assert.ErrorIs(t, ValidateOrder(order, p.SalePrice, p.Now), ErrMalformedOrder)
}

func TestBuiltListingsAlwaysValidate(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		price := new(big.Int).SetUint64(rapid.Uint64().Draw(t, "price"))
		bps := rapid.Int64Range(0, MaxRoyaltyBps).Draw(t, "bps")
		now := rapid.Uint64Range(0, 1<<40).Draw(t, "now")

		split, err := ComputeSplit(price, bps)
		if err != nil {
			t.Fatalf("split: %v", err)
		}
		order, err := BuildListing(ListingParams{
			Asset:           AssetRef{Contract: common.HexToAddress(testAsset), ID: big.NewInt(1)},
			SalePrice:       price,
			SellerAmount:    split.Seller,
			RoyaltyAmount:   split.Royalty,
			Seller:          testSeller,
			RoyaltyReceiver: common.HexToAddress(testReceiver),
			Now:             now,
		})
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		if err := ValidateOrder(order, price, now); err != nil {
			t.Fatalf("validate: %v", err)
		}
		if order.Consideration[0].Recipient != testSeller {
			t.Fatalf("proceeds must come first")
		}
	})
}
