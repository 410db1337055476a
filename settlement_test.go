package royaltysale

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bigComparer = cmp.Comparer(func(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
})

type settlementFixture struct {
	sale  Sale
	split Split
	pre   BalanceSnapshot
	post  BalanceSnapshot
	gas   GasCharge
}

// newSettlementFixture settles a 50 ether sale at 500 bps paid by the buyer
func newSettlementFixture(t *testing.T) *settlementFixture {
	t.Helper()
	price := ether(t, "50")
	split, err := ComputeSplit(price, 500)
	require.NoError(t, err)

	gasCost := big.NewInt(21_000 * 1_000_000_000)
	buyerAfter := new(big.Int).Sub(ether(t, "100"), price)
	buyerAfter.Sub(buyerAfter, gasCost)

	return &settlementFixture{
		sale: Sale{
			Asset:           AssetRef{ID: big.NewInt(1)},
			SalePrice:       price,
			RoyaltyBps:      500,
			RoyaltyReceiver: testRoyalty,
			Seller:          testSeller,
			Buyer:           testBuyer,
		},
		split: split,
		pre: BalanceSnapshot{
			testSeller:  ether(t, "100"),
			testRoyalty: ether(t, "10"),
			testBuyer:   ether(t, "100"),
		},
		post: BalanceSnapshot{
			testSeller:  ether(t, "147.5"),
			testRoyalty: ether(t, "12.5"),
			testBuyer:   buyerAfter,
		},
		gas: GasCharge{Payer: testBuyer, Cost: gasCost},
	}
}

func (f *settlementFixture) verify() (*SettlementResult, error) {
	return VerifySettlement(f.pre, f.post, f.sale, f.split, f.gas)
}

func TestVerifySettlementMatched(t *testing.T) {
	f := newSettlementFixture(t)

	result, err := f.verify()
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, 0, ether(t, "2.5").Cmp(result.ObservedRoyaltyDelta))
	assert.Equal(t, 0, ether(t, "47.5").Cmp(result.ObservedSellerDelta))
	assert.Equal(t, 0, f.gas.Cost.Cmp(result.GasCost))
}

func TestVerifySettlementRoyaltyUnderpaid(t *testing.T) {
	f := newSettlementFixture(t)
	f.post[testRoyalty] = ether(t, "12")

	result, err := f.verify()
	require.ErrorIs(t, err, ErrSettlementMismatch)
	require.NotNil(t, result)
	assert.False(t, result.Matched)

	var mismatch *SettlementMismatchError
	require.True(t, errors.As(err, &mismatch))

	want := &SettlementMismatchError{
		Field:    FieldRoyaltyReceiver,
		Address:  testRoyalty,
		Expected: ether(t, "2.5"),
		Actual:   ether(t, "2"),
		Kind:     RoyaltyUnderpaid,
	}
	if diff := cmp.Diff(want, mismatch, bigComparer); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestVerifySettlementMismatchKinds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *settlementFixture)
		field  string
		kind   MismatchKind
	}{
		{"royalty overpaid", func(f *settlementFixture) { f.post[testRoyalty] = ether(t, "13") }, FieldRoyaltyReceiver, RoyaltyOverpaid},
		{"seller underpaid", func(f *settlementFixture) { f.post[testSeller] = ether(t, "147") }, FieldSeller, SellerUnderpaid},
		{"seller overpaid", func(f *settlementFixture) { f.post[testSeller] = ether(t, "150") }, FieldSeller, SellerOverpaid},
		{"royalty skipped", func(f *settlementFixture) {
			f.post[testRoyalty] = ether(t, "10")
			f.post[testSeller] = ether(t, "150")
		}, FieldRoyaltyReceiver, RoyaltyUnderpaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSettlementFixture(t)
			tt.mutate(f)

			_, err := f.verify()
			var mismatch *SettlementMismatchError
			require.True(t, errors.As(err, &mismatch), "got %v", err)
			assert.Equal(t, tt.field, mismatch.Field)
			assert.Equal(t, tt.kind, mismatch.Kind)
		})
	}
}

func TestVerifySettlementIsDeterministic(t *testing.T) {
	f := newSettlementFixture(t)
	f.post[testSeller] = ether(t, "147")

	first, firstErr := f.verify()
	second, secondErr := f.verify()

	if diff := cmp.Diff(first, second, bigComparer); diff != "" {
		t.Errorf("results differ (-first +second):\n%s", diff)
	}
	assert.Equal(t, firstErr.Error(), secondErr.Error())
}

func TestVerifySettlementSellerPaysGas(t *testing.T) {
	f := newSettlementFixture(t)
	f.gas.Payer = testSeller
	f.post[testSeller] = new(big.Int).Sub(ether(t, "147.5"), f.gas.Cost)

	result, err := f.verify()
	require.NoError(t, err)
	assert.Equal(t, 0, new(big.Int).Sub(ether(t, "47.5"), f.gas.Cost).Cmp(result.ExpectedSellerDelta))

	// unaccounted gas is a mismatch without tolerance
	f.gas.Cost = new(big.Int)
	_, err = f.verify()
	assert.ErrorIs(t, err, ErrSettlementMismatch)
}

func TestVerifySettlementGasTolerance(t *testing.T) {
	f := newSettlementFixture(t)
	f.gas.Payer = testSeller
	f.gas.Cost = big.NewInt(1000)
	f.post[testSeller] = new(big.Int).Sub(ether(t, "147.5"), big.NewInt(1100))

	_, err := f.verify()
	require.ErrorIs(t, err, ErrSettlementMismatch)

	f.gas.Tolerance = big.NewInt(100)
	result, err := f.verify()
	require.NoError(t, err)
	assert.True(t, result.Matched)

	// tolerance never applies to a party that did not pay gas
	f.post[testRoyalty] = new(big.Int).Sub(ether(t, "12.5"), big.NewInt(1))
	_, err = f.verify()
	assert.ErrorIs(t, err, ErrSettlementMismatch)
}

func TestVerifySettlementSameParty(t *testing.T) {
	f := newSettlementFixture(t)
	f.sale.RoyaltyReceiver = testSeller
	f.post[testSeller] = ether(t, "150")

	result, err := f.verify()
	require.NoError(t, err)
	assert.Equal(t, 0, ether(t, "50").Cmp(result.ExpectedRoyaltyDelta))
	assert.Equal(t, 0, ether(t, "50").Cmp(result.ExpectedSellerDelta))
}

func TestVerifySettlementBuyerIsRoyaltyReceiver(t *testing.T) {
	f := newSettlementFixture(t)
	f.sale.RoyaltyReceiver = testBuyer
	delete(f.pre, testRoyalty)
	delete(f.post, testRoyalty)
	// 100 - 50 + 2.5 - gas
	buyerAfter := new(big.Int).Sub(ether(t, "52.5"), f.gas.Cost)
	f.post[testBuyer] = buyerAfter

	result, err := f.verify()
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, 0, new(big.Int).Sub(buyerAfter, ether(t, "100")).Cmp(result.ExpectedRoyaltyDelta))

	// the royalty leg still has to arrive
	f.post[testBuyer] = new(big.Int).Sub(ether(t, "50"), f.gas.Cost)
	_, err = f.verify()
	var mismatch *SettlementMismatchError
	require.True(t, errors.As(err, &mismatch), "got %v", err)
	assert.Equal(t, FieldRoyaltyReceiver, mismatch.Field)
	assert.Equal(t, RoyaltyUnderpaid, mismatch.Kind)
}

func TestVerifySettlementBuyerIsSeller(t *testing.T) {
	f := newSettlementFixture(t)
	f.sale.Seller = testBuyer
	delete(f.pre, testSeller)
	delete(f.post, testSeller)
	// pays 50 and gas, gets 47.5 back
	f.post[testBuyer] = new(big.Int).Sub(ether(t, "97.5"), f.gas.Cost)

	result, err := f.verify()
	require.NoError(t, err)
	assert.True(t, result.Matched)
}

func TestVerifySettlementWithoutBuyer(t *testing.T) {
	f := newSettlementFixture(t)
	f.sale.Buyer = common.Address{}
	f.sale.SalePrice = nil

	result, err := f.verify()
	require.NoError(t, err)
	assert.True(t, result.Matched)

	f.sale.Buyer = testBuyer
	_, err = f.verify()
	assert.ErrorIs(t, err, ErrMalformedOrder)
}

func TestVerifySettlementRequiresSplit(t *testing.T) {
	f := newSettlementFixture(t)
	f.split.Royalty = nil

	_, err := f.verify()
	assert.ErrorIs(t, err, ErrMalformedOrder)
}
