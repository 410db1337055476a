package royaltysale

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSeller  = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	testBuyer   = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	testRoyalty = common.HexToAddress(testReceiver)
)

func testListingParams(t *testing.T) ListingParams {
	t.Helper()
	price := ether(t, "50")
	split, err := ComputeSplit(price, 500)
	require.NoError(t, err)

	return ListingParams{
		Asset:           AssetRef{Contract: common.HexToAddress(testAsset), ID: big.NewInt(7)},
		SalePrice:       price,
		SellerAmount:    split.Seller,
		RoyaltyAmount:   split.Royalty,
		Seller:          testSeller,
		RoyaltyReceiver: testRoyalty,
		Now:             1_700_000_000,
	}
}

func TestBuildListing(t *testing.T) {
	p := testListingParams(t)

	order, err := BuildListing(p)
	require.NoError(t, err)

	assert.Equal(t, OrderStatusDraft, order.Status)
	assert.Equal(t, uint64(1_700_000_000-60), order.StartTime)
	assert.Equal(t, uint64(1_700_000_000+86400), order.EndTime)

	require.Len(t, order.Offer, 1)
	offer := order.Offer[0]
	assert.Equal(t, ItemTypeERC721, offer.ItemType)
	assert.Equal(t, p.Asset.Contract, offer.Token)
	assert.Equal(t, int64(7), offer.Identifier.Int64())
	assert.Equal(t, int64(1), offer.Amount.Int64())

	require.Len(t, order.Consideration, 2)
	proceeds, royalty := order.Consideration[0], order.Consideration[1]
	assert.Equal(t, testSeller, proceeds.Recipient)
	assert.Equal(t, ItemTypeNative, proceeds.ItemType)
	assert.Equal(t, 0, ether(t, "47.5").Cmp(proceeds.Amount))
	assert.Equal(t, p.RoyaltyReceiver, royalty.Recipient)
	assert.Equal(t, ItemTypeNative, royalty.ItemType)
	assert.Equal(t, 0, ether(t, "2.5").Cmp(royalty.Amount))

	total, err := order.ConsiderationTotal()
	require.NoError(t, err)
	assert.Equal(t, 0, p.SalePrice.Cmp(total))
}

func TestBuildListingCopiesInputs(t *testing.T) {
	p := testListingParams(t)

	order, err := BuildListing(p)
	require.NoError(t, err)

	p.SellerAmount.SetInt64(0)
	p.Asset.ID.SetInt64(99)
	assert.Equal(t, 0, ether(t, "47.5").Cmp(order.Consideration[0].Amount))
	assert.Equal(t, int64(7), order.Offer[0].Identifier.Int64())
}

func TestBuildListingCustomWindow(t *testing.T) {
	p := testListingParams(t)
	p.LeadSeconds = 5
	p.DurationSeconds = 600

	order, err := BuildListing(p)
	require.NoError(t, err)
	assert.Equal(t, p.Now-5, order.StartTime)
	assert.Equal(t, p.Now+600, order.EndTime)
}

func TestBuildListingZeroLeadUsesDefault(t *testing.T) {
	p := testListingParams(t)
	p.LeadSeconds = 0

	order, err := BuildListing(p)
	require.NoError(t, err)
	assert.Equal(t, p.Now-DefaultLeadSeconds, order.StartTime)
	assert.Less(t, order.StartTime, p.Now)
}

func TestBuildListingClampsStartAtZero(t *testing.T) {
	p := testListingParams(t)
	p.Now = 10

	order, err := BuildListing(p)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), order.StartTime)
}

func TestBuildListingMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *ListingParams)
	}{
		{"missing asset id", func(p *ListingParams) { p.Asset.ID = nil }},
		{"missing asset contract", func(p *ListingParams) { p.Asset.Contract = common.Address{} }},
		{"missing seller amount", func(p *ListingParams) { p.SellerAmount = nil }},
		{"missing royalty amount", func(p *ListingParams) { p.RoyaltyAmount = nil }},
		{"missing sale price", func(p *ListingParams) { p.SalePrice = nil }},
		{"negative royalty", func(p *ListingParams) { p.RoyaltyAmount = big.NewInt(-1) }},
		{"missing seller", func(p *ListingParams) { p.Seller = common.Address{} }},
		{"missing receiver", func(p *ListingParams) { p.RoyaltyReceiver = common.Address{} }},
		{"parts do not sum to price", func(p *ListingParams) {
			p.RoyaltyAmount = new(big.Int).Add(p.RoyaltyAmount, big.NewInt(1))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testListingParams(t)
			tt.mutate(&p)

			_, err := BuildListing(p)
			assert.ErrorIs(t, err, ErrMalformedOrder)
			assert.True(t, IsValidationError(err))
		})
	}
}
