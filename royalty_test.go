package royaltysale

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func ether(t testing.TB, amount string) *big.Int {
	t.Helper()
	wei, err := ParseEther(amount)
	require.NoError(t, err)
	return wei
}

func TestComputeSplit(t *testing.T) {
	tests := []struct {
		name    string
		price   *big.Int
		bps     int64
		royalty *big.Int
		seller  *big.Int
	}{
		{"5 percent of 100 ether", ether(t, "100"), 500, ether(t, "5"), ether(t, "95")},
		{"5 percent of 50 ether", ether(t, "50"), 500, ether(t, "2.5"), ether(t, "47.5")},
		{"zero rate", ether(t, "1"), 0, big.NewInt(0), ether(t, "1")},
		{"full rate", ether(t, "1"), MaxRoyaltyBps, ether(t, "1"), big.NewInt(0)},
		{"zero price", big.NewInt(0), 500, big.NewInt(0), big.NewInt(0)},
		{"remainder goes to seller", big.NewInt(199), 100, big.NewInt(1), big.NewInt(198)},
		{"below one unit of royalty", big.NewInt(19), 500, big.NewInt(0), big.NewInt(19)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			split, err := ComputeSplit(tt.price, tt.bps)
			require.NoError(t, err)
			assert.Equal(t, 0, tt.royalty.Cmp(split.Royalty), "royalty %s", split.Royalty)
			assert.Equal(t, 0, tt.seller.Cmp(split.Seller), "seller %s", split.Seller)
			assert.Equal(t, 0, tt.price.Cmp(split.Total()))
		})
	}
}

func TestComputeSplitErrors(t *testing.T) {
	maxWord := new(big.Int).Set(maxUint256)
	tooWide := new(big.Int).Lsh(big.NewInt(1), 256)

	tests := []struct {
		name  string
		price *big.Int
		bps   int64
		want  error
	}{
		{"rate above 100 percent", ether(t, "1"), MaxRoyaltyBps + 1, ErrInvalidRate},
		{"negative rate", ether(t, "1"), -1, ErrInvalidRate},
		{"negative price", big.NewInt(-1), 500, ErrNegativeAmount},
		{"missing price", nil, 500, ErrMalformedOrder},
		{"product overflows", maxWord, 2, ErrArithmeticOverflow},
		{"price wider than a word", tooWide, 1, ErrArithmeticOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeSplit(tt.price, tt.bps)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestComputeSplitMaxWordAtUnitRate(t *testing.T) {
	split, err := ComputeSplit(maxUint256, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, maxUint256.Cmp(split.Total()))
}

func TestComputeSplitProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		price := new(big.Int).SetUint64(rapid.Uint64().Draw(t, "price"))
		price.Mul(price, big.NewInt(rapid.Int64Range(1, 1_000_000).Draw(t, "scale")))
		bps := rapid.Int64Range(0, MaxRoyaltyBps).Draw(t, "bps")

		split, err := ComputeSplit(price, bps)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if split.Total().Cmp(price) != 0 {
			t.Fatalf("royalty %s + seller %s != price %s", split.Royalty, split.Seller, price)
		}
		if split.Royalty.Sign() < 0 || split.Seller.Sign() < 0 {
			t.Fatalf("negative part: %+v", split)
		}

		// royalty is the floor: royalty*10000 <= price*bps < (royalty+1)*10000
		product := new(big.Int).Mul(price, big.NewInt(bps))
		lower := new(big.Int).Mul(split.Royalty, big.NewInt(MaxRoyaltyBps))
		upper := new(big.Int).Add(lower, big.NewInt(MaxRoyaltyBps))
		if lower.Cmp(product) > 0 || product.Cmp(upper) >= 0 {
			t.Fatalf("royalty %s is not floor(%s * %d / 10000)", split.Royalty, price, bps)
		}
	})
}
