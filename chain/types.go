package chain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Seaport order types
const (
	OrderTypeFullOpen uint8 = iota
	OrderTypePartialOpen
	OrderTypeFullRestricted
	OrderTypePartialRestricted
)

// OfferItem is a Seaport offer item (field order matches the ABI tuple)
type OfferItem struct {
	ItemType             uint8
	Token                common.Address
	IdentifierOrCriteria *big.Int
	StartAmount          *big.Int
	EndAmount            *big.Int
}

// ConsiderationItem is a Seaport consideration item (field order matches the ABI tuple)
type ConsiderationItem struct {
	ItemType             uint8
	Token                common.Address
	IdentifierOrCriteria *big.Int
	StartAmount          *big.Int
	EndAmount            *big.Int
	Recipient            common.Address
}

// OrderComponents is the signed form of a Seaport order
type OrderComponents struct {
	Offerer       common.Address
	Zone          common.Address
	Offer         []OfferItem
	Consideration []ConsiderationItem
	OrderType     uint8
	StartTime     *big.Int
	EndTime       *big.Int
	ZoneHash      [32]byte
	Salt          *big.Int
	ConduitKey    [32]byte
	Counter       *big.Int
}

// OrderParameters is the submitted form of a Seaport order
type OrderParameters struct {
	Offerer                         common.Address
	Zone                            common.Address
	Offer                           []OfferItem
	Consideration                   []ConsiderationItem
	OrderType                       uint8
	StartTime                       *big.Int
	EndTime                         *big.Int
	ZoneHash                        [32]byte
	Salt                            *big.Int
	ConduitKey                      [32]byte
	TotalOriginalConsiderationItems *big.Int
}

// SeaportOrder is the fulfillOrder argument
type SeaportOrder struct {
	Parameters OrderParameters
	Signature  []byte
}

// SignedOrder is an order signed by its offerer
type SignedOrder struct {
	Components OrderComponents
	Signature  []byte
	Hash       common.Hash
}

// Parameters converts the signed components into the form submitted on-chain
func (o *SignedOrder) Parameters() OrderParameters {
	c := o.Components
	return OrderParameters{
		Offerer:                         c.Offerer,
		Zone:                            c.Zone,
		Offer:                           c.Offer,
		Consideration:                   c.Consideration,
		OrderType:                       c.OrderType,
		StartTime:                       c.StartTime,
		EndTime:                         c.EndTime,
		ZoneHash:                        c.ZoneHash,
		Salt:                            c.Salt,
		ConduitKey:                      c.ConduitKey,
		TotalOriginalConsiderationItems: big.NewInt(int64(len(c.Consideration))),
	}
}

// OrderInput holds the order terms chosen by the caller; the remaining
// components are filled in by the marketplace client
type OrderInput struct {
	Offer         []OfferItem
	Consideration []ConsiderationItem
	StartTime     uint64
	EndTime       uint64
}

// OrderStatus is Seaport's on-chain record for an order hash
type OrderStatus struct {
	IsValidated bool
	IsCancelled bool
	TotalFilled *big.Int
	TotalSize   *big.Int
}

// Filled reports whether the order has been completely filled
func (s *OrderStatus) Filled() bool {
	return s.TotalSize != nil && s.TotalSize.Sign() > 0 && s.TotalFilled != nil && s.TotalFilled.Cmp(s.TotalSize) == 0
}

// SpentItem is an item transferred from the offerer in an OrderFulfilled event
type SpentItem struct {
	ItemType   uint8
	Token      common.Address
	Identifier *big.Int
	Amount     *big.Int
}

// ReceivedItem is an item paid to a recipient in an OrderFulfilled event
type ReceivedItem struct {
	ItemType   uint8
	Token      common.Address
	Identifier *big.Int
	Amount     *big.Int
	Recipient  common.Address
}

// OrderFulfilled is a decoded Seaport OrderFulfilled event
type OrderFulfilled struct {
	OrderHash     [32]byte
	Recipient     common.Address
	Offer         []SpentItem
	Consideration []ReceivedItem

	// indexed
	Offerer common.Address
	Zone    common.Address

	TxHash      common.Hash
	BlockNumber uint64
}

// Enforced-royalty ERC721 ABI: mint, approve, royalty and ownership reads, Transfer event
const assetABIJSON = `[
	{"inputs":[{"name":"to","type":"address"},{"name":"uri","type":"string"}],"name":"safeMint","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"name":"approve","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"tokenId","type":"uint256"},{"name":"salePrice","type":"uint256"}],"name":"royaltyInfo","outputs":[{"name":"receiver","type":"address"},{"name":"royaltyAmount","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"owner","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"getTransferValidator","outputs":[{"name":"validator","type":"address"}],"stateMutability":"view","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":true,"name":"tokenId","type":"uint256"}],"name":"Transfer","type":"event"}
]`

// Creator token transfer validator ABI (security level configuration only)
const validatorABIJSON = `[
	{"inputs":[{"name":"collection","type":"address"},{"name":"level","type":"uint8"},{"name":"disableOperatorFilterRegistry","type":"bool"},{"name":"disableSecurityPolicy","type":"bool"},{"name":"disableTransferValidator","type":"bool"}],"name":"setTransferSecurityLevelOfCollection","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

const (
	offerItemComponents         = `[{"name":"itemType","type":"uint8"},{"name":"token","type":"address"},{"name":"identifierOrCriteria","type":"uint256"},{"name":"startAmount","type":"uint256"},{"name":"endAmount","type":"uint256"}]`
	considerationItemComponents = `[{"name":"itemType","type":"uint8"},{"name":"token","type":"address"},{"name":"identifierOrCriteria","type":"uint256"},{"name":"startAmount","type":"uint256"},{"name":"endAmount","type":"uint256"},{"name":"recipient","type":"address"}]`
	spentItemComponents         = `[{"name":"itemType","type":"uint8"},{"name":"token","type":"address"},{"name":"identifier","type":"uint256"},{"name":"amount","type":"uint256"}]`
	receivedItemComponents      = `[{"name":"itemType","type":"uint8"},{"name":"token","type":"address"},{"name":"identifier","type":"uint256"},{"name":"amount","type":"uint256"},{"name":"recipient","type":"address"}]`

	orderHeadComponents = `{"name":"offerer","type":"address"},{"name":"zone","type":"address"},` +
		`{"name":"offer","type":"tuple[]","components":` + offerItemComponents + `},` +
		`{"name":"consideration","type":"tuple[]","components":` + considerationItemComponents + `},` +
		`{"name":"orderType","type":"uint8"},{"name":"startTime","type":"uint256"},{"name":"endTime","type":"uint256"},` +
		`{"name":"zoneHash","type":"bytes32"},{"name":"salt","type":"uint256"},{"name":"conduitKey","type":"bytes32"},`

	orderComponentsComponents = `[` + orderHeadComponents + `{"name":"counter","type":"uint256"}]`
	orderParametersComponents = `[` + orderHeadComponents + `{"name":"totalOriginalConsiderationItems","type":"uint256"}]`
)

// Seaport 1.6 ABI subset used for listing, fulfillment, cancellation and auditing
const seaportABIJSON = `[
	{"inputs":[{"name":"offerer","type":"address"}],"name":"getCounter","outputs":[{"name":"counter","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"order","type":"tuple","components":` + orderComponentsComponents + `}],"name":"getOrderHash","outputs":[{"name":"orderHash","type":"bytes32"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"orderHash","type":"bytes32"}],"name":"getOrderStatus","outputs":[{"name":"isValidated","type":"bool"},{"name":"isCancelled","type":"bool"},{"name":"totalFilled","type":"uint256"},{"name":"totalSize","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"order","type":"tuple","components":[{"name":"parameters","type":"tuple","components":` + orderParametersComponents + `},{"name":"signature","type":"bytes"}]},{"name":"fulfillerConduitKey","type":"bytes32"}],"name":"fulfillOrder","outputs":[{"name":"fulfilled","type":"bool"}],"stateMutability":"payable","type":"function"},
	{"inputs":[{"name":"orders","type":"tuple[]","components":` + orderComponentsComponents + `}],"name":"cancel","outputs":[{"name":"cancelled","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":false,"name":"orderHash","type":"bytes32"},{"indexed":true,"name":"offerer","type":"address"},{"indexed":true,"name":"zone","type":"address"},{"indexed":false,"name":"recipient","type":"address"},{"indexed":false,"name":"offer","type":"tuple[]","components":` + spentItemComponents + `},{"indexed":false,"name":"consideration","type":"tuple[]","components":` + receivedItemComponents + `}],"name":"OrderFulfilled","type":"event"}
]`

var (
	assetABI     = mustParseABI("asset", assetABIJSON)
	validatorABI = mustParseABI("transfer validator", validatorABIJSON)
	seaportABI   = mustParseABI("Seaport", seaportABIJSON)
)

// GetAssetABI returns the parsed enforced-royalty ERC721 ABI
func GetAssetABI() abi.ABI {
	return assetABI
}

// GetValidatorABI returns the parsed transfer validator ABI
func GetValidatorABI() abi.ABI {
	return validatorABI
}

// GetSeaportABI returns the parsed Seaport ABI
func GetSeaportABI() abi.ABI {
	return seaportABI
}

func mustParseABI(name, raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("failed to parse " + name + " ABI: " + err.Error())
	}
	return parsed
}
