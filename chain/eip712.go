package chain

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// EIP712 domain constants for Seaport 1.6
const (
	EIP712DomainName    = "Seaport"
	EIP712DomainVersion = "1.6"
)

// SeaportEIP712Types are the typed-data definitions Seaport hashes orders with
var SeaportEIP712Types = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"OrderComponents": {
		{Name: "offerer", Type: "address"},
		{Name: "zone", Type: "address"},
		{Name: "offer", Type: "OfferItem[]"},
		{Name: "consideration", Type: "ConsiderationItem[]"},
		{Name: "orderType", Type: "uint8"},
		{Name: "startTime", Type: "uint256"},
		{Name: "endTime", Type: "uint256"},
		{Name: "zoneHash", Type: "bytes32"},
		{Name: "salt", Type: "uint256"},
		{Name: "conduitKey", Type: "bytes32"},
		{Name: "counter", Type: "uint256"},
	},
	"OfferItem": {
		{Name: "itemType", Type: "uint8"},
		{Name: "token", Type: "address"},
		{Name: "identifierOrCriteria", Type: "uint256"},
		{Name: "startAmount", Type: "uint256"},
		{Name: "endAmount", Type: "uint256"},
	},
	"ConsiderationItem": {
		{Name: "itemType", Type: "uint8"},
		{Name: "token", Type: "address"},
		{Name: "identifierOrCriteria", Type: "uint256"},
		{Name: "startAmount", Type: "uint256"},
		{Name: "endAmount", Type: "uint256"},
		{Name: "recipient", Type: "address"},
	},
}

// NewSeaportDomain returns the EIP712 domain for a Seaport deployment
func NewSeaportDomain(chainID *big.Int, verifyingContract common.Address) apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              EIP712DomainName,
		Version:           EIP712DomainVersion,
		ChainId:           (*math.HexOrDecimal256)(new(big.Int).Set(chainID)),
		VerifyingContract: verifyingContract.Hex(),
	}
}

// OrderTypedData builds the typed data for order components
func OrderTypedData(domain apitypes.TypedDataDomain, c *OrderComponents) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       SeaportEIP712Types,
		PrimaryType: "OrderComponents",
		Domain:      domain,
		Message:     componentsMessage(c),
	}
}

// OrderHash computes the Seaport order hash, the EIP712 struct hash of the components
func OrderHash(domain apitypes.TypedDataDomain, c *OrderComponents) (common.Hash, error) {
	typedData := OrderTypedData(domain, c)
	structHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash order components: %w", err)
	}
	return common.BytesToHash(structHash), nil
}

// CreateOrderSignHash creates the final EIP712 digest to be signed:
// keccak256("\x19\x01" ++ domainSeparator ++ structHash)
func CreateOrderSignHash(domain apitypes.TypedDataDomain, c *OrderComponents) (common.Hash, error) {
	digest, _, err := apitypes.TypedDataAndHash(OrderTypedData(domain, c))
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash typed data: %w", err)
	}
	return common.BytesToHash(digest), nil
}

// SignOrder signs order components and returns a 65-byte signature with v in {27, 28}
func SignOrder(domain apitypes.TypedDataDomain, c *OrderComponents, key *ecdsa.PrivateKey) ([]byte, error) {
	digest, err := CreateOrderSignHash(domain, c)
	if err != nil {
		return nil, err
	}

	signature, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign order: %w", err)
	}

	// Add recovery ID
	signature[64] += 27

	return signature, nil
}

// RecoverOrderSigner returns the address that produced signature over the components
func RecoverOrderSigner(domain apitypes.TypedDataDomain, c *OrderComponents, signature []byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(signature))
	}
	digest, err := CreateOrderSignHash(domain, c)
	if err != nil {
		return common.Address{}, err
	}

	sig := make([]byte, len(signature))
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pub, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func componentsMessage(c *OrderComponents) apitypes.TypedDataMessage {
	offer := make([]interface{}, 0, len(c.Offer))
	for _, item := range c.Offer {
		offer = append(offer, map[string]interface{}{
			"itemType":             decimalString(new(big.Int).SetUint64(uint64(item.ItemType))),
			"token":                item.Token.Hex(),
			"identifierOrCriteria": decimalString(item.IdentifierOrCriteria),
			"startAmount":          decimalString(item.StartAmount),
			"endAmount":            decimalString(item.EndAmount),
		})
	}

	consideration := make([]interface{}, 0, len(c.Consideration))
	for _, item := range c.Consideration {
		consideration = append(consideration, map[string]interface{}{
			"itemType":             decimalString(new(big.Int).SetUint64(uint64(item.ItemType))),
			"token":                item.Token.Hex(),
			"identifierOrCriteria": decimalString(item.IdentifierOrCriteria),
			"startAmount":          decimalString(item.StartAmount),
			"endAmount":            decimalString(item.EndAmount),
			"recipient":            item.Recipient.Hex(),
		})
	}

	return apitypes.TypedDataMessage{
		"offerer":       c.Offerer.Hex(),
		"zone":          c.Zone.Hex(),
		"offer":         offer,
		"consideration": consideration,
		"orderType":     decimalString(new(big.Int).SetUint64(uint64(c.OrderType))),
		"startTime":     decimalString(c.StartTime),
		"endTime":       decimalString(c.EndTime),
		"zoneHash":      hexutil.Encode(c.ZoneHash[:]),
		"salt":          decimalString(c.Salt),
		"conduitKey":    hexutil.Encode(c.ConduitKey[:]),
		"counter":       decimalString(c.Counter),
	}
}

func decimalString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
