package royaltysale

import (
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/kaifufi/royalty-sale-sdk-go/registry"
)

// ChainID represents a blockchain chain ID
type ChainID int64

const (
	ChainIDBuildBear ChainID = 26409    // BuildBear mainnet sandbox
	ChainIDSepolia   ChainID = 11155111 // Ethereum Sepolia testnet
	ChainIDMainnet   ChainID = 1        // Ethereum mainnet
)

// ContractAddresses holds protocol contract addresses for each chain
type ContractAddresses struct {
	Seaport           string
	TransferValidator string
}

// DefaultContractAddresses maps chain IDs to their protocol contract addresses
var DefaultContractAddresses = map[ChainID]ContractAddresses{
	ChainIDBuildBear: {
		Seaport:           "0x0000000000000068F116a894984e2DB1123eB395",
		TransferValidator: "0x721C002B0059009a671D00aD1700c9748146cd1B",
	},
	ChainIDSepolia: {
		Seaport:           "0x0000000000000068F116a894984e2DB1123eB395",
		TransferValidator: "0x721C002B0059009a671D00aD1700c9748146cd1B",
	},
	ChainIDMainnet: {
		Seaport:           "0x0000000000000068F116a894984e2DB1123eB395",
		TransferValidator: "0x721C002B0059009a671D00aD1700c9748146cd1B",
	},
}

// Environment variables read by LoadConfig
const (
	EnvRPCURL          = "RPC_URL"
	EnvSellerKey       = "DEPLOYER"
	EnvBuyerKey        = "BUYER"
	EnvRoyaltyReceiver = "ROYALTY_ADDRESS"
	EnvOrderbookAPIKey = "ORDERBOOK_API_KEY"
)

const (
	DefaultNetwork        = "buildbear"
	DefaultRoyaltyBps     = 500
	DefaultSalePrice      = "50"
	DefaultTokenURI       = "ipfs://QmRoyaltyEnforcedAsset/metadata.json"
	DefaultSecurityLevel  = 2
	DefaultConfirmTimeout = 120
	DefaultMaxRetries     = 5
	DefaultLogLevel       = "info"
)

// OrderbookConfig configures the optional orderbook REST API. An empty Host
// keeps submission local.
type OrderbookConfig struct {
	Host      string `toml:"host"`
	APIKey    string `toml:"api_key"`
	ChainName string `toml:"chain_name"`
}

// StreamConfig configures the optional order event stream
type StreamConfig struct {
	Endpoint       string `toml:"endpoint"`
	CollectionSlug string `toml:"collection_slug"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

// Config is constructed once and passed to every collaborator
type Config struct {
	Network string  `toml:"network"`
	ChainID ChainID `toml:"chain_id"`
	RPCURL  string  `toml:"rpc_url"`

	SellerKey string `toml:"seller_key"`
	BuyerKey  string `toml:"buyer_key"`

	AssetContract     string `toml:"asset_contract"`
	RoyaltyReceiver   string `toml:"royalty_receiver"`
	RoyaltyBps        int64  `toml:"royalty_bps"`
	SalePrice         string `toml:"sale_price"`
	TokenURI          string `toml:"token_uri"`
	SeaportAddress    string `toml:"seaport_address"`
	TransferValidator string `toml:"transfer_validator"`

	// SecurityLevel above zero configures the collection on the transfer validator before minting
	SecurityLevel uint8 `toml:"security_level"`

	LeadSeconds     uint64 `toml:"lead_seconds"`
	DurationSeconds uint64 `toml:"duration_seconds"`

	// GasToleranceWei is an absolute allowance on the gas payer's settlement delta.
	// Empty or "0" means exact accounting.
	GasToleranceWei string `toml:"gas_tolerance_wei"`

	RegistryPath          string `toml:"registry_path"`
	ConfirmTimeoutSeconds int64  `toml:"confirm_timeout_seconds"`
	MaxRetries            uint64 `toml:"max_retries"`

	Orderbook OrderbookConfig `toml:"orderbook"`
	Stream    StreamConfig    `toml:"stream"`
	Log       LogConfig       `toml:"log"`
}

// LoadConfig builds a Config from an optional toml file, an optional dotenv
// file and the process environment, in that order of increasing precedence,
// then fills defaults. Either path may be empty; a missing dotenv file is ignored.
func LoadConfig(path, envFile string) (*Config, error) {
	cfg := &Config{}
	var md toml.MetaData

	if path != "" {
		var err error
		md, err = toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
		if md.IsDefined("lead_seconds") && cfg.LeadSeconds == 0 {
			return nil, &ConfigurationError{Field: "lead_seconds", Reason: "must be positive; omit it for the default"}
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	// zero is a meaningful rate and level, so their defaults only apply when the file is silent
	if !md.IsDefined("royalty_bps") {
		cfg.RoyaltyBps = DefaultRoyaltyBps
	}
	if !md.IsDefined("security_level") {
		cfg.SecurityLevel = DefaultSecurityLevel
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		EnvRPCURL:          &c.RPCURL,
		EnvSellerKey:       &c.SellerKey,
		EnvBuyerKey:        &c.BuyerKey,
		EnvRoyaltyReceiver: &c.RoyaltyReceiver,
		EnvOrderbookAPIKey: &c.Orderbook.APIKey,
	}
	for name, field := range overrides {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*field = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Network == "" {
		c.Network = DefaultNetwork
	}
	if c.ChainID == 0 {
		c.ChainID = ChainIDBuildBear
	}

	// Use default contract addresses if not provided
	contracts := DefaultContractAddresses[c.ChainID]
	if c.SeaportAddress == "" {
		c.SeaportAddress = contracts.Seaport
	}
	if c.TransferValidator == "" {
		c.TransferValidator = contracts.TransferValidator
	}

	if c.SalePrice == "" {
		c.SalePrice = DefaultSalePrice
	}
	if c.TokenURI == "" {
		c.TokenURI = DefaultTokenURI
	}
	if c.LeadSeconds == 0 {
		c.LeadSeconds = DefaultLeadSeconds
	}
	if c.DurationSeconds == 0 {
		c.DurationSeconds = DefaultDurationSeconds
	}
	if c.RegistryPath == "" {
		c.RegistryPath = registry.DefaultPath
	}
	if c.ConfirmTimeoutSeconds == 0 {
		c.ConfirmTimeoutSeconds = DefaultConfirmTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.Orderbook.ChainName == "" {
		c.Orderbook.ChainName = c.Network
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

// ApplyDeployment fills the asset contract and royalty receiver from
// the registry entry for the configured network. Explicit values win.
func (c *Config) ApplyDeployment(reg *registry.Registry) error {
	if c.AssetContract != "" && c.RoyaltyReceiver != "" {
		return nil
	}

	d, err := reg.Lookup(c.Network)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) && c.AssetContract == "" {
			return &ConfigurationError{
				Field:  "asset_contract",
				Reason: fmt.Sprintf("not set and no deployment recorded for network %q", c.Network),
			}
		}
		if errors.Is(err, registry.ErrNotFound) {
			return nil
		}
		return err
	}

	if c.AssetContract == "" {
		c.AssetContract = d.Address
	}
	if c.RoyaltyReceiver == "" {
		c.RoyaltyReceiver = d.RoyaltyReceiver
	}
	return nil
}

// Validate reports the first missing or malformed field as a *ConfigurationError.
// It must succeed before any chain interaction.
func (c *Config) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"rpc_url", c.RPCURL},
		{"seller_key", c.SellerKey},
		{"buyer_key", c.BuyerKey},
		{"royalty_receiver", c.RoyaltyReceiver},
		{"asset_contract", c.AssetContract},
		{"seaport_address", c.SeaportAddress},
	}
	for _, r := range required {
		if r.value == "" {
			return &ConfigurationError{Field: r.field}
		}
	}

	addresses := []struct {
		field string
		value string
	}{
		{"royalty_receiver", c.RoyaltyReceiver},
		{"asset_contract", c.AssetContract},
		{"seaport_address", c.SeaportAddress},
	}
	for _, a := range addresses {
		if _, err := ParseAddress(a.value); err != nil {
			return &ConfigurationError{Field: a.field, Reason: err.Error()}
		}
	}
	if c.SecurityLevel > 0 {
		if _, err := ParseAddress(c.TransferValidator); err != nil {
			return &ConfigurationError{Field: "transfer_validator", Reason: err.Error()}
		}
	}

	if c.RoyaltyBps < 0 || c.RoyaltyBps > MaxRoyaltyBps {
		return &ConfigurationError{
			Field:  "royalty_bps",
			Reason: fmt.Sprintf("%d is outside [0, %d]", c.RoyaltyBps, MaxRoyaltyBps),
		}
	}
	if _, err := ParseEther(c.SalePrice); err != nil {
		return &ConfigurationError{Field: "sale_price", Reason: err.Error()}
	}
	if _, err := c.GasTolerance(); err != nil {
		return &ConfigurationError{Field: "gas_tolerance_wei", Reason: err.Error()}
	}

	return nil
}

// SalePriceWei returns the configured sale price in wei
func (c *Config) SalePriceWei() (*big.Int, error) {
	return ParseEther(c.SalePrice)
}

// GasTolerance returns the configured gas tolerance in wei
func (c *Config) GasTolerance() (*big.Int, error) {
	if c.GasToleranceWei == "" {
		return new(big.Int), nil
	}
	tolerance, ok := new(big.Int).SetString(c.GasToleranceWei, 10)
	if !ok || tolerance.Sign() < 0 {
		return nil, fmt.Errorf("invalid wei amount %q", c.GasToleranceWei)
	}
	return tolerance, nil
}

// ConfirmTimeout returns how long to wait for a transaction to be mined
func (c *Config) ConfirmTimeout() time.Duration {
	return time.Duration(c.ConfirmTimeoutSeconds) * time.Second
}
