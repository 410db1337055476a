package royaltysale

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaifufi/royalty-sale-sdk-go/registry"
)

const (
	testReceiver = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	testAsset    = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{EnvRPCURL, EnvSellerKey, EnvBuyerKey, EnvRoyaltyReceiver, EnvOrderbookAPIKey} {
		t.Setenv(name, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig("", "")
	require.NoError(t, err)

	assert.Equal(t, DefaultNetwork, cfg.Network)
	assert.Equal(t, ChainIDBuildBear, cfg.ChainID)
	assert.Equal(t, "0x0000000000000068F116a894984e2DB1123eB395", cfg.SeaportAddress)
	assert.Equal(t, "0x721C002B0059009a671D00aD1700c9748146cd1B", cfg.TransferValidator)
	assert.Equal(t, int64(500), cfg.RoyaltyBps)
	assert.Equal(t, "50", cfg.SalePrice)
	assert.Equal(t, uint64(60), cfg.LeadSeconds)
	assert.Equal(t, uint64(86400), cfg.DurationSeconds)
	assert.Equal(t, registry.DefaultPath, cfg.RegistryPath)
	assert.Equal(t, int64(120), cfg.ConfirmTimeoutSeconds)
	assert.Equal(t, uint64(5), cfg.MaxRetries)
	assert.Equal(t, "buildbear", cfg.Orderbook.ChainName)
	assert.Equal(t, uint8(DefaultSecurityLevel), cfg.SecurityLevel)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()

	configPath := filepath.Join(dir, "royaltyflow.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
network = "sepolia"
chain_id = 11155111
rpc_url = "http://file.example"
royalty_bps = 250
sale_price = "1.5"
security_level = 0

[orderbook]
host = "https://orderbook.example"

[log]
level = "debug"
json = true
`), 0644))

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("BUYER=0xbuyer\n"), 0644))
	t.Setenv(EnvRPCURL, "http://env.example")

	// godotenv never overrides a variable that is already present, even if empty
	require.NoError(t, os.Unsetenv(EnvBuyerKey))

	cfg, err := LoadConfig(configPath, envPath)
	require.NoError(t, err)

	assert.Equal(t, "sepolia", cfg.Network)
	assert.Equal(t, ChainIDSepolia, cfg.ChainID)
	assert.Equal(t, "http://env.example", cfg.RPCURL)
	assert.Equal(t, "0xbuyer", cfg.BuyerKey)
	assert.Equal(t, int64(250), cfg.RoyaltyBps)
	assert.Equal(t, "1.5", cfg.SalePrice)
	assert.Equal(t, "https://orderbook.example", cfg.Orderbook.Host)
	assert.Equal(t, "sepolia", cfg.Orderbook.ChainName)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, uint8(0), cfg.SecurityLevel)
}

func TestLoadConfigMissingEnvFileIsIgnored(t *testing.T) {
	clearConfigEnv(t)

	_, err := LoadConfig("", filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestLoadConfigExplicitZeroes(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "zero.toml")
	require.NoError(t, os.WriteFile(path, []byte("royalty_bps = 0\nsecurity_level = 0\n"), 0644))

	cfg, err := LoadConfig(path, "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), cfg.RoyaltyBps)
	assert.Equal(t, uint8(0), cfg.SecurityLevel)
	assert.Equal(t, uint64(DefaultLeadSeconds), cfg.LeadSeconds)
}

func TestLoadConfigRejectsZeroLead(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "lead.toml")
	require.NoError(t, os.WriteFile(path, []byte("lead_seconds = 0\n"), 0644))

	_, err := LoadConfig(path, "")
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorContains(t, err, "lead_seconds")
}

func TestLoadConfigBadToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("royalty_bps = ["), 0644))

	_, err := LoadConfig(path, "")
	assert.Error(t, err)
}

func validConfig() *Config {
	cfg := &Config{
		RPCURL:          "http://localhost:8545",
		SellerKey:       "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
		BuyerKey:        "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d",
		RoyaltyReceiver: testReceiver,
		AssetContract:   testAsset,
	}
	cfg.applyDefaults()
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing rpc", func(c *Config) { c.RPCURL = "" }, "rpc_url"},
		{"missing seller key", func(c *Config) { c.SellerKey = "" }, "seller_key"},
		{"missing buyer key", func(c *Config) { c.BuyerKey = "" }, "buyer_key"},
		{"missing receiver", func(c *Config) { c.RoyaltyReceiver = "" }, "royalty_receiver"},
		{"missing asset", func(c *Config) { c.AssetContract = "" }, "asset_contract"},
		{"bad receiver", func(c *Config) { c.RoyaltyReceiver = "0x1234" }, "royalty_receiver"},
		{"bps too high", func(c *Config) { c.RoyaltyBps = 10001 }, "royalty_bps"},
		{"bad sale price", func(c *Config) { c.SalePrice = "fifty" }, "sale_price"},
		{"bad tolerance", func(c *Config) { c.GasToleranceWei = "-1" }, "gas_tolerance_wei"},
		{"bad validator", func(c *Config) {
			c.SecurityLevel = DefaultSecurityLevel
			c.TransferValidator = "nope"
		}, "transfer_validator"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.field == "" {
				require.NoError(t, err)
				return
			}

			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestConfigApplyDeployment(t *testing.T) {
	reg := registry.New()
	reg.Merge("buildbear", registry.Deployment{
		Address:         testAsset,
		RoyaltyReceiver: testReceiver,
		RoyaltyFee:      500,
	})

	cfg := &Config{Network: "buildbear"}
	require.NoError(t, cfg.ApplyDeployment(reg))
	assert.Equal(t, testAsset, cfg.AssetContract)
	assert.Equal(t, testReceiver, cfg.RoyaltyReceiver)

	explicit := &Config{Network: "buildbear", RoyaltyReceiver: "0x0000000000000000000000000000000000000001"}
	require.NoError(t, explicit.ApplyDeployment(reg))
	assert.Equal(t, "0x0000000000000000000000000000000000000001", explicit.RoyaltyReceiver)

	missing := &Config{Network: "sepolia"}
	err := missing.ApplyDeployment(reg)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "asset_contract", cfgErr.Field)
}

func TestConfigAmounts(t *testing.T) {
	cfg := validConfig()

	price, err := cfg.SalePriceWei()
	require.NoError(t, err)
	assert.Equal(t, "50000000000000000000", price.String())

	tolerance, err := cfg.GasTolerance()
	require.NoError(t, err)
	assert.Equal(t, 0, tolerance.Cmp(big.NewInt(0)))

	cfg.GasToleranceWei = "21000"
	tolerance, err = cfg.GasTolerance()
	require.NoError(t, err)
	assert.Equal(t, int64(21000), tolerance.Int64())
}
