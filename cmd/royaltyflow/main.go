// Command royaltyflow mints an enforced-royalty asset, lists it, fulfills the
// listing and audits that the royalty was paid.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	royaltysale "github.com/kaifufi/royalty-sale-sdk-go"
	"github.com/kaifufi/royalty-sale-sdk-go/chain"
	"github.com/kaifufi/royalty-sale-sdk-go/registry"
)

var (
	okColor    = color.New(color.FgGreen, color.Bold)
	failColor  = color.New(color.FgRed, color.Bold)
	labelColor = color.New(color.FgCyan)
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := NewCLI().root.ExecuteContext(ctx); err != nil {
		failColor.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

// CLI is the Cobra-based command-line interface.
type CLI struct {
	root   *cobra.Command
	config *royaltysale.Config
	logger *zap.Logger

	configPath string
	envFile    string
	promptKeys bool
}

// NewCLI sets up the CLI.
func NewCLI() *CLI {
	cli := &CLI{}
	cli.root = &cobra.Command{
		Use:           "royaltyflow",
		Short:         "Enforced-royalty asset sale pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := royaltysale.LoadConfig(cli.configPath, cli.envFile)
			if err != nil {
				return err
			}
			logger, err := royaltysale.NewLogger(cfg.Log.Level, cfg.Log.JSON)
			if err != nil {
				return err
			}
			cli.config = cfg
			cli.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if cli.logger != nil {
				_ = cli.logger.Sync()
			}
		},
	}

	cli.root.PersistentFlags().StringVarP(&cli.configPath, "config", "c", "", "toml config file")
	cli.root.PersistentFlags().StringVar(&cli.envFile, "env", ".env", "dotenv file with keys and RPC URL")
	cli.root.PersistentFlags().BoolVar(&cli.promptKeys, "prompt-keys", false, "read missing private keys from the terminal")

	cli.root.AddCommand(
		cli.newRunCommand(),
		newSplitCommand(),
		cli.newAuditCommand(),
		cli.newWatchCommand(),
		cli.newRegistryCommand(),
	)

	return cli
}

// dial resolves the registry entry, prompts for missing keys and connects the client
func (cli *CLI) dial(ctx context.Context) (*royaltysale.Client, error) {
	reg, err := registry.Load(cli.config.RegistryPath)
	if err != nil {
		return nil, err
	}
	if err := cli.config.ApplyDeployment(reg); err != nil {
		return nil, err
	}

	if cli.promptKeys {
		if err := promptMissingKey(&cli.config.SellerKey, "Seller private key: "); err != nil {
			return nil, err
		}
		if err := promptMissingKey(&cli.config.BuyerKey, "Buyer private key: "); err != nil {
			return nil, err
		}
	}

	return royaltysale.Dial(ctx, cli.config, royaltysale.WithLogger(cli.logger))
}

func promptMissingKey(key *string, prompt string) error {
	if *key != "" {
		return nil
	}
	account, err := chain.PromptAccount(prompt)
	if err != nil {
		return err
	}
	*key = hexutil.Encode(crypto.FromECDSA(account.Key))
	return nil
}

func printField(label string, value interface{}) {
	labelColor.Printf("  %-18s", label+":")
	fmt.Println(value)
}
