package main

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	royaltysale "github.com/kaifufi/royalty-sale-sdk-go"
	"github.com/kaifufi/royalty-sale-sdk-go/registry"
)

func newSplitCommand() *cobra.Command {
	var (
		price string
		bps   int64
	)

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Compute the royalty and seller parts of a sale price",
		RunE: func(cmd *cobra.Command, args []string) error {
			wei, err := royaltysale.ParseEther(price)
			if err != nil {
				return fmt.Errorf("invalid price %q: %w", price, err)
			}
			split, err := royaltysale.ComputeSplit(wei, bps)
			if err != nil {
				return err
			}

			printField("Sale price", royaltysale.FormatEther(wei)+" ETH")
			printField("Royalty", fmt.Sprintf("%s ETH (%d bps)", royaltysale.FormatEther(split.Royalty), bps))
			printField("Seller proceeds", royaltysale.FormatEther(split.Seller)+" ETH")
			return nil
		},
	}

	cmd.Flags().StringVar(&price, "price", royaltysale.DefaultSalePrice, "sale price in ether")
	cmd.Flags().Int64Var(&bps, "bps", royaltysale.DefaultRoyaltyBps, "royalty rate in basis points")
	return cmd
}

func (cli *CLI) newAuditCommand() *cobra.Command {
	var (
		token  string
		blocks uint64
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the royalty configuration and recent payouts of a token",
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenID, ok := new(big.Int).SetString(token, 10)
			if !ok || tokenID.Sign() < 0 {
				return fmt.Errorf("invalid token id %q", token)
			}

			client, err := cli.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			audit, err := client.AuditRoyalty(cmd.Context(), tokenID, blocks)
			if err != nil {
				return err
			}

			printField("Token", audit.TokenID)
			printField("Receiver", audit.Receiver.Hex())
			printField("Royalty per ETH", royaltysale.FormatEther(audit.RoyaltyPerUnit)+" ETH")
			printField("Receiver balance", royaltysale.FormatEther(audit.Balance)+" ETH")
			printField("Blocks scanned", fmt.Sprintf("%d..%d", audit.FromBlock, audit.ToBlock))

			if len(audit.Payments) == 0 {
				failColor.Println("  no royalty payments found")
				return nil
			}
			for _, p := range audit.Payments {
				okColor.Printf("  %s ETH", royaltysale.FormatEther(p.Amount))
				fmt.Printf(" block %d order %s tx %s\n", p.BlockNumber, p.OrderHash.Hex(), p.TxHash.Hex())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "token id to audit")
	cmd.Flags().Uint64Var(&blocks, "blocks", 1000, "how many recent blocks to scan")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func (cli *CLI) newWatchCommand() *cobra.Command {
	var (
		orderPath  string
		collection string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a submitted listing on the event stream until it settles",
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := readWatchableOrder(orderPath)
			if err != nil {
				return err
			}
			if collection == "" {
				collection = cli.config.Stream.CollectionSlug
			}
			if collection == "" {
				return &royaltysale.ConfigurationError{Field: "stream.collection_slug"}
			}

			client, err := cli.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			stream := royaltysale.NewOrderStream(royaltysale.OrderStreamConfig{
				Endpoint: cli.config.Stream.Endpoint,
				APIKey:   cli.config.Orderbook.APIKey,
				OnError: func(err error) {
					cli.logger.Warn("stream error", zap.Error(err))
				},
			})
			if err := stream.Connect(cmd.Context()); err != nil {
				return err
			}
			defer stream.Disconnect()

			if err := stream.Subscribe(collection); err != nil {
				return err
			}

			printField("Order", order.Hash.Hex())
			printField("Expires", time.Unix(int64(order.EndTime), 0).UTC().Format(time.RFC3339))

			status, err := client.WatchListing(cmd.Context(), order, stream)
			if err != nil {
				return err
			}

			if status == royaltysale.OrderStatusFulfilled {
				okColor.Printf("  %s\n", status)
			} else {
				failColor.Printf("  %s\n", status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&orderPath, "order", "", "order file written by run --save-order")
	cmd.Flags().StringVar(&collection, "collection", "", "collection slug on the event stream")
	_ = cmd.MarkFlagRequired("order")
	return cmd
}

func (cli *CLI) newRegistryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect and update the deployment registry",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "List the recorded deployments",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.Load(cli.config.RegistryPath)
			if err != nil {
				return err
			}
			networks := reg.Networks()
			if len(networks) == 0 {
				fmt.Printf("no deployments in %s\n", cli.config.RegistryPath)
				return nil
			}
			for _, network := range networks {
				d, err := reg.Lookup(network)
				if err != nil {
					continue
				}
				labelColor.Println(network)
				printField("Address", d.Address)
				printField("Deployer", d.Deployer)
				printField("Validator", d.Validator)
				printField("Royalty", fmt.Sprintf("%s (%d bps)", d.RoyaltyReceiver, d.RoyaltyFee))
				printField("Deployed", d.DeployedAt.Format(time.RFC3339))
			}
			return nil
		},
	})

	var d registry.Deployment
	record := &cobra.Command{
		Use:   "record",
		Short: "Record a deployed collection for the configured network",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(d.Address) {
				return fmt.Errorf("invalid contract address %q", d.Address)
			}
			if d.RoyaltyReceiver == "" {
				d.RoyaltyReceiver = cli.config.RoyaltyReceiver
			}
			if d.Validator == "" {
				d.Validator = cli.config.TransferValidator
			}
			if d.RoyaltyFee == 0 {
				d.RoyaltyFee = cli.config.RoyaltyBps
			}
			d.DeployedAt = time.Now().UTC()

			reg, err := registry.Load(cli.config.RegistryPath)
			if err != nil {
				return err
			}
			reg.Merge(cli.config.Network, d)
			if err := reg.Save(cli.config.RegistryPath); err != nil {
				return err
			}
			okColor.Printf("recorded %s on %s\n", d.Address, cli.config.Network)
			return nil
		},
	}
	record.Flags().StringVar(&d.Address, "address", "", "deployed contract address")
	record.Flags().StringVar(&d.Deployer, "deployer", "", "deploying account")
	record.Flags().StringVar(&d.Validator, "validator", "", "transfer validator (defaults to config)")
	record.Flags().StringVar(&d.RoyaltyReceiver, "royalty-receiver", "", "royalty receiver (defaults to config)")
	record.Flags().Int64Var(&d.RoyaltyFee, "royalty-bps", 0, "royalty rate in basis points (defaults to config)")
	_ = record.MarkFlagRequired("address")
	cmd.AddCommand(record)

	return cmd
}
