package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	royaltysale "github.com/kaifufi/royalty-sale-sdk-go"
)

// savedOrder is what run writes for a later watch
type savedOrder struct {
	OrderHash string `json:"order_hash"`
	StartTime uint64 `json:"start_time"`
	EndTime   uint64 `json:"end_time"`
	Status    string `json:"status"`
}

func (cli *CLI) newRunCommand() *cobra.Command {
	var orderPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Mint, list, fulfill and verify one sale",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := cli.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			report, runErr := client.Run(cmd.Context())
			printReport(report)

			if orderPath != "" && report != nil && report.Order != nil && report.Order.Hash != (common.Hash{}) {
				if err := writeOrder(orderPath, report.Order); err != nil {
					return err
				}
			}

			if runErr != nil {
				var stageErr *royaltysale.StageError
				if errors.As(runErr, &stageErr) {
					failColor.Printf("\nAborted at stage %q\n", stageErr.Stage)
					if stageErr.TxHash != (common.Hash{}) {
						printField("Transaction", stageErr.TxHash.Hex())
					}
				}
				return runErr
			}

			okColor.Println("\nRoyalty paid as expected")
			return nil
		},
	}

	cmd.Flags().StringVar(&orderPath, "save-order", "", "write the submitted order to this file")
	return cmd
}

func printReport(report *royaltysale.SaleReport) {
	if report == nil {
		return
	}

	fmt.Println()
	labelColor.Printf("Run %s\n", report.RunID)

	if report.Sale.Asset.ID != nil {
		printField("Asset", fmt.Sprintf("%s #%s", report.Sale.Asset.Contract.Hex(), report.Sale.Asset.ID))
		printField("Sale price", royaltysale.FormatEther(report.Sale.SalePrice)+" ETH")
	}
	if report.Split.Royalty != nil {
		printField("Royalty", royaltysale.FormatEther(report.Split.Royalty)+" ETH")
		printField("Seller proceeds", royaltysale.FormatEther(report.Split.Seller)+" ETH")
	}
	if report.Order != nil {
		printField("Order status", report.Order.Status)
		if report.Order.Hash != (common.Hash{}) {
			printField("Order hash", report.Order.Hash.Hex())
		}
	}
	for _, stage := range []royaltysale.Stage{
		royaltysale.StageSecure, royaltysale.StageMint, royaltysale.StageApprove, royaltysale.StageFulfill,
	} {
		if tx, ok := report.Transactions[stage]; ok {
			printField(stage.String()+" tx", fmt.Sprintf("%s (gas %s ETH)", tx.TxHash.Hex(), royaltysale.FormatEther(tx.GasCost)))
		}
	}

	if report.PreBalances != nil && report.PostBalances != nil {
		fmt.Println()
		labelColor.Println("Balances")
		addrs := make([]common.Address, 0, len(report.PreBalances))
		for addr := range report.PreBalances {
			addrs = append(addrs, addr)
		}
		sort.Slice(addrs, func(i, j int) bool { return addrs[i].Hex() < addrs[j].Hex() })
		for _, addr := range addrs {
			printField(addr.Hex()[:10], fmt.Sprintf("%s -> %s ETH (%s)",
				royaltysale.FormatEther(report.PreBalances[addr]),
				royaltysale.FormatEther(report.PostBalances[addr]),
				royaltysale.FormatEther(royaltysale.Delta(report.PreBalances, report.PostBalances, addr))))
		}
	}

	if s := report.Settlement; s != nil {
		fmt.Println()
		labelColor.Println("Settlement")
		printField("Royalty delta", fmt.Sprintf("%s / expected %s ETH",
			royaltysale.FormatEther(s.ObservedRoyaltyDelta), royaltysale.FormatEther(s.ExpectedRoyaltyDelta)))
		printField("Seller delta", fmt.Sprintf("%s / expected %s ETH",
			royaltysale.FormatEther(s.ObservedSellerDelta), royaltysale.FormatEther(s.ExpectedSellerDelta)))
		printField("Gas cost", royaltysale.FormatEther(s.GasCost)+" ETH")
		if s.Matched {
			okColor.Println("  MATCHED")
		} else {
			failColor.Println("  MISMATCH")
		}
	}
}

func writeOrder(path string, order *royaltysale.Order) error {
	data, err := json.MarshalIndent(savedOrder{
		OrderHash: order.Hash.Hex(),
		StartTime: order.StartTime,
		EndTime:   order.EndTime,
		Status:    order.Status.String(),
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write order %s: %w", path, err)
	}
	return nil
}

func readOrder(path string) (*royaltysale.Order, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read order %s: %w", path, err)
	}
	var saved savedOrder
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("failed to decode order %s: %w", path, err)
	}
	hash, err := hexutil.Decode(saved.OrderHash)
	if err != nil || len(hash) != common.HashLength {
		return nil, fmt.Errorf("order %s has an invalid hash %q", path, saved.OrderHash)
	}
	status, err := royaltysale.ParseOrderStatus(saved.Status)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", path, err)
	}

	return &royaltysale.Order{
		Hash:      common.BytesToHash(hash),
		StartTime: saved.StartTime,
		EndTime:   saved.EndTime,
		Status:    status,
	}, nil
}

// readWatchableOrder reads a saved order that is still open on the marketplace
func readWatchableOrder(path string) (*royaltysale.Order, error) {
	order, err := readOrder(path)
	if err != nil {
		return nil, err
	}
	if order.Status != royaltysale.OrderStatusSubmitted {
		return nil, fmt.Errorf("%w: order %s is %s", royaltysale.ErrInvalidTransition, order.Hash.Hex(), order.Status)
	}
	return order, nil
}
