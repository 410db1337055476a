package royaltysale

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kaifufi/royalty-sale-sdk-go/chain"
)

// Stage names a pipeline step and its abort point
type Stage string

const (
	StageSecure   Stage = "secure"
	StageMint     Stage = "mint"
	StageApprove  Stage = "approve"
	StageBuild    Stage = "build"
	StageValidate Stage = "validate"
	StageSubmit   Stage = "submit"
	StageFulfill  Stage = "fulfill"
	StageVerify   Stage = "verify"
)

func (s Stage) String() string {
	return string(s)
}

// Ledger is the chain read surface the pipeline needs
type Ledger interface {
	BalanceAt(ctx context.Context, addr common.Address, block *big.Int) (*big.Int, error)
	BlockTimestamp(ctx context.Context, block *big.Int) (uint64, error)
	LatestBlock(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// AssetContract is the enforced-royalty collection
type AssetContract interface {
	Address() common.Address
	Owner(ctx context.Context) (common.Address, error)
	OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error)
	RoyaltyInfo(ctx context.Context, tokenID, salePrice *big.Int) (common.Address, *big.Int, error)
	Mint(ctx context.Context, to common.Address, uri string) (*big.Int, *types.Receipt, error)
	Approve(ctx context.Context, operator common.Address, tokenID *big.Int) (*types.Receipt, error)
	SetTransferSecurityLevel(ctx context.Context, validator common.Address, level uint8) (*types.Receipt, error)
}

// Marketplace is the order-matching protocol
type Marketplace interface {
	Address() common.Address
	CreateOrder(ctx context.Context, input chain.OrderInput, signer *chain.Account) (*chain.SignedOrder, error)
	FulfillOrder(ctx context.Context, order *chain.SignedOrder, fulfiller *chain.Account, value *big.Int) (*types.Receipt, error)
	CancelOrder(ctx context.Context, order *chain.SignedOrder, offerer *chain.Account) (*types.Receipt, error)
}

// Orderbook publishes signed listings off-chain
type Orderbook interface {
	PostListing(ctx context.Context, chainName string, order *chain.SignedOrder, protocol common.Address) (*ListingResponse, error)
}

// StageHook runs before every stage; a non-nil error aborts that stage
type StageHook func(ctx context.Context, stage Stage) error

// SaleConfig holds the parties and terms of the sale
type SaleConfig struct {
	Seller          *chain.Account
	Buyer           *chain.Account
	RoyaltyReceiver common.Address
	SalePrice       *big.Int
	RoyaltyBps      int64
	TokenURI        string
	LeadSeconds     uint64
	DurationSeconds uint64

	// SecurityLevel above zero runs the secure stage against TransferValidator
	SecurityLevel     uint8
	TransferValidator common.Address

	GasTolerance   *big.Int
	OrderbookChain string
}

// Client runs the mint, list, fulfill and audit pipeline for one collection
type Client struct {
	ledger    Ledger
	asset     AssetContract
	market    Marketplace
	orderbook Orderbook
	sale      SaleConfig
	logger    *zap.Logger
	hook      StageHook
	clock     func() time.Time
	closer    func()
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the logger; the default discards everything
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStageHook installs a hook run before every stage
func WithStageHook(hook StageHook) Option {
	return func(c *Client) {
		c.hook = hook
	}
}

// WithOrderbook publishes signed listings to an orderbook during submit
func WithOrderbook(orderbook Orderbook) Option {
	return func(c *Client) {
		c.orderbook = orderbook
	}
}

// WithClock overrides the wall clock used to build and validate orders
func WithClock(clock func() time.Time) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

// NewClient creates a pipeline client over the given collaborators
func NewClient(ledger Ledger, asset AssetContract, market Marketplace, sale SaleConfig, opts ...Option) (*Client, error) {
	if ledger == nil || asset == nil || market == nil {
		return nil, &ConfigurationError{Field: "collaborators", Reason: "ledger, asset contract and marketplace are required"}
	}
	if sale.Seller == nil {
		return nil, &ConfigurationError{Field: "seller_key"}
	}
	if sale.Buyer == nil {
		return nil, &ConfigurationError{Field: "buyer_key"}
	}
	if sale.RoyaltyReceiver == (common.Address{}) {
		return nil, &ConfigurationError{Field: "royalty_receiver"}
	}
	if sale.SalePrice == nil {
		return nil, &ConfigurationError{Field: "sale_price"}
	}
	if sale.GasTolerance == nil {
		sale.GasTolerance = new(big.Int)
	}

	c := &Client{
		ledger: ledger,
		asset:  asset,
		market: market,
		sale:   sale,
		logger: zap.NewNop(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Dial validates cfg and connects every collaborator it describes.
// Close releases the RPC connection.
func Dial(ctx context.Context, cfg *Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seller, err := chain.NewAccount(cfg.SellerKey)
	if err != nil {
		return nil, &ConfigurationError{Field: "seller_key", Reason: err.Error()}
	}
	buyer, err := chain.NewAccount(cfg.BuyerKey)
	if err != nil {
		return nil, &ConfigurationError{Field: "buyer_key", Reason: err.Error()}
	}
	salePrice, err := cfg.SalePriceWei()
	if err != nil {
		return nil, &ConfigurationError{Field: "sale_price", Reason: err.Error()}
	}
	tolerance, err := cfg.GasTolerance()
	if err != nil {
		return nil, &ConfigurationError{Field: "gas_tolerance_wei", Reason: err.Error()}
	}

	// Apply options once up front so the ledger shares the logger
	probe := &Client{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(probe)
	}

	ledger, err := chain.Dial(ctx, cfg.RPCURL, chain.LedgerConfig{
		ConfirmTimeout: cfg.ConfirmTimeout(),
		MaxRetries:     cfg.MaxRetries,
		Logger:         probe.logger,
	})
	if err != nil {
		return nil, err
	}

	if cfg.ChainID != 0 && ledger.ChainID().Int64() != int64(cfg.ChainID) {
		ledger.Close()
		return nil, &ConfigurationError{
			Field:  "chain_id",
			Reason: fmt.Sprintf("configured %d, node reports %s", cfg.ChainID, ledger.ChainID()),
		}
	}

	asset := chain.NewAssetContract(ledger, common.HexToAddress(cfg.AssetContract), seller)
	seaport := chain.NewSeaport(ledger, common.HexToAddress(cfg.SeaportAddress))

	if cfg.Orderbook.Host != "" {
		opts = append(opts, WithOrderbook(NewAPIClient(cfg.Orderbook.Host, cfg.Orderbook.APIKey)))
	}

	client, err := NewClient(ledger, asset, seaport, SaleConfig{
		Seller:            seller,
		Buyer:             buyer,
		RoyaltyReceiver:   common.HexToAddress(cfg.RoyaltyReceiver),
		SalePrice:         salePrice,
		RoyaltyBps:        cfg.RoyaltyBps,
		TokenURI:          cfg.TokenURI,
		LeadSeconds:       cfg.LeadSeconds,
		DurationSeconds:   cfg.DurationSeconds,
		SecurityLevel:     cfg.SecurityLevel,
		TransferValidator: common.HexToAddress(cfg.TransferValidator),
		GasTolerance:      tolerance,
		OrderbookChain:    cfg.Orderbook.ChainName,
	}, opts...)
	if err != nil {
		ledger.Close()
		return nil, err
	}
	client.closer = ledger.Close
	return client, nil
}

// Close closes the client and cleans up resources
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// Seller returns the seller account address
func (c *Client) Seller() common.Address {
	return c.sale.Seller.Address
}

// SaleReport accumulates everything a pipeline run produced, up to the abort point
type SaleReport struct {
	RunID        string
	Sale         Sale
	Split        Split
	Order        *Order
	Signed       *chain.SignedOrder
	Listing      *ListingResponse
	Transactions map[Stage]TransactionResult
	Fulfillment  *chain.OrderFulfilled
	PreBalances  BalanceSnapshot
	PostBalances BalanceSnapshot
	Settlement   *SettlementResult
	AbortedAt    Stage
}

// Run executes every stage in order. Each stage either fully succeeds or
// aborts the run with a *StageError; the report holds whatever was produced
// before the abort.
func (c *Client) Run(ctx context.Context) (*SaleReport, error) {
	report := &SaleReport{
		RunID:        uuid.NewString(),
		Transactions: make(map[Stage]TransactionResult),
	}
	r := &run{
		client: c,
		report: report,
		logger: c.logger.With(zap.String("run_id", report.RunID)),
	}

	stages := []struct {
		stage Stage
		fn    func(context.Context) (*types.Receipt, error)
	}{
		{StageSecure, r.secure},
		{StageMint, r.mint},
		{StageApprove, r.approve},
		{StageBuild, r.build},
		{StageValidate, r.validate},
		{StageSubmit, r.submit},
		{StageFulfill, r.fulfill},
		{StageVerify, r.verify},
	}

	r.logger.Info("sale started",
		zap.String("seller", c.sale.Seller.Address.Hex()),
		zap.String("buyer", c.sale.Buyer.Address.Hex()),
		zap.String("royalty_receiver", c.sale.RoyaltyReceiver.Hex()),
		Ether("price", c.sale.SalePrice),
		zap.Int64("royalty_bps", c.sale.RoyaltyBps),
	)

	for _, s := range stages {
		if s.stage == StageSecure && c.sale.SecurityLevel == 0 {
			continue
		}
		if err := r.runStage(ctx, s.stage, s.fn); err != nil {
			report.AbortedAt = s.stage
			return report, err
		}
	}

	r.logger.Info("sale settled", zap.String("order_hash", report.Order.Hash.Hex()))
	return report, nil
}

type run struct {
	client  *Client
	report  *SaleReport
	logger  *zap.Logger
	receipt *types.Receipt // fulfillment receipt
}

func (r *run) runStage(ctx context.Context, stage Stage, fn func(context.Context) (*types.Receipt, error)) error {
	logger := r.logger.With(zap.String("stage", stage.String()))

	if hook := r.client.hook; hook != nil {
		if err := hook(ctx, stage); err != nil {
			logger.Error("stage aborted by hook", zap.Error(err))
			return &StageError{Stage: stage, Err: err}
		}
	}

	logger.Debug("stage started")
	receipt, err := fn(ctx)
	if receipt != nil {
		r.report.Transactions[stage] = transactionResult(receipt)
	}
	if err != nil {
		stageErr := &StageError{Stage: stage, TxHash: failedTxHash(receipt, err), Err: err}
		logger.Error("stage aborted", zap.Error(err), zap.String("tx", stageErr.TxHash.Hex()))
		return stageErr
	}

	fields := []zap.Field{}
	if receipt != nil {
		fields = append(fields, zap.String("tx", receipt.TxHash.Hex()), zap.Uint64("gas_used", receipt.GasUsed))
	}
	if r.report.Sale.Asset.ID != nil {
		fields = append(fields, zap.String("asset_id", r.report.Sale.Asset.ID.String()))
	}
	logger.Info("stage finished", fields...)
	return nil
}

func (r *run) secure(ctx context.Context) (*types.Receipt, error) {
	sale := r.client.sale
	return r.client.asset.SetTransferSecurityLevel(ctx, sale.TransferValidator, sale.SecurityLevel)
}

func (r *run) mint(ctx context.Context) (*types.Receipt, error) {
	c := r.client
	seller := c.sale.Seller.Address

	owner, err := c.asset.Owner(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection owner: %w", err)
	}
	if owner != seller {
		return nil, fmt.Errorf("seller %s is not the collection owner %s", seller.Hex(), owner.Hex())
	}

	tokenID, receipt, err := c.asset.Mint(ctx, seller, c.sale.TokenURI)
	if err != nil {
		return receipt, err
	}

	holder, err := c.asset.OwnerOf(ctx, tokenID)
	if err != nil {
		return receipt, fmt.Errorf("failed to read owner of token %s: %w", tokenID, err)
	}
	if holder != seller {
		return receipt, fmt.Errorf("token %s minted to %s, expected %s", tokenID, holder.Hex(), seller.Hex())
	}

	r.report.Sale = Sale{
		Asset:           AssetRef{Contract: c.asset.Address(), ID: tokenID},
		SalePrice:       new(big.Int).Set(c.sale.SalePrice),
		RoyaltyBps:      c.sale.RoyaltyBps,
		RoyaltyReceiver: c.sale.RoyaltyReceiver,
		Seller:          seller,
		Buyer:           c.sale.Buyer.Address,
	}
	return receipt, nil
}

func (r *run) approve(ctx context.Context) (*types.Receipt, error) {
	return r.client.asset.Approve(ctx, r.client.market.Address(), r.report.Sale.Asset.ID)
}

func (r *run) build(ctx context.Context) (*types.Receipt, error) {
	c := r.client
	sale := r.report.Sale

	split, err := ComputeSplit(sale.SalePrice, sale.RoyaltyBps)
	if err != nil {
		return nil, err
	}
	r.report.Split = split

	receiver, amount, err := c.asset.RoyaltyInfo(ctx, sale.Asset.ID, sale.SalePrice)
	if err != nil {
		return nil, fmt.Errorf("failed to read royalty info: %w", err)
	}
	if receiver != sale.RoyaltyReceiver || amount.Cmp(split.Royalty) != 0 {
		return nil, fmt.Errorf("%w: contract pays %s wei to %s, computed %s wei to %s",
			ErrRoyaltyInfoMismatch, amount, receiver.Hex(), split.Royalty, sale.RoyaltyReceiver.Hex())
	}

	order, err := BuildListing(ListingParams{
		Asset:           sale.Asset,
		SalePrice:       sale.SalePrice,
		SellerAmount:    split.Seller,
		RoyaltyAmount:   split.Royalty,
		Seller:          sale.Seller,
		RoyaltyReceiver: sale.RoyaltyReceiver,
		Now:             c.now(),
		LeadSeconds:     c.sale.LeadSeconds,
		DurationSeconds: c.sale.DurationSeconds,
	})
	if err != nil {
		return nil, err
	}
	r.report.Order = order

	r.logger.Info("listing built",
		Ether("seller_amount", split.Seller),
		Ether("royalty_amount", split.Royalty),
		zap.Uint64("start_time", order.StartTime),
		zap.Uint64("end_time", order.EndTime),
	)
	return nil, nil
}

func (r *run) validate(ctx context.Context) (*types.Receipt, error) {
	return nil, ValidateOrder(r.report.Order, r.report.Sale.SalePrice, r.client.now())
}

func (r *run) submit(ctx context.Context) (*types.Receipt, error) {
	c := r.client
	order := r.report.Order

	signed, err := c.market.CreateOrder(ctx, ToOrderInput(order), c.sale.Seller)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	order.Hash = signed.Hash
	r.report.Signed = signed
	if err := order.Transition(OrderStatusSigned); err != nil {
		return nil, err
	}

	if c.orderbook != nil {
		listing, err := c.orderbook.PostListing(ctx, c.sale.OrderbookChain, signed, c.market.Address())
		if err != nil {
			return nil, fmt.Errorf("failed to post listing: %w", err)
		}
		r.report.Listing = listing
	}

	if err := order.Transition(OrderStatusSubmitted); err != nil {
		return nil, err
	}
	r.logger.Info("order submitted", zap.String("order_hash", signed.Hash.Hex()))
	return nil, nil
}

func (r *run) fulfill(ctx context.Context) (*types.Receipt, error) {
	c := r.client
	order := r.report.Order

	blockTime, err := c.ledger.BlockTimestamp(ctx, nil)
	if err != nil {
		return nil, err
	}
	if err := order.CheckFulfillable(blockTime); err != nil {
		return nil, err
	}

	latest, err := c.ledger.LatestBlock(ctx)
	if err != nil {
		return nil, err
	}
	pre, err := c.Balances(ctx, new(big.Int).SetUint64(latest))
	if err != nil {
		return nil, err
	}
	r.report.PreBalances = pre

	receipt, err := c.market.FulfillOrder(ctx, r.report.Signed, c.sale.Buyer, r.report.Sale.SalePrice)
	if err != nil {
		return receipt, err
	}
	r.receipt = receipt

	fulfilled, err := chain.FindOrderFulfilled(receipt.Logs, c.market.Address(), order.Hash)
	if err != nil {
		return receipt, fmt.Errorf("%w: %v", ErrOrderNotFulfilled, err)
	}
	r.report.Fulfillment = fulfilled

	if err := order.Transition(OrderStatusFulfilled); err != nil {
		return receipt, err
	}

	post, err := c.Balances(ctx, receipt.BlockNumber)
	if err != nil {
		return receipt, err
	}
	r.report.PostBalances = post
	return receipt, nil
}

func (r *run) verify(ctx context.Context) (*types.Receipt, error) {
	c := r.client
	result, err := VerifySettlement(r.report.PreBalances, r.report.PostBalances, r.report.Sale, r.report.Split, GasCharge{
		Payer:     c.sale.Buyer.Address,
		Cost:      chain.GasCost(r.receipt),
		Tolerance: c.sale.GasTolerance,
	})
	r.report.Settlement = result
	if err != nil {
		return nil, err
	}

	r.logger.Info("settlement verified",
		Ether("seller_delta", result.ObservedSellerDelta),
		Ether("royalty_delta", result.ObservedRoyaltyDelta),
		Ether("gas_cost", result.GasCost),
	)
	return nil, nil
}

// Balances snapshots the native balances of seller, buyer and royalty receiver at block
func (c *Client) Balances(ctx context.Context, block *big.Int) (BalanceSnapshot, error) {
	snapshot := make(BalanceSnapshot, 3)
	for _, addr := range []common.Address{c.sale.Seller.Address, c.sale.Buyer.Address, c.sale.RoyaltyReceiver} {
		if _, ok := snapshot[addr]; ok {
			continue
		}
		balance, err := c.ledger.BalanceAt(ctx, addr, block)
		if err != nil {
			return nil, err
		}
		snapshot[addr] = balance
	}
	return snapshot, nil
}

// Cancel cancels a listing that has not been fulfilled yet. A draft was never
// signed, so it is cancelled locally and no transaction is sent (nil result).
func (c *Client) Cancel(ctx context.Context, order *Order, signed *chain.SignedOrder) (*TransactionResult, error) {
	if order.Status.Terminal() {
		return nil, fmt.Errorf("%w: cannot cancel order in status %s", ErrInvalidTransition, order.Status)
	}

	if order.Status == OrderStatusDraft {
		if err := order.Transition(OrderStatusCancelled); err != nil {
			return nil, err
		}
		c.logger.Info("draft order cancelled", zap.String("order_hash", order.Hash.Hex()))
		return nil, nil
	}
	if signed == nil {
		return nil, fmt.Errorf("%w: order in status %s needs its signed form to be cancelled on-chain", ErrMalformedOrder, order.Status)
	}

	receipt, err := c.market.CancelOrder(ctx, signed, c.sale.Seller)
	if err != nil {
		return nil, err
	}
	if err := order.Transition(OrderStatusCancelled); err != nil {
		return nil, err
	}

	result := transactionResult(receipt)
	c.logger.Info("order cancelled", zap.String("order_hash", order.Hash.Hex()), zap.String("tx", result.TxHash.Hex()))
	return &result, nil
}

// WatchListing follows a submitted order on the event stream until it is
// fulfilled, cancelled or its end time passes.
func (c *Client) WatchListing(ctx context.Context, order *Order, source EventSource) (OrderStatus, error) {
	if order.Status != OrderStatusSubmitted {
		return order.Status, fmt.Errorf("%w: cannot watch order in status %s", ErrInvalidTransition, order.Status)
	}

	expiry := time.NewTimer(time.Unix(int64(order.EndTime), 0).Sub(c.clock()))
	defer expiry.Stop()

	logger := c.logger.With(zap.String("order_hash", order.Hash.Hex()))

	for {
		select {
		case <-ctx.Done():
			return order.Status, ctx.Err()
		case <-source.Done():
			return order.Status, errors.New("event stream closed")
		case <-expiry.C:
			if err := order.Transition(OrderStatusExpired); err != nil {
				return order.Status, err
			}
			logger.Info("listing expired", zap.Uint64("end_time", order.EndTime))
			return order.Status, nil
		case event := <-source.Events():
			if event.OrderHash != order.Hash {
				continue
			}

			var next OrderStatus
			switch event.Type {
			case EventItemSold:
				next = OrderStatusFulfilled
			case EventItemCancelled:
				next = OrderStatusCancelled
			default:
				logger.Debug("ignoring event", zap.String("event", string(event.Type)))
				continue
			}

			if err := order.Transition(next); err != nil {
				return order.Status, err
			}
			logger.Info("listing updated", zap.String("status", order.Status.String()))
			return order.Status, nil
		}
	}
}

// RoyaltyPayment is a past fulfillment that paid the royalty receiver
type RoyaltyPayment struct {
	OrderHash   common.Hash
	TxHash      common.Hash
	BlockNumber uint64
	Amount      *big.Int
}

// RoyaltyAudit summarises the royalty configuration and recent payouts of a token
type RoyaltyAudit struct {
	TokenID        *big.Int
	Receiver       common.Address
	RoyaltyPerUnit *big.Int // royalty quoted for a sale of one ether
	Balance        *big.Int
	FromBlock      uint64
	ToBlock        uint64
	Payments       []RoyaltyPayment
}

// MaxAuditPayments bounds how many recent payments an audit reports
const MaxAuditPayments = 5

// AuditRoyalty reads the royalty configuration of tokenID and lists the most
// recent marketplace fulfillments within the last blocks that paid its receiver.
func (c *Client) AuditRoyalty(ctx context.Context, tokenID *big.Int, blocks uint64) (*RoyaltyAudit, error) {
	oneEther, _ := ParseEther("1")
	receiver, perUnit, err := c.asset.RoyaltyInfo(ctx, tokenID, oneEther)
	if err != nil {
		return nil, fmt.Errorf("failed to read royalty info: %w", err)
	}

	balance, err := c.ledger.BalanceAt(ctx, receiver, nil)
	if err != nil {
		return nil, err
	}

	latest, err := c.ledger.LatestBlock(ctx)
	if err != nil {
		return nil, err
	}
	from := uint64(0)
	if latest > blocks {
		from = latest - blocks
	}

	logs, err := c.ledger.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(latest),
		Addresses: []common.Address{c.market.Address()},
		Topics:    [][]common.Hash{{chain.OrderFulfilledEventSignature}},
	})
	if err != nil {
		return nil, err
	}

	audit := &RoyaltyAudit{
		TokenID:        tokenID,
		Receiver:       receiver,
		RoyaltyPerUnit: perUnit,
		Balance:        balance,
		FromBlock:      from,
		ToBlock:        latest,
	}

	for i := len(logs) - 1; i >= 0 && len(audit.Payments) < MaxAuditPayments; i-- {
		event, err := chain.DecodeOrderFulfilled(&logs[i])
		if err != nil {
			c.logger.Warn("skipping undecodable fulfillment", zap.Error(err), zap.String("tx", logs[i].TxHash.Hex()))
			continue
		}
		paid := event.PaymentsTo(receiver)
		if paid.Sign() == 0 {
			continue
		}
		audit.Payments = append(audit.Payments, RoyaltyPayment{
			OrderHash:   common.Hash(event.OrderHash),
			TxHash:      event.TxHash,
			BlockNumber: event.BlockNumber,
			Amount:      paid,
		})
	}

	return audit, nil
}

// ToOrderInput converts a built order into the marketplace's item encoding
func ToOrderInput(order *Order) chain.OrderInput {
	offer := make([]chain.OfferItem, 0, len(order.Offer))
	for _, item := range order.Offer {
		offer = append(offer, chain.OfferItem{
			ItemType:             uint8(item.ItemType),
			Token:                item.Token,
			IdentifierOrCriteria: new(big.Int).Set(item.Identifier),
			StartAmount:          new(big.Int).Set(item.Amount),
			EndAmount:            new(big.Int).Set(item.Amount),
		})
	}

	consideration := make([]chain.ConsiderationItem, 0, len(order.Consideration))
	for _, item := range order.Consideration {
		consideration = append(consideration, chain.ConsiderationItem{
			ItemType:             uint8(item.ItemType),
			Token:                item.Token,
			IdentifierOrCriteria: new(big.Int),
			StartAmount:          new(big.Int).Set(item.Amount),
			EndAmount:            new(big.Int).Set(item.Amount),
			Recipient:            item.Recipient,
		})
	}

	return chain.OrderInput{
		Offer:         offer,
		Consideration: consideration,
		StartTime:     order.StartTime,
		EndTime:       order.EndTime,
	}
}

func (c *Client) now() uint64 {
	return uint64(c.clock().Unix())
}

func transactionResult(receipt *types.Receipt) TransactionResult {
	result := TransactionResult{
		TxHash:  receipt.TxHash,
		GasUsed: receipt.GasUsed,
		GasCost: chain.GasCost(receipt),
	}
	if receipt.BlockNumber != nil {
		result.Block = receipt.BlockNumber.Uint64()
	}
	return result
}

func failedTxHash(receipt *types.Receipt, err error) common.Hash {
	var reverted *chain.RevertedError
	if errors.As(err, &reverted) {
		return reverted.TxHash
	}
	if receipt != nil {
		return receipt.TxHash
	}
	return common.Hash{}
}
