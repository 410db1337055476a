package royaltysale

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/kaifufi/royalty-sale-sdk-go/chain"
)

// ErrOrderbook represents a failed orderbook API call
var ErrOrderbook = errors.New("orderbook api error")

// APIError carries the HTTP status and body of a failed orderbook request
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	return ErrOrderbook
}

// APIItem is an offer or consideration item in the orderbook's JSON encoding
type APIItem struct {
	ItemType             uint8  `json:"itemType"`
	Token                string `json:"token"`
	IdentifierOrCriteria string `json:"identifierOrCriteria"`
	StartAmount          string `json:"startAmount"`
	EndAmount            string `json:"endAmount"`
	Recipient            string `json:"recipient,omitempty"`
}

// APIOrderParameters is the signed order in the orderbook's JSON encoding
type APIOrderParameters struct {
	Offerer                         string    `json:"offerer"`
	Zone                            string    `json:"zone"`
	Offer                           []APIItem `json:"offer"`
	Consideration                   []APIItem `json:"consideration"`
	OrderType                       uint8     `json:"orderType"`
	StartTime                       string    `json:"startTime"`
	EndTime                         string    `json:"endTime"`
	ZoneHash                        string    `json:"zoneHash"`
	Salt                            string    `json:"salt"`
	ConduitKey                      string    `json:"conduitKey"`
	TotalOriginalConsiderationItems int       `json:"totalOriginalConsiderationItems"`
	Counter                         string    `json:"counter"`
}

// PostListingRequest is the body of a listing submission
type PostListingRequest struct {
	Parameters      APIOrderParameters `json:"parameters"`
	Signature       string             `json:"signature"`
	ProtocolAddress string             `json:"protocol_address"`
}

// RemoteOrder is the orderbook's view of a listing
type RemoteOrder struct {
	OrderHash       string `json:"order_hash"`
	ProtocolAddress string `json:"protocol_address"`
	ExpirationTime  int64  `json:"expiration_time"`
	Cancelled       bool   `json:"cancelled"`
	Finalized       bool   `json:"finalized"`
	MarkedInvalid   bool   `json:"marked_invalid"`
}

// Status maps the remote flags onto the local order status machine
func (o *RemoteOrder) Status(now uint64) OrderStatus {
	switch {
	case o.Cancelled || o.MarkedInvalid:
		return OrderStatusCancelled
	case o.Finalized:
		return OrderStatusFulfilled
	case o.ExpirationTime > 0 && uint64(o.ExpirationTime) <= now:
		return OrderStatusExpired
	default:
		return OrderStatusSubmitted
	}
}

// ListingResponse wraps a single order returned by the orderbook
type ListingResponse struct {
	Order RemoteOrder `json:"order"`
}

// APIClient handles HTTP requests to the orderbook API
type APIClient struct {
	host   string
	apiKey string
	client *http.Client
}

// NewAPIClient creates a new API client
func NewAPIClient(host, apiKey string) *APIClient {
	return &APIClient{
		host:   host,
		apiKey: apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// doRequest performs an HTTP request
func (c *APIClient) doRequest(ctx context.Context, method, endpoint string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	url := fmt.Sprintf("%s%s", c.host, endpoint)
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}

// decodeJSONResponse reads the response body, checks HTTP status, and decodes JSON
func (c *APIClient) decodeJSONResponse(resp *http.Response, result interface{}) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyStr := string(bodyBytes)
		if bodyStr == "" {
			bodyStr = resp.Status
		}
		return &APIError{StatusCode: resp.StatusCode, Body: bodyStr}
	}

	if err := json.Unmarshal(bodyBytes, result); err != nil {
		// If JSON decode fails, include the body in the error for debugging
		bodyStr := string(bodyBytes)
		if len(bodyStr) > 200 {
			bodyStr = bodyStr[:200] + "..."
		}
		return fmt.Errorf("failed to decode JSON response: %w (body: %s)", err, bodyStr)
	}

	return nil
}

// PostListing submits a signed listing to the orderbook
func (c *APIClient) PostListing(ctx context.Context, chainName string, order *chain.SignedOrder, protocol common.Address) (*ListingResponse, error) {
	endpoint := fmt.Sprintf("/api/v2/orders/%s/seaport/listings", chainName)
	reqBody := PostListingRequest{
		Parameters:      toAPIParameters(order),
		Signature:       hexutil.Encode(order.Signature),
		ProtocolAddress: protocol.Hex(),
	}

	resp, err := c.doRequest(ctx, http.MethodPost, endpoint, reqBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result ListingResponse
	if err := c.decodeJSONResponse(resp, &result); err != nil {
		return nil, err
	}

	if result.Order.OrderHash != "" && common.HexToHash(result.Order.OrderHash) != order.Hash {
		return nil, fmt.Errorf("%w: orderbook returned hash %s for order %s", ErrOrderbook, result.Order.OrderHash, order.Hash.Hex())
	}

	return &result, nil
}

// GetListing fetches the orderbook's view of a listing
func (c *APIClient) GetListing(ctx context.Context, chainName string, protocol common.Address, orderHash common.Hash) (*ListingResponse, error) {
	endpoint := fmt.Sprintf("/api/v2/orders/chain/%s/protocol/%s/%s", chainName, protocol.Hex(), orderHash.Hex())
	resp, err := c.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result ListingResponse
	if err := c.decodeJSONResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

func toAPIParameters(order *chain.SignedOrder) APIOrderParameters {
	c := order.Components

	offer := make([]APIItem, 0, len(c.Offer))
	for _, item := range c.Offer {
		offer = append(offer, APIItem{
			ItemType:             item.ItemType,
			Token:                item.Token.Hex(),
			IdentifierOrCriteria: bigString(item.IdentifierOrCriteria),
			StartAmount:          bigString(item.StartAmount),
			EndAmount:            bigString(item.EndAmount),
		})
	}

	consideration := make([]APIItem, 0, len(c.Consideration))
	for _, item := range c.Consideration {
		consideration = append(consideration, APIItem{
			ItemType:             item.ItemType,
			Token:                item.Token.Hex(),
			IdentifierOrCriteria: bigString(item.IdentifierOrCriteria),
			StartAmount:          bigString(item.StartAmount),
			EndAmount:            bigString(item.EndAmount),
			Recipient:            item.Recipient.Hex(),
		})
	}

	return APIOrderParameters{
		Offerer:                         c.Offerer.Hex(),
		Zone:                            c.Zone.Hex(),
		Offer:                           offer,
		Consideration:                   consideration,
		OrderType:                       c.OrderType,
		StartTime:                       bigString(c.StartTime),
		EndTime:                         bigString(c.EndTime),
		ZoneHash:                        hexutil.Encode(c.ZoneHash[:]),
		Salt:                            bigString(c.Salt),
		ConduitKey:                      hexutil.Encode(c.ConduitKey[:]),
		TotalOriginalConsiderationItems: len(c.Consideration),
		Counter:                         bigString(c.Counter),
	}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
