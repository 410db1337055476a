package royaltysale

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
)

const (
	// WebSocket endpoint
	DefaultStreamEndpoint = "wss://stream.openseabeta.com/socket/websocket"

	// Heartbeat interval
	HeartbeatInterval = 30 * time.Second

	// Reconnect settings
	DefaultReconnectInterval    = 5 * time.Second
	DefaultMaxReconnectAttempts = 10

	eventBufferSize = 64
)

// Phoenix channel protocol events
const (
	EventJoin      = "phx_join"
	EventLeave     = "phx_leave"
	EventReply     = "phx_reply"
	EventHeartbeat = "heartbeat"

	heartbeatTopic = "phoenix"
)

// OrderEventType is the kind of marketplace event delivered by the stream
type OrderEventType string

const (
	EventItemListed    OrderEventType = "item_listed"
	EventItemSold      OrderEventType = "item_sold"
	EventItemCancelled OrderEventType = "item_cancelled"
)

// StreamMessage is a Phoenix channel frame
type StreamMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref,omitempty"`
}

type eventEnvelope struct {
	EventType string `json:"event_type"`
	SentAt    string `json:"sent_at"`
	Payload   struct {
		OrderHash string `json:"order_hash"`
		Item      struct {
			NftID string `json:"nft_id"`
		} `json:"item"`
	} `json:"payload"`
}

// OrderEvent is a decoded listing, sale or cancellation event
type OrderEvent struct {
	Type       OrderEventType
	Collection string
	OrderHash  common.Hash
	ItemID     string
	SentAt     string
}

// EventSource delivers order events until Done is closed
type EventSource interface {
	Events() <-chan OrderEvent
	Done() <-chan struct{}
}

// StreamErrorHandler is a callback function for handling stream errors
type StreamErrorHandler func(err error)

// OrderStreamConfig holds configuration for the order event stream
type OrderStreamConfig struct {
	Endpoint             string
	APIKey               string
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int
	OnError              StreamErrorHandler
	OnConnect            func()
	OnDisconnect         func()
}

// OrderStream subscribes to collection channels and delivers order events
type OrderStream struct {
	config OrderStreamConfig

	mu               sync.RWMutex
	writeMu          sync.Mutex
	conn             *websocket.Conn
	isConnected      bool
	parent           context.Context
	connCancel       context.CancelFunc
	reconnectAttempt int

	subscriptions map[string]struct{} // collection slugs, replayed on reconnect
	subMu         sync.RWMutex

	ref      uint64
	events   chan OrderEvent
	done     chan struct{}
	doneOnce sync.Once
}

// NewOrderStream creates a new order event stream
func NewOrderStream(config OrderStreamConfig) *OrderStream {
	if config.Endpoint == "" {
		config.Endpoint = DefaultStreamEndpoint
	}
	if config.ReconnectInterval == 0 {
		config.ReconnectInterval = DefaultReconnectInterval
	}
	if config.MaxReconnectAttempts == 0 {
		config.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}

	return &OrderStream{
		config:        config,
		subscriptions: make(map[string]struct{}),
		events:        make(chan OrderEvent, eventBufferSize),
		done:          make(chan struct{}),
	}
}

// Events returns the channel order events are delivered on
func (s *OrderStream) Events() <-chan OrderEvent {
	return s.events
}

// Done is closed once the stream has stopped for good
func (s *OrderStream) Done() <-chan struct{} {
	return s.done
}

// Connect establishes the stream connection. ctx bounds the stream's lifetime,
// including reconnects.
func (s *OrderStream) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isConnected {
		return nil
	}
	s.parent = ctx

	return s.dial()
}

// dial must be called with mu held
func (s *OrderStream) dial() error {
	u, err := url.Parse(s.config.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to parse stream endpoint: %w", err)
	}
	q := u.Query()
	if s.config.APIKey != "" {
		q.Set("token", s.config.APIKey)
	}
	q.Set("vsn", "1.0.0")
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(s.parent, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to stream: %w", err)
	}

	connCtx, cancel := context.WithCancel(s.parent)
	s.conn = conn
	s.connCancel = cancel
	s.isConnected = true
	s.reconnectAttempt = 0

	go s.heartbeat(connCtx)
	go s.readLoop(connCtx, conn)

	if s.config.OnConnect != nil {
		go s.config.OnConnect()
	}

	return nil
}

// Disconnect closes the connection and stops the stream
func (s *OrderStream) Disconnect() error {
	s.mu.Lock()
	err := s.closeConn()
	s.mu.Unlock()

	s.stop()
	return err
}

// closeConn must be called with mu held
func (s *OrderStream) closeConn() error {
	if !s.isConnected {
		return nil
	}
	s.isConnected = false

	if s.connCancel != nil {
		s.connCancel()
	}

	var err error
	if s.conn != nil {
		err = s.conn.Close()
		s.conn = nil
	}

	if s.config.OnDisconnect != nil {
		go s.config.OnDisconnect()
	}

	return err
}

func (s *OrderStream) stop() {
	s.doneOnce.Do(func() { close(s.done) })
}

// IsConnected returns the current connection status
func (s *OrderStream) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isConnected
}

// Subscribe joins the channel for a collection
func (s *OrderStream) Subscribe(collection string) error {
	if err := s.send(collectionTopic(collection), EventJoin); err != nil {
		return err
	}

	// Track subscription for reconnection
	s.subMu.Lock()
	s.subscriptions[collection] = struct{}{}
	s.subMu.Unlock()

	return nil
}

// Unsubscribe leaves the channel for a collection
func (s *OrderStream) Unsubscribe(collection string) error {
	if err := s.send(collectionTopic(collection), EventLeave); err != nil {
		return err
	}

	s.subMu.Lock()
	delete(s.subscriptions, collection)
	s.subMu.Unlock()

	return nil
}

// Subscriptions returns the collections currently subscribed to
func (s *OrderStream) Subscriptions() []string {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	subs := make([]string, 0, len(s.subscriptions))
	for collection := range s.subscriptions {
		subs = append(subs, collection)
	}
	return subs
}

const collectionTopicPrefix = "collection:"

func collectionTopic(collection string) string {
	return collectionTopicPrefix + collection
}

// send writes a frame over the connection
func (s *OrderStream) send(topic, event string) error {
	s.mu.RLock()
	conn := s.conn
	connected := s.isConnected
	s.mu.RUnlock()

	if !connected || conn == nil {
		return fmt.Errorf("stream not connected")
	}

	msg := StreamMessage{
		Topic:   topic,
		Event:   event,
		Payload: json.RawMessage("{}"),
		Ref:     strconv.FormatUint(atomic.AddUint64(&s.ref, 1), 10),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

func (s *OrderStream) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.send(heartbeatTopic, EventHeartbeat); err != nil {
				s.reportError(fmt.Errorf("heartbeat failed: %w", err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// readLoop continuously reads frames until the connection fails or ctx ends
func (s *OrderStream) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.reportError(fmt.Errorf("read error: %w", err))
			}
			s.handleDisconnect(conn)
			return
		}

		event, ok, err := decodeOrderEvent(data)
		if err != nil {
			s.reportError(err)
			continue
		}
		if !ok {
			continue
		}

		select {
		case s.events <- event:
		case <-ctx.Done():
			return
		}
	}
}

// decodeOrderEvent decodes a frame; ok is false for protocol frames and
// event types that do not concern orders
func decodeOrderEvent(data []byte) (OrderEvent, bool, error) {
	var msg StreamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return OrderEvent{}, false, fmt.Errorf("failed to decode stream message: %w", err)
	}

	eventType := OrderEventType(msg.Event)
	switch eventType {
	case EventItemListed, EventItemSold, EventItemCancelled:
	default:
		return OrderEvent{}, false, nil
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		return OrderEvent{}, false, fmt.Errorf("failed to decode %s payload: %w", msg.Event, err)
	}
	if envelope.Payload.OrderHash == "" {
		return OrderEvent{}, false, nil
	}

	return OrderEvent{
		Type:       eventType,
		Collection: strings.TrimPrefix(msg.Topic, collectionTopicPrefix),
		OrderHash:  common.HexToHash(envelope.Payload.OrderHash),
		ItemID:     envelope.Payload.Item.NftID,
		SentAt:     envelope.SentAt,
	}, true, nil
}

// handleDisconnect tears down a failed connection and attempts reconnection
func (s *OrderStream) handleDisconnect(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}
	_ = s.closeConn()
	s.mu.Unlock()

	go s.attemptReconnect()
}

func (s *OrderStream) attemptReconnect() {
	for {
		s.mu.Lock()
		if s.reconnectAttempt >= s.config.MaxReconnectAttempts {
			s.mu.Unlock()
			break
		}
		s.reconnectAttempt++
		attempt := s.reconnectAttempt
		parent := s.parent
		s.mu.Unlock()

		select {
		case <-parent.Done():
			s.stop()
			return
		case <-s.done:
			return
		case <-time.After(s.config.ReconnectInterval):
		}

		s.mu.Lock()
		err := s.dial()
		s.mu.Unlock()
		if err != nil {
			s.reportError(fmt.Errorf("reconnect attempt %d failed: %w", attempt, err))
			continue
		}

		// Resubscribe to all channels
		s.resubscribe()
		return
	}

	s.reportError(fmt.Errorf("max reconnect attempts (%d) reached", s.config.MaxReconnectAttempts))
	s.stop()
}

// resubscribe rejoins all tracked collections
func (s *OrderStream) resubscribe() {
	for _, collection := range s.Subscriptions() {
		if err := s.send(collectionTopic(collection), EventJoin); err != nil {
			s.reportError(fmt.Errorf("resubscribe failed: %w", err))
		}
	}
}

func (s *OrderStream) reportError(err error) {
	if s.config.OnError != nil {
		s.config.OnError(err)
	}
}
