package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"rotation-trading-btc-binance/internal/api"
	"rotation-trading-btc-binance/internal/logger"
)

const (
	StreamBaseURL = "wss://stream.binance.com:9443/ws"
)

// OrderUpdate represents the payload from executionReport event
type OrderUpdate struct {
	Event         string `json:"e"` // Event type
	EventTime     int64  `json:"E"`
	Symbol        string `json:"s"`
	ClientOrderID string `json:"c"`
	Side          string `json:"S"`
	Type          string `json:"o"`
	TimeInForce   string `json:"f"`
	Quantity      string `json:"q"`
	Price         string `json:"p"`
	OriginalID    string `json:"C"` // Original client order ID
	ExecutionType string `json:"x"` // Current execution type (NEW, CANCELED, REPLACED, REJECTED, TRADE, EXPIRED)
	Status        string `json:"X"` // Current order status (NEW, PARTIALLY_FILLED, FILLED, CANCELED, PENDING_CANCEL, REJECTED, EXPIRED)
	RejectReason  string `json:"r"`
	OrderID       int64  `json:"i"` // Order ID
	LastExecQty   string `json:"l"` // Last executed quantity
	CumExecQty    string `json:"z"` // Cumulative executed quantity
	LastExecPrice string `json:"L"` // Last executed price
	Commission    string `json:"n"` // Commission amount
	CommAsset     string `json:"N"` // Commission asset
	TxTime        int64  `json:"T"` // Transaction time
	TradeID       int64  `json:"t"` // Trade ID
	IsWorking     bool   `json:"w"` // Is the order on the book?
	IsMaker       bool   `json:"m"` // Is this trade the maker side?
	OrderCreation int64  `json:"O"` // Order creation time
	CumQuoteQty   string `json:"Z"` // Cumulative quote asset transacted quantity
}

// StreamService watches the user data stream and surfaces executionReport
// events. The strategy never consumes fills; this exists for observation.
type StreamService struct {
	Binance     *api.BinanceGateway
	ListenKey   string
	WSConn      *websocket.Conn
	Updates     chan OrderUpdate
	StopCh      chan struct{}
	IsConnected bool
}

func NewStreamService(binance *api.BinanceGateway) *StreamService {
	return &StreamService{
		Binance: binance,
		Updates: make(chan OrderUpdate, 100),
		// StopCh initialized in Start()
	}
}

func (s *StreamService) Start(ctx context.Context) error {
	// 1. Get Listen Key
	key, err := s.Binance.StartUserStream(ctx)
	if err != nil {
		return fmt.Errorf("failed to get listen key: %w", err)
	}
	s.ListenKey = key
	logger.Info("🔑 ListenKey acquired")

	// 2. Connect to WebSocket
	url := fmt.Sprintf("%s/%s", StreamBaseURL, s.ListenKey)
	c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to websocket: %w", err)
	}
	s.WSConn = c
	s.IsConnected = true
	logger.Info("📡 WebSocket Connected to Binance User Stream")

	// 3. Start KeepAlive Loop (30m)
	s.StopCh = make(chan struct{}) // Reset stop channel for new connection
	go s.keepAliveLoop(ctx)

	// 4. Start Reading Loop (Blocking)
	s.readLoop()

	return nil
}

func (s *StreamService) keepAliveLoop(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.StopCh:
			return
		case <-ticker.C:
			if err := s.Binance.KeepAliveUserStream(ctx, s.ListenKey); err != nil {
				logger.Error("❌ Failed to keep alive listen key", "error", err)
			} else {
				logger.Debug("💓 ListenKey KeepAlive sent")
			}
		}
	}
}

func (s *StreamService) readLoop() {
	defer func() {
		if s.WSConn != nil {
			s.WSConn.Close()
		}
		s.IsConnected = false
		logger.Warn("🔌 WebSocket Connection Closed")
	}()

	for {
		select {
		case <-s.StopCh:
			return
		default:
			_, message, err := s.WSConn.ReadMessage()
			if err != nil {
				logger.Error("❌ WebSocket Read Error", "error", err)
				return
			}

			// The stream mixes event types; the 'e' field discriminates.
			// Optimistic unmarshal works since unknown fields are ignored.
			var event OrderUpdate
			if err := json.Unmarshal(message, &event); err != nil {
				logger.Error("❌ Failed to parse WebSocket message", "error", err, "msg", string(message))
				continue
			}

			if event.Event == "executionReport" {
				s.Updates <- event
			}
		}
	}
}

func (s *StreamService) Stop() error {
	logger.Info("🛑 Stopping Stream Service...")
	close(s.StopCh)
	if s.ListenKey != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Binance.CloseUserStream(ctx, s.ListenKey)
	}
	if s.WSConn != nil {
		return s.WSConn.Close()
	}
	return nil
}
