package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"rotation-trading-btc-binance/internal/config"
	"rotation-trading-btc-binance/internal/logger"
)

type TelegramService struct {
	Cfg *config.Config
}

func NewTelegramService(cfg *config.Config) *TelegramService {
	return &TelegramService{
		Cfg: cfg,
	}
}

func (s *TelegramService) SendMessage(text string) {
	if s.Cfg.TelegramToken == "" || s.Cfg.TelegramChatID == "" {
		logger.Warn("Telegram credentials not set, skipping message")
		return
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.Cfg.TelegramToken)
	payload := map[string]string{
		"chat_id":    s.Cfg.TelegramChatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal Telegram payload", "error", err)
		return
	}

	// Send async
	go func() {
		resp, err := http.Post(url, "application/json", bytes.NewBuffer(jsonPayload))
		if err != nil {
			logger.Error("Failed to send Telegram message", "error", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			logger.Error("Telegram API error", "status", resp.Status)
		}
	}()
}

// SendCycleSummary notifies about a completed cycle that moved at least one
// order.
func (s *TelegramService) SendCycleSummary(cycle int64, cancelled, sells, buys int) {
	now := time.Now().Format("02/01/2006, 15:04:05")
	msg := fmt.Sprintf(
		"🤖 Rotation Trading - BTC - Binance\n"+
			"🔄 Cycle: %d\n"+
			"🗑 Cancelled BUYs: %d\n"+
			"🔴 SELL orders: %d\n"+
			"🟢 BUY orders: %d\n"+
			"📅 Date: %s",
		cycle,
		cancelled,
		sells,
		buys,
		now,
	)
	s.SendMessage(msg)
}

func (s *TelegramService) SendCycleError(cycle int64, cause error) {
	now := time.Now().Format("02/01/2006, 15:04:05")
	msg := fmt.Sprintf(
		"⚠️ *Rotation Trading - Cycle Aborted*\n\n"+
			"🔄 Cycle: %d\n"+
			"❌ Cause: %v\n"+
			"⏭ The bot will retry on the next wake.\n\n"+
			"📅 %s",
		cycle,
		cause,
		now,
	)
	s.SendMessage(msg)
}
