package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Binance API
	BinanceApiKey    string
	BinanceSecretKey string

	// Strategy
	QuoteAsset        string
	MinPairPrice      float64
	MinLotsSizeInBTC  float64
	MinProfitCoef     float64
	LossTimeSec       int
	TradePairsLimit   int

	// Scheduling / transport
	AwakeTimeoutSec int
	HTTPTimeoutSec  int

	// Telegram
	TelegramToken  string
	TelegramChatID string

	// Metrics
	MetricsAPIURL   string
	MetricsAPIToken string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	cfg := &Config{}
	var err error

	cfg.BinanceApiKey = os.Getenv("BINANCE_API_KEY")
	if cfg.BinanceApiKey == "" {
		return nil, fmt.Errorf("BINANCE_API_KEY is required")
	}

	cfg.BinanceSecretKey = os.Getenv("BINANCE_SECRET_KEY")
	if cfg.BinanceSecretKey == "" {
		return nil, fmt.Errorf("BINANCE_SECRET_KEY is required")
	}

	cfg.QuoteAsset = os.Getenv("QUOTE_ASSET")
	if cfg.QuoteAsset == "" {
		cfg.QuoteAsset = "BTC"
	}

	cfg.MinPairPrice, err = parseFloatOptional(os.Getenv("MIN_PAIR_PRICE"), "MIN_PAIR_PRICE", 0.000001)
	if err != nil {
		return nil, err
	}

	cfg.MinLotsSizeInBTC, err = parseFloatOptional(os.Getenv("MIN_LOTS_SIZE_IN_BTC"), "MIN_LOTS_SIZE_IN_BTC", 0.0001)
	if err != nil {
		return nil, err
	}

	cfg.MinProfitCoef, err = parseFloatOptional(os.Getenv("MIN_PROFIT_COEF"), "MIN_PROFIT_COEF", 1.04)
	if err != nil {
		return nil, err
	}

	cfg.LossTimeSec, err = parseIntOptional(os.Getenv("LOSS_TIME_SEC"), "LOSS_TIME_SEC", 604800)
	if err != nil {
		return nil, err
	}

	cfg.TradePairsLimit, err = parseIntOptional(os.Getenv("TRADE_PAIRS_LIMIT"), "TRADE_PAIRS_LIMIT", 10)
	if err != nil {
		return nil, err
	}

	cfg.AwakeTimeoutSec, err = parseIntOptional(os.Getenv("AWAKE_TIMEOUT_SEC"), "AWAKE_TIMEOUT_SEC", 300)
	if err != nil {
		return nil, err
	}

	cfg.HTTPTimeoutSec, err = parseIntOptional(os.Getenv("HTTP_TIMEOUT_SEC"), "HTTP_TIMEOUT_SEC", 10)
	if err != nil {
		return nil, err
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")

	cfg.MetricsAPIURL = os.Getenv("METRICS_API_URL")
	cfg.MetricsAPIToken = os.Getenv("METRICS_API_TOKEN")

	return cfg, nil
}

func parseFloatOptional(value, name string, fallback float64) (float64, error) {
	if value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", name, err)
	}
	return f, nil
}

func parseIntOptional(value, name string, fallback int) (int, error) {
	if value == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", name, err)
	}
	return i, nil
}
