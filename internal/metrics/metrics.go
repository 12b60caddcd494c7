package metrics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"rotation-trading-btc-binance/internal/config"
	"rotation-trading-btc-binance/internal/logger"
)

type Tracker struct {
	MinTime        time.Duration
	MaxTime        time.Duration
	TotalTime      time.Duration
	CycleCount     int64
	OrdersSold     int64
	OrdersBought   int64
	OrdersCanceled int64
	StartTime      time.Time
	cfg            *config.Config
}

// MetricsPayload represents the JSON payload for the metrics API
type MetricsPayload struct {
	Strategy    string `json:"strategy"`
	Cycles      string `json:"cycles"`
	Min         string `json:"min"`
	Max         string `json:"max"`
	Avg         string `json:"avg"`
	Sells       string `json:"sells"`
	Buys        string `json:"buys"`
	Cancels     string `json:"cancels"`
	Uptime      string `json:"uptime"`
	LastUpdated string `json:"lastUpdated"`
	Now         string `json:"now"`
}

func NewTracker(cfg *config.Config) *Tracker {
	return &Tracker{
		MinTime:   time.Duration(1<<63 - 1), // Max duration
		MaxTime:   0,
		StartTime: time.Now(),
		cfg:       cfg,
	}
}

// TrackCycle records one completed wake cycle. Cycles are minutes apart, so
// every cycle is logged and reported, not batched.
func (t *Tracker) TrackCycle(duration time.Duration, sells, buys, cancels int) {
	t.CycleCount++
	t.TotalTime += duration
	t.OrdersSold += int64(sells)
	t.OrdersBought += int64(buys)
	t.OrdersCanceled += int64(cancels)

	if duration < t.MinTime {
		t.MinTime = duration
	}
	if duration > t.MaxTime {
		t.MaxTime = duration
	}

	avgTime := t.TotalTime / time.Duration(t.CycleCount)

	logger.Info("Cycle Metrics",
		"duration_ms", duration.Milliseconds(),
		"min_ms", t.MinTime.Milliseconds(),
		"max_ms", t.MaxTime.Milliseconds(),
		"avg_ms", avgTime.Milliseconds(),
		"total_cycles", t.CycleCount,
		"sells", t.OrdersSold,
		"buys", t.OrdersBought,
		"cancels", t.OrdersCanceled,
	)

	t.sendMetricsToAPI(avgTime)
}

func (t *Tracker) sendMetricsToAPI(avgTime time.Duration) {
	if t.cfg.MetricsAPIURL == "" {
		return
	}

	// Calculate uptime in seconds
	uptime := int64(time.Since(t.StartTime).Seconds())

	// Get current time in GMT-3 (America/Sao_Paulo)
	loc := time.FixedZone("GMT-3", -3*60*60)
	now := time.Now().In(loc)
	lastUpdated := now.Format("2006-01-02T15:04:05.000Z")
	nowFormatted := now.Format("2006-01-02T15:04:05Z")

	// Convert microseconds to seconds (e.g., 100ms = 0.100 seconds)
	minSec := float64(t.MinTime.Microseconds()) / 1000000.0
	maxSec := float64(t.MaxTime.Microseconds()) / 1000000.0
	avgSec := float64(avgTime.Microseconds()) / 1000000.0

	payload := MetricsPayload{
		Strategy:    "rotation-trading-btc-binance",
		Cycles:      fmt.Sprintf("%d", t.CycleCount),
		Min:         fmt.Sprintf("%.3f", minSec),
		Max:         fmt.Sprintf("%.3f", maxSec),
		Avg:         fmt.Sprintf("%.3f", avgSec),
		Sells:       fmt.Sprintf("%d", t.OrdersSold),
		Buys:        fmt.Sprintf("%d", t.OrdersBought),
		Cancels:     fmt.Sprintf("%d", t.OrdersCanceled),
		Uptime:      fmt.Sprintf("%d", uptime),
		LastUpdated: lastUpdated,
		Now:         nowFormatted,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal metrics payload", "error", err)
		return
	}

	req, err := http.NewRequest("POST", t.cfg.MetricsAPIURL, bytes.NewBuffer(jsonData))
	if err != nil {
		logger.Error("Failed to create metrics API request", "error", err)
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.cfg.MetricsAPIToken)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		logger.Error("Failed to send metrics to API", "error", err)
		return
	}
	defer resp.Body.Close()
}
