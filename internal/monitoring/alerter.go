package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/brightpath/studycoach/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertStoreDown      AlertType = "store_down"
	AlertStoreRecovered AlertType = "store_recovered"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter delivers alerts to a webhook URL.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates an Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// DownAlert builds the alert for a store that has failed enough consecutive
// probes to count as down.
func DownAlert(snap *Snapshot, streak int) Alert {
	return Alert{
		Type:     AlertStoreDown,
		Severity: "high",
		Message:  fmt.Sprintf("database unreachable for %d consecutive probes", streak),
		Details: map[string]any{
			"error":      snap.Error,
			"streak":     streak,
			"latency_ms": snap.StoreLatency.Milliseconds(),
		},
		Timestamp: snap.CollectedAt,
	}
}

// RecoveredAlert builds the all-clear alert after a down period.
func RecoveredAlert(snap *Snapshot) Alert {
	return Alert{
		Type:     AlertStoreRecovered,
		Severity: "info",
		Message:  "database reachable again",
		Details: map[string]any{
			"latency_ms": snap.StoreLatency.Milliseconds(),
		},
		Timestamp: snap.CollectedAt,
	}
}

// Send delivers one alert to the configured webhook. A missing webhook URL
// makes Send a no-op so the checker can run log-only.
func (a *Alerter) Send(ctx context.Context, alert Alert) error {
	if a.cfg.WebhookURL == "" {
		return nil
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}

	zap.L().Info("monitoring: alert sent",
		zap.String("type", string(alert.Type)),
		zap.String("severity", alert.Severity),
	)
	return nil
}
