// Package notifications posts trade confirmations and risk alerts to a
// Slack or Discord incoming webhook.
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kjannette/paper-trader/internal/httputil"
	"github.com/rs/zerolog"
)

const DefaultAppName = "PaperTrader"

type Sender struct {
	webhookURL string
	appName    string
	httpClient *http.Client
	retry      httputil.RetryConfig
	log        zerolog.Logger
}

func NewSender(webhookURL, appName string, log zerolog.Logger) *Sender {
	if appName == "" {
		appName = DefaultAppName
	}
	return &Sender{
		webhookURL: webhookURL,
		appName:    appName,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
		},
		log: log.With().Str("component", "notify").Logger(),
	}
}

// Send logs msg and, when a webhook is configured, posts it. Delivery
// failures are logged and otherwise ignored.
func (s *Sender) Send(msg string) {
	s.log.Info().Msg(msg)

	if s.webhookURL == "" {
		return
	}

	body, err := json.Marshal(s.formatPayload("[" + s.appName + "] " + msg))
	if err != nil {
		s.log.Error().Err(err).Msg("marshal webhook payload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := httputil.Do(ctx, s.httpClient, s.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		s.log.Error().Err(err).Msg("webhook delivery failed after retries")
		return
	}
	resp.Body.Close()
}

func (s *Sender) formatPayload(msg string) map[string]string {
	if strings.Contains(s.webhookURL, "discord") {
		return map[string]string{
			"content":  msg,
			"username": s.appName,
		}
	}
	return map[string]string{
		"text":     "`" + msg + "`",
		"username": s.appName,
	}
}

func (s *Sender) Enabled() bool {
	return s.webhookURL != ""
}
