package alert

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Webhook POSTs the raw Notification JSON to an arbitrary endpoint, for
// receivers that want the full niche/channel breakdown rather than a chat
// message. Payloads are HMAC-signed when a secret is configured.
type Webhook struct {
	client *http.Client
	url    string
	secret string
}

// NewWebhook creates a generic webhook notifier. An empty secret disables
// signing.
func NewWebhook(url, secret string) *Webhook {
	return &Webhook{
		client: &http.Client{Timeout: 10 * time.Second},
		url:    url,
		secret: secret,
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Send(ctx context.Context, n *Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "gapradar/1.0")
	if sig := w.sign(body); sig != "" {
		req.Header.Set("X-Signature-256", sig)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}

	return nil
}

// sign returns the GitHub-style sha256= HMAC header value for body, or ""
// when no secret is set.
func (w *Webhook) sign(body []byte) string {
	if w.secret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(w.secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
