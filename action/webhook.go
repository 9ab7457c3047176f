package action

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/xraph/cascade/rule"
	"github.com/xraph/cascade/signature"
)

// WebhookConfig bounds resource usage against an untrusted, tenant-configured
// target.
type WebhookConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// MaxResponseBytes caps how much of the response body is read.
	MaxResponseBytes int64

	// AllowPrivateHosts disables the SSRF guard. For local development only.
	AllowPrivateHosts bool
}

// DefaultWebhookConfig returns the production webhook bounds.
func DefaultWebhookConfig() WebhookConfig {
	return WebhookConfig{
		Timeout:          5 * time.Second,
		MaxResponseBytes: 100 * 1024,
	}
}

// WebhookHandler calls a tenant-configured HTTP target. The URL is validated
// against the SSRF guard before any network traffic; the request carries a
// short timeout and a response-size ceiling, and is HMAC-signed when the
// action config includes a secret.
//
// Config: url (required), method (default POST), headers (string map),
// body (template; defaults to the JSON-encoded event payload), secret.
type WebhookHandler struct {
	client *http.Client
	config WebhookConfig
}

// NewWebhookHandler creates the webhook handler.
func NewWebhookHandler(cfg WebhookConfig) *WebhookHandler {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxResponseBytes == 0 {
		cfg.MaxResponseBytes = 100 * 1024
	}
	return &WebhookHandler{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
	}
}

// Type implements Handler.
func (h *WebhookHandler) Type() rule.ActionType { return rule.ActionWebhook }

// Execute implements Handler.
func (h *WebhookHandler) Execute(ctx context.Context, inv Invocation) Outcome {
	url := cfgString(inv.Action.Config, "url")
	if url == "" {
		return failure("webhook: url is required")
	}

	if err := ValidateWebhookURL(url, h.config.AllowPrivateHosts); err != nil {
		return failure("webhook: %v", err)
	}

	method := cfgString(inv.Action.Config, "method")
	if method == "" {
		method = http.MethodPost
	}

	body, err := h.requestBody(inv)
	if err != nil {
		return failure("webhook: marshal payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return failure("webhook: create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Cascade/1.0")
	req.Header.Set("X-Cascade-Event-ID", inv.Event.ID.String())
	req.Header.Set("X-Cascade-Event-Type", inv.Event.Type)
	req.Header.Set("X-Cascade-Rule-ID", inv.Rule.ID.String())

	if secret := cfgString(inv.Action.Config, "secret"); secret != "" {
		ts := time.Now().Unix()
		req.Header.Set("X-Cascade-Signature", signature.Sign(body, secret, ts))
		req.Header.Set("X-Cascade-Timestamp", strconv.FormatInt(ts, 10))
	}

	if headers, ok := inv.Action.Config["headers"].(map[string]any); ok {
		for k, v := range headers {
			if s, isStr := v.(string); isStr {
				req.Header.Set(k, s)
			}
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return failure("webhook: %v", err)
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, h.config.MaxResponseBytes))
	if readErr != nil {
		return failure("webhook: read response: %v", readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failure("webhook: %s returned %d: %s", url, resp.StatusCode, truncate(string(respBody), 256))
	}

	return Outcome{Success: true}
}

// requestBody renders the configured body template, or encodes the event
// payload as JSON when no template is configured.
func (h *WebhookHandler) requestBody(inv Invocation) ([]byte, error) {
	if tmpl := cfgString(inv.Action.Config, "body"); tmpl != "" {
		return []byte(Render(tmpl, inv.Event.Payload)), nil
	}
	return json.Marshal(inv.Event.Payload)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
