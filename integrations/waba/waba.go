package waba

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/AzielCF/az-salesiq/core/config"
	"github.com/AzielCF/az-salesiq/domains/relay"
	pkgError "github.com/AzielCF/az-salesiq/pkg/error"
	"github.com/sirupsen/logrus"
)

// --- CONFIG ---

const (
	httpTimeout     = 15 * time.Second
	maxResponseBody = 64 << 10
)

var httpClient = &http.Client{Timeout: httpTimeout}

// ForwardingError reports a non-2xx answer from the WhatsApp gateway.
type ForwardingError struct {
	Status int
	Body   string
}

func (e *ForwardingError) Error() string {
	return fmt.Sprintf("gateway answered %d: %s", e.Status, e.Body)
}

// Client posts operator replies to the WhatsApp gateway.
type Client struct {
	cfg     config.ChannelAConfig
	timeout time.Duration
}

func NewClient(cfg config.ChannelAConfig, timeout time.Duration) *Client {
	return &Client{cfg: cfg, timeout: timeout}
}

// client returns the package client with this Client's timeout applied.
func (c *Client) client() *http.Client {
	if c.timeout <= 0 {
		return httpClient
	}
	hc := *httpClient
	hc.Timeout = c.timeout
	return &hc
}

func (c *Client) endpoint() string {
	path := c.cfg.RelayPath
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.cfg.BaseURL + path
}

// SendReply forwards one reply and returns the gateway status code. A
// missing base URL is a ConfigurationError and no request is made.
func (c *Client) SendReply(ctx context.Context, event relay.OutboundReplyEvent) (int, error) {
	if c.cfg.BaseURL == "" {
		return 0, pkgError.ConfigurationError("APP_A_URL not configured")
	}

	b, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("encode reply: %w", err)
	}

	target := c.endpoint()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client().Do(req)
	if err != nil {
		logrus.WithError(err).Errorf("[WABA] forwarding reply to %s failed", target)
		return 0, fmt.Errorf("forward reply: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	logrus.WithFields(logrus.Fields{
		"phone":  event.PhoneNumber,
		"status": resp.StatusCode,
	}).Infof("[WABA] reply forwarded to %s", target)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, &ForwardingError{Status: resp.StatusCode, Body: string(body)}
	}
	return resp.StatusCode, nil
}
