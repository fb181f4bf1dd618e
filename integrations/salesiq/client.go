package salesiq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AzielCF/az-salesiq/core/config"
	"github.com/AzielCF/az-salesiq/integrations/zohoauth"
)

// --- CONFIG ---

const (
	httpTimeout     = 15 * time.Second
	maxResponseBody = 1 << 20
)

var httpClient = &http.Client{Timeout: httpTimeout}

// invalidator is implemented by token providers that cache tokens.
type invalidator interface {
	Invalidate()
}

// Client talks to the SalesIQ REST API of one portal.
type Client struct {
	creds   zohoauth.TokenProvider
	cfg     config.ZohoConfig
	timeout time.Duration
}

func NewClient(cfg config.ZohoConfig, creds zohoauth.TokenProvider, timeout time.Duration) *Client {
	return &Client{creds: creds, cfg: cfg, timeout: timeout}
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

func (c *Client) apiURL(parts ...string) string {
	segs := make([]string, 0, len(parts)+1)
	segs = append(segs, url.PathEscape(c.cfg.PortalName))
	for _, p := range parts {
		segs = append(segs, url.PathEscape(p))
	}
	return c.cfg.APIBase + "/" + strings.Join(segs, "/")
}

func (c *Client) visitorURL(parts ...string) string {
	segs := make([]string, 0, len(parts)+1)
	segs = append(segs, url.PathEscape(c.cfg.PortalName))
	for _, p := range parts {
		segs = append(segs, url.PathEscape(p))
	}
	return c.cfg.VisitorBase + "/" + strings.Join(segs, "/")
}

// --- HELPERS: HTTP ---

// response is the raw outcome of a SalesIQ call. err is only set for
// transport failures; HTTP errors are reported through Status.
type response struct {
	Status int
	Body   []byte
}

func (r response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// decode parses the body as a JSON object. Empty or non-object bodies
// return ok=false.
func (r response) decode() (map[string]any, bool) {
	data := bytes.TrimSpace(r.Body)
	if len(data) == 0 {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil || out == nil {
		return nil, false
	}
	return out, true
}

// doRequest builds, authorizes and executes a SalesIQ request.
func (c *Client) doRequest(ctx context.Context, method, target string, body any) (response, error) {
	token, err := c.creds.AccessToken(ctx)
	if err != nil {
		return response{}, err
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return response{}, fmt.Errorf("encode request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return response{}, err
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client().Do(req)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()

	// a revoked token must not be reused until its cached expiry
	if resp.StatusCode == http.StatusUnauthorized {
		if inv, ok := c.creds.(invalidator); ok {
			inv.Invalidate()
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return response{Status: resp.StatusCode}, fmt.Errorf("read response: %w", err)
	}
	return response{Status: resp.StatusCode, Body: data}, nil
}

// truncate keeps log lines and diagnostics readable.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
