package salesiq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/AzielCF/az-salesiq/core/config"
	"github.com/AzielCF/az-salesiq/integrations/zohoauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

type staticToken struct {
	token string
	err   error
}

func (s staticToken) AccessToken(context.Context) (string, error) {
	return s.token, s.err
}

type recordedRequest struct {
	Method string
	URL    string
	Auth   string
	Body   map[string]any
}

// stubTransport swaps the package http client for the duration of the test
// and answers each request with handler.
func stubTransport(t *testing.T, handler func(req *http.Request) (int, string)) *[]recordedRequest {
	t.Helper()
	origClient := httpClient
	t.Cleanup(func() { httpClient = origClient })

	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	httpClient = &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			rec := recordedRequest{
				Method: req.Method,
				URL:    req.URL.String(),
				Auth:   req.Header.Get("Authorization"),
			}
			if req.Body != nil {
				b, _ := io.ReadAll(req.Body)
				if len(b) > 0 {
					_ = json.Unmarshal(b, &rec.Body)
				}
			}
			mu.Lock()
			reqs = append(reqs, rec)
			mu.Unlock()

			status, body := handler(req)
			return &http.Response{
				StatusCode: status,
				Body:       io.NopCloser(bytes.NewReader([]byte(body))),
				Header:     make(http.Header),
			}, nil
		}),
	}
	return &reqs
}

func testConfig() config.ZohoConfig {
	return config.ZohoConfig{
		PortalName:   "acme",
		APIBase:      "https://salesiq.test/api/v2",
		VisitorBase:  "https://salesiq.test/visitor/v2",
		AppID:        "app-1",
		DepartmentID: "dep-1",
	}
}

func newTestClient(cfg config.ZohoConfig) *Client {
	return &Client{creds: staticToken{token: "tok-123"}, cfg: cfg}
}

func TestEnsureVisitor_SendsDeterministicID(t *testing.T) {
	reqs := stubTransport(t, func(*http.Request) (int, string) {
		return http.StatusOK, `{"data":{"id":"whatsapp_51999"}}`
	})

	body, status := newTestClient(testConfig()).EnsureVisitor(context.Background(), "51999", "", nil)

	require.Len(t, *reqs, 1)
	req := (*reqs)[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "https://salesiq.test/api/v2/acme/visitors", req.URL)
	assert.Equal(t, "Zoho-oauthtoken tok-123", req.Auth)
	assert.Equal(t, "whatsapp_51999", req.Body["id"])
	assert.Equal(t, "WhatsApp 51999", req.Body["name"])
	assert.Equal(t, "51999", req.Body["contactnumber"])
	assert.Equal(t, map[string]any{"canal": "whatsapp"}, req.Body["custom_fields"])

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "whatsapp_51999", VisitorID(body))
}

func TestEnsureVisitor_KeepsCustomFieldsAndForcesChannel(t *testing.T) {
	reqs := stubTransport(t, func(*http.Request) (int, string) { return http.StatusOK, `{}` })

	newTestClient(testConfig()).EnsureVisitor(context.Background(), "51999", "Ana", map[string]any{
		"plan":  "gold",
		"canal": "sms",
	})

	require.Len(t, *reqs, 1)
	assert.Equal(t, "Ana", (*reqs)[0].Body["name"])
	assert.Equal(t, map[string]any{"plan": "gold", "canal": "whatsapp"}, (*reqs)[0].Body["custom_fields"])
}

func TestEnsureVisitor_NoCredentials(t *testing.T) {
	reqs := stubTransport(t, func(*http.Request) (int, string) { return http.StatusOK, `{}` })
	c := &Client{creds: staticToken{err: zohoauth.ErrNoCredentials}, cfg: testConfig()}

	body, status := c.EnsureVisitor(context.Background(), "51999", "", nil)

	assert.Empty(t, *reqs)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "no_access_token", body["error"])
}

func TestEnsureVisitor_UnparsableBody(t *testing.T) {
	stubTransport(t, func(*http.Request) (int, string) { return http.StatusOK, `<html>ok</html>` })

	body, status := newTestClient(testConfig()).EnsureVisitor(context.Background(), "51999", "", nil)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "invalid_response", body["error"])
	assert.Equal(t, "<html>ok</html>", body["raw"])
	assert.Empty(t, VisitorID(body))
}

func TestEnsureVisitor_TransportError(t *testing.T) {
	origClient := httpClient
	t.Cleanup(func() { httpClient = origClient })
	httpClient = &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})}

	body, status := newTestClient(testConfig()).EnsureVisitor(context.Background(), "51999", "", nil)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, body["error"], "connection refused")
}

type invalidatingToken struct {
	staticToken
	invalidated int
}

func (i *invalidatingToken) Invalidate() { i.invalidated++ }

func TestDoRequest_UnauthorizedInvalidatesToken(t *testing.T) {
	stubTransport(t, func(*http.Request) (int, string) {
		return http.StatusUnauthorized, `{"error":{"code":1008,"message":"invalid oauth token"}}`
	})
	creds := &invalidatingToken{staticToken: staticToken{token: "stale"}}
	c := &Client{creds: creds, cfg: testConfig()}

	_, status := c.EnsureVisitor(context.Background(), "51999", "", nil)

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 1, creds.invalidated)
}

func TestNewClient_TimeoutIsPerClient(t *testing.T) {
	orig := httpClient.Timeout

	fast := NewClient(testConfig(), staticToken{token: "a"}, 10*time.Second)
	slow := NewClient(testConfig(), staticToken{token: "b"}, 20*time.Second)

	assert.Equal(t, orig, httpClient.Timeout)
	assert.Equal(t, 10*time.Second, fast.client().Timeout)
	assert.Equal(t, 20*time.Second, slow.client().Timeout)
	assert.Same(t, httpClient, newTestClient(testConfig()).client())
}

func TestNewClient_KeepsTransportSeam(t *testing.T) {
	reqs := stubTransport(t, func(*http.Request) (int, string) { return http.StatusOK, `{}` })

	NewClient(testConfig(), staticToken{token: "tok"}, 12*time.Second).EnsureVisitor(context.Background(), "51999", "", nil)

	require.Len(t, *reqs, 1)
	assert.Equal(t, "Zoho-oauthtoken tok", (*reqs)[0].Auth)
}

func TestNormalizePayload(t *testing.T) {
	single := NormalizePayload(map[string]any{"data": map[string]any{"id": "v1"}})
	assert.Equal(t, PayloadSingle, single.Kind)
	assert.Equal(t, "v1", single.ID())

	many := NormalizePayload(map[string]any{"data": []any{map[string]any{"visitor_id": json.Number("42")}, "junk"}})
	assert.Equal(t, PayloadMany, many.Kind)
	assert.Len(t, many.Many, 1)
	assert.Equal(t, "42", many.ID("id", "visitor_id"))

	none := NormalizePayload(map[string]any{"data": "nope"})
	assert.Equal(t, PayloadNone, none.Kind)
	assert.Nil(t, none.First())
	assert.Equal(t, PayloadNone, NormalizePayload(nil).Kind)
}
