package salesiq

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindEligibleOpenConversation(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		wantID string
		found  bool
	}{
		{
			name:   "waiting without attender",
			body:   `{"data":[{"id":"c1","visitor":{"phone":"+51 999"},"status":{"key":"open","state":1}}]}`,
			wantID: "c1",
			found:  true,
		},
		{
			name:   "connected to bot",
			body:   `{"data":[{"id":"c2","visitor":{"phone":"51999"},"status":{"key":"open","state":2},"attended_by":{"id":"b1","is_bot":true}}]}`,
			wantID: "c2",
			found:  true,
		},
		{
			name:  "connected to human operator",
			body:  `{"data":[{"id":"c3","visitor":{"phone":"51999"},"status":{"key":"open","state":2},"attended_by":{"id":"op-7","name":"Luz"}}]}`,
			found: false,
		},
		{
			name:   "empty attender object counts as none",
			body:   `{"data":[{"id":"c4","visitor":{"phone":"51999"},"status":{"key":"open","state":2},"attended_by":{}}]}`,
			wantID: "c4",
			found:  true,
		},
		{
			name:  "ended",
			body:  `{"data":[{"id":"c5","visitor":{"phone":"51999"},"status":{"key":"open","state":3}}]}`,
			found: false,
		},
		{
			name:  "closed while still connected",
			body:  `{"data":[{"id":"c11","visitor":{"phone":"51999"},"status":{"key":"closed","state":2}}]}`,
			found: false,
		},
		{
			name:  "other phone ignored even if server did not filter",
			body:  `{"data":[{"id":"c6","visitor":{"phone":"51888"},"status":{"key":"open","state":1}}]}`,
			found: false,
		},
		{
			name:   "matched by visitor id when phone is absent",
			body:   `{"data":[{"id":"c7","visitor":{"id":"whatsapp_51999"},"status":"open","state":"1"}]}`,
			wantID: "c7",
			found:  true,
		},
		{
			name:   "first eligible wins",
			body:   `{"data":[{"id":"c8","visitor":{"phone":"51999"},"status":{"key":"closed","state":3}},{"id":"c9","visitor":{"phone":"51999"},"status":{"key":"open","state":1}},{"id":"c10","visitor":{"phone":"51999"},"status":{"key":"open","state":1}}]}`,
			wantID: "c9",
			found:  true,
		},
		{
			name:  "no conversations",
			body:  `{"data":[]}`,
			found: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reqs := stubTransport(t, func(*http.Request) (int, string) { return http.StatusOK, tc.body })

			id, ok := newTestClient(testConfig()).FindEligibleOpenConversation(context.Background(), "51999")

			assert.Equal(t, tc.found, ok)
			assert.Equal(t, tc.wantID, id)
			require.Len(t, *reqs, 1)
			assert.Equal(t, http.MethodGet, (*reqs)[0].Method)
			assert.Equal(t, "https://salesiq.test/api/v2/acme/conversations?phone=51999&status=open", (*reqs)[0].URL)
		})
	}
}

func TestFindEligibleOpenConversation_LookupFailureIsNotFound(t *testing.T) {
	stubTransport(t, func(*http.Request) (int, string) { return http.StatusInternalServerError, `{"error":"boom"}` })

	id, ok := newTestClient(testConfig()).FindEligibleOpenConversation(context.Background(), "51999")
	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestCreateConversation(t *testing.T) {
	reqs := stubTransport(t, func(*http.Request) (int, string) {
		return http.StatusCreated, `{"data":{"id":"conv-1","chat_id":"77"}}`
	})

	res, err := newTestClient(testConfig()).CreateConversation(context.Background(), "whatsapp_51999", "Ana", "51999", "[Usuario]: hola")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", res.ID)
	assert.Equal(t, http.StatusCreated, res.Status)

	require.Len(t, *reqs, 1)
	req := (*reqs)[0]
	assert.Equal(t, "https://salesiq.test/visitor/v2/acme/conversations", req.URL)
	assert.Equal(t, "app-1", req.Body["app_id"])
	assert.Equal(t, "dep-1", req.Body["department_id"])
	assert.Equal(t, "[Usuario]: hola", req.Body["question"])
	assert.Equal(t, map[string]any{"user_id": "whatsapp_51999", "name": "Ana", "phone": "51999"}, req.Body["visitor"])
}

func TestCreateConversation_NotConfigured(t *testing.T) {
	reqs := stubTransport(t, func(*http.Request) (int, string) { return http.StatusOK, `{}` })
	cfg := testConfig()
	cfg.DepartmentID = ""

	_, err := newTestClient(cfg).CreateConversation(context.Background(), "whatsapp_51999", "Ana", "51999", "hola")
	assert.ErrorIs(t, err, ErrCreationNotConfigured)
	assert.Empty(t, *reqs)
}

func TestCreateConversation_Rejected(t *testing.T) {
	stubTransport(t, func(*http.Request) (int, string) {
		return http.StatusBadRequest, `{"error":{"code":1001,"message":"invalid department"}}`
	})

	res, err := newTestClient(testConfig()).CreateConversation(context.Background(), "whatsapp_51999", "Ana", "51999", "hola")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCreationNotConfigured))
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Contains(t, res.Body, "error")
}

func TestAppendMessage(t *testing.T) {
	reqs := stubTransport(t, func(*http.Request) (int, string) { return http.StatusOK, `` })

	err := newTestClient(testConfig()).AppendMessage(context.Background(), "conv 1", "[Bot]: listo")
	require.NoError(t, err)

	require.Len(t, *reqs, 1)
	assert.Equal(t, http.MethodPost, (*reqs)[0].Method)
	assert.Equal(t, "https://salesiq.test/api/v2/acme/conversations/conv%201/messages", (*reqs)[0].URL)
	assert.Equal(t, map[string]any{"text": "[Bot]: listo"}, (*reqs)[0].Body)
}

func TestAppendMessage_DeliveryError(t *testing.T) {
	stubTransport(t, func(*http.Request) (int, string) { return http.StatusForbidden, `{"error":"closed"}` })

	err := newTestClient(testConfig()).AppendMessage(context.Background(), "conv-1", "hola")

	var derr *DeliveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, http.StatusForbidden, derr.Status)
	assert.Equal(t, `{"error":"closed"}`, derr.Body)
}
