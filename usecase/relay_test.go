package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	domainRelay "github.com/AzielCF/az-salesiq/domains/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockReplySender struct {
	mock.Mock
}

func (m *MockReplySender) SendReply(ctx context.Context, event domainRelay.OutboundReplyEvent) (int, error) {
	args := m.Called(ctx, event)
	return args.Int(0), args.Error(1)
}

func decodeEvent(t *testing.T, raw string) domainRelay.WebhookEvent {
	t.Helper()
	var event domainRelay.WebhookEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &event))
	return event
}

func TestHandleHelpdeskWebhook_ForwardsOperatorReply(t *testing.T) {
	sender := new(MockReplySender)
	sender.On("SendReply", mock.Anything, domainRelay.OutboundReplyEvent{
		PhoneNumber: "5551234",
		Message:     "Hola, te ayudo",
		SenderRole:  "human_agent",
	}).Return(http.StatusOK, nil)

	event := decodeEvent(t, `{
		"event": "conversation.operator.replied",
		"entity": {
			"message": {"text": "Hola, te ayudo", "sender": {"name": "Luz", "id": 42}},
			"visitor": {"phone": "5551234", "id": "whatsapp_5551234"}
		}
	}`)
	out := NewRelayService(sender).HandleHelpdeskWebhook(context.Background(), event)

	assert.Equal(t, domainRelay.OutcomeForwarded, out.Kind)
	assert.Equal(t, http.StatusOK, out.HTTPStatus())
	assert.Equal(t, http.StatusOK, out.UpstreamStatus)
	sender.AssertExpectations(t)
}

func TestHandleHelpdeskWebhook_PhoneFromVisitorID(t *testing.T) {
	sender := new(MockReplySender)
	sender.On("SendReply", mock.Anything, mock.MatchedBy(func(e domainRelay.OutboundReplyEvent) bool {
		return e.PhoneNumber == "5551234" && e.Message == "listo"
	})).Return(http.StatusAccepted, nil)

	event := decodeEvent(t, `{"event":"agent_message","message":{"text":"listo"},"visitor":{"id":"whatsapp_5551234"}}`)
	out := NewRelayService(sender).HandleHelpdeskWebhook(context.Background(), event)

	assert.Equal(t, domainRelay.OutcomeForwarded, out.Kind)
	sender.AssertExpectations(t)
}

func TestHandleHelpdeskWebhook_IgnoresOtherEvents(t *testing.T) {
	sender := new(MockReplySender)

	for _, raw := range []string{`{"event":"visitor_message"}`, `{}`, `{"event":"conversation.visitor.replied","entity":{"message":{"text":"x"}}}`} {
		out := NewRelayService(sender).HandleHelpdeskWebhook(context.Background(), decodeEvent(t, raw))
		assert.Equal(t, domainRelay.OutcomeIgnored, out.Kind, raw)
		assert.Equal(t, http.StatusOK, out.HTTPStatus())
	}
	sender.AssertNotCalled(t, "SendReply", mock.Anything, mock.Anything)
}

func TestHandleHelpdeskWebhook_EchoFilter(t *testing.T) {
	sender := new(MockReplySender)

	cases := []string{
		`{"event":"conversation.operator.replied","entity":{"message":{"text":"[Bot]: hola","sender":{"name":"Bot"}},"visitor":{"phone":"5551234"}}}`,
		`{"event":"conversation.operator.replied","entity":{"message":{"text":"[Usuario]: hola","sender":{"name":"Luz"}},"visitor":{"phone":"5551234"}}}`,
	}
	for _, raw := range cases {
		out := NewRelayService(sender).HandleHelpdeskWebhook(context.Background(), decodeEvent(t, raw))
		assert.Equal(t, domainRelay.OutcomeEchoIgnored, out.Kind, raw)
		assert.Equal(t, http.StatusOK, out.HTTPStatus())
	}
	sender.AssertNotCalled(t, "SendReply", mock.Anything, mock.Anything)
}

func TestHandleHelpdeskWebhook_IncompleteData(t *testing.T) {
	sender := new(MockReplySender)

	cases := []string{
		`{"event":"conversation.operator.replied","entity":{"message":{"text":"hola"}}}`,
		`{"event":"conversation.operator.replied","entity":{"message":{"text":"   "},"visitor":{"phone":"5551234"}}}`,
		`{"event":"conversation.operator.replied","entity":{"visitor":{"id":"zoho-123"},"message":{"text":"hola"}}}`,
	}
	for _, raw := range cases {
		out := NewRelayService(sender).HandleHelpdeskWebhook(context.Background(), decodeEvent(t, raw))
		assert.Equal(t, domainRelay.OutcomeIncompleteData, out.Kind, raw)
		assert.Equal(t, http.StatusBadRequest, out.HTTPStatus())
	}
	sender.AssertNotCalled(t, "SendReply", mock.Anything, mock.Anything)
}

func TestHandleHelpdeskWebhook_ForwardingError(t *testing.T) {
	sender := new(MockReplySender)
	sender.On("SendReply", mock.Anything, mock.Anything).Return(http.StatusBadGateway, errors.New("gateway answered 502"))

	event := decodeEvent(t, `{"event":"conversation.operator.replied","entity":{"message":{"text":"hola"},"visitor":{"phone":"5551234"}}}`)
	out := NewRelayService(sender).HandleHelpdeskWebhook(context.Background(), event)

	assert.Equal(t, domainRelay.OutcomeForwardingError, out.Kind)
	assert.Equal(t, http.StatusInternalServerError, out.HTTPStatus())
	assert.Equal(t, http.StatusBadGateway, out.UpstreamStatus)
	sender.AssertNumberOfCalls(t, "SendReply", 1)
}
