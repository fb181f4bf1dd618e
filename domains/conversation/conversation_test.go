package conversation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationEligible(t *testing.T) {
	cases := []struct {
		name string
		conv Conversation
		want bool
	}{
		{"open waiting", Conversation{Status: ConversationStatus{Key: "open", State: StateWaiting}}, true},
		{"open connected", Conversation{Status: ConversationStatus{Key: "open", State: StateConnected}}, true},
		{"key is case insensitive", Conversation{Status: ConversationStatus{Key: "OPEN", State: StateWaiting}}, true},
		{"closed but connected", Conversation{Status: ConversationStatus{Key: "closed", State: StateConnected}}, false},
		{"open but ended", Conversation{Status: ConversationStatus{Key: "open", State: StateEnded}}, false},
		{"missing status", Conversation{}, false},
		{"bot attender", Conversation{
			Status:     ConversationStatus{Key: "open", State: StateConnected},
			AttendedBy: &Attender{ID: "b1", IsBot: true},
		}, true},
		{"human attender", Conversation{
			Status:     ConversationStatus{Key: "open", State: StateConnected},
			AttendedBy: &Attender{ID: "op-7", Name: "Luz"},
		}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.conv.Eligible())
		})
	}
}

func TestDetectOrigin(t *testing.T) {
	assert.Equal(t, OriginBot, DetectOrigin("[Bot]: hola"))
	assert.Equal(t, OriginBot, DetectOrigin("  [Bot]:hola"))
	assert.Equal(t, OriginUser, DetectOrigin("[Usuario]: hola"))
	assert.Equal(t, OriginUnknown, DetectOrigin("hola [Bot]: x"))
	assert.Equal(t, OriginUnknown, DetectOrigin(""))
}

func TestOriginForTagAndFormat(t *testing.T) {
	assert.Equal(t, OriginBot, OriginForTag("respuesta_bot"))
	assert.Equal(t, OriginBot, OriginForTag(" Bot-Reply "))
	assert.Equal(t, OriginUser, OriginForTag("vip"))
	assert.Equal(t, OriginUser, OriginForTag(""))

	assert.Equal(t, "[Bot]: hola", FormatMessage(OriginBot, "hola"))
	assert.Equal(t, "[Usuario]: hola", FormatMessage(OriginUser, "hola"))
	assert.Equal(t, OriginBot, DetectOrigin(FormatMessage(OriginForTag("bot-reply"), "hola")))
}

func TestExternalID(t *testing.T) {
	assert.Equal(t, "whatsapp_51999", ExternalID(" 51999 "))

	phone, ok := PhoneFromExternalID("whatsapp_51999")
	assert.True(t, ok)
	assert.Equal(t, "51999", phone)

	_, ok = PhoneFromExternalID("visitor_51999")
	assert.False(t, ok)
	_, ok = PhoneFromExternalID("whatsapp_")
	assert.False(t, ok)
}

func TestNewVisitor(t *testing.T) {
	v := NewVisitor("51999", "", map[string]any{"canal": "sms", "plan": "gold"})
	assert.Equal(t, "whatsapp_51999", v.ExternalID)
	assert.Equal(t, "WhatsApp 51999", v.DisplayName)
	assert.Equal(t, map[string]any{"canal": "whatsapp", "plan": "gold"}, v.CustomFields)
}

func TestInboundMessageUnmarshal(t *testing.T) {
	var msg InboundMessage
	require.NoError(t, json.Unmarshal([]byte(`{"user_id":51999,"message":"hola","tag":"vip","custom_fields":{"plan":"gold"}}`), &msg))
	assert.Equal(t, "51999", msg.Phone)
	assert.Equal(t, "hola", msg.Text)
	assert.Equal(t, "vip", msg.Tag)
	assert.Equal(t, "gold", msg.Fields["plan"])

	msg = InboundMessage{}
	require.NoError(t, json.Unmarshal([]byte(`{"user_id":"+51 999","name":"Ana"}`), &msg))
	assert.Equal(t, "+51 999", msg.Phone)
	assert.Equal(t, "Ana", msg.DisplayName)
}
