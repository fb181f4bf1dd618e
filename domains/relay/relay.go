package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/AzielCF/az-salesiq/domains/conversation"
	"github.com/AzielCF/az-salesiq/pkg/utils"
)

type EventType int

const (
	EventOther EventType = iota
	EventOperatorReplied
)

const (
	EventNameOperatorReplied = "conversation.operator.replied"
	// legacy name used by older SalesIQ webhook integrations
	EventNameAgentMessage = "agent_message"
)

// ParseEventType maps the webhook event name onto the enumerated type.
func ParseEventType(name string) EventType {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case EventNameOperatorReplied, EventNameAgentMessage:
		return EventOperatorReplied
	default:
		return EventOther
	}
}

// SenderRoleHumanAgent is the role reported to the gateway for operator replies.
const SenderRoleHumanAgent = "human_agent"

type EventSender struct {
	ID   utils.FlexString `json:"id"`
	Name utils.FlexString `json:"name"`
	Type utils.FlexString `json:"type"`
}

type EventMessage struct {
	Text   utils.FlexString `json:"text"`
	Sender *EventSender     `json:"sender"`
}

// UnmarshalJSON accepts both {"text": "..."} and a bare string.
func (m *EventMessage) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		m.Text = utils.FlexString(s)
		return nil
	}
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	type plain EventMessage
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*m = EventMessage(p)
	return nil
}

type EventVisitor struct {
	ID            utils.FlexString `json:"id"`
	Name          utils.FlexString `json:"name"`
	Phone         utils.FlexString `json:"phone"`
	ContactNumber utils.FlexString `json:"contactnumber"`
}

type EventEntity struct {
	Message *EventMessage `json:"message"`
	Visitor *EventVisitor `json:"visitor"`
}

// WebhookEvent is the SalesIQ webhook body. Every nested field is optional.
// The current shape nests everything under entity; the legacy shape keeps
// message and visitor at the top level.
type WebhookEvent struct {
	Event   string        `json:"event"`
	Entity  *EventEntity  `json:"entity"`
	Message *EventMessage `json:"message"`
	Visitor *EventVisitor `json:"visitor"`
}

func (e WebhookEvent) Type() EventType {
	return ParseEventType(e.Event)
}

// Reply is what the relay needs from an operator reply event.
type Reply struct {
	Text       string                     `json:"message"`
	SenderName string                     `json:"sender"`
	Phone      string                     `json:"phone"`
	Origin     conversation.MessageOrigin `json:"-"`
}

// Extract pulls the reply fields out of whichever shape the event uses.
// Missing fields are returned empty.
func (e WebhookEvent) Extract() Reply {
	var msgs []*EventMessage
	var visitors []*EventVisitor
	if e.Entity != nil {
		msgs = append(msgs, e.Entity.Message)
		visitors = append(visitors, e.Entity.Visitor)
	}
	msgs = append(msgs, e.Message)
	visitors = append(visitors, e.Visitor)

	var r Reply
	for _, m := range msgs {
		if m == nil {
			continue
		}
		if r.Text == "" {
			r.Text = m.Text.String()
		}
		if r.SenderName == "" && m.Sender != nil {
			r.SenderName = m.Sender.Name.String()
		}
	}
	for _, v := range visitors {
		if r.Phone != "" {
			break
		}
		r.Phone = visitorPhone(v)
	}
	r.Origin = conversation.DetectOrigin(r.Text)
	return r
}

func visitorPhone(v *EventVisitor) string {
	if v == nil {
		return ""
	}
	if p := v.Phone.String(); p != "" {
		return p
	}
	if p := v.ContactNumber.String(); p != "" {
		return p
	}
	if p, ok := conversation.PhoneFromExternalID(v.ID.String()); ok {
		return p
	}
	return ""
}

// OutboundReplyEvent is forwarded to the WhatsApp gateway.
type OutboundReplyEvent struct {
	PhoneNumber string `json:"phone_number"`
	Message     string `json:"message"`
	SenderRole  string `json:"sender_role"`
}

type OutcomeKind string

const (
	OutcomeIgnored         OutcomeKind = "IGNORED"
	OutcomeEchoIgnored     OutcomeKind = "ECHO_IGNORED"
	OutcomeIncompleteData  OutcomeKind = "INCOMPLETE_DATA"
	OutcomeForwarded       OutcomeKind = "FORWARDED"
	OutcomeForwardingError OutcomeKind = "FORWARDING_ERROR"
)

type RelayOutcome struct {
	Kind           OutcomeKind `json:"status"`
	Event          string      `json:"event,omitempty"`
	Phone          string      `json:"phone,omitempty"`
	UpstreamStatus int         `json:"app_a_status,omitempty"`
	Error          string      `json:"error,omitempty"`
}

func (o RelayOutcome) HTTPStatus() int {
	switch o.Kind {
	case OutcomeIncompleteData:
		return http.StatusBadRequest
	case OutcomeForwardingError:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

type IRelayUsecase interface {
	HandleHelpdeskWebhook(ctx context.Context, event WebhookEvent) RelayOutcome
}
