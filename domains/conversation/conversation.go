package conversation

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/AzielCF/az-salesiq/pkg/utils"
)

const (
	// ExternalIDPrefix namespaces WhatsApp users inside SalesIQ.
	ExternalIDPrefix = "whatsapp_"
	// ChannelField is the custom field every visitor carries.
	ChannelField = "canal"
	ChannelValue = "whatsapp"
)

// ExternalID derives the SalesIQ visitor id for a phone number.
func ExternalID(phone string) string {
	return ExternalIDPrefix + strings.TrimSpace(phone)
}

// PhoneFromExternalID reverses ExternalID. ok is false for ids that were
// not produced by this bridge.
func PhoneFromExternalID(id string) (string, bool) {
	id = strings.TrimSpace(id)
	if !strings.HasPrefix(id, ExternalIDPrefix) {
		return "", false
	}
	phone := strings.TrimPrefix(id, ExternalIDPrefix)
	return phone, phone != ""
}

// Visitor is the SalesIQ identity record of a WhatsApp user.
type Visitor struct {
	ExternalID   string         `json:"id"`
	DisplayName  string         `json:"name"`
	Phone        string         `json:"contactnumber"`
	CustomFields map[string]any `json:"custom_fields"`
}

// NewVisitor builds the visitor record for phone. The channel marker is
// always present in the custom fields, whatever the caller passed.
func NewVisitor(phone, displayName string, customFields map[string]any) Visitor {
	phone = strings.TrimSpace(phone)
	if strings.TrimSpace(displayName) == "" {
		displayName = "WhatsApp " + phone
	}
	fields := make(map[string]any, len(customFields)+1)
	for k, v := range customFields {
		fields[k] = v
	}
	fields[ChannelField] = ChannelValue
	return Visitor{
		ExternalID:   ExternalID(phone),
		DisplayName:  displayName,
		Phone:        phone,
		CustomFields: fields,
	}
}

type ConversationState int

const (
	StateWaiting   ConversationState = 1
	StateConnected ConversationState = 2
	StateEnded     ConversationState = 3
)

const StatusOpen = "open"

type ConversationStatus struct {
	Key   string            `json:"key"`
	State ConversationState `json:"state"`
}

type Attender struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	IsBot bool   `json:"is_bot"`
}

type ConversationVisitor struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Conversation is the subset of a SalesIQ conversation the bridge reads.
type Conversation struct {
	ID         string              `json:"id"`
	Visitor    ConversationVisitor `json:"visitor"`
	Status     ConversationStatus  `json:"status"`
	AttendedBy *Attender           `json:"attended_by,omitempty"`
}

// Eligible reports whether the bot channel may append to the conversation:
// open, waiting or connected, and not attended by a human operator.
func (c Conversation) Eligible() bool {
	if !strings.EqualFold(c.Status.Key, StatusOpen) {
		return false
	}
	if c.Status.State != StateWaiting && c.Status.State != StateConnected {
		return false
	}
	return c.AttendedBy == nil || c.AttendedBy.IsBot
}

// InboundMessage is a message received from the WhatsApp gateway.
type InboundMessage struct {
	Phone       string         `json:"user_id"`
	Text        string         `json:"message"`
	Tag         string         `json:"tag"`
	TagColor    string         `json:"tag_color"`
	DisplayName string         `json:"name"`
	Fields      map[string]any `json:"custom_fields"`
}

// UnmarshalJSON accepts user_id and name as JSON strings or numbers; some
// gateways send the phone number unquoted.
func (m *InboundMessage) UnmarshalJSON(b []byte) error {
	type plain InboundMessage
	var raw struct {
		plain
		Phone       utils.FlexString `json:"user_id"`
		DisplayName utils.FlexString `json:"name"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*m = InboundMessage(raw.plain)
	m.Phone = raw.Phone.String()
	m.DisplayName = raw.DisplayName.String()
	return nil
}

type IResolverUsecase interface {
	HandleInboundMessage(ctx context.Context, msg InboundMessage) ResolutionOutcome
}
