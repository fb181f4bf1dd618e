package salesiq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/AzielCF/az-salesiq/domains/conversation"
	"github.com/AzielCF/az-salesiq/pkg/utils"
	"github.com/sirupsen/logrus"
)

// ErrCreationNotConfigured is returned by CreateConversation when the portal
// app id or department id is missing.
var ErrCreationNotConfigured = errors.New("SALESIQ_APP_ID or SALESIQ_DEPARTMENT_ID not configured")

// DeliveryError reports a non-2xx answer to a message append.
type DeliveryError struct {
	Status int
	Body   string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("message delivery failed: status=%d body=%s", e.Status, e.Body)
}

// ConversationResult is what SalesIQ answered to a conversation creation.
type ConversationResult struct {
	ID     string
	Status int
	Body   map[string]any
}

// --- WIRE MODEL ---

type wireStatus struct {
	Key   string
	State int
}

func (s *wireStatus) UnmarshalJSON(b []byte) error {
	var key utils.FlexString
	if err := json.Unmarshal(b, &key); err == nil && key.String() != "" {
		s.Key = key.String()
		return nil
	}
	var obj struct {
		Key   utils.FlexString `json:"key"`
		State utils.FlexString `json:"state"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil
	}
	s.Key = obj.Key.String()
	s.State = obj.State.Int()
	return nil
}

type wireAttender struct {
	present  bool
	attender conversation.Attender
}

func (a *wireAttender) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil || len(raw) == 0 {
		return nil
	}
	a.present = true
	a.attender.ID = utils.StringifyID(raw["id"])
	a.attender.Name, _ = raw["name"].(string)
	for _, k := range []string{"is_bot", "isBot", "isbot"} {
		if v, ok := raw[k].(bool); ok && v {
			a.attender.IsBot = true
		}
	}
	if t, ok := raw["type"].(string); ok && strings.EqualFold(t, "bot") {
		a.attender.IsBot = true
	}
	return nil
}

type wireConversation struct {
	ID             utils.FlexString `json:"id"`
	ConversationID utils.FlexString `json:"conversation_id"`
	Visitor        struct {
		ID            utils.FlexString `json:"id"`
		Name          utils.FlexString `json:"name"`
		Phone         utils.FlexString `json:"phone"`
		ContactNumber utils.FlexString `json:"contactnumber"`
	} `json:"visitor"`
	Status     wireStatus       `json:"status"`
	State      utils.FlexString `json:"state"`
	AttendedBy wireAttender     `json:"attended_by"`
	Attender   wireAttender     `json:"attender"`
}

func (w wireConversation) toDomain() conversation.Conversation {
	c := conversation.Conversation{
		ID: w.ID.String(),
		Visitor: conversation.ConversationVisitor{
			ID:    w.Visitor.ID.String(),
			Name:  w.Visitor.Name.String(),
			Phone: w.Visitor.Phone.String(),
		},
		Status: conversation.ConversationStatus{
			Key:   w.Status.Key,
			State: conversation.ConversationState(w.Status.State),
		},
	}
	if c.ID == "" {
		c.ID = w.ConversationID.String()
	}
	if c.Visitor.Phone == "" {
		c.Visitor.Phone = w.Visitor.ContactNumber.String()
	}
	if c.Status.State == 0 {
		c.Status.State = conversation.ConversationState(w.State.Int())
	}
	switch {
	case w.AttendedBy.present:
		att := w.AttendedBy.attender
		c.AttendedBy = &att
	case w.Attender.present:
		att := w.Attender.attender
		c.AttendedBy = &att
	}
	return c
}

// --- LOGIC: CONVERSATION LOOKUP ---

// ListOpenConversations fetches the open conversations for phone. The phone
// and status filters are passed to SalesIQ; callers must still filter, since
// not every portal honours them.
func (c *Client) ListOpenConversations(ctx context.Context, phone string) ([]conversation.Conversation, error) {
	q := url.Values{}
	q.Set("phone", phone)
	q.Set("status", conversation.StatusOpen)
	target := c.apiURL("conversations") + "?" + q.Encode()

	resp, err := c.doRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("list conversations: status=%d body=%s", resp.Status, truncate(resp.Body, 512))
	}

	var envelope struct {
		Data []wireConversation `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, fmt.Errorf("decode conversations: %w", err)
	}

	out := make([]conversation.Conversation, 0, len(envelope.Data))
	for _, w := range envelope.Data {
		out = append(out, w.toDomain())
	}
	return out, nil
}

// FindEligibleOpenConversation returns the first conversation of phone the
// bot channel may append to. Lookup failures are logged and reported as
// "not found".
func (c *Client) FindEligibleOpenConversation(ctx context.Context, phone string) (string, bool) {
	convs, err := c.ListOpenConversations(ctx, phone)
	if err != nil {
		logrus.WithError(err).Warnf("[SALESIQ] conversation lookup failed for %s, treating as not found", phone)
		return "", false
	}

	for _, conv := range convs {
		if !belongsTo(conv, phone) || !conv.Eligible() {
			continue
		}
		if conv.ID == "" {
			continue
		}
		logrus.Infof("[SALESIQ] eligible conversation %s found for %s", conv.ID, phone)
		return conv.ID, true
	}
	logrus.Debugf("[SALESIQ] no eligible conversation among %d for %s", len(convs), phone)
	return "", false
}

// belongsTo matches by phone digits, falling back to our visitor id.
func belongsTo(conv conversation.Conversation, phone string) bool {
	want := utils.DigitsOnly(phone)
	if got := utils.DigitsOnly(conv.Visitor.Phone); got != "" {
		return want != "" && got == want
	}
	return conv.Visitor.ID != "" && conv.Visitor.ID == conversation.ExternalID(phone)
}

// --- LOGIC: CONVERSATION CREATION ---

// CreateConversation opens a conversation for visitorID seeded with question.
func (c *Client) CreateConversation(ctx context.Context, visitorID, name, phone, question string) (ConversationResult, error) {
	if !c.cfg.ConversationCreationEnabled() {
		logrus.Info("[SALESIQ] app id or department id not configured, skipping conversation creation")
		return ConversationResult{}, ErrCreationNotConfigured
	}

	payload := map[string]any{
		"visitor": map[string]any{
			"user_id": visitorID,
			"name":    name,
			"phone":   phone,
		},
		"app_id":        c.cfg.AppID,
		"department_id": c.cfg.DepartmentID,
		"question":      question,
	}
	target := c.visitorURL("conversations")
	logrus.WithField("visitor_id", visitorID).Infof("[SALESIQ] creating conversation at %s", target)

	resp, err := c.doRequest(ctx, http.MethodPost, target, payload)
	if err != nil {
		return ConversationResult{}, fmt.Errorf("create conversation: %w", err)
	}
	logrus.Infof("[SALESIQ] create conversation: status %d body=%s", resp.Status, truncate(resp.Body, 512))

	body, ok := resp.decode()
	if !ok {
		body = map[string]any{"status_code": resp.Status, "raw": string(resp.Body)}
	}
	result := ConversationResult{
		ID:     NormalizePayload(body).ID("id", "conversation_id", "chat_id"),
		Status: resp.Status,
		Body:   body,
	}
	if result.ID == "" {
		result.ID = utils.StringifyID(body["id"])
	}
	if !resp.OK() {
		return result, fmt.Errorf("create conversation: status=%d body=%s", resp.Status, truncate(resp.Body, 512))
	}
	return result, nil
}

// --- LOGIC: MESSAGES ---

// AppendMessage posts text to an existing conversation. A 2xx answer with an
// empty or unparsable body is a success.
func (c *Client) AppendMessage(ctx context.Context, conversationID, text string) error {
	target := c.apiURL("conversations", conversationID, "messages")
	resp, err := c.doRequest(ctx, http.MethodPost, target, map[string]any{"text": text})
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	if !resp.OK() {
		return &DeliveryError{Status: resp.Status, Body: truncate(resp.Body, 1024)}
	}
	if _, ok := resp.decode(); !ok {
		logrus.Debugf("[SALESIQ] append to %s returned %d with empty body", conversationID, resp.Status)
	}
	logrus.Infof("[SALESIQ] message appended to conversation %s", conversationID)
	return nil
}
