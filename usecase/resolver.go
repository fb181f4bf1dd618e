package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	domainConversation "github.com/AzielCF/az-salesiq/domains/conversation"
	"github.com/AzielCF/az-salesiq/integrations/salesiq"
	"github.com/AzielCF/az-salesiq/pkg/lease"
	"github.com/AzielCF/az-salesiq/validations"
	"github.com/sirupsen/logrus"
)

// SalesIQGateway is the part of the SalesIQ client the resolver drives.
type SalesIQGateway interface {
	EnsureVisitor(ctx context.Context, phone, displayName string, customFields map[string]any) (map[string]any, int)
	FindEligibleOpenConversation(ctx context.Context, phone string) (string, bool)
	CreateConversation(ctx context.Context, visitorID, name, phone, question string) (salesiq.ConversationResult, error)
	AppendMessage(ctx context.Context, conversationID, text string) error
	GetOrCreateTag(ctx context.Context, name, color, module string) (string, map[string]any)
	AssociateTags(ctx context.Context, module, recordID string, tagIDs []string) map[string]any
}

type serviceResolver struct {
	salesiq SalesIQGateway
	locker  lease.Locker
}

func NewResolverService(gateway SalesIQGateway, locker lease.Locker) domainConversation.IResolverUsecase {
	if locker == nil {
		locker = lease.NopLocker{}
	}
	return &serviceResolver{
		salesiq: gateway,
		locker:  locker,
	}
}

func (service serviceResolver) HandleInboundMessage(ctx context.Context, msg domainConversation.InboundMessage) domainConversation.ResolutionOutcome {
	msg.Phone = strings.TrimSpace(msg.Phone)
	if err := validations.ValidateInboundMessage(ctx, msg); err != nil {
		logrus.Warnf("[RESOLVER] rejected inbound message: %v", err)
		return domainConversation.ResolutionOutcome{Kind: domainConversation.OutcomeMissingPhone, Error: err.Error()}
	}

	log := logrus.WithFields(logrus.Fields{"phone": msg.Phone, "tag": msg.Tag})

	// a marker means the text was injected by this bridge and came back
	if origin := domainConversation.DetectOrigin(msg.Text); origin != domainConversation.OriginUnknown {
		log.Infof("[RESOLVER] %s marker detected, ignoring to prevent a loop", origin)
		return domainConversation.ResolutionOutcome{Kind: domainConversation.OutcomeLoopPrevented}
	}

	name := displayName(msg)
	visitorID := domainConversation.ExternalID(msg.Phone)

	if strings.TrimSpace(msg.Text) == "" {
		body, status := service.salesiq.EnsureVisitor(ctx, msg.Phone, name, msg.Fields)
		out := domainConversation.ResolutionOutcome{
			Kind:          domainConversation.OutcomeProfileUpdated,
			VisitorID:     visitorID,
			Visitor:       body,
			VisitorStatus: status,
		}
		if id := registeredVisitorID(body, status, visitorID); id != "" {
			out.VisitorID = id
			out.Tag = service.applyTag(ctx, msg, "visitors", id)
		}
		log.Infof("[RESOLVER] profile-only update, visitor status %d", status)
		return out
	}

	message := domainConversation.FormatMessage(domainConversation.OriginForTag(msg.Tag), msg.Text)

	release, err := service.locker.Acquire(ctx, msg.Phone)
	if err != nil {
		log.WithError(err).Warn("[RESOLVER] could not acquire lease, continuing without it")
	} else {
		defer release()
	}

	if convID, ok := service.salesiq.FindEligibleOpenConversation(ctx, msg.Phone); ok {
		out := domainConversation.ResolutionOutcome{
			Kind:           domainConversation.OutcomeAppended,
			ConversationID: convID,
			VisitorID:      visitorID,
			Message:        message,
		}
		if err := service.salesiq.AppendMessage(ctx, convID, message); err != nil {
			log.WithError(err).Errorf("[RESOLVER] append to conversation %s failed", convID)
			out.Kind = domainConversation.OutcomeDeliveryFailed
			out.Error = err.Error()
			var derr *salesiq.DeliveryError
			if errors.As(err, &derr) {
				out.Conversation = map[string]any{"status_code": derr.Status, "raw": derr.Body}
			}
			return out
		}
		out.Tag = service.applyTag(ctx, msg, "visitors", visitorID)
		log.Infof("[RESOLVER] appended to conversation %s", convID)
		return out
	}

	body, status := service.salesiq.EnsureVisitor(ctx, msg.Phone, name, msg.Fields)
	registered := registeredVisitorID(body, status, visitorID)
	if registered == "" {
		log.Errorf("[RESOLVER] visitor registration failed with status %d", status)
		return domainConversation.ResolutionOutcome{
			Kind:          domainConversation.OutcomeVisitorCreationFailed,
			Visitor:       body,
			VisitorStatus: status,
			Message:       message,
			Error:         "visitor registration returned no usable id",
		}
	}

	out := domainConversation.ResolutionOutcome{
		VisitorID:     registered,
		Visitor:       body,
		VisitorStatus: status,
		Message:       message,
	}
	out.Tag = service.applyTag(ctx, msg, "visitors", registered)

	conv, err := service.salesiq.CreateConversation(ctx, registered, name, msg.Phone, message)
	switch {
	case errors.Is(err, salesiq.ErrCreationNotConfigured):
		out.Kind = domainConversation.OutcomeCreationSkipped
		log.Info("[RESOLVER] visitor registered, conversation creation not configured")
	case err != nil:
		out.Kind = domainConversation.OutcomeCreationFailed
		out.Error = err.Error()
		out.Conversation = conv.Body
		log.WithError(err).Error("[RESOLVER] conversation creation failed")
	default:
		out.Kind = domainConversation.OutcomeCreated
		out.ConversationID = conv.ID
		out.Conversation = conv.Body
		if out.Tag != nil && out.Tag.ID != "" && conv.ID != "" {
			service.salesiq.AssociateTags(ctx, "conversations", conv.ID, []string{out.Tag.ID})
		}
		log.Infof("[RESOLVER] conversation %s created", conv.ID)
	}
	return out
}

// applyTag resolves and attaches the optional tag. Its result is reported
// for diagnostics only.
func (service serviceResolver) applyTag(ctx context.Context, msg domainConversation.InboundMessage, module, recordID string) *domainConversation.TagResult {
	name := strings.TrimSpace(msg.Tag)
	if name == "" {
		return nil
	}
	res := &domainConversation.TagResult{Name: name}
	id, info := service.salesiq.GetOrCreateTag(ctx, name, msg.TagColor, salesiq.DefaultTagModule)
	if id == "" {
		res.Error = "tag could not be resolved"
		res.Associate = info
		return res
	}
	res.ID = id
	if s, ok := info["status"].(string); ok {
		res.Status = s
	}
	res.Associate = service.salesiq.AssociateTags(ctx, module, recordID, []string{id})
	return res
}

// registeredVisitorID returns the id SalesIQ reported for the visitor, the
// deterministic fallback when a 2xx body carries none, or "" on failure.
func registeredVisitorID(body map[string]any, status int, fallback string) string {
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return ""
	}
	if id := salesiq.VisitorID(body); id != "" {
		return id
	}
	return fallback
}

func displayName(msg domainConversation.InboundMessage) string {
	if n := strings.TrimSpace(msg.DisplayName); n != "" {
		return n
	}
	return "WhatsApp " + msg.Phone
}
