package usecase

import (
	"context"
	"strings"

	domainConversation "github.com/AzielCF/az-salesiq/domains/conversation"
	domainRelay "github.com/AzielCF/az-salesiq/domains/relay"
	"github.com/AzielCF/az-salesiq/validations"
	"github.com/sirupsen/logrus"
)

// ReplySender delivers operator replies to the WhatsApp gateway.
type ReplySender interface {
	SendReply(ctx context.Context, event domainRelay.OutboundReplyEvent) (int, error)
}

type serviceRelay struct {
	sender ReplySender
}

func NewRelayService(sender ReplySender) domainRelay.IRelayUsecase {
	return &serviceRelay{sender: sender}
}

func (service serviceRelay) HandleHelpdeskWebhook(ctx context.Context, event domainRelay.WebhookEvent) domainRelay.RelayOutcome {
	if event.Type() != domainRelay.EventOperatorReplied {
		logrus.Debugf("[RELAY] ignoring event %q", event.Event)
		return domainRelay.RelayOutcome{Kind: domainRelay.OutcomeIgnored, Event: event.Event}
	}

	reply := event.Extract()
	log := logrus.WithFields(logrus.Fields{"event": event.Event, "phone": reply.Phone, "sender": reply.SenderName})

	if reply.Origin != domainConversation.OriginUnknown {
		if strings.EqualFold(reply.SenderName, "Bot") {
			log.Info("[RELAY] bot echo ignored")
		} else {
			log.Infof("[RELAY] %s marker detected, echo ignored", reply.Origin)
		}
		return domainRelay.RelayOutcome{Kind: domainRelay.OutcomeEchoIgnored, Event: event.Event, Phone: reply.Phone}
	}

	reply.Text = strings.TrimSpace(reply.Text)
	if err := validations.ValidateReplyEvent(ctx, reply); err != nil {
		log.Warnf("[RELAY] incomplete operator reply: %v", err)
		return domainRelay.RelayOutcome{
			Kind:  domainRelay.OutcomeIncompleteData,
			Event: event.Event,
			Phone: reply.Phone,
			Error: err.Error(),
		}
	}

	status, err := service.sender.SendReply(ctx, domainRelay.OutboundReplyEvent{
		PhoneNumber: reply.Phone,
		Message:     reply.Text,
		SenderRole:  domainRelay.SenderRoleHumanAgent,
	})
	if err != nil {
		log.WithError(err).Error("[RELAY] forwarding to gateway failed")
		return domainRelay.RelayOutcome{
			Kind:           domainRelay.OutcomeForwardingError,
			Event:          event.Event,
			Phone:          reply.Phone,
			UpstreamStatus: status,
			Error:          err.Error(),
		}
	}

	log.Infof("[RELAY] operator reply forwarded, gateway status %d", status)
	return domainRelay.RelayOutcome{
		Kind:           domainRelay.OutcomeForwarded,
		Event:          event.Event,
		Phone:          reply.Phone,
		UpstreamStatus: status,
	}
}
