package rest

import (
	"encoding/json"

	domainRelay "github.com/AzielCF/az-salesiq/domains/relay"
	"github.com/AzielCF/az-salesiq/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type Helpdesk struct {
	Service domainRelay.IRelayUsecase
}

func InitRestHelpdesk(app fiber.Router, service domainRelay.IRelayUsecase) Helpdesk {
	handler := Helpdesk{Service: service}
	app.Post("/api/from-zoho", handler.FromZoho)
	return handler
}

// FromZoho receives SalesIQ webhook deliveries. The body is decoded
// regardless of Content-Type; an undecodable body is treated as an event
// of no interest so SalesIQ does not keep retrying it.
func (handler *Helpdesk) FromZoho(c *fiber.Ctx) error {
	var event domainRelay.WebhookEvent
	if body := c.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &event); err != nil {
			logrus.WithError(err).Warn("[REST] /api/from-zoho: undecodable payload ignored")
			event = domainRelay.WebhookEvent{}
		}
	}

	outcome := handler.Service.HandleHelpdeskWebhook(c.UserContext(), event)
	status := outcome.HTTPStatus()

	logrus.WithFields(logrus.Fields{
		"event":   event.Event,
		"outcome": outcome.Kind,
	}).Info("[REST] /api/from-zoho handled")

	return c.Status(status).JSON(utils.ResponseData{
		Status:  status,
		Code:    string(outcome.Kind),
		Message: describeRelay(outcome),
		Results: outcome,
	})
}

func describeRelay(o domainRelay.RelayOutcome) string {
	switch o.Kind {
	case domainRelay.OutcomeIgnored:
		return "event ignored"
	case domainRelay.OutcomeEchoIgnored:
		return "echo of a bridged message ignored"
	case domainRelay.OutcomeIncompleteData:
		return "reply without message or phone"
	case domainRelay.OutcomeForwarded:
		return "reply forwarded to WhatsApp"
	case domainRelay.OutcomeForwardingError:
		return "reply could not be forwarded to WhatsApp"
	default:
		return string(o.Kind)
	}
}
