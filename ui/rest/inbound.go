package rest

import (
	domainConversation "github.com/AzielCF/az-salesiq/domains/conversation"
	"github.com/AzielCF/az-salesiq/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type Inbound struct {
	Service domainConversation.IResolverUsecase
}

func InitRestInbound(app fiber.Router, service domainConversation.IResolverUsecase) Inbound {
	handler := Inbound{Service: service}
	app.Post("/api/from-waba", handler.FromWaba)
	return handler
}

// FromWaba receives a message forwarded by the WhatsApp gateway.
func (handler *Inbound) FromWaba(c *fiber.Ctx) error {
	var request domainConversation.InboundMessage
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&request); err != nil {
			return c.Status(400).JSON(utils.ResponseData{
				Status:  400,
				Code:    "BAD_REQUEST",
				Message: err.Error(),
			})
		}
	}

	logrus.WithFields(logrus.Fields{
		"user_id": request.Phone,
		"tag":     request.Tag,
		"length":  len(request.Text),
	}).Info("[REST] /api/from-waba received")

	outcome := handler.Service.HandleInboundMessage(c.UserContext(), request)
	status := outcome.HTTPStatus()

	return c.Status(status).JSON(utils.ResponseData{
		Status:  status,
		Code:    string(outcome.Kind),
		Message: outcome.Describe(),
		Results: outcome,
	})
}
