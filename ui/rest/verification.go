package rest

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type Verification struct {
	VerifyToken string
}

func InitRestVerification(app fiber.Router, verifyToken string) Verification {
	handler := Verification{VerifyToken: verifyToken}
	app.Get("/webhook", handler.WebhookHandshake)
	app.Get("/verify", handler.Verify)
	return handler
}

// matches never accepts anything while no secret is configured.
func (handler *Verification) matches(token string) bool {
	if handler.VerifyToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(handler.VerifyToken)) == 1
}

// WebhookHandshake answers the SalesIQ subscription check by echoing the
// challenge.
func (handler *Verification) WebhookHandshake(c *fiber.Ctx) error {
	if !handler.matches(c.Query("verify_token")) {
		logrus.Warn("[REST] webhook handshake with invalid verify_token")
		return c.Status(fiber.StatusForbidden).SendString("Error: invalid token")
	}
	return c.SendString(c.Query("challenge", "ok"))
}

func (handler *Verification) Verify(c *fiber.Ctx) error {
	if !handler.matches(c.Query("token")) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"status": "forbidden"})
	}
	return c.JSON(fiber.Map{"status": "verified"})
}
