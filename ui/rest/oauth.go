package rest

import (
	"context"
	"errors"
	"fmt"

	"github.com/AzielCF/az-salesiq/integrations/zohoauth"
	pkgError "github.com/AzielCF/az-salesiq/pkg/error"
	"github.com/gofiber/fiber/v2"
)

// CredentialService is the credential store as seen by the OAuth endpoints.
type CredentialService interface {
	AccessToken(ctx context.Context) (string, error)
	Exchange(ctx context.Context, code, redirectURI string) (map[string]any, error)
}

type OAuth struct {
	Service     CredentialService
	RedirectURI string
}

func InitRestOAuth(app fiber.Router, service CredentialService, redirectURI string) OAuth {
	handler := OAuth{Service: service, RedirectURI: redirectURI}
	app.Get("/oauth2callback", handler.Callback)
	app.Get("/debug-token", handler.DebugToken)
	return handler
}

// Callback completes the one-time manual authorization and shows the refresh
// token so it can be copied into ZOHO_REFRESH_TOKEN.
func (handler *OAuth) Callback(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return pkgError.ValidationError("missing 'code' query parameter")
	}

	// must be exactly the URI registered with Zoho
	redirectURI := handler.RedirectURI
	if redirectURI == "" {
		redirectURI = c.BaseURL() + c.Path()
	}

	tokens, err := handler.Service.Exchange(c.UserContext(), code, redirectURI)
	if errors.Is(err, zohoauth.ErrMissingClient) {
		return pkgError.ConfigurationError(err.Error())
	}
	if err != nil {
		return pkgError.InternalServerError(fmt.Sprintf("authorization code exchange failed: %v", err))
	}

	return c.JSON(fiber.Map{
		"token_response": tokens,
		"note":           "Copy refresh_token into the ZOHO_REFRESH_TOKEN environment variable. Do not publish it.",
	})
}

func (handler *OAuth) DebugToken(c *fiber.Ctx) error {
	tok, err := handler.Service.AccessToken(c.UserContext())
	if err != nil || tok == "" {
		return c.JSON(fiber.Map{"access_token_preview": nil})
	}
	return c.JSON(fiber.Map{"access_token_preview": zohoauth.Preview(tok)})
}
