package salesiq

import (
	"context"
	"errors"
	"net/http"

	"github.com/AzielCF/az-salesiq/domains/conversation"
	"github.com/AzielCF/az-salesiq/integrations/zohoauth"
	"github.com/sirupsen/logrus"
)

// EnsureVisitor creates or updates the visitor for phone. It never retries
// and never fails: the body and status are handed back as received, with
// synthesized bodies for the cases where SalesIQ gave none.
func (c *Client) EnsureVisitor(ctx context.Context, phone, displayName string, customFields map[string]any) (map[string]any, int) {
	visitor := conversation.NewVisitor(phone, displayName, customFields)
	target := c.apiURL("visitors")

	logrus.WithFields(logrus.Fields{
		"visitor_id": visitor.ExternalID,
		"url":        target,
	}).Info("[SALESIQ] upserting visitor")

	resp, err := c.doRequest(ctx, http.MethodPost, target, visitor)
	if err != nil {
		if errors.Is(err, zohoauth.ErrNoCredentials) {
			logrus.Error("[SALESIQ] ensure visitor: no access token")
			return map[string]any{"error": "no_access_token"}, http.StatusUnauthorized
		}
		logrus.WithError(err).Errorf("[SALESIQ] ensure visitor %s failed", visitor.ExternalID)
		return map[string]any{"error": err.Error()}, http.StatusInternalServerError
	}

	logrus.Infof("[SALESIQ] ensure visitor %s: status %d body=%s", visitor.ExternalID, resp.Status, truncate(resp.Body, 512))

	body, ok := resp.decode()
	if !ok {
		return map[string]any{"error": "invalid_response", "raw": string(resp.Body)}, resp.Status
	}
	return body, resp.Status
}
