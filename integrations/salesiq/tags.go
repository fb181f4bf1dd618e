package salesiq

import (
	"context"
	"errors"
	"net/http"

	"github.com/AzielCF/az-salesiq/integrations/zohoauth"
	"github.com/AzielCF/az-salesiq/pkg/utils"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTagColor  = "#FF5733"
	DefaultTagModule = "visitors"
)

// GetOrCreateTag looks a tag up by exact name and creates it when missing.
// The returned info map is diagnostic only; an empty id means the tag could
// not be resolved.
func (c *Client) GetOrCreateTag(ctx context.Context, name, color, module string) (string, map[string]any) {
	if color == "" {
		color = DefaultTagColor
	}
	if module == "" {
		module = DefaultTagModule
	}
	target := c.apiURL("tags")

	resp, err := c.doRequest(ctx, http.MethodGet, target, nil)
	switch {
	case errors.Is(err, zohoauth.ErrNoCredentials):
		return "", map[string]any{"error": "no_access_token"}
	case err != nil:
		logrus.WithError(err).Errorf("[SALESIQ] listing tags failed")
	default:
		logrus.Infof("[SALESIQ] list tags: status %d", resp.Status)
		if body, ok := resp.decode(); ok {
			for _, t := range NormalizePayload(body).Many {
				if n, _ := t["name"].(string); n != name {
					continue
				}
				id := firstID(t, "id", "tag_id")
				logrus.Infof("[SALESIQ] tag %q exists with id %s", name, id)
				return id, map[string]any{"status": "exists", "tag": t}
			}
		}
	}

	payload := map[string]any{"name": name, "color": color, "module": module}
	logrus.Infof("[SALESIQ] creating tag %q", name)
	resp, err = c.doRequest(ctx, http.MethodPost, target, payload)
	if err != nil {
		logrus.WithError(err).Errorf("[SALESIQ] creating tag %q failed", name)
		return "", map[string]any{"error": "create_exception", "raw": err.Error()}
	}
	logrus.Infof("[SALESIQ] create tag: status %d body=%s", resp.Status, truncate(resp.Body, 512))

	body, ok := resp.decode()
	if !ok {
		body = map[string]any{"status_code": resp.Status, "raw": string(resp.Body)}
	}
	if resp.OK() {
		if created := NormalizePayload(body).First(); created != nil {
			if id := firstID(created, "id", "tag_id"); id != "" {
				return id, map[string]any{"status": "created", "data": created}
			}
		}
	}
	logrus.Errorf("[SALESIQ] failed to create tag %q: %v", name, body)
	return "", body
}

// AssociateTags attaches tag ids to a record of module (visitors,
// conversations). The answer is returned for diagnostics.
func (c *Client) AssociateTags(ctx context.Context, module, recordID string, tagIDs []string) map[string]any {
	target := c.apiURL(module, recordID, "tags")
	logrus.Infof("[SALESIQ] associating tags %v to %s/%s", tagIDs, module, recordID)

	resp, err := c.doRequest(ctx, http.MethodPut, target, map[string]any{"ids": tagIDs})
	if err != nil {
		if errors.Is(err, zohoauth.ErrNoCredentials) {
			return map[string]any{"error": "no_access_token"}
		}
		logrus.WithError(err).Errorf("[SALESIQ] associating tags to %s/%s failed", module, recordID)
		return map[string]any{"error": err.Error()}
	}
	logrus.Infof("[SALESIQ] associate tags: status %d body=%s", resp.Status, truncate(resp.Body, 512))

	if body, ok := resp.decode(); ok {
		return body
	}
	return map[string]any{"status_code": resp.Status, "raw": string(resp.Body)}
}

func firstID(rec map[string]any, keys ...string) string {
	for _, k := range keys {
		if id := utils.StringifyID(rec[k]); id != "" {
			return id
		}
	}
	return ""
}
