package config

import (
	"os"
	"strconv"
	"strings"
)

// GetAllSettings returns a map of the settings currently loaded in memory.
// Secrets are reduced to a presence flag.
func GetAllSettings() map[string]any {
	if Global == nil {
		return map[string]any{}
	}
	return map[string]any{
		"app_port":                 Global.App.Port,
		"app_debug":                Global.App.Debug,
		"app_version":              Global.App.Version,
		"zoho_portal_name":         Global.Zoho.PortalName,
		"zoho_salesiq_base":        Global.Zoho.APIBase,
		"zoho_salesiq_visitor":     Global.Zoho.VisitorBase,
		"zoho_static_access_token": Global.Zoho.AccessToken != "",
		"zoho_refresh_configured":  Global.Zoho.CanRefresh(),
		"salesiq_creation_enabled": Global.Zoho.ConversationCreationEnabled(),
		"app_a_url":                Global.ChannelA.BaseURL,
		"verify_token_configured":  Global.Webhook.VerifyToken != "",
		"upstream_timeout":         Global.HTTP.UpstreamTimeout.String(),
		"resolver_lease_enabled":   Global.Lease.Enabled,
		"valkey_enabled":           Global.Valkey.Enabled,
	}
}

// Helpers
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		vLower := strings.ToLower(v)
		return vLower == "1" || vLower == "true" || vLower == "yes" || vLower == "on"
	}
	return fallback
}
