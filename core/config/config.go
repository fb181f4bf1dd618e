package config

import (
	"strings"
	"time"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App      AppConfig
	Zoho     ZohoConfig
	ChannelA ChannelAConfig
	Webhook  WebhookConfig
	HTTP     HTTPConfig
	Lease    LeaseConfig
	Valkey   ValkeyConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	BasePath           string
	CorsAllowedOrigins []string
}

// ZohoConfig groups the identity provider credentials and the SalesIQ
// portal coordinates.
type ZohoConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	// AccessToken, when set, short-circuits the refresh flow entirely.
	AccessToken  string
	AccountsURL  string
	RedirectURI  string
	PortalName   string
	APIBase      string
	VisitorBase  string
	AppID        string
	DepartmentID string
}

type ChannelAConfig struct {
	BaseURL   string
	RelayPath string
}

type WebhookConfig struct {
	VerifyToken string
}

type HTTPConfig struct {
	UpstreamTimeout time.Duration
}

// LeaseConfig controls the per-phone lease around locate-or-create.
// Wait bounds how long a request waits for a lease held by another one.
type LeaseConfig struct {
	Enabled bool
	TTL     time.Duration
	Wait    time.Duration
}

type ValkeyConfig struct {
	Enabled   bool
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

const (
	minUpstreamTimeout = 10 * time.Second
	maxUpstreamTimeout = 20 * time.Second
)

// Global provides access to the loaded configuration globally.
var Global *Config

// LoadConfig loads configuration from environment variables or defaults.
// The .env file, if any, must already be loaded (see utils.LoadConfig).
func LoadConfig() (*Config, error) {
	corsOrigins := []string{"*"}
	if v := getEnv("APP_CORS_ALLOWED_ORIGINS", ""); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	timeout := time.Duration(getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 15)) * time.Second
	if timeout < minUpstreamTimeout {
		timeout = minUpstreamTimeout
	}
	if timeout > maxUpstreamTimeout {
		timeout = maxUpstreamTimeout
	}

	cfg := &Config{
		App: AppConfig{
			Version:            "v1.0.0",
			Port:               getEnv("APP_PORT", getEnv("PORT", "5000")),
			Debug:              getEnvBool("APP_DEBUG", false),
			BasePath:           getEnv("APP_BASE_PATH", ""),
			CorsAllowedOrigins: corsOrigins,
		},
		Zoho: ZohoConfig{
			ClientID:     getEnv("ZOHO_CLIENT_ID", ""),
			ClientSecret: getEnv("ZOHO_CLIENT_SECRET", ""),
			RefreshToken: getEnv("ZOHO_REFRESH_TOKEN", ""),
			AccessToken:  getEnv("ZOHO_ACCESS_TOKEN", ""),
			AccountsURL:  trimURL(getEnv("ZOHO_ACCOUNTS_URL", "https://accounts.zoho.com")),
			RedirectURI:  getEnv("ZOHO_REDIRECT_URI", ""),
			PortalName:   getEnv("ZOHO_PORTAL_NAME", ""),
			APIBase:      trimURL(getEnv("ZOHO_SALESIQ_BASE", "https://salesiq.zoho.com/api/v2")),
			VisitorBase:  trimURL(getEnv("ZOHO_SALESIQ_VISITOR_BASE", "https://salesiq.zoho.com/visitor/v2")),
			AppID:        getEnv("SALESIQ_APP_ID", ""),
			DepartmentID: getEnv("SALESIQ_DEPARTMENT_ID", ""),
		},
		ChannelA: ChannelAConfig{
			BaseURL:   trimURL(getEnv("APP_A_URL", "")),
			RelayPath: getEnv("APP_A_RELAY_PATH", "/api/envio_whatsapp"),
		},
		Webhook: WebhookConfig{
			VerifyToken: getEnv("VERIFY_TOKEN", ""),
		},
		HTTP: HTTPConfig{
			UpstreamTimeout: timeout,
		},
		Lease: LeaseConfig{
			Enabled: getEnvBool("RESOLVER_LEASE_ENABLED", true),
			TTL:     time.Duration(getEnvInt("RESOLVER_LEASE_TTL_MS", 5000)) * time.Millisecond,
			Wait:    time.Duration(getEnvInt("RESOLVER_LEASE_WAIT_MS", 2000)) * time.Millisecond,
		},
		Valkey: ValkeyConfig{
			Enabled:   getEnvBool("VALKEY_ENABLED", false),
			Address:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
			Password:  getEnv("VALKEY_PASSWORD", ""),
			DB:        getEnvInt("VALKEY_DB", 0),
			KeyPrefix: getEnv("VALKEY_KEY_PREFIX", "salesiq:"),
		},
	}

	Global = cfg
	return cfg, nil
}

// ConversationCreationEnabled reports whether both SalesIQ identifiers needed
// to open a conversation are configured.
func (c ZohoConfig) ConversationCreationEnabled() bool {
	return c.AppID != "" && c.DepartmentID != ""
}

// CanRefresh reports whether a refresh token exchange can be attempted.
func (c ZohoConfig) CanRefresh() bool {
	return c.RefreshToken != "" && c.ClientID != "" && c.ClientSecret != ""
}

func trimURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}
