package cmd

import (
	"os"
	"time"

	coreconfig "github.com/AzielCF/az-salesiq/core/config"
	domainConversation "github.com/AzielCF/az-salesiq/domains/conversation"
	domainRelay "github.com/AzielCF/az-salesiq/domains/relay"
	"github.com/AzielCF/az-salesiq/infrastructure/valkey"
	"github.com/AzielCF/az-salesiq/integrations/salesiq"
	"github.com/AzielCF/az-salesiq/integrations/waba"
	"github.com/AzielCF/az-salesiq/integrations/zohoauth"
	"github.com/AzielCF/az-salesiq/pkg/lease"
	"github.com/AzielCF/az-salesiq/pkg/utils"
	"github.com/AzielCF/az-salesiq/usecase"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Integrations
	credentialStore *zohoauth.CredentialStore
	vkClient        *valkey.Client

	// Usecase
	resolverUsecase domainConversation.IResolverUsecase
	relayUsecase    domainRelay.IRelayUsecase
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "az-salesiq",
	Short: "WhatsApp to Zoho SalesIQ bridge",
	Long: `Stateless middleware between a WhatsApp Business gateway and Zoho SalesIQ.
Inbound WhatsApp messages become SalesIQ visitors and conversations, and
operator replies are relayed back to WhatsApp.`,
}

func init() {
	// Load environment variables first
	utils.LoadConfig(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	initFlags()

	cobra.OnInitialize(initEnvConfig, initApp)
}

func initFlags() {
	rootCmd.PersistentFlags().StringP(
		"port", "p", "",
		"change port number with --port <number> | example: --port=8080",
	)
	rootCmd.PersistentFlags().BoolP(
		"debug", "d", false,
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)
	rootCmd.PersistentFlags().String(
		"base-path", "",
		`base path for subpath deployment --base-path <string> | example: --base-path="/salesiq"`,
	)

	_ = viper.BindPFlag("app_port", rootCmd.PersistentFlags().Lookup("port"))
	_ = viper.BindPFlag("app_debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("app_base_path", rootCmd.PersistentFlags().Lookup("base-path"))
}

// initEnvConfig builds the configuration from the environment and lets
// command-line flags override it.
func initEnvConfig() {
	cfg, err := coreconfig.LoadConfig()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	if envPort := viper.GetString("app_port"); envPort != "" {
		cfg.App.Port = envPort
	}
	if envDebug := viper.GetBool("app_debug"); envDebug {
		cfg.App.Debug = envDebug
	}
	if envBasePath := viper.GetString("app_base_path"); envBasePath != "" {
		cfg.App.BasePath = envBasePath
	}
}

func initApp() {
	cfg := coreconfig.Global
	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	timeout := cfg.HTTP.UpstreamTimeout

	// 1. Credentials and upstream clients
	credentialStore = zohoauth.NewCredentialStore(cfg.Zoho, timeout)
	salesiqClient := salesiq.NewClient(cfg.Zoho, credentialStore, timeout)
	wabaClient := waba.NewClient(cfg.ChannelA, timeout)

	if cfg.Zoho.PortalName == "" {
		logrus.Warn("[CONFIG] ZOHO_PORTAL_NAME is empty, SalesIQ calls will fail")
	}
	if !cfg.Zoho.ConversationCreationEnabled() {
		logrus.Info("[CONFIG] SALESIQ_APP_ID/SALESIQ_DEPARTMENT_ID not set, conversations will not be created")
	}

	// 2. Optional shared lease backend
	if cfg.Lease.Enabled && cfg.Valkey.Enabled {
		client, err := valkey.NewClient(cfg.Valkey)
		if err != nil {
			logrus.WithError(err).Warn("[LEASE] valkey unavailable, falling back to in-memory leases")
		} else {
			vkClient = client
		}
	}
	locker := lease.New(cfg.Lease, vkClient)

	// 3. Usecases
	resolverUsecase = usecase.NewResolverService(salesiqClient, locker)
	relayUsecase = usecase.NewRelayService(wabaClient)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp releases the connections opened by initApp.
func StopApp() {
	logrus.Info("[APP] Stopping application...")
	if vkClient != nil {
		vkClient.Close()
	}
	logrus.Info("[APP] Application stopped cleanly.")
}
