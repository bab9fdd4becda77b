package cmd

import (
	"os"
	"strings"
	"time"

	coreconfig "github.com/AzielCF/az-typing/core/config"
	"github.com/AzielCF/az-typing/pkg/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "az-typing",
	Short: "Typing presence coordination service",
	Long: `az-typing tracks who is typing in which conversation and debounces
local compose activity into start/stop notifications.`,
}

func init() {
	// Load environment variables first
	if err := utils.LoadConfig("."); err != nil {
		logrus.WithError(err).Warn("[CONFIG] Failed to load .env")
	}

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	initFlags()

	cobra.OnInitialize(initEnvConfig)
}

func initFlags() {
	rootCmd.PersistentFlags().StringP("port", "p", "",
		"change port number with --port <number> | example: --port=8080")
	rootCmd.PersistentFlags().BoolP("debug", "d", false,
		"hide or displaying log with --debug <true/false> | example: --debug=true")
	rootCmd.PersistentFlags().StringSliceP("basic-auth", "b", nil,
		"basic auth credential | -b=yourUsername:yourPassword")
	rootCmd.PersistentFlags().Int("idle-timeout-ms", 0,
		"outbound idle window before an automatic stop --idle-timeout-ms <number> | example: --idle-timeout-ms=5000")
	rootCmd.PersistentFlags().Int("expiry-timeout-ms", 0,
		"inbound window before an unrefreshed typist is removed --expiry-timeout-ms <number> | example: --expiry-timeout-ms=15000")

	_ = viper.BindPFlag("app_port", rootCmd.PersistentFlags().Lookup("port"))
	_ = viper.BindPFlag("app_debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("app_basic_auth", rootCmd.PersistentFlags().Lookup("basic-auth"))
	_ = viper.BindPFlag("typing_idle_timeout_ms", rootCmd.PersistentFlags().Lookup("idle-timeout-ms"))
	_ = viper.BindPFlag("typing_expiry_timeout_ms", rootCmd.PersistentFlags().Lookup("expiry-timeout-ms"))
}

// initEnvConfig builds the global configuration from the environment and
// applies flags given on the command line on top of it.
func initEnvConfig() {
	cfg, err := coreconfig.LoadConfig()
	if err != nil {
		logrus.Fatalf("[CONFIG] Failed to load configuration: %v", err)
	}

	flags := rootCmd.PersistentFlags()
	if flags.Changed("port") {
		cfg.App.Port = viper.GetString("app_port")
	}
	if flags.Changed("debug") {
		cfg.App.Debug = viper.GetBool("app_debug")
	}
	if flags.Changed("basic-auth") {
		cfg.App.BasicAuth = viper.GetStringSlice("app_basic_auth")
	}
	if flags.Changed("idle-timeout-ms") {
		cfg.Typing.IdleTimeoutMs = viper.GetInt("typing_idle_timeout_ms")
	}
	if flags.Changed("expiry-timeout-ms") {
		cfg.Typing.ExpiryTimeoutMs = viper.GetInt("typing_expiry_timeout_ms")
	}
	cfg.Typing.ApplyDefaults()

	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	cfg.App.ServerID = utils.GetPersistentServerID(cfg.App.ServerID, cfg.Paths.Storages)
	logrus.Debugf("[CONFIG] Server %s, store %s, idle %dms, expiry %dms", cfg.App.ServerID,
		cfg.Typing.Store, cfg.Typing.IdleTimeoutMs, cfg.Typing.ExpiryTimeoutMs)
}

func splitCredential(raw string) (string, string, bool) {
	user, pass, ok := strings.Cut(raw, ":")
	return user, pass, ok && user != ""
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
