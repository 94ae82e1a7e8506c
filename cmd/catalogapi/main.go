package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MarkoPoloResearchLab/storefront/internal/catalogapi"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagListenAddr       = "listen-addr"
	flagDatabaseURL      = "database-url"
	flagAllowedOrigins   = "allowed-origins"
	flagAdminIDs         = "admin-ids"
	flagTelegramBotToken = "telegram-bot-token"
	flagOrderChatID      = "order-chat-id"
	flagSeed             = "seed"
	flagShutdownTimeout  = "shutdown-timeout"
	envPrefix            = "CATALOGAPI"
)

func main() {
	_ = godotenv.Load()
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "catalogapi: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := catalogapi.Config{}
	cmd := &cobra.Command{
		Use:           "catalogapi",
		Short:         "Catalog and order API for the storefront mini-app",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, &cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return catalogapi.Run(ctx, cfg)
		},
	}

	cmd.Flags().String(flagListenAddr, "", "HTTP listen address (default :8000)")
	cmd.Flags().String(flagDatabaseURL, "", "postgres:// or sqlite:// database URL")
	cmd.Flags().String(flagAllowedOrigins, "", "comma-separated list of allowed CORS origins")
	cmd.Flags().String(flagAdminIDs, "", "comma-separated host user ids with administrator rights")
	cmd.Flags().String(flagTelegramBotToken, "", "bot token used to announce new orders")
	cmd.Flags().Int64(flagOrderChatID, 0, "chat id that receives new order announcements")
	cmd.Flags().Bool(flagSeed, false, "install the demo catalog when the database is empty")
	cmd.Flags().Duration(flagShutdownTimeout, 0, "graceful shutdown timeout (e.g. 5s)")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *catalogapi.Config) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, flagName := range []string{flagListenAddr, flagDatabaseURL, flagAllowedOrigins, flagAdminIDs, flagTelegramBotToken, flagOrderChatID, flagSeed, flagShutdownTimeout} {
		if err := v.BindPFlag(flagName, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	adminIDs, err := catalogapi.ParseAdminIDs(v.GetString(flagAdminIDs))
	if err != nil {
		return err
	}

	cfg.ListenAddr = strings.TrimSpace(v.GetString(flagListenAddr))
	cfg.DatabaseURL = strings.TrimSpace(v.GetString(flagDatabaseURL))
	cfg.AllowedOrigins = catalogapi.ParseAllowedOrigins(v.GetString(flagAllowedOrigins))
	cfg.AdminIDs = adminIDs
	cfg.TelegramBotToken = strings.TrimSpace(v.GetString(flagTelegramBotToken))
	cfg.OrderChatID = v.GetInt64(flagOrderChatID)
	cfg.Seed = v.GetBool(flagSeed)
	cfg.ShutdownTimeout = v.GetDuration(flagShutdownTimeout)

	return cfg.Validate()
}
