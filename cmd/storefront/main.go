package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/MarkoPoloResearchLab/storefront/internal/apiclient"
	"github.com/MarkoPoloResearchLab/storefront/internal/consolebridge"
	"github.com/MarkoPoloResearchLab/storefront/internal/oplog"
	"github.com/MarkoPoloResearchLab/storefront/pkg/storefront"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	flagAPIURL   = "api-url"
	flagTimeout  = "timeout"
	flagInitData = "init-data"
	flagSearch   = "search"
	flagCategory = "category"
	envPrefix    = "STOREFRONT"
)

type runtimeConfig struct {
	APIURL   string
	Timeout  time.Duration
	InitData string
}

func main() {
	_ = godotenv.Load()
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "storefront: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Terminal client for the storefront mini-app",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
	}

	cmd.PersistentFlags().String(flagAPIURL, apiclient.DefaultBaseURL, "catalog API origin")
	cmd.PersistentFlags().Duration(flagTimeout, 0, "per-request timeout (e.g. 15s)")
	cmd.PersistentFlags().String(flagInitData, "", "host init data query string carrying the user JSON")

	cmd.AddCommand(newCatalogCommand(cfg), newBuyCommand(cfg))
	return cmd
}

func newCatalogCommand(cfg *runtimeConfig) *cobra.Command {
	var (
		query      string
		categoryID int64
	)
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List categories and products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, cfg, func(ctx context.Context, session *storefront.Session) error {
				games, apps := session.Partition()
				products := session.Search(query)
				if categoryID != 0 {
					products = storefront.ProductsInCategory(products, categoryID)
				}
				renderCatalog(cmd.OutOrStdout(), games, apps, products)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&query, flagSearch, "", "case-insensitive search over product name and description")
	cmd.Flags().Int64Var(&categoryID, flagCategory, 0, "only list products of this category id")
	return cmd
}

func newBuyCommand(cfg *runtimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "buy <product-id>",
		Short: "Choose a payment method and place an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || productID <= 0 {
				return fmt.Errorf("product id must be a positive integer: %q", args[0])
			}
			return withSession(cmd, cfg, func(ctx context.Context, session *storefront.Session) error {
				outcome, err := session.Buy(ctx, productID)
				if err != nil {
					return err
				}
				renderOutcome(cmd.OutOrStdout(), outcome)
				return nil
			})
		},
	}
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, flagName := range []string{flagAPIURL, flagTimeout, flagInitData} {
		if err := v.BindPFlag(flagName, cmd.Flag(flagName)); err != nil {
			return err
		}
	}

	cfg.APIURL = strings.TrimSpace(v.GetString(flagAPIURL))
	cfg.Timeout = v.GetDuration(flagTimeout)
	cfg.InitData = v.GetString(flagInitData)
	if cfg.Timeout < 0 {
		return fmt.Errorf("%s must not be negative", flagTimeout)
	}
	return nil
}

func withSession(cmd *cobra.Command, cfg *runtimeConfig, run func(ctx context.Context, session *storefront.Session) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("zap init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	client, err := apiclient.New(apiclient.Config{BaseURL: cfg.APIURL, Timeout: cfg.Timeout})
	if err != nil {
		return err
	}
	bridge, err := consolebridge.New(cfg.InitData, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	session, err := storefront.NewSession(bridge, client, client, storefront.WithOperationLogger(oplog.New(logger)))
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.Mount(ctx); err != nil {
		return err
	}
	return run(ctx, session)
}

func renderCatalog(output io.Writer, games []storefront.Category, apps []storefront.Category, products []storefront.Product) {
	renderCategories(output, "Games", games)
	renderCategories(output, "Apps", apps)
	fmt.Fprintln(output, "Products:")
	if len(products) == 0 {
		fmt.Fprintln(output, "  nothing found")
		return
	}
	for _, product := range products {
		fmt.Fprintf(output, "  #%d %s  %s\n", product.ID, product.Name, product.Price.StringFixed(2))
		if product.Description != "" {
			fmt.Fprintf(output, "      %s\n", product.Description)
		}
	}
}

func renderCategories(output io.Writer, title string, categories []storefront.Category) {
	fmt.Fprintf(output, "%s:\n", title)
	for _, category := range categories {
		fmt.Fprintf(output, "  #%d %s %s\n", category.ID, category.Emoji, category.Name)
	}
}

func renderOutcome(output io.Writer, outcome storefront.PurchaseOutcome) {
	switch outcome.Status {
	case storefront.PurchaseStatusSubmitted:
		fmt.Fprintf(output, "Order placed: %s, %s via %s\n",
			outcome.Intent.Product.Name,
			outcome.Intent.Product.Price.StringFixed(2),
			outcome.Intent.Method.Label(),
		)
	default:
		fmt.Fprintln(output, "Purchase cancelled")
	}
}
