package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/adminclient"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/dto"
	pkgdto "github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/dto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	baseURL string
	token   string
}

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Operate the catalog admin API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.baseURL, "base-url", envOr("CATALOG_API_URL", "http://localhost:8080/api/v1"), "admin API base URL")
	root.PersistentFlags().StringVar(&flags.token, "token", os.Getenv("CATALOG_API_TOKEN"), "bearer token")

	client := func() *adminclient.Client {
		return adminclient.NewClient(adminclient.Config{BaseURL: flags.baseURL, Token: flags.token})
	}

	root.AddCommand(newProductsCommand(client), newPricesCommand(client), newObjectsCommand(client))
	return root
}

func newProductsCommand(client func() *adminclient.Client) *cobra.Command {
	cmd := &cobra.Command{Use: "products", Short: "List, show and delete products"}

	filter := pkgdto.Filter{}
	list := &cobra.Command{
		Use:   "list",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client().ListProducts(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	list.Flags().StringVar(&filter.Q, "q", "", "search in name, sku and slug")
	list.Flags().StringVar(&filter.Status, "status", "", "draft, active, archived or out_of_stock")
	list.Flags().StringVar(&filter.CategoryID, "category", "", "category id")
	list.Flags().StringVar(&filter.BrandID, "brand", "", "brand id")
	list.Flags().StringVar(&filter.Featured, "featured", "", "true or false")
	list.Flags().IntVar(&filter.Limit, "limit", pkgdto.DefaultLimit, "page size")
	list.Flags().IntVar(&filter.Page, "page", 1, "page number")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client().GetProduct(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}

	var purge bool
	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client().DeleteProduct(cmd.Context(), args[0], purge); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
	del.Flags().BoolVar(&purge, "purge-assets", false, "also remove the product's stored files")

	cmd.AddCommand(list, get, del)
	return cmd
}

func newPricesCommand(client func() *adminclient.Client) *cobra.Command {
	cmd := &cobra.Command{Use: "prices", Short: "Bulk price updates"}

	var (
		mode     string
		selected []string
	)
	upload := &cobra.Command{
		Use:   "upload <file>",
		Short: "Reconcile prices from a CSV, TSV or XLSX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			report, err := client().UpdatePrices(cmd.Context(), adminclient.PriceUpload{
				FileName:    filepath.Base(args[0]),
				Data:        data,
				Mode:        mode,
				SelectedIDs: selected,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		},
	}
	upload.Flags().StringVar(&mode, "mode", dto.BulkModePreview, "preview or update")
	upload.Flags().StringSliceVar(&selected, "select", nil, "only apply rows matching these product ids")

	cmd.AddCommand(upload)
	return cmd
}

func newObjectsCommand(client func() *adminclient.Client) *cobra.Command {
	cmd := &cobra.Command{Use: "objects", Short: "Stored objects"}

	del := &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a stored object and its thumbnail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client().DeleteObject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}

	cmd.AddCommand(del)
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
