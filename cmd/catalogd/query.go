package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aluiziolira/okawa-catalog/models"
	"github.com/spf13/cobra"
)

func queryCmd() *cobra.Command {
	var (
		filters  models.Filters
		page     int
		limit    int
		jsonMode bool
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the stored catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.service.Query(ctx, filters, page, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonMode {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			fmt.Fprint(out, renderTable(result.Articles))
			fmt.Fprintf(out, "page %d, %d of %d articles\n", result.Page, len(result.Articles), result.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&filters.Code, "codigo", "", "code substring")
	cmd.Flags().StringVar(&filters.Description, "descripcion", "", "description substring")
	cmd.Flags().StringVar(&filters.Availability, "disponibilidad", "", "availability: S, N or C")
	cmd.Flags().StringVar(&filters.Category, "rubro", "", "category")
	cmd.Flags().StringVar(&filters.Brand, "marca", "", "brand")
	cmd.Flags().StringVar(&filters.PriceList, "lista", "", "price list")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "page size")
	cmd.Flags().BoolVarP(&jsonMode, "json", "j", false, "output as JSON")
	return cmd
}
