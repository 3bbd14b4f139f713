package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/aluiziolira/okawa-catalog/pipeline"
	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored catalog to CSV and/or JSONL",
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

			articles, err := a.store.LoadArticles(ctx)
			if err != nil {
				return fmt.Errorf("load articles: %w", err)
			}
			if len(articles) == 0 {
				return fmt.Errorf("store is empty, run catalogd refresh first")
			}

			writer, err := createWriter(strings.ToLower(format), output)
			if err != nil {
				return err
			}
			if err := pipeline.Export(ctx, writer, articles, cfg.BatchSize); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d articles to %s\n", len(articles), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "output format: csv, json or dual")
	cmd.Flags().StringVarP(&output, "output", "o", "output/articulos.csv", "output file path")
	return cmd
}

func createWriter(format, filename string) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".jsonl"
		return pipeline.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
