package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shereeef1/meme-generator/internal/report"
	"github.com/shereeef1/meme-generator/internal/research"
)

var (
	researchCategory    string
	researchCountry     string
	researchCompetitors bool
	researchTrends      bool
	researchOutput      string
	researchSourcesCSV  string
)

var researchCmd = &cobra.Command{
	Use:   "research <brand>",
	Short: "Research a brand across all sources",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := buildStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		coordinator, err := buildCoordinator(cfg, store)
		if err != nil {
			return err
		}

		agg := coordinator.Run(ctx, research.Request{
			BrandName:          args[0],
			Category:           researchCategory,
			Country:            researchCountry,
			IncludeCompetitors: researchCompetitors,
			IncludeTrends:      researchTrends,
		})

		if researchSourcesCSV != "" {
			f, err := os.Create(researchSourcesCSV)
			if err != nil {
				return fmt.Errorf("creating csv file: %w", err)
			}
			defer f.Close()
			if err := report.WriteSourcesCSV(f, agg); err != nil {
				return fmt.Errorf("writing sources csv: %w", err)
			}
		}

		summary := report.Summarize(agg)
		switch researchOutput {
		case "json":
			if err := report.WriteJSON(os.Stdout, summary); err != nil {
				return err
			}
		case "text", "":
			if err := report.WriteText(os.Stdout, summary); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown output format %q", researchOutput)
		}

		if !agg.Success {
			return fmt.Errorf("research failed: %s", agg.Error)
		}
		return nil
	},
}

func init() {
	researchCmd.Flags().StringVar(&researchCategory, "category", "", "brand category, e.g. footwear")
	researchCmd.Flags().StringVar(&researchCountry, "country", "", "brand home country")
	researchCmd.Flags().BoolVar(&researchCompetitors, "competitors", false, "include competitor analysis")
	researchCmd.Flags().BoolVar(&researchTrends, "trends", false, "include industry trend detection")
	researchCmd.Flags().StringVarP(&researchOutput, "output", "o", "text", "output format: text or json")
	researchCmd.Flags().StringVar(&researchSourcesCSV, "sources-csv", "", "also write consulted sources to this CSV file")
	rootCmd.AddCommand(researchCmd)
}
