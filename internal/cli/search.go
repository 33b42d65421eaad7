package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	flags := &searchFlags{}
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search for products in the catalog",
		Long: `Search for products in the Theia catalog by date, bounding box,
tile name and product level.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSearch(cmd, flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func runSearch(cmd *cobra.Command, flags *searchFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := newCatalog(cfg)
	if err != nil {
		return err
	}

	features, err := cat.Search(cmd.Context(), flags.criteria())
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(features) == 0 {
		fmt.Println("No products found")
		return nil
	}

	fmt.Printf("%-60s %-12s %-8s %-10s %s\n", "PRODUCT", "DATE", "TILE", "LEVEL", "CLOUDS")
	fmt.Println(strings.Repeat("-", 100))
	for _, feat := range features {
		fmt.Printf("%-60s %-12s %-8s %-10s %d%%\n",
			feat.Properties.ProductIdentifier,
			feat.Properties.AcquisitionDate.Format("2006-01-02"),
			feat.Properties.Tile,
			feat.Properties.Level,
			feat.Properties.CloudCover)
	}
	fmt.Printf("\nFound %d product(s)\n", len(features))
	return nil
}
