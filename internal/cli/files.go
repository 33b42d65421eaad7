package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewFilesCmd creates the files command.
func NewFilesCmd() *cobra.Command {
	flags := &searchFlags{}
	cmd := &cobra.Command{
		Use:   "files",
		Short: "List the files inside the remote archives of matching products",
		Long: `List the contents of the remote archive of every product matching the
search criteria, without downloading the archives.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFiles(cmd, flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func runFiles(cmd *cobra.Command, flags *searchFlags) error {
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

	for _, feat := range features {
		files, err := feat.ListFiles(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list files of %s: %w",
				feat.Properties.ProductIdentifier, err)
		}
		fmt.Printf("%s: %d files in archive\n", feat.Properties.ProductIdentifier, len(files))
		for _, name := range files {
			fmt.Printf("\t%s\n", name)
		}
	}
	return nil
}
