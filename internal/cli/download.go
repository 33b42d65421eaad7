package cli

import (
	"fmt"

	"github.com/remicres/theia-picker/pkg/catalog"
	"github.com/remicres/theia-picker/pkg/config"
	"github.com/remicres/theia-picker/pkg/download"
	"github.com/remicres/theia-picker/pkg/hook"
	"github.com/spf13/cobra"
)

type downloadFlags struct {
	search   searchFlags
	dir      string
	patterns []string
	extract  bool
}

// NewDownloadCmd creates the download command.
func NewDownloadCmd() *cobra.Command {
	flags := &downloadFlags{}
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download matching products, or selected files out of their archives",
		Long: `Download every product matching the search criteria.

Without --patterns the whole archive of each product is downloaded (and
skipped when a complete copy already exists). With --patterns only the
archive entries whose names contain one of the given patterns are fetched,
through byte-range requests, without downloading the archives in full.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDownload(cmd, flags)
		},
	}
	flags.search.register(cmd)
	cmd.Flags().StringVar(&flags.dir, "dir", "", "download directory (default: settings.download_dir)")
	cmd.Flags().StringSliceVar(&flags.patterns, "patterns", nil,
		"only download archive entries matching one of these substrings (e.g. FRE_B4.tif,QL.jpg)")
	cmd.Flags().BoolVar(&flags.extract, "extract", false, "extract whole archives after download")
	return cmd
}

func runDownload(cmd *cobra.Command, flags *downloadFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := newCatalog(cfg)
	if err != nil {
		return err
	}
	hooks, err := newHookManager(cfg)
	if err != nil {
		return err
	}

	destDir := flags.dir
	if destDir == "" {
		destDir = cfg.Settings.DownloadDir
	}
	if destDir == "" {
		return fmt.Errorf("no download directory: set --dir or settings.download_dir")
	}

	features, err := cat.Search(cmd.Context(), flags.search.criteria())
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	for _, feat := range features {
		if err := downloadFeature(cmd, cfg, hooks, feat, flags, destDir); err != nil {
			return err
		}
	}
	return nil
}

func downloadFeature(cmd *cobra.Command, cfg *config.Config, hooks hook.Manager, feat *catalog.Feature, flags *downloadFlags, destDir string) error {
	product := feat.Properties.ProductIdentifier
	if err := hooks.Execute(hook.PreDownload, hook.Context{Product: product}); err != nil {
		return err
	}

	if len(flags.patterns) == 0 {
		archivePath, err := feat.DownloadArchive(cmd.Context(), destDir)
		if err != nil {
			return fmt.Errorf("failed to download %s: %w", product, err)
		}
		fmt.Printf("%s: downloaded %s\n", product, archivePath)
		if flags.extract {
			if err := extractArchive(cmd, feat, archivePath, destDir); err != nil {
				return err
			}
		}
		return hooks.Execute(hook.PostDownload, hook.Context{Product: product, Path: archivePath})
	}

	results, err := feat.DownloadFiles(cmd.Context(), flags.patterns, destDir, download.Options{
		MaxRetries:  cfg.Settings.MaxRetries,
		Concurrency: cfg.Settings.MaxConcurrent,
	})
	if err != nil {
		return fmt.Errorf("failed to download files of %s: %w", product, err)
	}

	for _, res := range results {
		switch res.Status {
		case download.StatusFailed:
			fmt.Printf("%s: FAILED after %d attempt(s): %v\n", res.Entry, res.Attempts, res.Err)
		default:
			fmt.Printf("%s: %s\n", res.Entry, res.Status)
			if err := hooks.Execute(hook.PostDownload, hook.Context{
				Product: product, Entry: res.Entry, Path: res.Dest,
			}); err != nil {
				return err
			}
		}
	}
	if download.Failed(results) {
		return fmt.Errorf("some files of %s failed to download", product)
	}
	return nil
}

func extractArchive(cmd *cobra.Command, feat *catalog.Feature, archivePath, destDir string) error {
	mgr := feat.ArchiveManager()
	if err := mgr.ExtractAll(cmd.Context(), archivePath, destDir); err != nil {
		return fmt.Errorf("failed to extract %s: %w", archivePath, err)
	}
	return nil
}
