package cli

import (
	"fmt"

	"github.com/remicres/theia-picker/pkg/catalog"
	"github.com/remicres/theia-picker/pkg/config"
	"github.com/remicres/theia-picker/pkg/hook"
	"github.com/spf13/cobra"
)

// These variables will be set by the main package
var (
	ConfigPath *string
	LogLevel   *string
	NoColor    *bool
)

// loadConfig loads the configuration from the --config flag or the default
// location.
func loadConfig() (*config.Config, error) {
	configPath := ""
	if ConfigPath != nil {
		configPath = *ConfigPath
	}
	if configPath == "" {
		defaultPath, err := config.GetDefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get default config path: %w", err)
		}
		configPath = defaultPath
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newCatalog creates a catalog client from the configuration.
func newCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	creds, err := cfg.ToCredentials()
	if err != nil {
		return nil, err
	}
	return catalog.New(creds, catalog.Options{
		MaxRecords: cfg.Settings.MaxRecords,
		Timeout:    cfg.Settings.HTTPTimeout,
	}), nil
}

// newHookManager loads the hook scripts referenced by the configuration.
func newHookManager(cfg *config.Config) (*hook.DefaultManager, error) {
	hooks := hook.NewManager()
	if cfg.Hooks.PreDownload != "" {
		if err := hooks.LoadFromFile(hook.PreDownload, cfg.Hooks.PreDownload); err != nil {
			return nil, err
		}
	}
	if cfg.Hooks.PostDownload != "" {
		if err := hooks.LoadFromFile(hook.PostDownload, cfg.Hooks.PostDownload); err != nil {
			return nil, err
		}
	}
	return hooks, nil
}

// searchFlags are the search criteria shared by the search, files and
// download commands.
type searchFlags struct {
	startDate  string
	endDate    string
	bbox       []float64
	tile       string
	level      string
	minVersion string
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.startDate, "start-date", "", "start date (e.g. 2023-02-01 or 01/02/2023)")
	cmd.Flags().StringVar(&f.endDate, "end-date", "", "completion date; the day after start-date is used when omitted")
	cmd.Flags().Float64SliceVar(&f.bbox, "bbox", nil, "bounding box in WGS84: lonmin,latmin,lonmax,latmax")
	cmd.Flags().StringVar(&f.tile, "tile", "", "tile name, starting with \"T\" (e.g. T31TEJ)")
	cmd.Flags().StringVar(&f.level, "level", "LEVEL2A", "product level (e.g. LEVEL2A, LEVEL3A)")
	cmd.Flags().StringVar(&f.minVersion, "min-version", "", "minimum product processing version")
	_ = cmd.MarkFlagRequired("start-date")
}

func (f *searchFlags) criteria() catalog.Criteria {
	return catalog.Criteria{
		StartDate:  f.startDate,
		EndDate:    f.endDate,
		BBox:       f.bbox,
		TileName:   f.tile,
		Level:      f.level,
		MinVersion: f.minVersion,
	}
}
