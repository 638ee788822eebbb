package cmd

import (
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/eda-cli/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	cfgFile string
	debug   bool

	// Loaded configuration
	cfg *cfgpkg.Global
	// Diagnostic logger; a no-op unless --debug is set
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "eda",
	Short: "eda: exploratory data analysis for CSV/TSV/XLSX tables",
	Long: `eda runs univariate and bivariate exploratory analyses over tabular data.

The univariate analysis reports descriptive statistics and a Kolmogorov-Smirnov
normality test for every numeric column and value counts for every categorical
column. The bivariate analysis selects columns by name pattern and draws a
correlation heatmap and a pair plot.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.eda/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
}

func loadConfig() {
	if debug {
		if l, err := zap.NewDevelopment(); err == nil {
			logger = l
		}
	} else {
		logger = zap.NewNop()
	}

	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Default()
	}
	if err := c.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: invalid config, using defaults: %v\n", err)
		c = cfgpkg.Default()
	}
	cfg = c
	logger.Debug("config loaded",
		zap.String("file", cfgFile),
		zap.Float64("alpha", cfg.Alpha),
		zap.String("output_dir", cfg.OutputDir))
}
