package cmd

import (
	"fmt"
	"regexp"

	"github.com/KaramelBytes/eda-cli/internal/analysis"
	"github.com/KaramelBytes/eda-cli/internal/report"
	"github.com/KaramelBytes/eda-cli/internal/table"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var (
	biLoad    loadFlags
	biFigures figureFlags
	biPattern string
	biTop     int
)

var bivariateCmd = &cobra.Command{
	Use:   "bivariate <file>",
	Short: "Correlate the columns matching a name pattern and draw a heatmap and pair plot",
	Long: `Select the columns whose names match --pattern (default: Inmuebles_totales and
every column ending in 2021), compute their Pearson correlation matrix and draw
a correlation heatmap and a pair plot with densities on the diagonal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		fs := cmd.Flags()
		lopt, err := biLoad.options(fs)
		if err != nil {
			return err
		}
		pattern, err := bivariatePattern(fs, biPattern)
		if err != nil {
			return err
		}
		t, err := table.Load(path, lopt)
		if err != nil {
			return err
		}

		dir := biFigures.runDir(path)
		r, err := biFigures.renderer(fs, dir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		opt := analysis.BivariateOptions{Pattern: pattern, Out: out, TopPairs: biTop, Logger: logger}
		if r != nil {
			opt.Renderer = r
		}
		res, err := analysis.Bivariate(t, opt)
		if err != nil {
			return err
		}
		if len(res.Skipped) > 0 {
			warnf("non-numeric columns excluded from correlation: %v", res.Skipped)
		}
		if r == nil {
			return nil
		}
		m := report.NewManifest(path)
		m.RecordBivariate(pattern.String(), res)
		m.AddFigures(r.Files()...)
		mp, err := m.Save(dir)
		if err != nil {
			return err
		}
		logger.Debug("manifest written", zap.String("path", mp), zap.String("run_id", m.RunID))
		fmt.Fprintf(out, "✓ Wrote %d figures to %s\n", len(r.Files()), dir)
		return nil
	},
}

// bivariatePattern compiles the --pattern flag, or the configured pattern.
func bivariatePattern(fs *pflag.FlagSet, flagValue string) (*regexp.Regexp, error) {
	expr := effectiveConfig().BivariatePattern
	if fs.Changed("pattern") {
		expr = flagValue
	}
	if expr == "" {
		expr = analysis.DefaultPattern
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid --pattern: %w", err)
	}
	return re, nil
}

func init() {
	rootCmd.AddCommand(bivariateCmd)
	f := bivariateCmd.Flags()
	biLoad.register(f)
	biFigures.register(f)
	f.StringVar(&biPattern, "pattern", analysis.DefaultPattern, "regular expression selecting columns by name (default from config)")
	f.IntVar(&biTop, "top", 10, "number of strongest correlation pairs to print")
}
