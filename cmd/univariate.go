package cmd

import (
	"fmt"

	"github.com/KaramelBytes/eda-cli/internal/analysis"
	"github.com/KaramelBytes/eda-cli/internal/report"
	"github.com/KaramelBytes/eda-cli/internal/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	uniLoad     loadFlags
	uniFigures  figureFlags
	uniAlpha    float64
	uniIsolate  bool
	uniFormat   string
	uniOutput   string
	uniManifest bool
)

var univariateCmd = &cobra.Command{
	Use:   "univariate <file>",
	Short: "Describe every column and test numeric columns for normality",
	Long: `Describe every column of a CSV/TSV/XLSX table.

Numeric columns get mean, median, mode, variance, standard deviation, the 25th
and 75th percentiles and a Kolmogorov-Smirnov test against N(0,1); they are
labelled "Normal" when p >= alpha. Categorical columns get value counts.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		fs := cmd.Flags()
		lopt, err := uniLoad.options(fs)
		if err != nil {
			return err
		}
		opt, err := univariateOptions(fs, uniAlpha, uniIsolate)
		if err != nil {
			return err
		}
		format, err := summaryFormat(fs, uniFormat)
		if err != nil {
			return err
		}

		t, err := table.Load(path, lopt)
		if err != nil {
			return err
		}
		logger.Debug("table loaded", zap.String("file", path), zap.Int("rows", t.Len()), zap.Int("columns", len(t.Columns)))

		dir := uniFigures.runDir(path)
		r, err := uniFigures.renderer(fs, dir)
		if err != nil {
			return err
		}
		if r != nil {
			opt.Renderer = r
		}
		out := cmd.OutOrStdout()
		opt.Out = out

		s, err := analysis.Univariate(t, opt)
		if err != nil {
			return err
		}

		if uniOutput != "" {
			if err := writeSummaryFile(uniOutput, s, format); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Wrote summary to %s\n", uniOutput)
		} else {
			fmt.Fprintln(out)
			if err := report.WriteSummary(out, s, format); err != nil {
				return err
			}
		}
		for _, row := range s.Failed() {
			warnf("%v", row.Err)
		}

		if r != nil || uniManifest {
			m := report.NewManifest(path)
			m.RecordUnivariate(s)
			m.Summary = uniOutput
			if r != nil {
				m.AddFigures(r.Files()...)
				fmt.Fprintf(out, "✓ Wrote %d figures to %s\n", len(r.Files()), dir)
			}
			mp, err := m.Save(dir)
			if err != nil {
				return err
			}
			logger.Debug("manifest written", zap.String("path", mp), zap.String("run_id", m.RunID))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(univariateCmd)
	f := univariateCmd.Flags()
	uniLoad.register(f)
	uniFigures.register(f)
	f.Float64Var(&uniAlpha, "alpha", 0.05, "significance level of the normality test (default from config)")
	f.BoolVar(&uniIsolate, "isolate-errors", false, "record failing columns on their row instead of aborting")
	f.StringVar(&uniFormat, "format", "markdown", "summary format: markdown|csv|json|yaml (default from config)")
	f.StringVarP(&uniOutput, "output", "o", "", "optional path to write the summary")
	f.BoolVar(&uniManifest, "manifest", false, "write a run manifest even with --no-figures")
}
