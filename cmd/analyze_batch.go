package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/KaramelBytes/eda-cli/internal/analysis"
	"github.com/KaramelBytes/eda-cli/internal/report"
	"github.com/KaramelBytes/eda-cli/internal/table"
	"github.com/KaramelBytes/eda-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	abLoad      loadFlags
	abAlpha     float64
	abIsolate   bool
	abFormat    string
	abOutputDir string
	abPattern   string
	abNoFigures bool
	abFigFormat string
	abQuiet     bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Run the univariate and bivariate analyses over multiple CSV/TSV/XLSX files",
	Long: `Run both analyses for every input file (globs are expanded). Each file gets its
own directory under --output holding the summary, the figures and a manifest;
a second file with the same name gets a __2 suffix instead of overwriting.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}

		fs := cmd.Flags()
		lopt, err := abLoad.options(fs)
		if err != nil {
			return err
		}
		uopt, err := univariateOptions(fs, abAlpha, abIsolate)
		if err != nil {
			return err
		}
		format, err := summaryFormat(fs, abFormat)
		if err != nil {
			return err
		}
		pattern, err := bivariatePattern(fs, abPattern)
		if err != nil {
			return err
		}
		outDir := effectiveConfig().OutputDir
		if fs.Changed("output") {
			outDir = abOutputDir
		}
		if err := utils.EnsureDir(outDir); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}

		out := cmd.OutOrStdout()
		console := out
		if abQuiet {
			console = io.Discard
		}
		figs := figureFlags{noFigures: abNoFigures, format: abFigFormat}

		total := len(files)
		for i, path := range files {
			if !abQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			t, err := table.Load(path, lopt)
			if err != nil {
				return err
			}
			runDir := utils.UniquePath(outDir, datasetSlug(path), "")
			if filepath.Base(runDir) != datasetSlug(path) && !abQuiet {
				fmt.Fprintf(out, "⚠ Detected existing output, writing to %s to avoid overwrite.\n", filepath.Base(runDir))
			}
			if err := utils.EnsureDir(runDir); err != nil {
				return fmt.Errorf("create run dir: %w", err)
			}
			r, err := figs.renderer(fs, runDir)
			if err != nil {
				return err
			}

			m := report.NewManifest(path)
			opt := uopt
			opt.Out = console
			if r != nil {
				opt.Renderer = r
			}
			s, err := analysis.Univariate(t, opt)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			m.RecordUnivariate(s)
			summaryPath := filepath.Join(runDir, "summary"+format.Ext())
			if err := writeSummaryFile(summaryPath, s, format); err != nil {
				return err
			}
			m.Summary = summaryPath

			bopt := analysis.BivariateOptions{Pattern: pattern, Out: console, Logger: logger}
			if r != nil {
				bopt.Renderer = r
			}
			res, err := analysis.Bivariate(t, bopt)
			switch {
			case errors.Is(err, analysis.ErrNoColumnsSelected):
				warnf("%s: bivariate analysis skipped: %v", filepath.Base(path), err)
			case err != nil:
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			default:
				m.RecordBivariate(pattern.String(), res)
			}

			if r != nil {
				m.AddFigures(r.Files()...)
			}
			if _, err := m.Save(runDir); err != nil {
				return err
			}
			if !abQuiet {
				fmt.Fprintf(out, "✓ Wrote analysis of %s to %s\n", filepath.Base(path), runDir)
			}
		}
		return nil
	},
}

// expandInputs expands globs, keeps literal paths that exist, drops
// duplicates and sorts the result.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	f := analyzeBatchCmd.Flags()
	abLoad.register(f)
	f.Float64Var(&abAlpha, "alpha", 0.05, "significance level of the normality test (default from config)")
	f.BoolVar(&abIsolate, "isolate-errors", false, "record failing columns on their row instead of aborting")
	f.StringVar(&abFormat, "format", "markdown", "summary format: markdown|csv|json|yaml (default from config)")
	f.StringVarP(&abOutputDir, "output", "o", "eda-output", "output directory (default from config)")
	f.StringVar(&abPattern, "pattern", analysis.DefaultPattern, "regular expression selecting bivariate columns (default from config)")
	f.BoolVar(&abNoFigures, "no-figures", false, "skip rendering figures")
	f.StringVar(&abFigFormat, "figure-format", "", "figure format: png|svg|pdf (default from config)")
	f.BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
}
