package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/eda-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/eda-cli/internal/config"
	"github.com/KaramelBytes/eda-cli/internal/plotting"
	"github.com/KaramelBytes/eda-cli/internal/report"
	"github.com/KaramelBytes/eda-cli/internal/table"
	"github.com/KaramelBytes/eda-cli/internal/utils"
	"github.com/spf13/pflag"
	"gonum.org/v1/plot/vg"
)

// loadFlags are the table loading flags shared by every analysis command.
type loadFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	sheetName  string
	sheetIndex int
	maxRows    int
}

func (l *loadFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&l.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	fs.StringVar(&l.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	fs.StringVar(&l.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	fs.StringVar(&l.sheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	fs.IntVar(&l.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	fs.IntVar(&l.maxRows, "max-rows", 0, "maximum rows to process (0 = unlimited)")
}

// options merges the flags over the configuration. Flags win only when set.
func (l *loadFlags) options(fs *pflag.FlagSet) (table.Options, error) {
	c := effectiveConfig()
	opt := table.DefaultOptions()

	delim, dec, thou := c.Delimiter, c.DecimalSeparator, c.ThousandsSeparator
	if fs.Changed("delimiter") {
		delim = l.delimiter
	}
	if fs.Changed("decimal") {
		dec = l.decimal
	}
	if fs.Changed("thousands") {
		thou = l.thousands
	}
	var err error
	if opt.Delimiter, err = parseDelimiter(delim); err != nil {
		return opt, err
	}
	if opt.DecimalSeparator, err = parseDecimal(dec); err != nil {
		return opt, err
	}
	if opt.ThousandsSeparator, err = parseThousands(thou); err != nil {
		return opt, err
	}

	opt.MaxRows = c.MaxRows
	if fs.Changed("max-rows") {
		opt.MaxRows = l.maxRows
	}
	if opt.MaxRows < 0 {
		return opt, fmt.Errorf("--max-rows must be >= 0")
	}
	opt.SheetName = l.sheetName
	opt.SheetIndex = l.sheetIndex
	return opt, nil
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";":
		return ';', nil
	case "|":
		return '|', nil
	default:
		return 0, fmt.Errorf("unsupported --delimiter: %s", s)
	}
}

func parseDecimal(s string) (rune, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ",", "comma":
		return ',', nil
	case ".", "dot":
		return '.', nil
	case "":
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", s)
	}
}

func parseThousands(s string) (rune, error) {
	switch strings.ToLower(s) {
	case ",":
		return ',', nil
	case ".":
		return '.', nil
	case "space", " ":
		return ' ', nil
	case "":
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", s)
	}
}

// figureFlags control where figures go.
type figureFlags struct {
	dir       string
	noFigures bool
	format    string
}

func (f *figureFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.dir, "figures-dir", "", "directory for figures and the run manifest (default <output_dir>/<file>)")
	fs.BoolVar(&f.noFigures, "no-figures", false, "skip rendering figures")
	fs.StringVar(&f.format, "figure-format", "", "figure format: png|svg|pdf (default from config)")
}

// renderer builds the file renderer for dir, or returns nil with --no-figures.
func (f *figureFlags) renderer(fs *pflag.FlagSet, dir string) (*plotting.FileRenderer, error) {
	if f.noFigures {
		return nil, nil
	}
	c := effectiveConfig()
	format := c.FigureFormat
	if fs.Changed("figure-format") {
		format = f.format
	}
	r, err := plotting.NewFileRenderer(dir, format)
	if err != nil {
		return nil, err
	}
	r.Width = vg.Length(c.FigureWidthCm) * vg.Centimeter
	r.Height = vg.Length(c.FigureHeightCm) * vg.Centimeter
	r.Bins = c.HistogramBins
	r.Logger = logger
	return r, nil
}

// runDir resolves the per-file output directory.
func (f *figureFlags) runDir(path string) string {
	if f.dir != "" {
		return f.dir
	}
	return filepath.Join(effectiveConfig().OutputDir, datasetSlug(path))
}

func datasetSlug(path string) string {
	base := filepath.Base(path)
	return utils.Slug(strings.TrimSuffix(base, filepath.Ext(base)), "dataset")
}

func effectiveConfig() *cfgpkg.Global {
	if cfg == nil {
		return cfgpkg.Default()
	}
	return cfg
}

// univariateOptions merges alpha and isolation flags over the configuration.
func univariateOptions(fs *pflag.FlagSet, alpha float64, isolate bool) (analysis.UnivariateOptions, error) {
	c := effectiveConfig()
	opt := analysis.DefaultUnivariateOptions()
	opt.Alpha = c.Alpha
	if fs.Changed("alpha") {
		if alpha <= 0 || alpha >= 1 {
			return opt, fmt.Errorf("--alpha must be in (0, 1), got %g", alpha)
		}
		opt.Alpha = alpha
	}
	opt.IsolateErrors = c.IsolateErrors
	if fs.Changed("isolate-errors") {
		opt.IsolateErrors = isolate
	}
	opt.Logger = logger
	return opt, nil
}

func summaryFormat(fs *pflag.FlagSet, flagValue string) (report.Format, error) {
	if fs.Changed("format") {
		return report.ParseFormat(flagValue)
	}
	return report.ParseFormat(effectiveConfig().SummaryFormat)
}

// writeSummaryFile exports s to path atomically.
func writeSummaryFile(path string, s *analysis.Summary, format report.Format) error {
	var sb strings.Builder
	if err := report.WriteSummary(&sb, s, format); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := utils.SafeWriteFile(path, []byte(sb.String())); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// warnf prints a non-fatal warning the way every command does.
func warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "⚠ Warning: "+format+"\n", args...)
}
