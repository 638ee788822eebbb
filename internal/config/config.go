package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix = "EDA"
	dirName   = ".eda"
)

// Global configuration structure.
type Global struct {
	// Normality test significance level
	Alpha float64 `mapstructure:"alpha" yaml:"alpha"`
	// Column selection for the bivariate analysis
	BivariatePattern string `mapstructure:"bivariate_pattern" yaml:"bivariate_pattern"`
	// Where summaries, manifests and figures go
	OutputDir      string  `mapstructure:"output_dir" yaml:"output_dir"`
	FigureFormat   string  `mapstructure:"figure_format" yaml:"figure_format"`
	FigureWidthCm  float64 `mapstructure:"figure_width_cm" yaml:"figure_width_cm"`
	FigureHeightCm float64 `mapstructure:"figure_height_cm" yaml:"figure_height_cm"`
	HistogramBins  int     `mapstructure:"histogram_bins" yaml:"histogram_bins"`
	IsolateErrors  bool    `mapstructure:"isolate_errors" yaml:"isolate_errors"`
	SummaryFormat  string  `mapstructure:"summary_format" yaml:"summary_format"`

	// Loader defaults
	MaxRows            int    `mapstructure:"max_rows" yaml:"max_rows"`
	Delimiter          string `mapstructure:"delimiter" yaml:"delimiter"`
	DecimalSeparator   string `mapstructure:"decimal_separator" yaml:"decimal_separator"`
	ThousandsSeparator string `mapstructure:"thousands_separator" yaml:"thousands_separator"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"alpha", "bivariate_pattern", "output_dir", "figure_format",
	"figure_width_cm", "figure_height_cm", "histogram_bins", "isolate_errors",
	"summary_format", "max_rows", "delimiter", "decimal_separator", "thousands_separator",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("alpha", 0.05)
	v.SetDefault("bivariate_pattern", `\bInmuebles_totales\b|\b\w+2021\b`)
	v.SetDefault("output_dir", "eda-output")
	v.SetDefault("figure_format", "png")
	v.SetDefault("figure_width_cm", 25.0)
	v.SetDefault("figure_height_cm", 10.0)
	v.SetDefault("histogram_bins", 0)
	v.SetDefault("isolate_errors", false)
	v.SetDefault("summary_format", "markdown")
	v.SetDefault("max_rows", 0)
	v.SetDefault("delimiter", "")
	v.SetDefault("decimal_separator", "")
	v.SetDefault("thousands_separator", "")
}

// Default returns the built-in configuration.
func Default() *Global {
	v := viper.New()
	setDefaults(v)
	var c Global
	_ = v.Unmarshal(&c)
	return &c
}

// Validate reports the first invalid setting.
func (c *Global) Validate() error {
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf("alpha must be in (0, 1), got %g", c.Alpha)
	}
	if _, err := regexp.Compile(c.BivariatePattern); err != nil {
		return fmt.Errorf("bivariate_pattern: %w", err)
	}
	switch strings.ToLower(c.FigureFormat) {
	case "png", "svg", "pdf":
	default:
		return fmt.Errorf("figure_format must be png|svg|pdf, got %q", c.FigureFormat)
	}
	if c.FigureWidthCm <= 0 || c.FigureHeightCm <= 0 {
		return errors.New("figure_width_cm and figure_height_cm must be positive")
	}
	if c.HistogramBins < 0 {
		return fmt.Errorf("histogram_bins must be >= 0, got %d", c.HistogramBins)
	}
	if c.MaxRows < 0 {
		return fmt.Errorf("max_rows must be >= 0, got %d", c.MaxRows)
	}
	return nil
}

// Dir returns ~/.eda.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.eda/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
// A .env file in the working directory is read first; variables already set
// in the environment win over it.
func Load(cfgFile string) (*Global, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Set assigns key from its string form, as typed on the command line.
func (c *Global) Set(key, value string) error {
	v := viper.New()
	cur, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(string(cur))); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	known := false
	for _, k := range Keys {
		if k == key {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown config key: %s (known: %s)", key, strings.Join(Keys, ", "))
	}
	v.Set(key, value)
	var next Global
	if err := v.Unmarshal(&next); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*c = next
	return nil
}
