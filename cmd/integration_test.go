package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/eda-cli/internal/report"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags puts every flag back to its default so Changed state does not
// leak between invocations of the shared rootCmd.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and returns stdout and the error.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	rootCmd.SetOut(nil)
	return out.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

// sandbox isolates HOME and the working directory.
func sandbox(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(home))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return home
}

func writeFile(t *testing.T, path, body string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const townsCSV = "Municipio;Inmuebles_totales;Renta2021;Edad2021;Nombre\n" +
	"Alba;1.200;21000,5;41,2;a\n" +
	"Baza;3.400;18000,0;45,0;b\n" +
	"Cuenca;2.100;25000,0;39,5;a\n" +
	"Dos Hermanas;5.600;19500,0;38,0;c\n" +
	"Elche;7.300;22500,0;40,1;a\n"

func TestCLI_UnivariateToStdout(t *testing.T) {
	home := sandbox(t)
	p := writeFile(t, filepath.Join(home, "city.csv"), "city,population\nA,100\nB,200\nA,150\n")

	out := runCmd(t, "univariate", p, "--no-figures")
	assert.Contains(t, out, "Categoric feature: city")
	assert.Contains(t, out, "The column population does not follow a normal distribution.")
	assert.Contains(t, out, "Number of variables that do not follow a normal distribution: 1")
	assert.Contains(t, out, "[UNIVARIATE SUMMARY]")
	assert.Contains(t, out, "| population | 150 | 150 | 100 |")

	_, err := os.Stat(filepath.Join(home, "eda-output"))
	assert.True(t, os.IsNotExist(err), "--no-figures writes nothing")
}

func TestCLI_UnivariateFiguresAndCSVSummary(t *testing.T) {
	home := sandbox(t)
	p := writeFile(t, filepath.Join(home, "towns.csv"), townsCSV)
	figs := filepath.Join(home, "figs")
	summary := filepath.Join(home, "out", "summary.csv")

	out := runCmd(t, "univariate", p, "--decimal", "comma", "--thousands", ".",
		"--figures-dir", figs, "--format", "csv", "-o", summary)
	assert.Contains(t, out, "✓ Wrote summary to "+summary)
	assert.Contains(t, out, "✓ Wrote 3 figures to "+figs)

	b, err := os.ReadFile(summary)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "Inmuebles_totales,3920,3400,1200,"), lines[1])

	for _, name := range []string{"univariate_inmuebles-totales.png", "univariate_renta2021.png", "univariate_edad2021.png"} {
		_, err := os.Stat(filepath.Join(figs, name))
		assert.NoError(t, err, name)
	}
	m, err := report.LoadManifest(figs)
	require.NoError(t, err)
	assert.Equal(t, p, m.Source)
	assert.Equal(t, summary, m.Summary)
	assert.Len(t, m.Figures, 3)
	assert.Equal(t, []string{"Inmuebles_totales", "Renta2021", "Edad2021"}, m.Univariate.Features)
}

func TestCLI_UnivariateNonFinite(t *testing.T) {
	home := sandbox(t)
	p := writeFile(t, filepath.Join(home, "gaps.csv"), "x,y\n1,2\n,3\n4,5\n")

	_, err := execute(t, "univariate", p, "--no-figures")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "x"`)

	out := runCmd(t, "univariate", p, "--no-figures", "--isolate-errors")
	assert.Contains(t, out, "The column x could not be analyzed")
	assert.Contains(t, out, "| y |")
}

func TestCLI_UnivariateBadFlags(t *testing.T) {
	home := sandbox(t)
	p := writeFile(t, filepath.Join(home, "a.csv"), "x\n1\n2\n")
	_, err := execute(t, "univariate", p, "--alpha", "1.5")
	assert.ErrorContains(t, err, "--alpha")
	_, err = execute(t, "univariate", p, "--delimiter", "#")
	assert.ErrorContains(t, err, "unsupported --delimiter")
	_, err = execute(t, "univariate", p, "--format", "xml", "--no-figures")
	assert.ErrorContains(t, err, "unsupported summary format")
}

func TestCLI_Bivariate(t *testing.T) {
	home := sandbox(t)
	p := writeFile(t, filepath.Join(home, "towns.csv"), townsCSV)
	figs := filepath.Join(home, "biv")

	out := runCmd(t, "bivariate", p, "--decimal", "comma", "--thousands", ".", "--figures-dir", figs)
	assert.Contains(t, out, "Bivariate analysis of 3 columns: Inmuebles_totales, Renta2021, Edad2021")
	assert.Contains(t, out, "[CORRELATIONS]")
	assert.Contains(t, out, "✓ Wrote 2 figures to "+figs)
	for _, name := range []string{"heatmap.png", "pairplot.png", report.ManifestFileName} {
		_, err := os.Stat(filepath.Join(figs, name))
		assert.NoError(t, err, name)
	}
	m, err := report.LoadManifest(figs)
	require.NoError(t, err)
	assert.Equal(t, []string{"Inmuebles_totales", "Renta2021", "Edad2021"}, m.Bivariate.Columns)
	assert.Len(t, m.Bivariate.Pairs, 3)
}

func TestCLI_BivariateNoMatch(t *testing.T) {
	home := sandbox(t)
	p := writeFile(t, filepath.Join(home, "plain.csv"), "a,b\n1,2\n3,4\n")
	_, err := execute(t, "bivariate", p, "--no-figures")
	assert.ErrorContains(t, err, "no columns matched")

	out := runCmd(t, "bivariate", p, "--no-figures", "--pattern", "^[ab]$")
	assert.Contains(t, out, "Bivariate analysis of 2 columns: a, b")
	assert.Contains(t, out, "- a ~ b: r=1.000")
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	home := sandbox(t)
	runCmd(t, "config", "set", "alpha", "0.01")
	runCmd(t, "config", "set", "figure_format", "svg")
	_, err := os.Stat(filepath.Join(home, ".eda", "config.yaml"))
	require.NoError(t, err)

	out := runCmd(t, "config", "show")
	assert.Contains(t, out, "alpha: 0.01")
	assert.Contains(t, out, "figure_format: svg")

	_, err = execute(t, "config", "set", "alpha", "2")
	assert.Error(t, err)
	_, err = execute(t, "config", "set", "nope", "1")
	assert.ErrorContains(t, err, "unknown config key")
}
