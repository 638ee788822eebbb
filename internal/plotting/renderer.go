// Package plotting draws the analysis figures with gonum/plot and writes them
// as image files.
package plotting

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/eda-cli/internal/table"
	"github.com/KaramelBytes/eda-cli/internal/utils"
	mstats "github.com/aclements/go-moremath/stats"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Supported output formats.
var formats = map[string]struct{}{"png": {}, "svg": {}, "pdf": {}}

var (
	fillColor    = color.RGBA{R: 76, G: 114, B: 176, A: 255}
	densityColor = color.RGBA{R: 221, G: 132, B: 82, A: 255}
)

// FileRenderer writes every figure into Dir. The zero value of Width, Height
// and Format falls back to 25x10 cm PNG; Bins <= 0 uses Sturges' rule.
type FileRenderer struct {
	Dir    string
	Format string
	Width  vg.Length
	Height vg.Length
	Bins   int
	Logger *zap.Logger

	files []string
	names map[string]int
}

// NewFileRenderer validates the format and creates dir.
func NewFileRenderer(dir, format string) (*FileRenderer, error) {
	format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if format == "" {
		format = "png"
	}
	if _, ok := formats[format]; !ok {
		return nil, fmt.Errorf("unsupported figure format: %s (use png|svg|pdf)", format)
	}
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create figures dir: %w", err)
	}
	return &FileRenderer{Dir: dir, Format: format}, nil
}

// Files returns the paths written so far, in order.
func (r *FileRenderer) Files() []string {
	return append([]string(nil), r.files...)
}

func (r *FileRenderer) size() (vg.Length, vg.Length) {
	w, h := r.Width, r.Height
	if w <= 0 {
		w = 25 * vg.Centimeter
	}
	if h <= 0 {
		h = 10 * vg.Centimeter
	}
	return w, h
}

func (r *FileRenderer) log() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// Distribution draws a normalized histogram with a kernel density curve next
// to a boxplot, titled with the column name.
func (r *FileRenderer) Distribution(column string, values []float64) error {
	vals := finite(values)
	hist := plot.New()
	hist.Title.Text = column
	hist.X.Label.Text = column
	hist.Y.Label.Text = "Density"
	box := plot.New()
	box.Title.Text = column
	box.HideX()

	if len(vals) > 0 {
		h, err := plotter.NewHist(plotter.Values(vals), r.bins(len(vals)))
		if err != nil {
			return fmt.Errorf("histogram %s: %w", column, err)
		}
		h.Normalize(1)
		h.FillColor = fillColor
		hist.Add(h)
		if f := density(vals); f != nil {
			hist.Add(f)
		}

		b, err := plotter.NewBoxPlot(vg.Points(40), 0, plotter.Values(vals))
		if err != nil {
			return fmt.Errorf("boxplot %s: %w", column, err)
		}
		b.FillColor = fillColor
		box.Add(b)
	}

	w, h := r.size()
	return r.write("univariate_"+utils.Slug(column, "column"), w, h, [][]*plot.Plot{{hist, box}})
}

// Heatmap draws the correlation matrix with a diverging palette on [-1, 1]
// and the coefficient of each cell printed in it.
func (r *FileRenderer) Heatmap(columns []string, corr *mat.SymDense) error {
	p := plot.New()
	p.Title.Text = "Correlation"
	n := len(columns)
	if n > 0 {
		pal := moreland.SmoothBlueRed()
		pal.SetMin(-1)
		pal.SetMax(1)
		hm := plotter.NewHeatMap(corrGrid{m: corr}, pal.Palette(255))
		hm.Min, hm.Max = -1, 1
		hm.NaN = color.Gray{Y: 200}
		p.Add(hm)

		var xys plotter.XYs
		var labels []string
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				xys = append(xys, plotter.XY{X: float64(j), Y: float64(i)})
				v := corr.At(i, j)
				if math.IsNaN(v) {
					labels = append(labels, "-")
				} else {
					labels = append(labels, fmt.Sprintf("%.2f", v))
				}
			}
		}
		l, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
		if err != nil {
			return fmt.Errorf("heatmap labels: %w", err)
		}
		for i := range l.TextStyle {
			l.TextStyle[i].XAlign = draw.XCenter
			l.TextStyle[i].YAlign = draw.YCenter
		}
		p.Add(l)
		p.X.Tick.Marker = nominalTicks(columns)
		p.Y.Tick.Marker = nominalTicks(columns)
	}
	side := r.squareSide(n)
	return r.write("heatmap", side, side, [][]*plot.Plot{{p}})
}

// PairPlot draws an n x n grid: kernel densities on the diagonal, scatter
// plots elsewhere. Column i is on the x axis of grid column i.
func (r *FileRenderer) PairPlot(t *table.Table) error {
	cols := t.Numeric().Columns
	n := len(cols)
	if n == 0 {
		return fmt.Errorf("pair plot: no numeric columns")
	}
	grid := make([][]*plot.Plot, n)
	for row := 0; row < n; row++ {
		grid[row] = make([]*plot.Plot, n)
		for col := 0; col < n; col++ {
			p := plot.New()
			if row == n-1 {
				p.X.Label.Text = cols[col].Name
			}
			if col == 0 {
				p.Y.Label.Text = cols[row].Name
			}
			if row == col {
				vals := finite(cols[col].Values)
				if f := density(vals); f != nil {
					p.Add(f)
				}
			} else {
				xys := pairedPoints(cols[col].Values, cols[row].Values)
				if len(xys) > 0 {
					s, err := plotter.NewScatter(xys)
					if err != nil {
						return fmt.Errorf("scatter %s/%s: %w", cols[col].Name, cols[row].Name, err)
					}
					s.GlyphStyle.Color = fillColor
					s.GlyphStyle.Radius = vg.Points(1.5)
					p.Add(s)
				}
			}
			grid[row][col] = p
		}
	}
	side := r.squareSide(n)
	return r.write("pairplot", side, side, grid)
}

func (r *FileRenderer) squareSide(n int) vg.Length {
	_, h := r.size()
	side := vg.Length(n) * 5 * vg.Centimeter
	if side < h {
		side = h
	}
	return side
}

func (r *FileRenderer) bins(n int) int {
	if r.Bins > 0 {
		return r.Bins
	}
	return int(math.Ceil(math.Log2(float64(n)))) + 1
}

func (r *FileRenderer) write(name string, w, h vg.Length, plots [][]*plot.Plot) error {
	c, err := draw.NewFormattedCanvas(w, h, r.Format)
	if err != nil {
		return err
	}
	rows, cols := len(plots), len(plots[0])
	tiles := draw.Tiles{
		Rows: rows, Cols: cols,
		PadX: vg.Millimeter, PadY: vg.Millimeter,
		PadTop: vg.Points(2), PadBottom: vg.Points(2),
		PadLeft: vg.Points(2), PadRight: vg.Points(2),
	}
	canvases := plot.Align(plots, tiles, draw.New(c))
	for i := range plots {
		for j := range plots[i] {
			if plots[i][j] != nil {
				plots[i][j].Draw(canvases[i][j])
			}
		}
	}
	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	path := filepath.Join(r.Dir, r.uniqueName(name)+"."+r.Format)
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return err
	}
	r.files = append(r.files, path)
	r.log().Debug("figure written", zap.String("path", path))
	return nil
}

// uniqueName suffixes name with __N when an earlier figure of this renderer
// already used it, so columns whose slugs collide do not overwrite each other.
func (r *FileRenderer) uniqueName(name string) string {
	if r.names == nil {
		r.names = map[string]int{}
	}
	base := name
	for r.names[name] > 0 {
		r.names[base]++
		name = fmt.Sprintf("%s__%d", base, r.names[base])
	}
	r.names[name]++
	return name
}

// density returns the kernel density curve of vals, or nil when the sample
// has no spread.
func density(vals []float64) *plotter.Function {
	if len(vals) < 2 || stat.StdDev(vals, nil) == 0 {
		return nil
	}
	kde := &mstats.KDE{Sample: mstats.Sample{Xs: vals}}
	if kde.Bandwidth = mstats.BandwidthScott(kde.Sample); kde.Bandwidth <= 0 || math.IsNaN(kde.Bandwidth) {
		kde.Bandwidth = mstats.BandwidthSilverman(kde.Sample)
	}
	if kde.Bandwidth <= 0 || math.IsNaN(kde.Bandwidth) {
		return nil
	}
	lo, hi := kde.Sample.Bounds()
	f := plotter.NewFunction(kde.PDF)
	f.XMin = lo - 3*kde.Bandwidth
	f.XMax = hi + 3*kde.Bandwidth
	f.Samples = 200
	f.Color = densityColor
	f.Width = vg.Points(1.5)
	return f
}

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

func pairedPoints(x, y []float64) plotter.XYs {
	var xys plotter.XYs
	for i := range x {
		if i >= len(y) {
			break
		}
		if math.IsNaN(x[i]) || math.IsInf(x[i], 0) || math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: x[i], Y: y[i]})
	}
	return xys
}

func nominalTicks(names []string) plot.ConstantTicks {
	ticks := make(plot.ConstantTicks, len(names))
	for i, n := range names {
		ticks[i] = plot.Tick{Value: float64(i), Label: n}
	}
	return ticks
}

// corrGrid adapts a correlation matrix to plotter.GridXYZ. Row 0 of the
// matrix is drawn at the bottom.
type corrGrid struct{ m *mat.SymDense }

func (g corrGrid) Dims() (c, r int)   { n, _ := g.m.Dims(); return n, n }
func (g corrGrid) Z(c, r int) float64 { return g.m.At(r, c) }
func (g corrGrid) X(c int) float64    { return float64(c) }
func (g corrGrid) Y(r int) float64    { return float64(r) }
