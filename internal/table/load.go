package table

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ErrUnsupportedFormat is returned by Load for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported table format")

// Options controls how raw records become a Table.
type Options struct {
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, it is sniffed from the header line.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune // optional; if 0, auto-detect common separators (',' '.' space)
	// NaNValues are cell contents treated as missing, compared after trimming.
	NaNValues []string
	// SheetName and SheetIndex select the XLSX sheet; SheetIndex is 1-based.
	SheetName  string
	SheetIndex int
}

// DefaultOptions returns reasonable defaults for table loading.
func DefaultOptions() Options {
	return Options{
		NaNValues:  []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "-"},
		SheetIndex: 1,
	}
}

// Load reads a CSV, TSV or XLSX file, choosing the reader by extension.
func Load(path string, opt Options) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".txt":
		return LoadCSV(path, opt)
	case ".xlsx":
		return LoadXLSX(path, opt)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
}

// LoadCSV reads a delimited text file whose first record is the header.
func LoadCSV(path string, opt Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	br := bufio.NewReader(f)
	if bom, _ := br.Peek(3); string(bom) == "\ufeff" {
		_, _ = br.Discard(3)
	}
	delim := opt.Delimiter
	if delim == 0 {
		head, _ := br.Peek(4096)
		line := string(head)
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
		}
		delim = sniffDelimiter(path, line)
	}
	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	var records [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(records), err)
		}
		records = append(records, rec)
		if opt.MaxRows > 0 && len(records) > opt.MaxRows {
			break
		}
	}
	t, err := FromRecords(records, opt)
	if err != nil {
		return nil, err
	}
	t.Name = filepath.Base(path)
	return t, nil
}

// FromRecords builds a Table from raw string records. The first record is the
// header. Cells are normalized (locale numbers, missing markers) before gota
// detects each column's type.
func FromRecords(records [][]string, opt Options) (*Table, error) {
	if len(records) == 0 || len(records[0]) == 0 {
		return &Table{}, nil
	}
	header := records[0]
	ncol := len(header)
	rows := records[1:]
	if opt.MaxRows > 0 && len(rows) > opt.MaxRows {
		rows = rows[:opt.MaxRows]
	}
	nan := make(map[string]struct{}, len(opt.NaNValues))
	for _, v := range opt.NaNValues {
		nan[v] = struct{}{}
	}

	norm := make([][]string, 0, len(rows)+1)
	hdr := make([]string, ncol)
	for i, h := range header {
		hdr[i] = strings.TrimSpace(h)
	}
	// Spreadsheet exports often start with a UTF-8 byte order mark.
	hdr[0] = strings.TrimPrefix(hdr[0], "\ufeff")
	norm = append(norm, hdr)
	for _, rec := range rows {
		out := make([]string, ncol)
		for j := 0; j < ncol; j++ {
			v := ""
			if j < len(rec) {
				v = strings.TrimSpace(rec[j])
			}
			if _, ok := nan[v]; ok {
				out[j] = "NaN"
				continue
			}
			if x, ok := parseNumeric(v, opt); ok {
				out[j] = strconv.FormatFloat(x, 'f', -1, 64)
				continue
			}
			out[j] = v
		}
		norm = append(norm, out)
	}
	if len(norm) == 1 {
		// Header only: gota cannot infer types, so every column is categorical.
		cols := make([]Column, ncol)
		for i, h := range hdr {
			cols[i] = Categorical(h)
		}
		return New("", cols...)
	}
	df := dataframe.LoadRecords(norm,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.DefaultType(series.String),
	)
	return FromDataFrame(df)
}

// FromDataFrame converts a gota DataFrame into a Table. Int and float series
// become numeric columns; string and bool series become categorical ones.
func FromDataFrame(df dataframe.DataFrame) (*Table, error) {
	if df.Err != nil {
		return nil, fmt.Errorf("load dataframe: %w", df.Err)
	}
	names := df.Names()
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		s := df.Col(name)
		if s.Err != nil {
			return nil, fmt.Errorf("column %q: %w", name, s.Err)
		}
		switch s.Type() {
		case series.Int, series.Float:
			vals := s.Float()
			for i := range vals {
				if s.Elem(i).IsNA() {
					vals[i] = math.NaN()
				}
			}
			cols = append(cols, Numeric(name, vals...))
		default:
			labels := make([]string, s.Len())
			for i := range labels {
				e := s.Elem(i)
				if e.IsNA() {
					continue
				}
				labels[i] = e.String()
			}
			cols = append(cols, Categorical(name, labels...))
		}
	}
	return New("", cols...)
}

// sniffDelimiter picks '\t' for .tsv files, otherwise the most frequent of
// ',' ';' '\t' '|' in the header line (',' on ties).
func sniffDelimiter(path, header string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	best, n := ',', strings.Count(header, ",")
	for _, d := range []rune{';', '\t', '|'} {
		if c := strings.Count(header, string(d)); c > n {
			best, n = d, c
		}
	}
	return best
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, false
	}
	if strings.HasSuffix(raw, "%") {
		raw = strings.TrimSuffix(raw, "%")
	}
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		if cpos >= 0 && dpos >= 0 {
			if cpos > dpos {
				dec = ','
				thou = '.'
			} else {
				dec = '.'
				thou = ','
			}
		} else if cpos >= 0 {
			dec = ','
		} else {
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	// "NaN", "Inf" and friends are spelled out by ParseFloat but are not numbers here.
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
