package analysis

import (
	"fmt"
	"strings"
)

// Markdown renders the summary as compact sectioned text.
func (s *Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("[UNIVARIATE SUMMARY]\n")
	if s.Source != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", s.Source))
	}
	b.WriteString(fmt.Sprintf("Numeric columns: %d (alpha %.3g)\n", len(s.Rows), s.Alpha))
	b.WriteString(fmt.Sprintf("Normal: %d, not normal: %d\n\n", s.NormalCount, s.NotNormalCount))

	if len(s.Rows) > 0 {
		b.WriteString("| Feature | Mean | Median | Mode | Variance | Standard_Deviation | Percentile_25 | Percentile_75 | K_test | p_value | Distribution |\n")
		b.WriteString("| --- | --- | --- | --- | --- | --- | --- | --- | --- | --- | --- |\n")
		for _, r := range s.Rows {
			b.WriteString(fmt.Sprintf("| %s | %.4g | %.4g | %.4g | %.4g | %.4g | %.4g | %.4g | %.4f | %.4g | %s |\n",
				safeVal(safeName(r.Feature)), r.Mean, r.Median, r.Mode, r.Variance, r.StdDev,
				r.Percentile25, r.Percentile75, r.KSStatistic, r.PValue, r.Distribution))
		}
	}

	if len(s.Categorical) > 0 {
		b.WriteString("\n[CATEGORICAL]\n")
		for _, c := range s.Categorical {
			b.WriteString(fmt.Sprintf("- %s: unique=%d", safeName(c.Column), c.Unique))
			if len(c.Counts) > 0 {
				b.WriteString(" — ")
				for i, kv := range c.Counts {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
			}
			b.WriteString("\n")
		}
	}

	if failed := s.Failed(); len(failed) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, r := range failed {
			b.WriteString("- ")
			b.WriteString(r.Err.Error())
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}
func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
