package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/eda-cli/internal/analysis"
	"github.com/KaramelBytes/eda-cli/internal/utils"
	"github.com/google/uuid"
)

// ManifestFileName is the name of the manifest written into an output directory.
const ManifestFileName = "manifest.json"

// Manifest records what one analysis run produced.
type Manifest struct {
	RunID      string          `json:"run_id"`
	Source     string          `json:"source"`
	CreatedAt  time.Time       `json:"created_at"`
	Univariate *UnivariateInfo `json:"univariate,omitempty"`
	Bivariate  *BivariateInfo  `json:"bivariate,omitempty"`
	// Summary is the path of the exported summary file, if any.
	Summary string   `json:"summary,omitempty"`
	Figures []string `json:"figures"`
}

// UnivariateInfo is the manifest view of an analysis.Summary.
type UnivariateInfo struct {
	Alpha          float64  `json:"alpha"`
	Features       []string `json:"features"`
	NormalCount    int      `json:"normal_count"`
	NotNormalCount int      `json:"not_normal_count"`
	Failed         []string `json:"failed,omitempty"`
}

// BivariateInfo is the manifest view of an analysis.BivariateResult.
type BivariateInfo struct {
	Pattern string              `json:"pattern"`
	Columns []string            `json:"columns"`
	Skipped []string            `json:"skipped,omitempty"`
	Pairs   []analysis.PairCorr `json:"pairs,omitempty"`
}

// NewManifest starts a manifest for source with a fresh run id.
func NewManifest(source string) *Manifest {
	return &Manifest{
		RunID:     uuid.NewString(),
		Source:    source,
		CreatedAt: time.Now().UTC(),
		Figures:   []string{},
	}
}

// RecordUnivariate stores the headline results of s.
func (m *Manifest) RecordUnivariate(s *analysis.Summary) {
	info := &UnivariateInfo{
		Alpha:          s.Alpha,
		Features:       s.Features(),
		NormalCount:    s.NormalCount,
		NotNormalCount: s.NotNormalCount,
	}
	for _, r := range s.Failed() {
		info.Failed = append(info.Failed, r.Feature)
	}
	m.Univariate = info
}

// RecordBivariate stores the selection and correlation pairs of res.
func (m *Manifest) RecordBivariate(pattern string, res *analysis.BivariateResult) {
	m.Bivariate = &BivariateInfo{
		Pattern: pattern,
		Columns: res.Columns,
		Skipped: res.Skipped,
		Pairs:   res.Pairs(),
	}
}

// AddFigures appends figure paths.
func (m *Manifest) AddFigures(paths ...string) {
	m.Figures = append(m.Figures, paths...)
}

// Save writes the manifest into dir using an atomic write and returns its path.
func (m *Manifest) Save(dir string) (string, error) {
	if dir == "" {
		return "", errors.New("manifest directory not set")
	}
	if err := utils.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("ensure dir: %w", err)
	}
	data, err := utils.PrettyJSON(m)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, ManifestFileName)
	if err := utils.SafeWriteFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// LoadManifest reads the manifest stored in dir.
func LoadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("manifest not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}
