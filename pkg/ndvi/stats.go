package ndvi

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultVegetationThreshold is the NDVI above which a pixel counts as vegetated.
const DefaultVegetationThreshold = 0.2

// Stats summarizes the valid pixels of an NDVI result in NDVI units.
type Stats struct {
	Encoding         string  `yaml:"encoding"`
	Rows             int     `yaml:"rows"`
	Cols             int     `yaml:"cols"`
	Valid            int     `yaml:"valid"`
	Invalid          int     `yaml:"invalid"`
	Min              float64 `yaml:"min"`
	Max              float64 `yaml:"max"`
	Mean             float64 `yaml:"mean"`
	StdDev           float64 `yaml:"stdDev"`
	Median           float64 `yaml:"median"`
	Threshold        float64 `yaml:"vegetationThreshold"`
	VegetatedPercent float64 `yaml:"vegetatedPercent"`
}

// Summarize decodes every valid pixel of r and computes descriptive
// statistics. Pixels strictly above threshold count as vegetated.
func Summarize(r *Result, threshold float64) Stats {
	s := Stats{
		Encoding:  r.Encoding.String(),
		Rows:      r.Grid.Rows,
		Cols:      r.Grid.Cols,
		Threshold: threshold,
	}

	values := make([]float64, 0, len(r.Grid.Data))
	vegetated := 0
	for _, v := range r.Grid.Data {
		decoded, ok := r.Encoding.Decode(v)
		if !ok {
			s.Invalid++
			continue
		}
		values = append(values, decoded)
		if decoded > threshold {
			vegetated++
		}
	}

	s.Valid = len(values)
	if s.Valid == 0 {
		return s
	}

	sort.Float64s(values)
	s.Min = floats.Min(values)
	s.Max = floats.Max(values)
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	if s.Valid == 1 {
		s.StdDev = 0
	}
	s.Median = stat.Quantile(0.5, stat.Empirical, values, nil)
	s.VegetatedPercent = 100 * float64(vegetated) / float64(s.Valid)

	return s
}
