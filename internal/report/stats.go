package report

import (
	"math"

	"github.com/montanaflynn/stats"
)

// Stats is the descriptive summary used throughout the reports. All zero for empty input.
type Stats struct {
	Count  int     `json:"count"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Mode   float64 `json:"mode"`
	StdDev float64 `json:"stdDev"`
}

// Describe summarises values. Mode is the smallest most frequent value, or 0 when every value is unique.
func Describe(values []int64) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	data := make(stats.Float64Data, len(values))
	for i, v := range values {
		data[i] = float64(v)
	}

	s := Stats{Count: len(values)}
	s.Max, _ = data.Max()
	s.Mean, _ = data.Mean()
	s.Median, _ = data.Median()
	s.StdDev, _ = data.StandardDeviation()
	if modes, err := data.Mode(); err == nil && len(modes) > 0 {
		s.Mode = modes[0]
		for _, m := range modes[1:] {
			s.Mode = math.Min(s.Mode, m)
		}
	}
	s.Mean, s.StdDev = round2(s.Mean), round2(s.StdDev)
	return s
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
