// Package profiling summarizes the marginal distribution of each observed
// variable before discovery.
package profiling

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"tipnet/ports"
)

// VariableProfile holds the summary statistics of one column.
type VariableProfile struct {
	Name     string  `json:"name"`
	Samples  int     `json:"samples"`
	Distinct int     `json:"distinct"`
	Constant bool    `json:"constant"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Median   float64 `json:"median"`
	Q25      float64 `json:"q25"`
	Q75      float64 `json:"q75"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`
	Outliers int     `json:"outliers"`
	// NormalP is the p-value of a skewness/kurtosis normality check.
	NormalP float64 `json:"normal_p"`
}

// ProfileObservations profiles every column of obs in order.
func ProfileObservations(obs *ports.Observations) ([]VariableProfile, error) {
	_, cols := obs.Data.Dims()
	profiles := make([]VariableProfile, cols)
	for j := 0; j < cols; j++ {
		p, err := ProfileColumn(obs.Variables[j], mat.Col(nil, j, obs.Data))
		if err != nil {
			return nil, err
		}
		profiles[j] = p
	}
	return profiles, nil
}

// ProfileColumn computes the summary statistics of data.
func ProfileColumn(name string, data []float64) (VariableProfile, error) {
	p := VariableProfile{Name: name, Samples: len(data)}

	var err error
	if p.Mean, err = stats.Mean(data); err != nil {
		return p, err
	}
	if p.StdDev, err = stats.StandardDeviation(data); err != nil {
		return p, err
	}
	if p.Min, err = stats.Min(data); err != nil {
		return p, err
	}
	if p.Max, err = stats.Max(data); err != nil {
		return p, err
	}
	if p.Median, err = stats.Median(data); err != nil {
		return p, err
	}
	// Quartiles for IQR-based outlier detection
	if p.Q25, err = stats.Percentile(data, 25); err != nil {
		return p, err
	}
	if p.Q75, err = stats.Percentile(data, 75); err != nil {
		return p, err
	}

	p.Distinct = countDistinct(data)
	p.Constant = p.Distinct == 1
	p.Outliers = detectOutliers(data, p.Q25, p.Q75)
	p.Skewness = calculateSkewness(data, p.Mean, p.StdDev)
	p.Kurtosis = calculateKurtosis(data, p.Mean, p.StdDev)
	p.NormalP = normalityPValue(p.Skewness, p.Kurtosis)
	return p, nil
}

func countDistinct(data []float64) int {
	seen := make(map[float64]struct{}, len(data))
	for _, x := range data {
		seen[x] = struct{}{}
	}
	return len(seen)
}

// calculateSkewness computes sample skewness using the adjusted Fisher-Pearson coefficient
func calculateSkewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 || stdDev == 0 {
		return 0
	}

	n := float64(len(data))
	sumCubed := 0.0
	for _, x := range data {
		d := (x - mean) / stdDev
		sumCubed += d * d * d
	}
	return sumCubed / n * math.Sqrt(n*(n-1)) / (n - 2)
}

// calculateKurtosis computes sample kurtosis (3 for a normal distribution)
func calculateKurtosis(data []float64, mean, stdDev float64) float64 {
	if len(data) < 4 || stdDev == 0 {
		return 0
	}

	n := float64(len(data))
	sumFourth := 0.0
	for _, x := range data {
		d := (x - mean) / stdDev
		sumFourth += d * d * d * d
	}
	excess := sumFourth/n - 3
	excess = excess*(n-1)/((n-2)*(n-3)) + 6/(n+1)
	return excess + 3
}

// normalityPValue scores the combined skewness/kurtosis departure against a
// chi-squared distribution with two degrees of freedom.
func normalityPValue(skewness, kurtosis float64) float64 {
	stat := math.Abs(skewness) + math.Abs(kurtosis-3)/2
	return 1 - distuv.ChiSquared{K: 2}.CDF(stat*stat)
}

// detectOutliers identifies outliers using IQR method
func detectOutliers(data []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lower, upper := q25-1.5*iqr, q75+1.5*iqr

	count := 0
	for _, x := range data {
		if x < lower || x > upper {
			count++
		}
	}
	return count
}
