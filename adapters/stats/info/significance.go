package info

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// GTestPValue converts an information value measured in the given log base,
// estimated from n samples, into the p-value of the likelihood-ratio G-test
// with df degrees of freedom. Non-positive df yields 1.
func GTestPValue(value, base float64, n, df int) float64 {
	if df <= 0 || n <= 0 {
		return 1
	}
	g := 2 * float64(n) * math.Max(value, 0) * math.Log(base)
	return distuv.ChiSquared{K: float64(df)}.Survival(g)
}
