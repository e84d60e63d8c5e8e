// Package stats holds the paired t-test used to compare challenge baselines.
package stats

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInsufficientData is returned when fewer than two pairs are available.
var ErrInsufficientData = errors.New("insufficient paired observations")

// TTestResult is the outcome of a two-sided dependent-samples t-test.
type TTestResult struct {
	N        int
	DF       float64
	MeanDiff float64 // mean(x) - mean(y)
	T        float64
	P        float64
}

// PairedTTest runs a two-sided paired t-test of x against y. Element i of
// both slices must belong to the same subject and neither may hold NaN.
//
// When every difference is identical the statistic degenerates: a zero mean
// difference gives T and P of NaN, any other gives an infinite T and P of 0.
func PairedTTest(x, y []float64) (TTestResult, error) {
	if len(x) != len(y) {
		return TTestResult{}, fmt.Errorf("paired t-test: length mismatch %d != %d", len(x), len(y))
	}
	n := len(x)
	if n < 2 {
		return TTestResult{N: n}, ErrInsufficientData
	}
	d := make([]float64, n)
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			return TTestResult{}, fmt.Errorf("paired t-test: NaN at position %d", i)
		}
		d[i] = x[i] - y[i]
	}
	res := TTestResult{
		N:        n,
		DF:       float64(n - 1),
		MeanDiff: stat.Mean(x, nil) - stat.Mean(y, nil),
	}
	md := stat.Mean(d, nil)
	sd := stat.StdDev(d, nil)
	if sd == 0 || math.IsNaN(sd) {
		if md == 0 {
			res.T, res.P = math.NaN(), math.NaN()
			return res, nil
		}
		res.T, res.P = math.Copysign(math.Inf(1), md), 0
		return res, nil
	}
	res.T = md / (sd / math.Sqrt(float64(n)))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: res.DF}
	res.P = 2 * dist.CDF(-math.Abs(res.T))
	if res.P > 1 {
		res.P = 1
	}
	return res, nil
}
