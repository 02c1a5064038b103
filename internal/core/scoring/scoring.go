// Package scoring implements the logarithmic points curve for weekly
// bestseller appearances
//
// A rank-1 appearance on any list is worth 100 points. Points decay
// logarithmically with rank so the gap between 1 and 2 is larger than the
// gap between 19 and 20, and the last rank on a list still earns a small
// positive score
package scoring

import (
	"math"

	perr "bestsellers/internal/platform/errors"
)

// MaxPoints is the score of a rank-1 appearance
const MaxPoints = 100.0

// Score returns the points earned by an appearance at rank on a list of
// listSize entries
//
//	points = 100 * (1 - ln(rank)/ln(listSize+1))
//
// The result is clamped to [0, 100]. rank must be within [1, listSize];
// anything else is a caller error
func Score(rank, listSize int) (float64, error) {
	if listSize < 1 {
		return 0, perr.InvalidArgf("list size %d: must be at least 1", listSize)
	}
	if rank < 1 || rank > listSize {
		return 0, perr.InvalidArgf("rank %d out of range [1, %d]", rank, listSize)
	}
	pts := MaxPoints * (1 - math.Log(float64(rank))/math.Log(float64(listSize)+1))
	return clamp(pts, 0, MaxPoints), nil
}

// ScoreList returns the full points table for a list of listSize entries,
// indexed by rank-1
func ScoreList(listSize int) ([]float64, error) {
	if listSize < 1 {
		return nil, perr.InvalidArgf("list size %d: must be at least 1", listSize)
	}
	out := make([]float64, listSize)
	for r := 1; r <= listSize; r++ {
		pts, err := Score(r, listSize)
		if err != nil {
			return nil, err
		}
		out[r-1] = pts
	}
	return out, nil
}

// Mean returns the arithmetic mean of xs, 0 for an empty slice
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// PopulationVariance returns the population variance of xs, 0 for fewer
// than two samples
func PopulationVariance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := Mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return sum / float64(len(xs))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
