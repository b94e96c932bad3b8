// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

package drift

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ksTest runs the two-sample Kolmogorov-Smirnov test and returns the D
// statistic with its asymptotic two-sided p-value.
func ksTest(reference, current []float64) (d, p float64) {
	ref := make([]float64, len(reference))
	copy(ref, reference)
	sort.Float64s(ref)

	cur := make([]float64, len(current))
	copy(cur, current)
	sort.Float64s(cur)

	d = stat.KolmogorovSmirnov(ref, nil, cur, nil)
	p = ksPValue(d, len(ref), len(cur))
	return d, p
}

// ksPValue approximates the two-sided p-value for a two-sample D statistic
// using the asymptotic Kolmogorov distribution with the small-sample
// correction en + 0.12 + 0.11/en.
func ksPValue(d float64, n, m int) float64 {
	if n == 0 || m == 0 {
		return 1
	}
	en := math.Sqrt(float64(n) * float64(m) / float64(n+m))
	lambda := (en + 0.12 + 0.11/en) * d
	return kolmogorovQ(lambda)
}

// kolmogorovQ evaluates Q(lambda) = 2 * sum_{k>=1} (-1)^(k-1) exp(-2 k^2 lambda^2),
// the survival function of the Kolmogorov distribution, clamped to [0, 1].
func kolmogorovQ(lambda float64) float64 {
	if lambda <= 0 {
		return 1
	}

	var sum float64
	sign := 1.0
	for k := 1; k <= 100; k++ {
		term := sign * math.Exp(-2*float64(k*k)*lambda*lambda)
		sum += term
		if math.Abs(term) < 1e-12 {
			break
		}
		sign = -sign
	}

	p := 2 * sum
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
