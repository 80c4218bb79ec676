// Package fitting implements nonlinear least-squares fitting of learning
// curve models to world-record progressions, and winner selection.
package fitting

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Family identifies one of the five candidate curve families. The set is a
// closed enumeration: the engine iterates it in a fixed order, and no other
// families exist.
type Family string

// Candidate model families.
const (
	FamilyExponential Family = "exponential"
	FamilyPowerLaw    Family = "power_law"
	FamilyLogarithmic Family = "logarithmic"
	FamilyHyperbolic  Family = "hyperbolic"
	FamilyWright      Family = "wright"
)

// wrightSeedExponent is the classic 80% learning-curve exponent used when a
// log-space regression seed is unusable.
const wrightSeedExponent = -0.3

// familySpec carries everything the engine needs to fit one family: the
// predictor, the parameter count, the independent variable choice, and the
// data-derived initial guess and box bounds.
type familySpec struct {
	name         Family
	paramCount   int
	usesIndex    bool // fit against record index n instead of elapsed days
	hasAsymptote bool // c parameter is a finite floor

	eval   func(p []float64, x float64) float64
	guess  func(times, x []float64) []float64
	bounds func(times []float64) (lower, upper []float64)
}

// Families returns the candidate family tags in fitting order.
func Families() []Family {
	return []Family{FamilyExponential, FamilyPowerLaw, FamilyLogarithmic, FamilyHyperbolic, FamilyWright}
}

// ParamCount returns the number of fitted parameters for a family.
func ParamCount(f Family) int {
	if f == FamilyWright {
		return 2
	}
	return 3
}

// HasAsymptote reports whether a family carries a finite floor parameter.
func HasAsymptote(f Family) bool {
	return f != FamilyWright
}

// specs returns the closed candidate set. Initial guesses are derived from
// the observed data so the optimizer starts inside the feasible box: a near
// the total time span, c just under the current record, b a small positive
// rate. All families assume time decreases toward a non-negative floor.
func specs() []familySpec {
	return []familySpec{
		{
			name:         FamilyExponential,
			paramCount:   3,
			hasAsymptote: true,
			// T(t) = a*exp(-b*t) + c
			eval: func(p []float64, x float64) float64 {
				return p[0]*math.Exp(-p[1]*x) + p[2]
			},
			guess: func(times, _ []float64) []float64 {
				return []float64{span(times), 0.01, asymptoteGuess(times)}
			},
			bounds: func(times []float64) ([]float64, []float64) {
				return []float64{0, 0, 0}, []float64{math.Inf(1), 1, times[0]}
			},
		},
		{
			name:         FamilyPowerLaw,
			paramCount:   3,
			hasAsymptote: true,
			// T(t) = a*(t+1)^(-b) + c
			eval: func(p []float64, x float64) float64 {
				return p[0]*math.Pow(x+1, -p[1]) + p[2]
			},
			guess: func(times, _ []float64) []float64 {
				return []float64{span(times), 0.5, asymptoteGuess(times)}
			},
			bounds: func(times []float64) ([]float64, []float64) {
				return []float64{0, 0, 0}, []float64{math.Inf(1), 5, times[0]}
			},
		},
		{
			name:         FamilyLogarithmic,
			paramCount:   3,
			hasAsymptote: true,
			// T(t) = a / (1 + b*ln(t+1)) + c
			eval: func(p []float64, x float64) float64 {
				return p[0]/(1+p[1]*math.Log(x+1)) + p[2]
			},
			guess: func(times, _ []float64) []float64 {
				return []float64{times[0], 0.1, 0}
			},
			bounds: func(times []float64) ([]float64, []float64) {
				return []float64{0, 0, 0}, []float64{math.Inf(1), 10, times[0]}
			},
		},
		{
			name:         FamilyHyperbolic,
			paramCount:   3,
			hasAsymptote: true,
			// T(t) = a / (1 + b*t) + c
			eval: func(p []float64, x float64) float64 {
				return p[0]/(1+p[1]*x) + p[2]
			},
			guess: func(times, _ []float64) []float64 {
				return []float64{span(times), 0.01, asymptoteGuess(times)}
			},
			bounds: func(times []float64) ([]float64, []float64) {
				return []float64{0, 0, 0}, []float64{math.Inf(1), 1, times[0]}
			},
		},
		{
			name:       FamilyWright,
			paramCount: 2,
			usesIndex:  true,
			// Wright's learning curve (1936): T(n) = T1 * n^b. No intercept,
			// so it cannot represent a nonzero floor; categories with a hard
			// asymptote will be systematically underfit by it.
			eval: func(p []float64, x float64) float64 {
				return p[0] * math.Pow(x, p[1])
			},
			guess:  wrightGuess,
			bounds: func(_ []float64) ([]float64, []float64) { return []float64{0, -2}, []float64{math.Inf(1), 0} },
		},
	}
}

// span is the first-minus-last time difference, strictly positive for any
// valid progression.
func span(times []float64) float64 {
	return times[0] - times[len(times)-1]
}

// asymptoteGuess starts the floor just under the current record.
func asymptoteGuess(times []float64) float64 {
	return times[len(times)-1] * 0.95
}

// wrightGuess seeds T1 and b from a log-space linear regression
// ln T = ln T1 + b*ln n, falling back to the observed first time and a
// standard learning-rate exponent when the regression is unusable.
func wrightGuess(times, idx []float64) []float64 {
	lnN := make([]float64, len(idx))
	lnT := make([]float64, len(times))
	for i := range idx {
		lnN[i] = math.Log(idx[i])
		lnT[i] = math.Log(times[i])
	}
	alpha, beta := stat.LinearRegression(lnN, lnT, nil, false)

	t1 := math.Exp(alpha)
	if !isFinite(t1) || t1 <= 0 {
		t1 = times[0]
	}
	b := beta
	if !isFinite(b) || b >= 0 || b <= -2 {
		b = wrightSeedExponent
	}
	return []float64{t1, b}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
