package deepq

import (
	"github.com/coolport/thesis/utils/floatutils"
)

// RowMax returns the maximum of each row of a row-major matrix with n
// columns
func RowMax(values []float64, n int) []float64 {
	rows := len(values) / n
	max := make([]float64, rows)
	for i := range max {
		max[i], _ = floatutils.MaxSlice(values[i*n : (i+1)*n])
	}
	return max
}

// DoubleEstimate selects each row's arg-max action under online and
// returns its value under target. Both matrices are row-major with n
// columns.
func DoubleEstimate(online, target []float64, n int) []float64 {
	rows := len(online) / n
	values := make([]float64, rows)
	for i := range values {
		a := floatutils.ArgMax(online[i*n : (i+1)*n])
		values[i] = target[i*n+a]
	}
	return values
}

// BootstrapTargets returns the one-step targets r + γ·v(s') for a batch.
// The next-state value is masked out where nonTerminal is zero.
func BootstrapTargets(rewards, next, nonTerminal []float64,
	discount float64) []float64 {
	targets := make([]float64, len(rewards))
	for i, r := range rewards {
		targets[i] = r + discount*nonTerminal[i]*next[i]
	}
	return targets
}
