package math

import "golang.org/x/exp/constraints"

// Clamp limits f to [low, high]. Used to keep inverse trig inputs and
// colour channels inside their domain.
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}
