package drift

import "math"

// RollingMean accumulates samples and reports their running mean and
// standard deviation without retaining the individual samples.
type RollingMean struct {
	sum   float64
	sqSum float64
	n     int
}

// AddSample records x.
func (r *RollingMean) AddSample(x float64) {
	r.sum += x
	r.sqSum += x * x
	r.n++
}

// Mean returns the running mean. Panics if no samples have been added.
func (r *RollingMean) Mean() float64 {
	if r.n == 0 {
		panic("drift: Mean called on an empty RollingMean")
	}
	return r.sum / float64(r.n)
}

// StdDev returns the running (population) standard deviation.
func (r *RollingMean) StdDev() float64 {
	mean := r.Mean()
	return math.Sqrt((r.sqSum / float64(r.n)) - mean*mean)
}

// N returns the number of samples recorded so far.
func (r *RollingMean) N() int { return r.n }
