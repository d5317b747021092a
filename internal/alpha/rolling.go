package alpha

import "math"

// Rolling maintains mean and sample variance over the last Window values
// pushed into it. Updates are O(1) per value (Welford add/remove), with an
// exact recompute from the buffer once per window of pushes and whenever the
// running variance collapses far below its recent peak, which bounds the
// rounding residue that removals leave in m2.
//
// NaN values count toward the window but make every statistic undefined until
// they slide out again.
type Rolling struct {
	window int
	buf    []float64
	head   int // next slot to overwrite once full
	n      int // defined values in the window
	nan    int // undefined values in the window
	mean   float64
	m2     float64

	last    float64
	sameRun int // consecutive identical values ending at the newest one

	pushes int     // since the last resync
	peak   float64 // largest m2 since the last resync
}

// resyncRatio is how far m2 may fall below its peak before the running
// moments are recomputed from the buffer.
const resyncRatio = 1e-6

// NewRolling returns a Rolling accumulator over the trailing window values.
func NewRolling(window int) *Rolling {
	return &Rolling{
		window: window,
		buf:    make([]float64, 0, window),
	}
}

// Push adds x as the newest value, evicting the oldest once the window is
// full.
func (r *Rolling) Push(x float64) {
	if len(r.buf) == r.window {
		r.remove(r.buf[r.head])
		r.buf[r.head] = x
		r.head = (r.head + 1) % r.window
	} else {
		r.buf = append(r.buf, x)
	}
	r.add(x)

	r.pushes++
	r.peak = max(r.peak, r.m2)
	if r.pushes >= r.window || r.m2 < r.peak*resyncRatio {
		r.resync()
	}
}

// resync recomputes mean and m2 from the buffered values.
func (r *Rolling) resync() {
	var n int
	var mean, m2 float64
	for _, x := range r.buf {
		if math.IsNaN(x) {
			continue
		}
		n++
		delta := x - mean
		mean += delta / float64(n)
		m2 += delta * (x - mean)
	}
	r.n, r.mean, r.m2 = n, mean, m2
	r.pushes, r.peak = 0, m2
}

func (r *Rolling) add(x float64) {
	if math.IsNaN(x) {
		r.nan++
		r.sameRun = 0
		return
	}
	if r.sameRun > 0 && x == r.last {
		r.sameRun++
	} else {
		r.sameRun = 1
	}
	r.last = x

	r.n++
	delta := x - r.mean
	r.mean += delta / float64(r.n)
	r.m2 += delta * (x - r.mean)
}

func (r *Rolling) remove(x float64) {
	if math.IsNaN(x) {
		r.nan--
		return
	}
	r.n--
	if r.n == 0 {
		r.mean, r.m2 = 0, 0
		return
	}
	delta := x - r.mean
	r.mean -= delta / float64(r.n)
	r.m2 -= delta * (x - r.mean)
}

// Ready reports whether the window is full and holds no undefined values.
func (r *Rolling) Ready() bool {
	return len(r.buf) == r.window && r.nan == 0
}

// Mean returns the window mean, or NaN when not Ready.
func (r *Rolling) Mean() float64 {
	if !r.Ready() {
		return math.NaN()
	}
	return r.mean
}

// Std returns the window sample standard deviation (n-1 denominator), or NaN
// when not Ready or the window has fewer than two values.
func (r *Rolling) Std() float64 {
	if !r.Ready() || r.n < 2 {
		return math.NaN()
	}
	// A window of identical values has exactly zero variance; the running m2
	// can otherwise keep a rounding residue from evicted values.
	if r.sameRun >= r.window {
		return 0
	}
	v := r.m2 / float64(r.n-1)
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}
