/*
	Copyright (c) 2024 Ryoma Ito
	Distributable under the terms of The MIT License
	that can be found in the LICENSE file, herein included
	as part of this header.

	filter.go: first-order lag used to smooth the thrust command and the
	per-motor duties before they reach the ESCs.
*/

package pid

// Filter is a first-order low-pass: out += dt/(T+dt) * (in - out).
type Filter struct {
	tc     float64
	out    float64
	primed bool
}

// NewFilter returns a low-pass with time constant tc seconds. tc <= 0 makes
// the filter a pass-through.
func NewFilter(tc float64) *Filter {
	return &Filter{tc: tc}
}

// Update advances the filter by dt and returns the smoothed value. The first
// sample initializes the state so startup doesn't ramp from zero.
func (f *Filter) Update(in, dt float64) float64 {
	if !f.primed || f.tc <= 0 || dt <= 0 {
		f.out = in
		f.primed = true
		return f.out
	}
	f.out += dt / (f.tc + dt) * (in - f.out)
	return f.out
}

// Value returns the last output without advancing the filter.
func (f *Filter) Value() float64 {
	return f.out
}

// Reset clears the filter state.
func (f *Filter) Reset() {
	f.out = 0
	f.primed = false
}
