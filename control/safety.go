/*
	Copyright (c) 2024 Ryoma Ito
	Distributable under the terms of The MIT License
	that can be found in the LICENSE file, herein included
	as part of this header.

	safety.go: battery undervoltage debounce and altitude envelope check.
	The monitor never acts on its own; it raises flags the sequencer turns
	into a forced landing.
*/

package control

// Monitor averages battery voltage over a fixed window and debounces the
// undervoltage condition. All buffers are preallocated; Update allocates
// nothing.
type Monitor struct {
	powerLimit float64
	maxCount   int
	altLimit   float64

	ring   []float64
	idx    int
	filled int
	sum    float64

	underCount int
	lowVoltage bool // latched for the rest of the flight
	altFlag    bool

	ahrsReset     bool
	ahrsResetPrev bool
}

// NewMonitor sizes the voltage window to avgNum samples. The low-voltage
// latch trips after maxCount consecutive ticks with the average below
// powerLimit.
func NewMonitor(avgNum int, powerLimit float64, maxCount int, altLimit float64) *Monitor {
	if avgNum < 1 {
		avgNum = 1
	}
	return &Monitor{
		powerLimit: powerLimit,
		maxCount:   maxCount,
		altLimit:   altLimit,
		ring:       make([]float64, avgNum),
	}
}

// Update ingests one tick of raw voltage and measured altitude.
func (m *Monitor) Update(voltage, altitude float64) {
	m.sum -= m.ring[m.idx]
	m.ring[m.idx] = voltage
	m.sum += voltage
	m.idx++
	if m.idx == len(m.ring) {
		m.idx = 0
	}
	if m.filled < len(m.ring) {
		m.filled++
	}

	if m.VoltageAvg() < m.powerLimit {
		m.underCount++
		if m.underCount > m.maxCount {
			m.lowVoltage = true
		}
	} else {
		m.underCount = 0
	}

	m.altFlag = altitude > m.altLimit
}

// VoltageAvg is the moving average over the filled part of the window.
func (m *Monitor) VoltageAvg() float64 {
	if m.filled == 0 {
		return 0
	}
	return m.sum / float64(m.filled)
}

// LowVoltage reports the latched undervoltage condition. Once set it stays
// set until Reset; there is no retry within a flight.
func (m *Monitor) LowVoltage() bool {
	return m.lowVoltage
}

// UnderVoltageTicks is the current consecutive-below-limit count.
func (m *Monitor) UnderVoltageTicks() int {
	return m.underCount
}

// AltitudeLimit reports whether the last measured altitude exceeded the
// ceiling.
func (m *Monitor) AltitudeLimit() bool {
	return m.altFlag
}

// SetAHRSReset records the estimator's reset flag for this tick.
func (m *Monitor) SetAHRSReset(v bool) {
	m.ahrsResetPrev = m.ahrsReset
	m.ahrsReset = v
}

// AHRSResetEdge is true on the tick the reset flag rises. The loop re-zeroes
// every integrator on that edge.
func (m *Monitor) AHRSResetEdge() bool {
	return m.ahrsReset && !m.ahrsResetPrev
}

// Reset clears the debounce state and the low-voltage latch for a new
// flight. The voltage window is kept; the pack didn't change.
func (m *Monitor) Reset() {
	m.underCount = 0
	m.lowVoltage = false
	m.altFlag = false
	m.ahrsReset = false
	m.ahrsResetPrev = false
}
