/*
	Copyright (c) 2024 Ryoma Ito
	Distributable under the terms of The MIT License
	that can be found in the LICENSE file, herein included
	as part of this header.

	metrics.go: Prometheus export of the control loop state.
*/

package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Initialize Prometheus metrics.
var (
	currentAltitude = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "current_altitude",
		Help: "Estimated altitude, meters.",
	})

	currentVoltage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "current_voltage",
		Help: "Averaged battery voltage.",
	})

	currentThrust = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "current_thrust",
		Help: "Commanded collective thrust duty.",
	})

	flightState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flight_state",
			Help: "1 for the active auto-flight state, 0 otherwise.",
		},
		[]string{"state"},
	)

	totalTimingFaults = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "total_timing_faults",
		Help: "Control ticks rejected for a bad scheduler interval.",
	})

	totalStaleDrops = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "total_stale_drops",
		Help: "Override envelopes dropped as duplicate or reordered.",
	})
)

var knownStates = []string{"Init", "Calibration", "Wait", "Takeoff", "Hover", "Landing", "Complete"}

func updateStats() {
	prometheus.MustRegister(currentAltitude)
	prometheus.MustRegister(currentVoltage)
	prometheus.MustRegister(currentThrust)
	prometheus.MustRegister(flightState)
	prometheus.MustRegister(totalTimingFaults)
	prometheus.MustRegister(totalStaleDrops)

	updateTicker := time.NewTicker(1 * time.Second)
	for {
		<-updateTicker.C
		st := theLoop.Snapshot()
		currentAltitude.Set(st.Altitude)
		currentVoltage.Set(st.VoltageAvg)
		currentThrust.Set(st.ThrustCmd)
		totalTimingFaults.Set(float64(st.TimingFaults))
		totalStaleDrops.Set(float64(st.StaleDrops))
		for _, s := range knownStates {
			v := 0.0
			if s == st.State {
				v = 1.0
			}
			flightState.With(prometheus.Labels{"state": s}).Set(v)
		}
	}
}
