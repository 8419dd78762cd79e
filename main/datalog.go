/*
	Copyright (c) 2024 Ryoma Ito
	Distributable under the terms of The MIT License
	that can be found in the LICENSE file, herein included
	as part of this header.

	datalog.go: sqlite flight log. The tick hands snapshots to a buffered
	channel; a writer goroutine owns the database so the control path never
	touches disk.
*/

package main

import (
	"database/sql"
	"log"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/ricochet2200/go-disk-usage/du"

	"github.com/ryoma0415/MoCap-Hovering-Control-for-StampFly/control"
)

const (
	dataLogTickDecimation = 40 // 10Hz out of the 400Hz tick
	minDiskSpaceBytes     = 32 * 1024 * 1024
	diskCheckRows         = 1000
)

var dataLogChan chan control.ControlState
var dataLogStop chan struct{}

var dataLogRowCount uint64

const flightLogSchema = `
CREATE TABLE IF NOT EXISTS flight_log (
	id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
	ms INTEGER,
	state TEXT,
	elapsed REAL,
	altitude REAL,
	alt_ref REAL,
	climb_rate REAL,
	roll REAL,
	pitch REAL,
	roll_angle_cmd REAL,
	pitch_angle_cmd REAL,
	thrust REAL,
	duty_fr REAL,
	duty_fl REAL,
	duty_rr REAL,
	duty_rl REAL,
	voltage_avg REAL,
	timing_faults INTEGER,
	stale_drops INTEGER
)`

func initDataLog() {
	if globalSettings.FlightLogFile == "" {
		return
	}
	dataLogChan = make(chan control.ControlState, 10240)
	dataLogStop = make(chan struct{})
	go dataLogWriter(globalSettings.FlightLogFile)
}

// logFlightRow is the loop's per-tick callback. It must never block: rows
// are decimated and then dropped outright if the writer falls behind.
func logFlightRow(st control.ControlState) {
	if dataLogChan == nil {
		return
	}
	if !globalSettings.ReplayLog && st.Ticks%dataLogTickDecimation != 0 {
		return
	}
	select {
	case dataLogChan <- st:
	default:
	}
}

func dataLogWriter(file string) {
	db, err := sql.Open("sqlite3", file)
	if err != nil {
		log.Printf("FC Error: sql.Open(): %s\n", err.Error())
		return
	}
	defer db.Close()

	if _, err := db.Exec(flightLogSchema); err != nil {
		log.Printf("FC Error: flight log schema: %s\n", err.Error())
		return
	}

	stmt, err := db.Prepare(`INSERT INTO flight_log
		(ms, state, elapsed, altitude, alt_ref, climb_rate, roll, pitch,
		 roll_angle_cmd, pitch_angle_cmd, thrust,
		 duty_fr, duty_fl, duty_rr, duty_rl,
		 voltage_avg, timing_faults, stale_drops)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		log.Printf("FC Error: flight log prepare: %s\n", err.Error())
		return
	}
	defer stmt.Close()

	log.Printf("FC Info: flight log at %s.\n", file)
	for {
		select {
		case <-dataLogStop:
			return
		case st := <-dataLogChan:
			_, err := stmt.Exec(fcClock.Milliseconds, st.State, st.Elapsed,
				st.Altitude, st.AltRef, st.ClimbRate, st.Roll, st.Pitch,
				st.RollAngleCmd, st.PitchAngleCmd, st.ThrustCmd,
				st.DutyFrontRight, st.DutyFrontLeft, st.DutyRearRight, st.DutyRearLeft,
				st.VoltageAvg, st.TimingFaults, st.StaleDrops)
			if err != nil {
				log.Printf("FC Error: flight log insert: %s\n", err.Error())
			}
			dataLogRowCount++
			if dataLogRowCount%diskCheckRows == 0 && !diskSpaceOK(file) {
				log.Printf("FC Warning: low disk space, flight log stopped.\n")
				return
			}
		}
	}
}

func diskSpaceOK(file string) bool {
	usage := du.NewDiskUsage(filepath.Dir(file))
	return usage.Available() >= minDiskSpaceBytes
}

func closeDataLog() {
	if dataLogStop != nil {
		close(dataLogStop)
	}
}
