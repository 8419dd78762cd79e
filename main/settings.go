/*
	Copyright (c) 2024 Ryoma Ito
	Distributable under the terms of The MIT License
	that can be found in the LICENSE file, herein included
	as part of this header.

	settings.go: persistent daemon configuration. Everything, including the
	control gains, is one JSON document read at startup and written back on
	management-interface changes.
*/

package main

import (
	"encoding/json"
	"log"
	"os"

	"github.com/ryoma0415/MoCap-Hovering-Control-for-StampFly/control"
)

var configLocation = "/etc/stampfc.conf"

type settings struct {
	Control control.Config

	CommandPort  int    // UDP port for command/override frames
	MocapPort    int    // UDP port for motion-capture state packets
	FeedbackAddr string // where angle acknowledgements go, empty disables

	ManagementAddr string // HTTP/websocket management interface

	MotorPins    [4]int // BCM numbering: FR, FL, RR, RL
	ArmButtonPin int    // 0 disables the hardware arm button

	FlightLogFile  string
	ReplayLog      bool // log every tick instead of the decimated stream
	DEBUG          bool
}

var globalSettings settings

func defaultSettings() {
	globalSettings.Control = control.DefaultConfig()
	globalSettings.CommandPort = 4810
	globalSettings.MocapPort = 4811
	globalSettings.FeedbackAddr = ""
	globalSettings.ManagementAddr = ":8040"
	globalSettings.MotorPins = [4]int{12, 13, 18, 19}
	globalSettings.ArmButtonPin = 0
	globalSettings.FlightLogFile = "/var/log/stampfc.sqlite"
	globalSettings.ReplayLog = false
	globalSettings.DEBUG = false
}

func readSettings() {
	fd, err := os.Open(configLocation)
	if err != nil {
		log.Printf("can't read settings %s: %s\n", configLocation, err.Error())
		defaultSettings()
		return
	}
	defer fd.Close()
	buf := make([]byte, 16384)
	count, err := fd.Read(buf)
	if err != nil {
		log.Printf("can't read settings %s: %s\n", configLocation, err.Error())
		defaultSettings()
		return
	}
	// Start from the defaults so a partial file doesn't zero the gains.
	defaultSettings()
	newSettings := globalSettings
	err = json.Unmarshal(buf[0:count], &newSettings)
	if err != nil {
		log.Printf("can't read settings %s: %s\n", configLocation, err.Error())
		defaultSettings()
		return
	}
	globalSettings = newSettings
	log.Printf("read in settings.\n")
}

func saveSettings() {
	fd, err := os.OpenFile(configLocation, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(0644))
	if err != nil {
		log.Printf("can't save settings %s: %s\n", configLocation, err.Error())
		return
	}
	defer fd.Close()
	jsonSettings, _ := json.Marshal(&globalSettings)
	fd.Write(jsonSettings)
	log.Printf("wrote settings.\n")
}
