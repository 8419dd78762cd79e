/*
	Copyright (c) 2024 Ryoma Ito
	Distributable under the terms of The MIT License
	that can be found in the LICENSE file, herein included
	as part of this header.

	flightcontrol.go: process entry point. Wires the 400Hz control loop to
	either the simulated airframe or the real one (mocap estimates in over
	UDP, motor duties out over PWM), and runs the management interface,
	flight log and metrics around it.
*/

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/takama/daemon"

	"github.com/ryoma0415/MoCap-Hovering-Control-for-StampFly/control"
	"github.com/ryoma0415/MoCap-Hovering-Control-for-StampFly/link"
	"github.com/ryoma0415/MoCap-Hovering-Control-for-StampFly/sensors"
	"github.com/ryoma0415/MoCap-Hovering-Control-for-StampFly/sim"
)

const (
	// name of the service
	name        = "stampfc"
	description = "StampFly hovering flight controller"
)

var (
	fcVersion = "v1.1"
	fcBuild   = "" // set at build time

	timeStarted time.Time
	fcClock     *monotonic

	theLoop    *control.Loop
	theAdapter *link.Adapter
	theVehicle *sim.Vehicle // non-nil in sim mode only
)

// Service has embedded daemon
type Service struct {
	daemon.Daemon
}

// Manage by daemon commands or run the daemon
func (service *Service) Manage() (string, error) {
	simMode := flag.Bool("sim", false, "fly the built-in simulated airframe instead of hardware")
	configFile := flag.String("config", configLocation, "settings file location")
	flag.Parse()

	usage := "Usage: " + name + " install | remove | start | stop | status"
	// if received any kind of command, do it
	if flag.NArg() > 0 {
		command := os.Args[flag.NFlag()+1]
		switch command {
		case "install":
			return service.Install()
		case "remove":
			return service.Remove()
		case "start":
			return service.Start()
		case "stop":
			return service.Stop()
		case "status":
			return service.Status()
		default:
			return usage, nil
		}
	}

	configLocation = *configFile

	timeStarted = time.Now()
	initLogging()
	log.Printf("FC %s (%s) starting.\n", fcVersion, fcBuild)

	readSettings()
	fcClock = NewMonotonic()

	var fb link.FeedbackSender
	if globalSettings.FeedbackAddr != "" {
		var err error
		fb, err = newUDPFeedback(globalSettings.FeedbackAddr)
		if err != nil {
			log.Printf("FC Warning: no feedback path: %s\n", err.Error())
		}
	}
	theAdapter = link.NewAdapter(globalSettings.Control.CommandTimeout, fb)

	var est sensors.Estimator
	var button sensors.Button
	var motors control.MotorOutput
	if *simMode {
		log.Printf("FC Info: simulated airframe enabled.\n")
		theVehicle = sim.NewVehicle()
		est = theVehicle
		motors = theVehicle
		go simPlant(theVehicle)
	} else {
		mocap, err := newMocapListener(globalSettings.MocapPort)
		if err != nil {
			return "mocap listener failed", err
		}
		est = mocap
		hw, err := newRPIOMotors(globalSettings.MotorPins)
		if err != nil {
			return "motor output failed", err
		}
		defer hw.Close()
		motors = hw
		if globalSettings.ArmButtonPin > 0 {
			button = newRPIOButton(globalSettings.ArmButtonPin)
		}
	}

	theLoop = control.NewLoop(globalSettings.Control, est, button, motors, theAdapter)

	initDataLog()
	theLoop.SetOnTick(logFlightRow)

	go commandListener(globalSettings.CommandPort, theAdapter)
	go managementInterface()
	go updateStats()
	go theLoop.Run()

	// Set up channel on which to send signal notifications.
	// We must use a buffered channel or risk missing the signal
	// if we're not ready to receive when the signal is sent.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)

	for {
		killSignal := <-interrupt
		log.Println("Got signal:", killSignal)
		if killSignal == syscall.SIGUSR1 {
			// Operator abort: cut the flight, keep the daemon.
			theLoop.Abort()
			continue
		}
		theLoop.Stop()
		closeDataLog()
		if killSignal == syscall.SIGINT {
			return "Daemon was interrupted by system signal", nil
		}
		return "Daemon was killed", nil
	}
}

// simPlant integrates the simulated airframe at the control rate so the
// daemon can fly on a desk with no hardware attached.
func simPlant(v *sim.Vehicle) {
	ticker := time.NewTicker(control.TickPeriod)
	defer ticker.Stop()
	last := time.Now()
	for now := range ticker.C {
		v.Step(now.Sub(last).Seconds())
		last = now
	}
}

var stdlog, errlog *log.Logger

func init() {
	stdlog = log.New(os.Stdout, "", 0)
	errlog = log.New(os.Stderr, "", 0)
}

func main() {
	srv, err := daemon.New(name, description, daemon.SystemDaemon)
	if err != nil {
		errlog.Println("Error: ", err)
		os.Exit(1)
	}
	service := &Service{srv}
	status, err := service.Manage()
	if err != nil {
		errlog.Println(status, "\nError: ", err)
		os.Exit(1)
	}
	fmt.Println(status)
}
