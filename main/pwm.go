/*
	Copyright (c) 2024 Ryoma Ito
	Distributable under the terms of The MIT License
	that can be found in the LICENSE file, herein included
	as part of this header.

	pwm.go: motor and button GPIO. Four hardware PWM channels carry the
	normalized duties; an optional input pin arms the flight.
*/

package main

import (
	"log"

	"github.com/stianeikeland/go-rpio/v4"
)

const (
	pwmFrequency  = 150000 // Hz at the divider, pwmRange steps per cycle
	pwmRange      = 1000
)

// rpioMotors implements control.MotorOutput on the hardware PWM pins.
type rpioMotors struct {
	fr, fl, rr, rl rpio.Pin
}

func newRPIOMotors(pins [4]int) (*rpioMotors, error) {
	if err := rpio.Open(); err != nil {
		return nil, err
	}
	m := &rpioMotors{
		fr: rpio.Pin(pins[0]),
		fl: rpio.Pin(pins[1]),
		rr: rpio.Pin(pins[2]),
		rl: rpio.Pin(pins[3]),
	}
	for _, p := range []rpio.Pin{m.fr, m.fl, m.rr, m.rl} {
		p.Mode(rpio.Pwm)
		p.Freq(pwmFrequency)
		p.DutyCycle(0, pwmRange)
	}
	log.Printf("FC Info: motor PWM on pins %v.\n", pins)
	return m, nil
}

func (m *rpioMotors) set(p rpio.Pin, duty float64) {
	if duty < 0 {
		duty = 0
	}
	if duty > 1 {
		duty = 1
	}
	p.DutyCycle(uint32(duty*pwmRange), pwmRange)
}

// SetDutyFrontRight implements control.MotorOutput.
func (m *rpioMotors) SetDutyFrontRight(duty float64) { m.set(m.fr, duty) }

// SetDutyFrontLeft implements control.MotorOutput.
func (m *rpioMotors) SetDutyFrontLeft(duty float64) { m.set(m.fl, duty) }

// SetDutyRearRight implements control.MotorOutput.
func (m *rpioMotors) SetDutyRearRight(duty float64) { m.set(m.rr, duty) }

// SetDutyRearLeft implements control.MotorOutput.
func (m *rpioMotors) SetDutyRearLeft(duty float64) { m.set(m.rl, duty) }

// Close parks the motors and releases the GPIO mapping.
func (m *rpioMotors) Close() {
	for _, p := range []rpio.Pin{m.fr, m.fl, m.rr, m.rl} {
		p.DutyCycle(0, pwmRange)
	}
	rpio.Close()
}

// rpioButton implements sensors.Button on an input pin with the internal
// pull-up; pressed shorts to ground.
type rpioButton struct {
	pin rpio.Pin
}

func newRPIOButton(pin int) *rpioButton {
	p := rpio.Pin(pin)
	p.Input()
	p.PullUp()
	return &rpioButton{pin: p}
}

// Pressed implements sensors.Button.
func (b *rpioButton) Pressed() bool {
	return b.pin.Read() == rpio.Low
}
