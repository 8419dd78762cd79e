/*
	Copyright (c) 2024 Ryoma Ito
	Distributable under the terms of The MIT License
	that can be found in the LICENSE file, herein included
	as part of this header.

	logging.go: duplicate log.* output to the debug log file.
*/

package main

import (
	"io"
	"log"
	"os"
)

const debugLog = "/var/log/stampfc.log"

var logFileHandle *os.File

func initLogging() {
	fp, err := os.OpenFile(debugLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Failed to open log file '%s': %s\n", debugLog, err.Error())
		return
	}
	logFileHandle = fp
	mfp := io.MultiWriter(fp, os.Stdout)
	log.SetOutput(mfp)
}
