/*
	Copyright (c) 2024 Ryoma Ito
	Distributable under the terms of The MIT License
	that can be found in the LICENSE file, herein included
	as part of this header.

	managementinterface.go: HTTP status/settings handlers and the websocket
	status push used by the ground station UI.
*/

package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/websocket"

	"github.com/ryoma0415/MoCap-Hovering-Control-for-StampFly/control"
)

type statusReport struct {
	Version string
	Build   string
	Uptime  string
	control.ControlState
}

func buildStatusReport() statusReport {
	return statusReport{
		Version:      fcVersion,
		Build:        fcBuild,
		Uptime:       fcClock.HumanizeTime(time.Time{}),
		ControlState: theLoop.Snapshot(),
	}
}

func statusSender(conn *websocket.Conn) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		<-ticker.C
		update, _ := json.Marshal(buildStatusReport())
		_, err := conn.Write(update)
		if err != nil {
			return
		}
	}
}

func handleStatusWS(conn *websocket.Conn) {
	statusSender(conn)
	conn.Close()
}

func handleStatusRequest(w http.ResponseWriter, r *http.Request) {
	statusJSON, _ := json.Marshal(buildStatusReport())
	w.Header().Set("Content-Type", "application/json")
	w.Write(statusJSON)
}

// handleSettingsRequest returns the settings on GET and merges a partial
// JSON document on POST. Control gains take effect on the next daemon
// start; the loop holds an immutable copy.
func handleSettingsRequest(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settingsJSON, _ := json.Marshal(&globalSettings)
		w.Header().Set("Content-Type", "application/json")
		w.Write(settingsJSON)
	case http.MethodPost:
		newSettings := globalSettings
		decoder := json.NewDecoder(r.Body)
		if err := decoder.Decode(&newSettings); err != nil {
			log.Printf("FC Error: settings decode: %s\n", err.Error())
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		globalSettings = newSettings
		saveSettings()
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleAbortRequest cuts the flight over the management interface, same
// as SIGUSR1.
func handleAbortRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	log.Printf("FC Warning: abort requested over management interface.\n")
	theLoop.Abort()
	w.WriteHeader(http.StatusNoContent)
}

func managementInterface() {
	http.HandleFunc("/getStatus", handleStatusRequest)
	http.HandleFunc("/getSettings", handleSettingsRequest)
	http.HandleFunc("/setSettings", handleSettingsRequest)
	http.HandleFunc("/abort", handleAbortRequest)
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/control",
		func(w http.ResponseWriter, req *http.Request) {
			s := websocket.Server{
				Handler: websocket.Handler(handleStatusWS)}
			s.ServeHTTP(w, req)
		})

	log.Printf("FC Info: management interface on %s.\n", globalSettings.ManagementAddr)
	err := http.ListenAndServe(globalSettings.ManagementAddr, nil)
	if err != nil {
		log.Printf("FC Error: management interface: %s\n", err.Error())
	}
}
