package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/kwv/coverpart/coverage"
)

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(stateTracker *coverage.StateTracker) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] /health request from %s", r.RemoteAddr)
		state := stateTracker.State()
		w.Header().Set("Content-Type", "application/json")
		status := struct {
			Status    string    `json:"status"`
			Timestamp time.Time `json:"timestamp"`
			Running   bool      `json:"running"`
			Snapshots int       `json:"snapshots"`
		}{
			Status:    "ok",
			Timestamp: time.Now(),
			Running:   state.Running,
			Snapshots: state.Snapshots,
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Error encoding health status: %v", err)
		}
	})

	// Full run state as JSON
	mux.HandleFunc("/state", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stateTracker.State()); err != nil {
			log.Printf("Error encoding run state: %v", err)
		}
	})

	// Latest snapshot in the trace text format
	mux.HandleFunc("/partition.txt", func(w http.ResponseWriter, r *http.Request) {
		latest := stateTracker.State().Latest
		if latest == nil {
			http.Error(w, "No snapshot available", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		trace := coverage.NewTraceWriter(nil, w)
		trace.Handle(*latest)
		if err := trace.Flush(); err != nil {
			log.Printf("Error writing partition: %v", err)
		}
	})

	// Latest snapshot as a GeoJSON feature collection
	mux.HandleFunc("/partition.geojson", func(w http.ResponseWriter, r *http.Request) {
		latest := stateTracker.State().Latest
		if latest == nil {
			http.Error(w, "No snapshot available", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		if err := json.NewEncoder(w).Encode(coverage.SnapshotGeoJSON(*latest)); err != nil {
			log.Printf("Error encoding partition GeoJSON: %v", err)
		}
	})

	return mux
}
