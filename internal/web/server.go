package web

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"time"
)

// Handler serves the JSON API. logs and hub are optional.
func Handler(status *Status, logs *LogBuffer, hub *Hub) http.Handler {
	if status == nil {
		status = NewStatus()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}
		writeJSON(w, status.Snapshot(time.Now().UTC()))
	})

	if logs != nil {
		mux.Handle("/api/logs", logs.Handler())
	}
	if hub != nil {
		mux.Handle("/api/stream", hub)
	}
	mux.HandleFunc("/api/about", aboutHandler)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		snap := status.Snapshot(time.Now().UTC())
		fix := snap.GPS.Fix
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = fmt.Fprintf(w, "<!doctype html><html><head><meta charset=\"utf-8\"><title>%s</title></head><body>", serviceName)
		_, _ = fmt.Fprintf(w, "<h1>%s</h1>", serviceName)
		_, _ = fmt.Fprintf(w, "<p>See <a href=\"/api/status\">/api/status</a> and <a href=\"/api/logs?format=text\">/api/logs</a>.</p>")
		_, _ = fmt.Fprintf(w, "<pre>source=%s\nvalid=%t\ntime=%s date=%s\nlat=%.6f lon=%.6f alt=%.1f\nsats=%d speed_kt=%.1f course=%.1f\nsentences=%d fixes=%d</pre>",
			html.EscapeString(snap.Source), snap.GPS.Valid,
			fix.GGA.Time, fix.RMC.Date,
			fix.GGA.Position.Latitude, fix.GGA.Position.Longitude, fix.GGA.Altitude.Value,
			fix.GGA.Satellites, fix.RMC.SpeedKnots, fix.RMC.CourseDeg,
			snap.GPS.Sentences, snap.GPS.Fixes,
		)
		_, _ = fmt.Fprintf(w, "</body></html>")
	})

	return mux
}

func Serve(ctx context.Context, listenAddr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
