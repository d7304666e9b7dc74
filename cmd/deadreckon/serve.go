package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/banshee-data/deadreckon/internal/api"
	"github.com/banshee-data/deadreckon/internal/config"
	"github.com/banshee-data/deadreckon/internal/db"
	"github.com/banshee-data/deadreckon/internal/estimator"
	"github.com/banshee-data/deadreckon/internal/httputil"
	"github.com/banshee-data/deadreckon/internal/navigation"
	"github.com/banshee-data/deadreckon/internal/route"
	"github.com/banshee-data/deadreckon/internal/serialmux"
)

// mockPort selects the simulated IMU feed instead of a device.
const mockPort = "mock"

func openSerial(c config.SerialConfig) (serialmux.SerialMuxInterface, error) {
	if c.Port == mockPort {
		return serialmux.NewMockSerialMux(10 * time.Millisecond), nil
	}
	return serialmux.OpenPort(c.Port, serialmux.PortOptions{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
		StopBits: c.StopBits,
		Parity:   c.Parity,
	})
}

// newHandler builds the API server and mounts the admin routes of the
// database and the serial port on its mux.
func newHandler(app *config.AppConfig, tuning *config.TuningConfig, unit string, database *db.DB, imuSerial serialmux.SerialMuxInterface) (*api.Server, http.Handler, error) {
	var upstream route.Fetcher
	if app.OSRMURL != "" {
		upstream = route.NewOSRMClient(app.OSRMURL, httputil.NewStandardClient(nil))
	}

	server := api.NewServer(api.Options{
		Manager: navigation.NewManager(estimator.ConfigFromTuning(tuning), navigation.ConfigFromTuning(tuning)),
		Routes:  database,
		Fetcher: db.NewCachingFetcher(database, upstream),
		Fallback: route.FallbackOptions{
			SpeedMps:   tuning.GetFallbackSpeedMps(),
			StepMeters: tuning.GetStraightLineStepMeters(),
		},
		Units:         unit,
		TraceCapacity: tuning.GetTraceCapacity(),
		Serial:        imuSerial,
	})

	mux := server.ServeMux()
	if err := database.AttachAdminRoutes(mux); err != nil {
		return nil, nil, fmt.Errorf("failed to attach db admin routes: %w", err)
	}
	if imuSerial != nil {
		imuSerial.AttachAdminRoutes(mux)
	}
	return server, api.LoggingMiddleware(mux), nil
}

// serve runs the HTTP API, and the serial monitor when a port is
// configured, until ctx is cancelled.
func serve(ctx context.Context, app *config.AppConfig, tuning *config.TuningConfig, unit string) error {
	database, err := db.NewDB(app.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	var imuSerial serialmux.SerialMuxInterface
	if app.Serial.Port != "" {
		if imuSerial, err = openSerial(app.Serial); err != nil {
			return fmt.Errorf("failed to open IMU port: %w", err)
		}
		defer imuSerial.Close()
		log.Printf("IMU feed on %s", app.Serial.Port)
	}

	server, handler, err := newHandler(app, tuning, unit, database, imuSerial)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	if imuSerial != nil {
		// run the monitor routine to manage IO on the serial port
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := imuSerial.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("failed to monitor serial port: %v", err)
			}
			log.Print("monitor routine terminated")
		}()

		// decode lines and route them to the attached session
		wg.Add(1)
		go func() {
			defer wg.Done()
			var stats serialmux.FeedStats
			if err := serialmux.Feed(ctx, imuSerial, server.HandleRecord, &stats); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("IMU feed error: %v", err)
			}
			log.Printf("feed routine terminated: %d lines, %d records, %d parse errors, %d handler errors",
				stats.Lines.Load(), stats.Records.Load(), stats.ParseErrors.Load(), stats.HandlerErrors.Load())
		}()
	}

	httpServer := &http.Server{
		Addr:    app.Listen,
		Handler: handler,
	}

	var serveErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("listening on %s", app.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
			cancel()
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := httpServer.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	wg.Wait()
	log.Printf("Graceful shutdown complete")
	return serveErr
}
