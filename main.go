// Command autobrain runs the vehicle diagnostics service: an HTTP API over
// a SQLite database, an on-upload video and audio analysis pipeline, and an
// optional OBD-II adapter connection.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/autobrain-data/autobrain/internal/api"
	"github.com/autobrain-data/autobrain/internal/config"
	"github.com/autobrain-data/autobrain/internal/db"
	"github.com/autobrain-data/autobrain/internal/obd"
)

var (
	devMode    = flag.Bool("dev", false, "Run in dev mode with a mock OBD adapter")
	listen     = flag.String("listen", ":8080", "Listen address")
	dbPath     = flag.String("db", "autobrain.db", "Path to the diagnostics database")
	configPath = flag.String("config", "", "Path to a JSON tuning config (optional)")
	obdPort    = flag.String("obd-port", "", "Serial port of the OBD adapter (e.g. /dev/ttyUSB0); empty disables OBD")
	obdBaud    = flag.Int("obd-baud", 0, "OBD adapter baud rate (0 uses the adapter default)")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	var tuning *config.TuningConfig
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	var mux obd.Muxer
	switch {
	case *devMode:
		mux = obd.NewMockMux()
	case *obdPort != "":
		var err error
		mux, err = obd.NewRealMux(*obdPort, obd.PortOptions{BaudRate: *obdBaud})
		if err != nil {
			log.Fatalf("failed to open OBD adapter port: %v", err)
		}
	}
	if mux != nil {
		defer mux.Close()
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if err := database.MigrateUp(); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the monitor routine to manage IO on the adapter port
	var poller *obd.Poller
	if mux != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := mux.Monitor(ctx); err != nil && err != context.Canceled {
				log.Printf("failed to monitor OBD port: %v", err)
			}
			log.Print("monitor routine terminated")
		}()

		if err := mux.Initialize(); err != nil {
			log.Printf("failed to initialize OBD adapter: %v", err)
		}
		poller = obd.NewPoller(mux, 0)
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(api.NewServer(database, tuning, poller).ServeMux()),
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()
		log.Printf("listening on %s", *listen)

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
}
