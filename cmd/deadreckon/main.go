package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/deadreckon/internal/config"
	"github.com/banshee-data/deadreckon/internal/monitoring"
	"github.com/banshee-data/deadreckon/internal/units"
	"github.com/banshee-data/deadreckon/internal/version"
)

var (
	routeFile  = flag.String("route", "", "Route file to replay over (.json or .geojson)")
	imuFile    = flag.String("imu", "", "IMU recording to replay (CSV or JSON lines)")
	startDist  = flag.Float64("start", 0, "Start distance along the route in meters")
	plotFile   = flag.String("plot", "", "Write a speed/distance PNG of the replay to this path")
	htmlFile   = flag.String("html", "", "Write an HTML chart of the replay to this path")
	unitsFlag  = flag.String("units", "", "Display units: "+units.GetValidUnitsString())
	serveMode  = flag.Bool("serve", false, "Serve the HTTP API")
	listen     = flag.String("listen", "", "Listen address (default :8080)")
	dbPath     = flag.String("db", "", "Route cache database (default routes.db)")
	port       = flag.String("port", "", "IMU serial device, or \"mock\" for a simulated feed")
	osrmURL    = flag.String("osrm", "", "OSRM base URL used to fetch routes")
	configFile = flag.String("config", "", "YAML application config")
	tuningFile = flag.String("tuning", "", "JSON tuning config")
	debugMode  = flag.Bool("debug", false, "Enable debug logging")
	showVer    = flag.Bool("version", false, "Print version information and exit")
)

func printUsage() {
	fmt.Fprintf(flag.CommandLine.Output(), `deadreckon - IMU dead reckoning along a known route

Usage:
  deadreckon -route <file> -imu <file> [-start m] [-plot out.png] [-html out.html]
  deadreckon -serve [-listen addr] [-db path] [-port device|mock] [-osrm url]

Flags:
`)
	flag.PrintDefaults()
}

// loadAppConfig reads the YAML config when given and applies any flags that
// were set on top of it.
func loadAppConfig(path string) (*config.AppConfig, error) {
	app := config.DefaultAppConfig()
	if path != "" {
		var err error
		if app, err = config.LoadAppConfig(path); err != nil {
			return nil, err
		}
	}
	if *listen != "" {
		app.Listen = *listen
	}
	if *dbPath != "" {
		app.DBPath = *dbPath
	}
	if *port != "" {
		app.Serial.Port = *port
	}
	if *osrmURL != "" {
		app.OSRMURL = *osrmURL
	}
	if *tuningFile != "" {
		app.TuningPath = *tuningFile
	}
	if *unitsFlag != "" {
		app.Units = *unitsFlag
	}
	if err := app.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return app, nil
}

// loadTuning returns the built-in defaults when path is empty.
func loadTuning(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.DefaultTuningConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if *showVer {
		fmt.Println(version.String())
		return
	}
	monitoring.SetDebug(*debugMode)

	app, err := loadAppConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	tuning, err := loadTuning(app.TuningPath)
	if err != nil {
		log.Fatalf("Failed to load tuning config: %v", err)
	}
	unit, err := units.Parse(app.Units)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case *serveMode:
		if err := serve(ctx, app, tuning, unit); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	case *imuFile != "":
		if *routeFile == "" {
			log.Fatal("-route is required with -imu")
		}
		opts := replayOptions{
			RoutePath:   *routeFile,
			IMUPath:     *imuFile,
			StartMeters: *startDist,
			Units:       unit,
			PlotPath:    *plotFile,
			HTMLPath:    *htmlFile,
			Tuning:      tuning,
		}
		sum, err := replay(ctx, opts)
		if err != nil {
			log.Fatalf("Replay failed: %v", err)
		}
		sum.Print(os.Stdout, unit)
	default:
		printUsage()
		os.Exit(2)
	}
}
