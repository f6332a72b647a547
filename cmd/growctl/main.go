// growctl - grow space environmental controller
//
// This is the main entry point for the growctl controller. It samples
// temperature, humidity, CO2 and light sensors, keeps compacted history,
// drives relays and smart plugs under automation rules and serves the
// dashboard over HTTP and WebSocket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/growctl/internal/actuator"
	"github.com/nerrad567/growctl/internal/api"
	"github.com/nerrad567/growctl/internal/automation"
	"github.com/nerrad567/growctl/internal/clock"
	"github.com/nerrad567/growctl/internal/controller"
	"github.com/nerrad567/growctl/internal/device"
	"github.com/nerrad567/growctl/internal/history"
	"github.com/nerrad567/growctl/internal/infrastructure/config"
	"github.com/nerrad567/growctl/internal/infrastructure/database"
	"github.com/nerrad567/growctl/internal/infrastructure/influxdb"
	"github.com/nerrad567/growctl/internal/infrastructure/logging"
	"github.com/nerrad567/growctl/internal/infrastructure/mqtt"
	"github.com/nerrad567/growctl/internal/ingress"
	"github.com/nerrad567/growctl/internal/sensor"
	"github.com/nerrad567/growctl/internal/settings"
	"github.com/nerrad567/growctl/internal/storage"
	"github.com/nerrad567/growctl/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting growctl",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"site", cfg.Site.ID,
		"storage", cfg.Storage.Backend,
	)

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	clk := clock.NewSystem()
	if !clk.Synced() {
		log.Warn("wall clock not set, history timestamps fall back to uptime")
	}

	// Catalogs
	sensors := sensor.NewRegistry(store)
	sensors.SetLogger(log)
	if err := sensors.Load(); err != nil {
		log.Error("loading sensors", "error", err)
	}

	devices := device.NewRegistry(device.NewJSONRepository(store))
	devices.SetLogger(log)
	if err := devices.Load(); err != nil {
		log.Error("loading devices", "error", err)
	}

	prefs := settings.NewManager(store)
	prefs.SetLogger(log)
	if err := prefs.Load(); err != nil {
		log.Error("loading settings", "error", err)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)

	// Hardware
	reader := sensor.NewReader(sensors, buildHardware(cfg.Sensors.Hardware, log)...)
	reader.SetLogger(log)
	found := reader.Detect(ctx)
	log.Info("sensor hardware detected", "present", found, "configured", len(cfg.Sensors.Hardware))

	gateway := actuator.NewGateway(actuator.Options{
		Relays:  actuator.NewMemoryRelays(cfg.Actuator.RelayPins...),
		Timeout: cfg.ActuatorTimeout(),
	})
	gateway.SetLogger(log)
	gateway.SetObserver(metrics.ObserveCommand)

	// Rules
	rules := automation.NewEngine(
		automation.NewJSONRepository(store),
		controller.DeviceView(devices),
		gateway,
		clk,
		automation.Options{
			EvalInterval:   cfg.EvalInterval(),
			MissingReading: automation.MissingReading(cfg.Automation.MissingReading),
		},
	)
	rules.SetLogger(log)
	if err := rules.Load(); err != nil {
		log.Error("loading rules", "error", err)
	}

	// History
	hist := history.NewEngine(store, clk)
	hist.SetLogger(log)
	hist.SetSaveInterval(cfg.PersistInterval())
	hist.Init(sensors.IDs())

	// Telemetry sinks
	sinks, closeSinks, err := openSinks(ctx, cfg, log, metrics)
	if err != nil {
		return err
	}
	defer closeSinks()
	bridge := telemetry.NewBridge(metrics, append(sinks, metrics)...)
	bridge.SetLogger(log)

	// Controller
	ring := ingress.NewRing(ingress.DefaultCapacity)
	ctrl := controller.New(controller.Deps{
		Clock:     clk,
		Sensors:   sensors,
		Reader:    reader,
		Devices:   devices,
		Rules:     rules,
		History:   hist,
		Settings:  prefs,
		Actuator:  gateway,
		Ingress:   ring,
		Telemetry: bridge,
		Metrics:   metrics,
		Version:   version,
	}, controller.Options{
		TickInterval:      cfg.TickInterval(),
		BroadcastInterval: cfg.BroadcastInterval(),
		OverrideDuration:  cfg.OverrideDuration(),
	})
	ctrl.SetLogger(log)

	for _, sink := range sinks {
		if cmd, ok := sink.(*telemetry.MQTTSink); ok {
			if err := cmd.SubscribeCommands(ctrl.Remote); err != nil {
				log.Warn("MQTT command subscription failed", "error", err)
			}
		}
	}

	// WebSocket + HTTP
	hub := api.NewHub(cfg.WebSocket, log, ring, metrics)
	hub.SetOnConnect(ctrl.Welcome)
	ctrl.SetBroadcaster(hub)

	server, err := api.New(api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log,
		Core:    ctrl,
		Hub:     hub,
		Metrics: registry,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		ctrl.Run(loopCtx)
	}()
	go func() {
		defer wg.Done()
		bridge.Run(loopCtx)
	}()
	go hub.Run(loopCtx)

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}

	log.Info("initialisation complete",
		"sensors", sensors.Count(),
		"devices", devices.Count(),
		"rules", rules.Count(),
		"address", server.Addr(),
	)

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	if err := server.Close(); err != nil {
		log.Error("error closing API server", "error", err)
	}

	// Stopping the loop flushes history before the store closes, and the
	// bridge drains before the telemetry clients close.
	stopLoop()
	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownTimeout):
		log.Warn("controller loop did not stop in time")
	}

	log.Info("growctl stopped")
	return nil
}

// shutdownTimeout bounds how long run waits for the controller loop.
const shutdownTimeout = 10 * time.Second

// getConfigPath returns the configuration file path.
// Uses GROWCTL_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GROWCTL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// openStore opens the configured storage backend. The returned func
// closes whatever was opened.
func openStore(ctx context.Context, cfg *config.Config, log *logging.Logger) (storage.Store, func(), error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendSQLite:
		db, err := database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		if err := db.HealthCheck(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		store, err := storage.NewSQLiteStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info("storage ready", "backend", "sqlite", "path", cfg.Database.Path)
		return store, func() {
			log.Info("closing database")
			if err := db.Close(); err != nil {
				log.Error("error closing database", "error", err)
			}
		}, nil

	default:
		store, err := storage.NewFileStore(cfg.Storage.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening data directory: %w", err)
		}
		log.Info("storage ready", "backend", "file", "data_dir", cfg.Storage.DataDir)
		return store, func() {}, nil
	}
}

// buildHardware returns the sensor sources named in the configuration.
// Chip drivers are not built in; unknown names are logged and skipped.
func buildHardware(names []string, log *logging.Logger) []sensor.Hardware {
	var hw []sensor.Hardware
	for _, name := range names {
		switch name {
		case sensor.HardwareSimulated:
			hw = append(hw, sensor.NewSimulated(uint64(time.Now().UnixNano())))
		default:
			log.Warn("no driver for sensor hardware, skipping", "hardware", name)
		}
	}
	return hw
}

// openSinks connects the optional MQTT and InfluxDB telemetry clients.
// Connection failures are fatal only for clients that are enabled.
func openSinks(ctx context.Context, cfg *config.Config, log *logging.Logger, metrics *telemetry.Metrics) ([]telemetry.Sink, func(), error) {
	var (
		sinks   []telemetry.Sink
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.MQTT.Enabled {
		client, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to MQTT: %w", err)
		}
		client.SetLogger(log)
		client.SetOnConnect(func() { log.Info("MQTT reconnected") })
		client.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		closers = append(closers, func() {
			log.Info("disconnecting from MQTT")
			if err := client.Close(); err != nil {
				log.Error("error closing MQTT", "error", err)
			}
		})
		sinks = append(sinks, telemetry.NewMQTTSink(client, log))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	if cfg.InfluxDB.Enabled {
		client, err := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Site.ID)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		if err := client.HealthCheck(ctx); err != nil {
			log.Warn("InfluxDB health check failed", "error", err)
		}
		client.SetOnError(func(err error) {
			metrics.SinkWriteFailed("influxdb")
			log.Error("InfluxDB write error", "error", err, "bucket", client.Bucket())
		})
		closers = append(closers, func() {
			log.Info("closing InfluxDB connection")
			if err := client.Close(); err != nil {
				log.Error("error closing InfluxDB", "error", err)
			}
		})
		sinks = append(sinks, telemetry.NewInfluxSink(client))
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	return sinks, closeAll, nil
}
