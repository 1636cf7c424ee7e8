// gatewatch - Gateway connection watchdog
//
// This is the main entry point for the gatewatch service. It probes one
// device gateway on a timer, declares it offline after repeated failed
// probes, reconnects with backoff and publishes every transition to the
// configured sinks (MQTT, AMQP, InfluxDB, SQLite history, WebSocket).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	_ "github.com/nerrad567/gatewatch/migrations"

	"github.com/nerrad567/gatewatch/internal/api"
	"github.com/nerrad567/gatewatch/internal/gateway"
	"github.com/nerrad567/gatewatch/internal/history"
	"github.com/nerrad567/gatewatch/internal/infrastructure/config"
	"github.com/nerrad567/gatewatch/internal/infrastructure/database"
	"github.com/nerrad567/gatewatch/internal/infrastructure/influxdb"
	"github.com/nerrad567/gatewatch/internal/infrastructure/logging"
	"github.com/nerrad567/gatewatch/internal/infrastructure/mqtt"
	"github.com/nerrad567/gatewatch/internal/sink"
	"github.com/nerrad567/gatewatch/internal/watchdog"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
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
// Shutdown happens in reverse start order through deferred Close calls once
// ctx is cancelled and the watchdog has stopped.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("gatewatch starting",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"gateway", cfg.Gateway.Name,
		"probe", cfg.Gateway.Probe,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	enc, err := sink.NewEncoder(cfg.Events.Encoding)
	if err != nil {
		return fmt.Errorf("creating event encoder: %w", err)
	}

	// Connect to MQTT (event bus, and the watched gateway for the mqtt probe)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("closing MQTT connection")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (if enabled)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build the probe target and the watchdog around it
	target, err := gateway.New(cfg.Gateway, mqttClient, log.Component("gateway"))
	if err != nil {
		return fmt.Errorf("creating gateway target: %w", err)
	}
	defer func() {
		log.Info("closing gateway target")
		if closeErr := target.Close(); closeErr != nil {
			log.Error("error closing gateway target", "error", closeErr)
		}
	}()

	w, err := watchdog.New(target, &cfg.Watchdog)
	if err != nil {
		return fmt.Errorf("creating watchdog: %w", err)
	}
	w.SetLogger(log.Component("watchdog"))

	// Sinks
	var repo *history.SQLiteRepository
	if cfg.History.Enabled {
		repo = history.NewSQLiteRepository(db.DB)
	}

	sinks, closeSinks, err := buildSinks(cfg, enc, w, target, mqttClient, influxClient, repo, log)
	if err != nil {
		return err
	}
	defer closeSinks()

	var srv *api.Server
	if cfg.API.Enabled {
		deps := api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Logger:   log.Component("api"),
			Gateway:  cfg.Gateway,
			Watchdog: w,
			DB:       db,
			Version:  version,
		}
		if repo != nil {
			deps.History = repo
		}
		srv, err = api.New(deps)
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		sinks = append(sinks, srv.Hub())
	}

	dispatcher := sink.NewDispatcher(0, log.Component("sink"), sinks...)
	defer func() {
		log.Info("draining event sinks", "dropped", dispatcher.Dropped())
		dispatcher.Close()
	}()
	sink.Attach(w, dispatcher)

	if srv != nil {
		srv.SetSinks(dispatcher)
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			log.Info("stopping API server")
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error stopping API server", "error", closeErr)
			}
		}()
		log.Info("API server started", "addr", srv.Addr())
	}

	// Initial connection, retried with the watchdog's connection backoff
	if cfg.Gateway.ConnectOnStart {
		if err := watchdog.Connect(ctx, target.Connect, w.Options(), log.Component("watchdog")); err != nil {
			return fmt.Errorf("connecting to gateway: %w", err)
		}
		log.Info("gateway connected", "gateway", cfg.Gateway.Name)
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	if err := w.Start(); err != nil {
		return fmt.Errorf("starting watchdog: %w", err)
	}
	log.Info("watchdog started", "ping_interval", w.Options().PingInterval)

	g, gctx := errgroup.WithContext(ctx)
	if repo != nil && cfg.History.RetentionDays > 0 {
		g.Go(func() error {
			history.RunPruner(gctx, repo, cfg.History.GetRetention(), cfg.History.GetPruneInterval(), log.Component("history"))
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, stopping watchdog")
		w.Stop()
		w.Wait()
		return nil
	})

	log.Info("initialisation complete, waiting for shutdown signal")
	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("gatewatch stopped")
	return nil
}

// buildSinks creates the event consumers enabled in cfg.
//
// The returned close function releases sink-owned connections (AMQP).
// The MQTT publisher also registers a restore hook so the retained status
// is republished after every successful reconnect.
func buildSinks(
	cfg *config.Config,
	enc *sink.Encoder,
	w *watchdog.Watchdog,
	target gateway.Target,
	mqttClient *mqtt.Client,
	influxClient *influxdb.Client,
	repo *history.SQLiteRepository,
	log *logging.Logger,
) ([]sink.Sink, func(), error) {
	var sinks []sink.Sink
	closers := []func(){}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if mqttClient != nil {
		pub := sink.NewMQTTPublisher(mqttClient, cfg.Gateway.Name, enc, w, log.Component("sink.mqtt"))
		target.OnRestore(func(context.Context) error {
			return pub.PublishStatus()
		})
		sinks = append(sinks, pub)
	}

	if cfg.AMQP.Enabled {
		pub, err := sink.DialAMQP(cfg.AMQP, cfg.Gateway.Name, enc, log.Component("sink.amqp"))
		if err != nil {
			return nil, closeAll, fmt.Errorf("connecting to AMQP: %w", err)
		}
		closers = append(closers, func() {
			log.Info("closing AMQP connection")
			if err := pub.Close(); err != nil {
				log.Error("error closing AMQP", "error", err)
			}
		})
		sinks = append(sinks, pub)
		log.Info("AMQP connected", "exchange", cfg.AMQP.Exchange)
	}

	if influxClient != nil {
		sinks = append(sinks, sink.NewMetrics(influxClient, cfg.Gateway.Name))
	}

	if repo != nil {
		sinks = append(sinks, history.NewRecorder(repo, cfg.Gateway.Name, log.Component("history")))
	}

	return sinks, closeAll, nil
}

// getConfigPath returns the configuration file path.
// Uses GATEWATCH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GATEWATCH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
