// LockWise Core - smart lock backend
//
// This is the main entry point for the LockWise Core service. It bridges
// lock devices on the MQTT broker to owners and grantees on the HTTP API:
//   - commands go out on lockwise/{id}/control
//   - heartbeats, events and lock reports come back on lockwise/{id}/status
//   - acknowledgments are correlated with the request that is waiting
//   - device state, lockdown and the access log are reconciled in SQLite
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/lockwise-core/internal/access"
	"github.com/nerrad567/lockwise-core/internal/accesslog"
	"github.com/nerrad567/lockwise-core/internal/api"
	"github.com/nerrad567/lockwise-core/internal/auth"
	"github.com/nerrad567/lockwise-core/internal/control"
	"github.com/nerrad567/lockwise-core/internal/correlation"
	"github.com/nerrad567/lockwise-core/internal/device"
	"github.com/nerrad567/lockwise-core/internal/infrastructure/config"
	"github.com/nerrad567/lockwise-core/internal/infrastructure/database"
	"github.com/nerrad567/lockwise-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/lockwise-core/internal/infrastructure/logging"
	"github.com/nerrad567/lockwise-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/lockwise-core/internal/reconciler"
	"github.com/nerrad567/lockwise-core/internal/transport"
	"github.com/nerrad567/lockwise-core/migrations"
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
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting LockWise Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Database
	db, err := database.Open(cfg.Database)
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

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Device registry
	deviceRegistry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	deviceRegistry.SetLogger(log.Component("device"))
	if refreshErr := deviceRegistry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry initialised", "devices", deviceRegistry.GetDeviceCount())

	checker := access.NewChecker(deviceRegistry, access.NewSQLiteGrantRepository(db.DB))

	// Access log and retention
	accessLog := accesslog.NewSQLiteRepository(db.DB)
	pruner := accesslog.NewPruner(accessLog, cfg.GetRetention(), cfg.GetPruneInterval())
	pruner.SetLogger(log.Component("accesslog"))
	go pruner.Run(ctx)

	// MQTT
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
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
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// InfluxDB (optional)
	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	// Correlation state shared by the command path and the inbound path
	waiters := correlation.NewRegistry()
	attribution := correlation.NewAttributionWindow()

	// The hub must exist before the reconciler can push live updates.
	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	go hub.Run(ctx)

	rec := reconciler.New(reconciler.Deps{
		Devices:     deviceRegistry,
		Waiters:     waiters,
		Attribution: attribution,
		AccessLog:   accessLog,
		Notifier:    hub,
		Audience:    checker,
		Telemetry:   influxClient,
	})
	rec.SetLogger(log.Component("reconciler"))
	dispatcher := reconciler.NewDispatcher(rec)
	dispatcher.SetLogger(log.Component("reconciler"))

	// #nosec G115 -- QoS validated to 0..2 by config
	adapter := transport.New(mqttClient, byte(cfg.MQTT.QoS), cfg.MQTT.InboundBuffer)
	adapter.SetLogger(log.Component("transport"))
	if startErr := adapter.Start(); startErr != nil {
		return fmt.Errorf("starting transport: %w", startErr)
	}
	defer func() {
		if stopErr := adapter.Stop(); stopErr != nil {
			log.Error("error stopping transport", "error", stopErr)
		}
	}()

	go func() {
		if runErr := dispatcher.Run(ctx, adapter.Inbound()); runErr != nil && !errors.Is(runErr, context.Canceled) {
			log.Error("inbound dispatcher stopped", "error", runErr)
		}
	}()

	commands := control.NewService(control.Deps{
		Publisher:   adapter,
		Authorizer:  checker,
		Devices:     deviceRegistry,
		Waiters:     waiters,
		Attribution: attribution,
		Telemetry:   influxClient,
	})
	commands.SetLogger(log.Component("control"))

	// HTTP API
	apiServer, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Logger:     log,
		Issuer:     auth.NewIssuer(cfg.Security.JWT.Secret, cfg.GetAccessTokenTTL()),
		Devices:    deviceRegistry,
		Access:     checker,
		Commands:   commands,
		AccessLog:  accessLog,
		Hub:        hub,
		MQTT:       mqttClient,
		Dispatcher: dispatcher,
		Transport:  adapter,
		Waiters:    waiters,
		DB:         db.DB,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order: API, transport,
	// InfluxDB, MQTT, database.
	log.Info("LockWise Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses LOCKWISE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("LOCKWISE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when telemetry is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
