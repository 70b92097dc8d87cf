// Gray Logic Device - platform agent
//
// This is the main entry point for the device agent. The agent keeps an
// MQTT session to the IoT platform alive, announces the device, and acts on
// management requests: metadata updates, reboot, factory reset and
// over-the-air firmware upgrades.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/gray-logic-device/internal/agent"
	"github.com/nerrad567/gray-logic-device/internal/audit"
	"github.com/nerrad567/gray-logic-device/internal/configstore"
	"github.com/nerrad567/gray-logic-device/internal/connectivity"
	"github.com/nerrad567/gray-logic-device/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-device/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-device/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-device/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-device/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-device/internal/ota"
	"github.com/nerrad567/gray-logic-device/internal/router"
	"github.com/nerrad567/gray-logic-device/internal/status"
	"github.com/nerrad567/gray-logic-device/internal/system"
	"github.com/nerrad567/gray-logic-device/migrations"
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
// Returns:
//   - error: nil on clean shutdown or requested restart, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Gray Logic Device",
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
	log.Info("configuration loaded", "path", configPath, "level", cfg.Logging.Level)

	// Persistent configuration
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	if err := healthCheck(ctx, db); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	store := configstore.New(
		configstore.NewSQLiteRepository(db.DB),
		configstore.Identity{
			Org:        cfg.Device.Org,
			DeviceType: cfg.Device.Type,
			DeviceID:   cfg.Device.ID,
			Token:      cfg.Device.Token,
		},
		configstore.Metadata(cfg.Device.Metadata),
	)
	store.SetLogger(log.Component("configstore"))
	if err := store.Load(ctx); err != nil {
		return fmt.Errorf("loading device configuration: %w", err)
	}

	identity := store.Identity()
	log = log.WithDevice(identity.ClientID())
	log.Info("device configuration loaded", "pub_interval", store.PublishInterval().String())

	journal := audit.NewJournal(audit.NewSQLiteRepository(db.DB), cfg.Agent.JournalSize)
	journal.SetLogger(log.Component("audit"))
	if last, lastErr := journal.Last(ctx); lastErr != nil {
		log.Warn("reading action journal failed", "error", lastErr)
	} else if last != nil {
		log.Info("last management action",
			"action", last.Action,
			"topic", last.Topic,
			"at", last.CreatedAt,
		)
	}

	// MQTT session (not connected yet; the supervisor owns that)
	cfg.MQTT.Fingerprint = mqtt.LoadFingerprint(cfg.MQTT.FingerprintFile, cfg.MQTT.Fingerprint)
	host := cfg.BrokerHost(identity.Org)
	session, err := mqtt.New(cfg.MQTT, host, mqtt.Credentials{
		ClientID: identity.ClientID(),
		Username: mqtt.TokenAuthUsername,
		Password: identity.Token,
	})
	if err != nil {
		return fmt.Errorf("creating MQTT session: %w", err)
	}
	session.SetLogger(log.Component("mqtt"))
	session.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := session.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT session prepared", "broker", fmt.Sprintf("%s:%d", host, cfg.MQTT.Broker.Port), "tls", cfg.MQTT.Broker.TLS)

	qos := byte(cfg.MQTT.QoS) //nolint:gosec // Validated to 0..2
	publisher := status.NewPublisher(session, qos)
	publisher.SetLogger(log.Component("status"))

	// Restart path: close the session and storage before the process goes away
	restarter, err := system.NewRestarter(cfg.Hardware.Restart)
	if err != nil {
		return fmt.Errorf("creating restarter: %w", err)
	}
	restarter.SetLogger(log.Component("restart"))
	restarter.BeforeRestart(func() {
		if closeErr := session.Close(); closeErr != nil {
			log.Error("error closing MQTT before restart", "error", closeErr)
		}
	})
	restarter.BeforeRestart(func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database before restart", "error", closeErr)
		}
	})

	// Optional event recording
	influxClient := connectInfluxDB(cfg.InfluxDB, identity.ClientID(), log)
	if influxClient != nil {
		restarter.BeforeRestart(influxClient.Flush)
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
	}

	// Firmware updates
	targetPath := cfg.OTA.TargetPath
	if targetPath == "" {
		if targetPath, err = os.Executable(); err != nil {
			return fmt.Errorf("locating executable: %w", err)
		}
	}
	flasher := ota.NewHTTPFlasher(ota.FlasherConfig{
		TargetPath: targetPath,
		Timeout:    cfg.OTA.Timeout,
		MaxSize:    cfg.OTA.MaxSize,
		Version:    version,
		DeviceID:   identity.ClientID(),
	}, restarter)
	upgrader := ota.NewOrchestrator(flasher, publisher)
	upgrader.SetLogger(log.Component("ota"))

	commands := router.New(store, upgrader, publisher, restarter)
	commands.SetLogger(log.Component("router"))
	commands.SetJournal(journal)

	// Hardware
	resetLine, err := system.OpenResetLine(cfg.Hardware.ResetLine)
	if err != nil {
		return fmt.Errorf("opening reset line: %w", err)
	}
	defer func() {
		if closeErr := resetLine.Close(); closeErr != nil {
			log.Error("error closing reset line", "error", closeErr)
		}
	}()
	link := system.NewInterfaceLink(cfg.Connectivity.Interface, cfg.Connectivity.LinkUpCommand)

	intake := agent.NewIntake(cfg.Agent.IntakeDepth)
	intake.SetLogger(log.Component("intake"))

	supervisor := connectivity.NewSupervisor(connectivity.Config{
		LinkPollInterval: cfg.Connectivity.LinkPollInterval,
		SessionBackoff:   cfg.Connectivity.SessionBackoff,
		WatchdogWindow:   cfg.Connectivity.WatchdogWindow,
		QoS:              qos,
	}, connectivity.Dependencies{
		Link:      link,
		Session:   session,
		Handler:   intake.Handler(),
		Announcer: publisher,
		Metadata:  store,
		Reset:     resetLine,
		Restarter: restarter,
	})
	supervisor.SetLogger(log.Component("connectivity"))

	loop := agent.New(agent.Config{Version: version}, agent.Dependencies{
		Intake:     intake,
		Supervisor: supervisor,
		Dispatcher: commands,
		Interval:   store,
		Status:     publisher,
		Stop:       restarter.Done(),
	})
	loop.SetLogger(log.Component("agent"))

	if influxClient != nil {
		supervisor.SetRecorder(influxClient)
		upgrader.SetRecorder(influxClient)
		loop.SetRecorder(influxClient)
	}

	log.Info("initialisation complete, starting agent loop")
	err = loop.Run(ctx)
	if errors.Is(err, connectivity.ErrRestarting) || errors.Is(err, agent.ErrRestartRequested) {
		log.Warn("agent stopped for restart", "reason", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("agent loop: %w", err)
	}

	log.Info("Gray Logic Device stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYDEVICE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYDEVICE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectInfluxDB returns a connected client tagged with the device, or nil
// when InfluxDB is disabled or unreachable. The agent runs without it.
func connectInfluxDB(cfg config.InfluxDBConfig, clientID string, log *logging.Logger) *influxdb.Client {
	client, err := influxdb.Connect(cfg)
	if errors.Is(err, influxdb.ErrDisabled) {
		log.Info("InfluxDB disabled")
		return nil
	}
	if err != nil {
		log.Warn("InfluxDB unavailable, events will not be recorded", "error", err)
		return nil
	}

	client.SetDevice(clientID)
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected", "url", cfg.URL, "org", cfg.Org, "bucket", cfg.Bucket)
	return client
}

// healthCheck verifies local storage is usable before the agent starts.
func healthCheck(ctx context.Context, db *database.DB) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	return nil
}
