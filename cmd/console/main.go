package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jessevdk/go-flags"

	"github.com/open-teleop/console/domain/diagnostic"
	"github.com/open-teleop/console/domain/teleop"
	"github.com/open-teleop/console/pkg/api"
	"github.com/open-teleop/console/pkg/config"
	"github.com/open-teleop/console/pkg/connection"
	"github.com/open-teleop/console/pkg/dof"
	"github.com/open-teleop/console/pkg/gamepad"
	customlog "github.com/open-teleop/console/pkg/log"
	"github.com/open-teleop/console/pkg/telemetry"
	"github.com/open-teleop/console/services"
)

// Options are the command line flags.
type Options struct {
	ConfigDir string `short:"c" long:"config-dir" default:"./config" description:"Directory containing console_config.yaml"`
	Port      int    `short:"p" long:"port" description:"HTTP port (overrides server.http_port and $PORT)"`
	Peer      string `long:"peer" description:"Robot WebSocket address (overrides the bootstrap and layout address)"`
	LogLevel  string `long:"log-level" description:"Log level (overrides logging.level)"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	parser.LongDescription = "Open-Teleop Console - joystick teleoperation console for a WebSocket robot"
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		log.Fatalf("Console failed: %v", err)
	}
}

func run(opts Options) error {
	bootstrap, err := config.LoadBootstrapConfig(opts.ConfigDir)
	if err != nil {
		return err
	}
	if opts.LogLevel != "" {
		bootstrap.Logging.Level = opts.LogLevel
	}
	if opts.Peer != "" {
		bootstrap.Peer.Address = opts.Peer
	}
	if !filepath.IsAbs(bootstrap.Data.Directory) {
		bootstrap.Data.Directory = filepath.Join(opts.ConfigDir, bootstrap.Data.Directory)
	}

	opLog := customlog.NewOperatorLog(bootstrap.Logging.OperatorLines)
	appLogger, err := customlog.NewLogrusLogger(bootstrap.Logging.Level, bootstrap.Logging.LogPath, opLog)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	appLogger.Infof("Starting Open-Teleop Console (config dir %s)", opts.ConfigDir)

	configService, err := services.NewConsoleConfigService(bootstrap.Data.LayoutPath(), appLogger.WithField("component", "config"))
	if err != nil {
		return fmt.Errorf("loading layout: %w", err)
	}
	layout := *configService.GetCurrentConfig()
	if opts.Peer != "" {
		layout.PeerAddress = opts.Peer
	}

	hub := api.NewHub(appLogger.WithField("component", "hub"))
	unsubscribe := opLog.Subscribe(hub.PublishLog)
	defer unsubscribe()
	displays := []dof.Display{hub}

	if bootstrap.Telemetry.Enabled {
		publisher, err := telemetry.NewPublisher(bootstrap.Telemetry.PublishBindAddress, appLogger.WithField("component", "telemetry"))
		if err != nil {
			return fmt.Errorf("starting telemetry publisher: %w", err)
		}
		defer publisher.Close()
		displays = append(displays, telemetry.NewDisplay(publisher, bootstrap.Telemetry.Topic, appLogger.WithField("component", "telemetry")))
	}

	console, err := teleop.NewConsole(&layout, teleop.Options{
		PeerAddress:       bootstrap.Peer.Address,
		SendPeriod:        time.Duration(bootstrap.Peer.SendPeriodMs) * time.Millisecond,
		QueueSize:         bootstrap.EventLoop.QueueSize,
		Touch:             bootstrap.Input.Touch,
		SimulateIndicator: bootstrap.Input.SimulateIndicator,
		Dialer:            connection.NewWebSocketDialer(time.Duration(bootstrap.Peer.HandshakeTimeoutMs)*time.Millisecond, appLogger.WithField("component", "websocket")),
		Displays:          displays,
	}, appLogger)
	if err != nil {
		return fmt.Errorf("building console: %w", err)
	}
	configService.SetPublisher(console)
	console.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var gamepadDone <-chan struct{}
	if bootstrap.Gamepad.Enabled {
		gamepadDone = startGamepad(ctx, bootstrap.Gamepad, console, appLogger.WithField("component", "gamepad"))
	}

	diagnosticService := diagnostic.NewDiagnosticService(console.Loop(), console, hub)

	app := fiber.New(fiber.Config{
		AppName:      "Open-Teleop Console",
		ErrorHandler: api.ErrorHandler,
	})
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "online",
			"service": "open-teleop console",
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})
	app.Get("/api/v1/diagnostics", diagnosticService.GetMetricsHandler)

	api.RegisterConsoleRoutes(app, console, opLog, appLogger.WithField("component", "api"))
	api.RegisterConfigRoutes(app, configService, appLogger.WithField("component", "api"))
	api.RegisterWebSocketRoutes(app, console, hub, appLogger.WithField("component", "ws"))

	port := listenPort(opts.Port, bootstrap.Server.HTTPPort)
	go func() {
		appLogger.Infof("Server starting on port %d", port)
		if err := app.Listen(":" + strconv.Itoa(port)); err != nil {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Infof("Shutting down console...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		appLogger.Errorf("Server forced to shutdown: %v", err)
	}

	if gamepadDone != nil {
		<-gamepadDone
	}
	console.Stop()
	appLogger.Infof("Final DoF state:\n%s", console.Table().Render())
	appLogger.Infof("Console exited properly")
	return nil
}

// listenPort picks the flag, then $PORT, then the bootstrap value.
func listenPort(flagPort, bootstrapPort int) int {
	if flagPort > 0 {
		return flagPort
	}
	if env := os.Getenv("PORT"); env != "" {
		if p, err := strconv.Atoi(env); err == nil && p > 0 {
			return p
		}
	}
	return bootstrapPort
}

// startGamepad runs the gamepad poller. The returned channel is closed once
// the poller has released its widget.
func startGamepad(ctx context.Context, cfg config.GamepadConfig, console *teleop.Console, logger customlog.Logger) <-chan struct{} {
	done := make(chan struct{})
	widget, ok := console.Widget(cfg.Widget)
	if !ok {
		logger.Warnf("Gamepad widget '%s' is not in the layout, gamepad disabled", cfg.Widget)
		close(done)
		return done
	}
	device, err := gamepad.OpenDevice(cfg.DeviceIndex, logger)
	if err != nil {
		logger.Warnf("Gamepad disabled: %v", err)
		close(done)
		return done
	}
	poller := gamepad.NewPoller(device, widget, console.Loop(), gamepad.Options{
		AxisX:        cfg.AxisX,
		AxisY:        cfg.AxisY,
		Deadzone:     cfg.Deadzone,
		PollInterval: time.Duration(cfg.PollIntervalMs) * time.Millisecond,
	}, logger)

	go func() {
		defer close(done)
		defer device.Close()
		if err := poller.Run(ctx); err != nil {
			logger.Errorf("Gamepad stopped: %v", err)
		}
	}()
	return done
}
