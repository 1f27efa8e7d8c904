package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/warroom/extension/internal/alert"
	"github.com/warroom/extension/internal/archive"
	"github.com/warroom/extension/internal/cache"
	"github.com/warroom/extension/internal/config"
	"github.com/warroom/extension/internal/dispatcher"
	"github.com/warroom/extension/internal/faction"
	"github.com/warroom/extension/internal/geo"
	"github.com/warroom/extension/internal/handlers"
	"github.com/warroom/extension/internal/locator"
	"github.com/warroom/extension/internal/logging"
	"github.com/warroom/extension/internal/monitor"
	intOtel "github.com/warroom/extension/internal/otel"
	"github.com/warroom/extension/internal/render"
	"github.com/warroom/extension/internal/session"
	"github.com/warroom/extension/internal/sim"
	"github.com/warroom/extension/internal/stream"
	"github.com/warroom/extension/internal/telemetry"
	"github.com/warroom/extension/internal/worker"
	"github.com/warroom/extension/pkg/core"
)

// logQueueSize bounds pending :LOG: notes; extra notes are dropped.
const logQueueSize = 64

// build defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "warroom"
)

// file paths
var (
	LogFilePath string
	LogFile     *os.File
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// ZLogger is the zerolog logger used by the dispatcher and telemetry
	ZLogger zerolog.Logger = zerolog.Nop()

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime time.Time = time.Now()

	// FrameCache keeps the latest published frame for status queries
	FrameCache *cache.FrameCache = cache.NewFrameCache()

	// Services
	sessionCtx      *session.Context
	simulation      *sim.Simulation
	eventDispatcher *dispatcher.Dispatcher
	handlerService  *handlers.Service
	monitorService  *monitor.Service
	runner          *worker.Runner
	influxManager   *telemetry.Manager
	streamBackend   *stream.Backend
	archiveStore    *archive.Store
	tally           = newTallyRecorder()
)

// options are the command-line settings that are not bound into viper.
type options struct {
	configDir  string
	headless   bool
	ticks      int
	statusFile string
	stdin      bool
	history    int
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	fs.StringVar(&opts.configDir, "config", ".", "directory containing "+config.FileName)
	fs.BoolVar(&opts.headless, "headless", false, "run without a terminal display and print a report")
	fs.IntVar(&opts.ticks, "ticks", 0, "headless: number of ticks to run without waiting, 0 runs in real time until interrupted")
	fs.StringVar(&opts.statusFile, "status-file", "", "rewrite a JSON status file every second")
	fs.BoolVar(&opts.stdin, "stdin", false, "headless: read commands from standard input")
	fs.IntVar(&opts.history, "history", 0, "print the last N archived runs and exit")

	if err := config.BindFlags(fs); err != nil {
		return opts, err
	}
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		Logger.Error("War room failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(opts options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Bootstrap logging until the config is known
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(opts.configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "path", viper.ConfigFileUsed())
	}

	sessionCtx = session.NewContext(session.Origin{LonLat: locator.DefaultOrigin, Label: session.OriginDefault})
	setupLogging(opts)
	defer shutdown()

	Logger.Info("Starting up...", "version", CurrentVersion, "build", BuildDate, "session", sessionCtx.ID())

	setupArchive()
	if opts.history > 0 {
		return showHistory(opts.history)
	}

	simCfg, err := validateSimConfig(config.GetSimConfig())
	if err != nil {
		return err
	}
	land, err := loadLand(simCfg.WorldFile)
	if err != nil {
		return err
	}
	Logger.Info("Loaded world geometry", "rings", land.NumRings())

	registry := faction.NewRegistry()
	registry.AssignTerritory(land)

	seed := simCfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := sim.NewRandom(seed)

	resolveOrigin(ctx, registry, rng)

	if err := setupSimulation(simCfg, land, registry, rng); err != nil {
		return err
	}
	if err := setupServices(opts, simCfg.TickRate); err != nil {
		return err
	}

	if opts.headless {
		return runHeadless(ctx, opts, simCfg.TickRate)
	}
	return runInteractive(ctx, land, simCfg.TickRate)
}

// validateSimConfig rejects a non-positive viewport and defaults the tick rate.
func validateSimConfig(cfg config.SimConfig) (config.SimConfig, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return cfg, fmt.Errorf("invalid viewport %vx%v: width and height must be positive", cfg.Width, cfg.Height)
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = worker.DefaultTickRate
	}
	return cfg, nil
}

// setupArchive opens the after-action database. Failures are logged and the
// run continues without an archive.
func setupArchive() {
	cfg := config.GetArchiveConfig()
	if !cfg.Enabled {
		return
	}
	store, err := archive.Open(cfg, ZLogger)
	if err != nil {
		Logger.Error("Failed to open run archive", "error", err, "driver", cfg.Driver)
		return
	}
	archiveStore = store
}

func showHistory(limit int) error {
	if archiveStore == nil {
		return errors.New("run archive is not enabled")
	}
	runs, err := archiveStore.Recent(limit)
	if err != nil {
		return err
	}
	wins, err := archiveStore.Wins()
	if err != nil {
		return err
	}
	printHistory(os.Stdout, runs, wins)
	return nil
}

// archiveReport stores the after-action report when the archive is enabled.
func archiveReport(r report) {
	if archiveStore == nil {
		return
	}
	if err := archiveStore.Save(archiveRun(r, SessionStartTime, time.Now())); err != nil {
		Logger.Error("Failed to archive run", "error", err)
	}
}

// setupLogging opens the session log file, then rebuilds the slog handlers
// with the optional OTel, GELF and zerolog outputs.
func setupLogging(opts options) {
	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		Logger.Error("Failed to create logs directory", "error", err, "path", logsDir)
	}

	LogFilePath = logging.LogFilePath(logsDir, AppName, SessionStartTime)
	if _, err := os.Stat(LogFilePath); err == nil {
		_ = os.Rename(LogFilePath, LogFilePath+".old")
	}

	var logOut io.Writer
	f, err := os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
	} else {
		LogFile = f
		logOut = f
	}
	if logOut == nil && !opts.headless {
		// stdout belongs to the terminal display
		logOut = io.Discard
	}

	level := viper.GetString("logLevel")
	zl, err := zerolog.ParseLevel(level)
	if err != nil {
		zl = zerolog.InfoLevel
	}
	zerologOut := logOut
	if zerologOut == nil {
		zerologOut = os.Stdout
	}
	ZLogger = zerolog.New(zerologOut).Level(zl).With().
		Timestamp().
		Str("session", sessionCtx.ID()).
		Logger()

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			SessionID:    sessionCtx.ID(),
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logOut,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
			OTelProvider = nil
		} else {
			Logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
		}
	}

	setupOpts := []logging.Option{logging.WithContext(sessionCtx.LogAttrs)}
	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGELFWriter(gl.Address)
		if err != nil {
			Logger.Error("Failed to create GELF writer", "error", err, "address", gl.Address)
		} else {
			setupOpts = append(setupOpts, logging.WithGELF(w))
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	SlogManager.Setup(logOut, level, otelLogProvider, setupOpts...)
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", LogFilePath)
}

func loadLand(worldFile string) (*geo.Land, error) {
	if worldFile == "" {
		return geo.DefaultLand(), nil
	}
	data, err := os.ReadFile(filepath.Clean(worldFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read world file: %w", err)
	}
	land, err := geo.LoadLand(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load world file %s: %w", worldFile, err)
	}
	return land, nil
}

func resolveOrigin(ctx context.Context, registry *faction.Registry, rng sim.Random) {
	var client *locator.Client
	if lc := config.GetLocatorConfig(); lc.Enabled {
		client = locator.New(lc.URL, lc.Timeout)
	}

	origin, err := locator.ResolveOrigin(ctx, client, registry.Targets(), rng.Intn)
	if err != nil {
		Logger.Warn("Origin lookup failed, using fallback", "error", err, "label", origin.Label)
	}
	sessionCtx.SetOrigin(origin)
	Logger.Info("Origin resolved",
		"label", origin.Label,
		"city", origin.City,
		"lon", origin.Lon,
		"lat", origin.Lat)
}

func setupSimulation(simCfg config.SimConfig, land *geo.Land, registry *faction.Registry, rng sim.Random) error {
	recorders := sim.MultiRecorder{sim.LogRecorder{Logger: Logger}, tally}

	var writer telemetry.PointWriter
	influxManager = telemetry.NewManager(ZLogger, config.GetInfluxConfig(),
		filepath.Join(viper.GetString("logsDir"), fmt.Sprintf("%s_%s.influx.gz", AppName, SessionStartTime.Format("20060102_150405"))))
	err := influxManager.Connect(context.Background())
	switch {
	case errors.Is(err, telemetry.ErrDisabled):
		influxManager = nil
	case err != nil:
		Logger.Error("Failed to set up InfluxDB output", "error", err)
		influxManager = nil
	default:
		writer = influxManager
	}

	telemetryRecorder, err := telemetry.NewRecorder(OTelProvider.Meter("warroom/sim"), writer, ZLogger)
	if err != nil {
		return fmt.Errorf("failed to create telemetry recorder: %w", err)
	}
	recorders = append(recorders, telemetryRecorder)

	if sc := config.GetStreamConfig(); sc.Enabled {
		streamBackend = createStreamBackend(sc)
		recorders = append(recorders, streamBackend)
	}

	simulation = sim.New(sim.Config{
		Projector: geo.NewProjector(simCfg.Width, simCfg.Height),
		Land:      land,
		Factions:  registry,
		Random:    rng,
		Recorder:  recorders,
	})
	return nil
}

func setupServices(opts options, tickRate int) error {
	var err error
	eventDispatcher, err = dispatcher.New(logging.NewDispatcherLogger(ZLogger))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	monitorService = monitor.NewService(monitor.Dependencies{
		Frames:     FrameCache,
		Session:    sessionCtx,
		Logger:     Logger,
		Pending:    eventDispatcher.Pending,
		StepTime:   lastStepDuration,
		StatusFile: opts.statusFile,
	})

	alertCfg := config.GetAlertConfig()
	bombard := alert.NewBombard(alertCfg.BombardCount, alert.TicksFor(alertCfg.BombardSpacing, tickRate), func(shot int) {
		Logger.Debug("Bombardment shot", "shot", shot)
		dispatchCommand(handlers.CmdBombard)
	})
	countdown := alert.NewCountdown(core.AlertLevel(alertCfg.StartLevel), alert.TicksFor(alertCfg.Interval, tickRate), func(level core.AlertLevel) {
		dispatchCommand(handlers.CmdAlertSet, strconv.Itoa(int(level)))
	})

	handlerService = handlers.NewService(handlers.Dependencies{
		Sim:     simulation,
		Session: sessionCtx,
		Monitor: monitorService,
		Bombard: bombard,
		Logger:  Logger,
	})
	handlerService.RegisterHandlers(eventDispatcher)
	registerLifecycleHandlers(eventDispatcher, Logger)
	Logger.Info("Handlers registered with dispatcher")

	runner = worker.NewRunner(worker.Dependencies{
		Sim:        simulation,
		Dispatcher: eventDispatcher,
		Session:    sessionCtx,
		Logger:     Logger,
		TickRate:   tickRate,
	})
	runner.AddHook(countdown)
	runner.AddHook(bombard)
	runner.AddSink(FrameCache)

	if influxManager != nil {
		ids := make([]core.FactionID, 0)
		for _, f := range simulation.Factions().All() {
			if f.ID != core.Rogue {
				ids = append(ids, f.ID)
			}
		}
		runner.AddSink(telemetry.NewSampler(influxManager, alertCfg.TelemetryEveryN, ids, ZLogger))
	}

	if streamBackend != nil {
		startStream()
		runner.AddSink(streamBackend)
	}

	if !monitorService.IsRunning() {
		if err := monitorService.Start(); err != nil {
			Logger.Error("Failed to start status monitor", "error", err)
		}
	}
	return nil
}

// lastStepDuration reads the runner's step time for the status monitor. The
// monitor is created before the runner.
func lastStepDuration() time.Duration {
	if runner == nil {
		return 0
	}
	return runner.LastStepDuration()
}

// registerLifecycleHandlers registers process-level commands with the dispatcher.
// :FLUSH: and :LOG: run on their own queues so a slow exporter or log file
// never stalls the stdin reader or the stream read loop.
func registerLifecycleHandlers(d *dispatcher.Dispatcher, logger *slog.Logger) {
	d.Register(":VERSION:", func(e dispatcher.Event) (any, error) {
		return []string{CurrentVersion, BuildDate}, nil
	})

	d.Register(":GETDIR:LOG:", func(e dispatcher.Event) (any, error) {
		return LogFilePath, nil
	})

	d.Register(":FLUSH:", func(e dispatcher.Event) (any, error) {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := OTelProvider.Flush(flushCtx); err != nil {
			logger.Warn("Failed to flush OTel data", "error", err)
			return nil, err
		}
		logger.Debug("Flushed OTel data")
		return "ok", nil
	}, dispatcher.Buffered(1), dispatcher.Blocking(), dispatcher.Logged())

	d.Register(":LOG:", func(e dispatcher.Event) (any, error) {
		if len(e.Args) == 0 {
			return nil, handlers.ErrBadArguments
		}
		logger.Info("Operator note", "note", strings.Join(e.Args, " "), "sent", e.Timestamp)
		return nil, nil
	}, dispatcher.Buffered(logQueueSize))
}

// dispatchCommand sends a command through the dispatcher and logs failures.
// Deferred commands only fail when they are unknown.
func dispatchCommand(command string, args ...string) {
	if eventDispatcher == nil {
		return
	}
	if _, err := eventDispatcher.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      args,
		Timestamp: time.Now(),
	}); err != nil {
		Logger.Error("Command failed", "command", command, "error", err)
	}
}

func runHeadless(ctx context.Context, opts options, tickRate int) error {
	if opts.stdin {
		go readCommands(ctx, os.Stdin, os.Stderr, eventDispatcher)
	}

	start := time.Now()
	var f core.Frame
	if opts.ticks > 0 {
		Logger.Info("Running headless", "ticks", opts.ticks)
		f = runner.RunTicks(opts.ticks, true)
	} else {
		Logger.Info("Running headless in real time, interrupt to stop")
		if err := runner.Run(ctx); err != nil {
			return err
		}
		f, _ = FrameCache.Latest()
	}

	r := buildReport(f, tally.snapshot(), tickRate, time.Since(start), sessionCtx)
	printReport(os.Stdout, r)
	archiveReport(r)
	return nil
}

func runInteractive(ctx context.Context, land *geo.Land, tickRate int) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}

	alertCfg := config.GetAlertConfig()
	term := render.New(screen, render.Config{
		Land:              land,
		CalculationsAfter: alert.TicksFor(alertCfg.Interval, tickRate),
		Dispatch:          func(command string) { dispatchCommand(command) },
		Logger:            Logger,
	})
	defer term.Close()

	w, h := screen.Size()
	Logger.Debug("Terminal initialized", "cols", w, "rows", h)
	runner.AddSink(term)

	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := runner.Run(runCtx); err != nil {
			Logger.Error("Runner stopped", "error", err)
		}
	}()

	start := time.Now()
	err = term.Run(runCtx)
	cancel()
	wg.Wait()

	if f, ok := FrameCache.Latest(); ok {
		archiveReport(buildReport(f, tally.snapshot(), tickRate, time.Since(start), sessionCtx))
	}
	return err
}

func startStream() {
	if err := streamBackend.Init(); err != nil {
		Logger.Error("Failed to connect frame stream", "error", err)
	}
	streamBackend.OnCommand(func(command string, args []string) {
		dispatchCommand(command, args...)
	})

	origin := sessionCtx.Origin()
	w, h := simulation.Projector().Viewport()
	if err := streamBackend.StartSession(streamPayload(origin, w, h)); err != nil {
		Logger.Warn("Frame stream did not acknowledge session start", "error", err)
	}
}

// shutdown stops services and flushes every output. It runs once on exit.
func shutdown() {
	if monitorService != nil {
		monitorService.Stop()
	}

	if streamBackend != nil {
		if err := streamBackend.EndSession(); err != nil {
			Logger.Warn("Failed to end stream session", "error", err)
		}
		if err := streamBackend.Close(); err != nil {
			Logger.Warn("Failed to close frame stream", "error", err)
		}
	}

	if influxManager != nil {
		if err := influxManager.Close(); err != nil {
			Logger.Warn("Failed to close InfluxDB output", "error", err)
		}
	}

	if archiveStore != nil {
		if err := archiveStore.Close(); err != nil {
			Logger.Warn("Failed to close run archive", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := SlogManager.Flush(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "log flush failed:", err)
	}
	if err := OTelProvider.Shutdown(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "otel shutdown failed:", err)
	}

	if LogFile != nil {
		_ = LogFile.Close()
	}
}
