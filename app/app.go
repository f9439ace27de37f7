package app

import (
	"context"
	"os"
	"time"

	"github.com/gobuffalo/nulls"
	"github.com/lefinal/plague-server/engine"
	"github.com/lefinal/plague-server/errors"
	"github.com/lefinal/plague-server/event"
	"github.com/lefinal/plague-server/logging"
	"github.com/lefinal/plague-server/plague"
	"github.com/lefinal/plague-server/sim"
	"github.com/lefinal/plague-server/statuspublish"
	"github.com/lefinal/plague-server/stores"
	"github.com/lefinal/plague-server/web_server"
	"github.com/lefinal/plague-server/ws"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"
)

// tickInterval is the interval in which the tick event is dispatched.
const tickInterval = time.Second

// App is a complete plague server instance.
type App struct {
	// config is the main config used for the App.
	config Config
	// eng is the game engine the mode runs against. Defaults to
	// engine.NewInMemory and is replaced via SetEngine for embedding into a live
	// session.
	eng engine.Engine
	// mall provides persistence. Nil when the App runs without a database.
	mall *stores.Mall
	// bus dispatches engine-fired events.
	bus *event.Bus
	// exec owns all engine mutations.
	exec *sim.Executor
	// reactor performs the mode's rule updates.
	reactor *plague.Reactor
	// restarts coordinates the map rotation on match end.
	restarts *plague.RestartCoordinator
	// pipeline authorizes player actions.
	pipeline *plague.Pipeline
	// commands holds the registered mode commands.
	commands *plague.CommandRegistry
	// webServer is used for the status API and websocket connections.
	webServer *web_server.WebServer
	// wsHub is the hub for websocket connections.
	wsHub *ws.Hub
}

// NewApp creates an App with the given Config, running on the in-memory
// engine. Replace the engine with SetEngine before calling Boot.
func NewApp(config Config) *App {
	return &App{
		config: config,
		eng:    engine.NewInMemory(),
	}
}

// SetEngine replaces the engine the App runs against. Must be called before
// Boot.
func (app *App) SetEngine(eng engine.Engine) {
	app.eng = eng
}

// Bus returns the event bus the embedding session dispatches engine events on.
func (app *App) Bus() *event.Bus {
	return app.bus
}

// Pipeline returns the action filter pipeline the embedding session consults
// before applying player actions.
func (app *App) Pipeline() *plague.Pipeline {
	return app.pipeline
}

// Commands returns the command registry the embedding session routes chat and
// console commands to.
func (app *App) Commands() *plague.CommandRegistry {
	return app.commands
}

// Boot sets everything up based on the set config and boots. It blocks until
// the given context is done or a run loop fails.
func (app *App) Boot(ctx context.Context) error {
	// Validate config.
	err := ValidateConfig(app.config)
	if err != nil {
		return errors.Error{
			Code:    errors.ErrFatal,
			Err:     err,
			Message: "invalid config",
		}
	}
	// Setup logger.
	logger := setupLogging(app.config.Log)
	logging.ApplyToGlobalLoggers(logger)
	defer func() {
		_ = logger.Sync()
	}()
	// Boot.
	err = app.boot(ctx)
	if err != nil {
		err = errors.Wrap(err, "boot", nil)
		errors.Log(logging.AppLogger, err)
		return err
	}
	return nil
}

func (app *App) boot(ctx context.Context) error {
	logging.AppLogger.Warn("booting up")
	// Connect database if a connection string is provided.
	if app.config.DBConn.Valid {
		logging.AppLogger.Debug("connecting to database")
		db, err := connectDB(app.config.DBConn.String, defaultMaxDBConnections)
		if err != nil {
			return errors.Wrap(err, "connect database", nil)
		}
		app.mall = stores.NewMall(db)
		logging.AppLogger.Debug("database ready")
	} else {
		logging.AppLogger.Warn("no database configured, running without persistence")
	}
	logging.AppLogger.Debug("setting up...")
	gameConfig := applyGameConfig(plague.DefaultConfig(), app.config.Game)
	// Create mode core components.
	app.bus = event.NewBus()
	app.exec = sim.NewExecutor()
	clock := plague.NewMatchClock()
	phases := plague.NewPhaseController(gameConfig)
	teams := plague.NewTeamRegistry()
	plaguePolicy, survivorPolicy := bannedPolicies(app.config.Game.Banned)
	resolver := plague.NewStaticResolver(plaguePolicy, survivorPolicy)
	rules := plague.NewRuleBroadcaster(app.eng, phases, resolver)
	app.pipeline = plague.NewModePipeline(gameConfig, phases, resolver)
	status := plague.NewStatusNotifier()
	// Create reactor and restart coordinator.
	app.reactor = plague.NewReactor(gameConfig, app.eng, app.exec, phases, clock, teams, rules, status)
	app.restarts = plague.NewRestartCoordinator(gameConfig, app.eng, app.exec, phases, teams, app.bus)
	app.reactor.SetRestarter(app.restarts)
	if app.mall != nil {
		app.reactor.SetKickAuditor(&kickAuditStore{mall: app.mall})
		app.trackPlayers()
	}
	app.reactor.Register(app.bus)
	// Create commands.
	app.commands = plague.NewCommandRegistry()
	_, err := plague.NewModeCommands(gameConfig, app.eng, app.exec, app.reactor, clock, phases, rules,
		app.restarts, app.commands)
	if err != nil {
		return errors.Wrap(err, "create mode commands", nil)
	}
	// Create websocket hub.
	app.wsHub = ws.NewHub()
	status.Listen(app.wsHub)
	// Create status publisher if an MQTT address is provided.
	var publisher *statuspublish.Publisher
	if app.config.MQTTAddr.Valid {
		publisher, err = statuspublish.NewPublisher(statuspublish.Config{MQTTAddr: app.config.MQTTAddr.String})
		if err != nil {
			return errors.Wrap(err, "create status publisher", nil)
		}
		status.Listen(publisher)
	}
	// Create web server.
	webServer, err := web_server.NewWebServer(web_server.Config{
		ServeAddr:    app.config.ServeAddr,
		WriteTimeout: web_server.DefaultWriteTimeout,
		ReadTimeout:  web_server.DefaultReadTimeout,
	})
	if err != nil {
		return errors.Wrap(err, "create web server", nil)
	}
	app.webServer = webServer
	logging.AppLogger.Debug("setup completed. booting...")
	// Boot everything.
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		app.exec.Run(egCtx)
		return nil
	})
	eg.Go(func() error {
		app.wsHub.Run(egCtx)
		return nil
	})
	if publisher != nil {
		eg.Go(func() error {
			err := publisher.Run(egCtx)
			if err != nil {
				return errors.Wrap(err, "run status publisher", nil)
			}
			return nil
		})
	}
	app.webServer.PopulateRoutes(app.wsHub, egCtx, app.reactor, app.mall)
	eg.Go(func() error {
		err := app.webServer.Run(egCtx)
		if err != nil {
			return errors.Wrap(err, "run web server", nil)
		}
		return nil
	})
	// Dispatch ticks until shutdown.
	eg.Go(func() error {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-egCtx.Done():
				return nil
			case <-ticker.C:
				app.bus.Dispatch(egCtx, event.Tick{})
			}
		}
	})
	// Kick off the first match.
	app.bus.Dispatch(egCtx, event.MatchStart{})
	logging.AppLogger.Warn("completed issuing boot commands")
	// Wait for exit.
	err = eg.Wait()
	logging.AppLogger.Warn("shutting down")
	return err
}

// trackPlayers subscribes to player joins and upserts the player records in
// the mall. Persistence happens off the dispatching goroutine so a slow
// database never stalls event handling.
func (app *App) trackPlayers() {
	app.bus.Subscribe(event.TypePlayerJoined, func(ctx context.Context, e event.Event) {
		joined, ok := e.(event.PlayerJoined)
		if !ok {
			return
		}
		go func() {
			err := app.mall.UpsertPlayer(string(joined.Player.ID), joined.Player.Name, time.Now())
			if err != nil {
				errors.Log(logging.AppLogger, errors.Wrap(err, "upsert player", nil))
			}
		}()
	})
}

// kickAuditStore persists kick audit entries via the stores.Mall. It
// implements plague.KickAuditor.
type kickAuditStore struct {
	mall *stores.Mall
}

func (s *kickAuditStore) RecordKick(team engine.TeamID, target engine.PlayerID, by engine.PlayerID) {
	go func() {
		err := s.mall.RecordKick(int(team), string(target), string(by), nulls.String{}, time.Now())
		if err != nil {
			errors.Log(logging.AppLogger, errors.Wrap(err, "record kick", nil))
		}
	}()
}

func setupLogging(config LogConfig) *zap.Logger {
	encConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	cores := make([]zapcore.Core, 0)
	// Setup stdout logger with colorful level output.
	stdOutEncConfig := encConfig
	stdOutEncConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores = append(cores, zapcore.NewCore(
		zapcore.NewConsoleEncoder(stdOutEncConfig),
		zapcore.Lock(os.Stdout),
		zap.LevelEnablerFunc(func(level zapcore.Level) bool {
			return level >= config.StdoutLogLevel
		})))
	// Setup error logger.
	cores = append(cores, zapcore.NewCore(
		zapcore.NewConsoleEncoder(encConfig),
		zapcore.Lock(os.Stderr),
		zap.LevelEnablerFunc(func(level zapcore.Level) bool {
			return level >= zap.ErrorLevel
		})))
	// Setup high priority logger.
	if config.HighPriorityOutput.Valid {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encConfig),
			zapcore.AddSync(&lumberjack.Logger{
				Filename: config.HighPriorityOutput.String,
				MaxSize:  config.MaxSize,
				MaxAge:   config.KeepDays,
			}),
			zap.LevelEnablerFunc(func(level zapcore.Level) bool {
				return level >= zap.WarnLevel
			})))
	}
	// Setup debug logger.
	if config.DebugOutput.Valid {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encConfig),
			zapcore.AddSync(&lumberjack.Logger{
				Filename: config.DebugOutput.String,
				MaxSize:  config.MaxSize,
				MaxAge:   config.KeepDays,
			}),
			zap.LevelEnablerFunc(func(level zapcore.Level) bool {
				return level >= zap.DebugLevel
			})))
	}
	// Combine.
	return zap.New(zapcore.NewTee(cores...))
}
