package logging

import "go.uber.org/zap"

// Loggers.
var (
	// AppLogger is the main app.App logger.
	AppLogger *zap.Logger
	// DBLogger is used for stuff regarding the database connection.
	DBLogger *zap.Logger
	// PhaseLogger is the logger for match phase progression.
	PhaseLogger *zap.Logger
	// TeamsLogger is the logger for survivor team lifecycle.
	TeamsLogger *zap.Logger
	// ReactorLogger is the logger for engine event handling.
	ReactorLogger *zap.Logger
	// RestartLogger is used for match restarts and map rotation.
	RestartLogger *zap.Logger
	// CommandLogger is used for command dispatch.
	CommandLogger *zap.Logger
	// SimLogger is the logger for the simulation executor.
	SimLogger *zap.Logger
	// WebServerLogger is used for all stuff regarding web servers.
	WebServerLogger *zap.Logger
	// WSLogger is used for all stuff regarding websocket connections.
	WSLogger *zap.Logger
	// MQTTLogger is the logger for all MQTT stuff.
	MQTTLogger *zap.Logger
)

func init() {
	// Assure usable loggers before ApplyToGlobalLoggers is called, mainly for
	// tests.
	ApplyToGlobalLoggers(zap.NewNop())
}

// ApplyToGlobalLoggers sets the global loggers based on the given zap.Logger.
func ApplyToGlobalLoggers(logger *zap.Logger) {
	AppLogger = logger.Named("app")
	DBLogger = logger.Named("db")
	PhaseLogger = logger.Named("phase")
	TeamsLogger = logger.Named("teams")
	ReactorLogger = logger.Named("reactor")
	RestartLogger = logger.Named("restart")
	CommandLogger = logger.Named("command")
	SimLogger = logger.Named("sim")
	WebServerLogger = logger.Named("web-server")
	WSLogger = logger.Named("ws")
	MQTTLogger = logger.Named("mqtt")
}
