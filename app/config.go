package app

import (
	"encoding/json"
	nativeerrors "errors"
	"fmt"
	"os"
	"time"

	"github.com/gobuffalo/nulls"
	"github.com/lefinal/plague-server/engine"
	"github.com/lefinal/plague-server/errors"
	"github.com/lefinal/plague-server/plague"
	"go.uber.org/zap/zapcore"
)

// Config is the configuration needed in order to boot an App.
type Config struct {
	// DBConn is the connection string for the PostgreSQL database. If not set,
	// the server runs without persistence and the history API routes are
	// disabled.
	DBConn nulls.String `json:"db_conn"`
	// ServeAddr is the address the web server will listen for connections on.
	ServeAddr string `json:"serve_addr"`
	// MQTTAddr is the address of the MQTT broker to publish match status to. If
	// not set, no publishing happens.
	MQTTAddr nulls.String `json:"mqtt_addr"`
	// Log is the logging configuration.
	Log LogConfig `json:"log"`
	// Game holds optional overrides for the mode tuning knobs.
	Game GameConfig `json:"game"`
}

// LogConfig is the configuration for logging in Config.
type LogConfig struct {
	// StdoutLogLevel is the minimum level for log entries written to stdout.
	StdoutLogLevel zapcore.Level `json:"stdout_log_level"`
	// HighPriorityOutput is an optional file for log entries with warn level or
	// higher.
	HighPriorityOutput nulls.String `json:"high_priority_output"`
	// DebugOutput is an optional file for log entries with debug level or higher.
	DebugOutput nulls.String `json:"debug_output"`
	// MaxSize is the maximum size in megabytes for log files before rotation.
	MaxSize int `json:"max_size"`
	// KeepDays is the number of days to keep rotated log files.
	KeepDays int `json:"keep_days"`
}

// GameConfig holds optional overrides for plague.DefaultConfig. Unset fields
// keep the default value.
type GameConfig struct {
	// FirstPhaseAtSec overrides the elapsed seconds at which the prepare stage
	// ends.
	FirstPhaseAtSec nulls.Int `json:"first_phase_at_sec"`
	// SecondPhaseAtSec overrides the elapsed seconds at which the first stage
	// ends.
	SecondPhaseAtSec nulls.Int `json:"second_phase_at_sec"`
	// EndedAtSec overrides the elapsed seconds at which the second stage ends.
	EndedAtSec nulls.Int `json:"ended_at_sec"`
	// RestartGraceSec overrides the wait in seconds between the game-over
	// announcement and loading the next map.
	RestartGraceSec nulls.Int `json:"restart_grace_sec"`
	// MinPlagueCoreDistance overrides the minimum distance in tiles a new
	// survivor core must keep from plague cores.
	MinPlagueCoreDistance nulls.Float64 `json:"min_plague_core_distance"`
	// AutoJoinRadius overrides the distance in tiles within which core placement
	// joins the nearest survivor team.
	AutoJoinRadius nulls.Float64 `json:"auto_join_radius"`
	// SurvivorDamagePenalty overrides the block damage penalty applied to
	// survivor teams in the second stage.
	SurvivorDamagePenalty nulls.Float64 `json:"survivor_damage_penalty"`
	// Banned holds the phase-dependent banned content policies.
	Banned BannedContentConfig `json:"banned"`
}

// BannedContentConfig lists banned content per side, keyed by phase name.
// Phases without an entry have no bans.
type BannedContentConfig struct {
	PlagueBlocks   map[string][]string `json:"plague_blocks"`
	PlagueUnits    map[string][]string `json:"plague_units"`
	SurvivorBlocks map[string][]string `json:"survivor_blocks"`
	SurvivorUnits  map[string][]string `json:"survivor_units"`
}

// knownPhases are the phase names accepted in BannedContentConfig keys.
var knownPhases = map[string]plague.Phase{
	string(plague.PhasePrepare): plague.PhasePrepare,
	string(plague.PhaseFirst):   plague.PhaseFirst,
	string(plague.PhaseSecond):  plague.PhaseSecond,
	string(plague.PhaseEnded):   plague.PhaseEnded,
}

// LoadConfig reads and parses the Config from the JSON file at the given path.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Error{
			Code:    errors.ErrFatal,
			Err:     err,
			Message: "read config file",
			Details: errors.Details{"path": path},
		}
	}
	var config Config
	err = json.Unmarshal(raw, &config)
	if err != nil {
		return Config{}, errors.Error{
			Code:    errors.ErrFatal,
			Kind:    errors.KindDecodeJSON,
			Err:     err,
			Message: "parse config file",
			Details: errors.Details{"path": path},
		}
	}
	return config, nil
}

// ValidateConfig checks the given Config for invalid or missing values.
func ValidateConfig(config Config) error {
	if config.ServeAddr == "" {
		return nativeerrors.New("missing serve addr")
	}
	if config.Log.MaxSize < 0 {
		return fmt.Errorf("negative log max size: %d", config.Log.MaxSize)
	}
	if config.Log.KeepDays < 0 {
		return fmt.Errorf("negative log keep days: %d", config.Log.KeepDays)
	}
	for _, phases := range []map[string][]string{
		config.Game.Banned.PlagueBlocks, config.Game.Banned.PlagueUnits,
		config.Game.Banned.SurvivorBlocks, config.Game.Banned.SurvivorUnits,
	} {
		for phaseName := range phases {
			if _, ok := knownPhases[phaseName]; !ok {
				return fmt.Errorf("unknown phase in banned content config: %s", phaseName)
			}
		}
	}
	gameConfig := applyGameConfig(plague.DefaultConfig(), config.Game)
	if gameConfig.FirstPhaseAt <= 0 || gameConfig.SecondPhaseAt <= gameConfig.FirstPhaseAt ||
		gameConfig.EndedAt <= gameConfig.SecondPhaseAt {
		return fmt.Errorf("phase thresholds not strictly increasing: %v, %v, %v",
			gameConfig.FirstPhaseAt, gameConfig.SecondPhaseAt, gameConfig.EndedAt)
	}
	if gameConfig.RestartGrace <= 0 {
		return fmt.Errorf("non-positive restart grace: %v", gameConfig.RestartGrace)
	}
	return nil
}

// applyGameConfig returns the given plague.Config with all set overrides from
// the GameConfig applied.
func applyGameConfig(base plague.Config, overrides GameConfig) plague.Config {
	if overrides.FirstPhaseAtSec.Valid {
		base.FirstPhaseAt = time.Duration(overrides.FirstPhaseAtSec.Int) * time.Second
	}
	if overrides.SecondPhaseAtSec.Valid {
		base.SecondPhaseAt = time.Duration(overrides.SecondPhaseAtSec.Int) * time.Second
	}
	if overrides.EndedAtSec.Valid {
		base.EndedAt = time.Duration(overrides.EndedAtSec.Int) * time.Second
	}
	if overrides.RestartGraceSec.Valid {
		base.RestartGrace = time.Duration(overrides.RestartGraceSec.Int) * time.Second
	}
	if overrides.MinPlagueCoreDistance.Valid {
		base.MinPlagueCoreDistance = overrides.MinPlagueCoreDistance.Float64
	}
	if overrides.AutoJoinRadius.Valid {
		base.AutoJoinRadius = overrides.AutoJoinRadius.Float64
	}
	if overrides.SurvivorDamagePenalty.Valid {
		base.SurvivorDamagePenalty = overrides.SurvivorDamagePenalty.Float64
	}
	return base
}

// bannedPolicies builds the per-side static resolver policies from the given
// BannedContentConfig. Expects the config to be validated already.
func bannedPolicies(config BannedContentConfig) (plague.StaticResolverPolicy, plague.StaticResolverPolicy) {
	plaguePolicy := plague.StaticResolverPolicy{
		Blocks: blocksByPhase(config.PlagueBlocks),
		Units:  unitsByPhase(config.PlagueUnits),
	}
	survivorPolicy := plague.StaticResolverPolicy{
		Blocks: blocksByPhase(config.SurvivorBlocks),
		Units:  unitsByPhase(config.SurvivorUnits),
	}
	return plaguePolicy, survivorPolicy
}

func blocksByPhase(raw map[string][]string) map[plague.Phase][]engine.Block {
	byPhase := make(map[plague.Phase][]engine.Block, len(raw))
	for phaseName, names := range raw {
		blocks := make([]engine.Block, 0, len(names))
		for _, name := range names {
			blocks = append(blocks, engine.Block(name))
		}
		byPhase[knownPhases[phaseName]] = blocks
	}
	return byPhase
}

func unitsByPhase(raw map[string][]string) map[plague.Phase][]engine.UnitType {
	byPhase := make(map[plague.Phase][]engine.UnitType, len(raw))
	for phaseName, names := range raw {
		units := make([]engine.UnitType, 0, len(names))
		for _, name := range names {
			units = append(units, engine.UnitType(name))
		}
		byPhase[knownPhases[phaseName]] = units
	}
	return byPhase
}
