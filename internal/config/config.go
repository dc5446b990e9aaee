// Package config provides configuration types and defaults for voice-ai.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/2811Yash/Voice-AI/internal/log"
)

// Config holds all configuration options for the voice-ai daemon.
type Config struct {
	// ListenAddr is the address the HTTP API binds to.
	ListenAddr string `mapstructure:"listen_addr"`

	// DBPath is the SQLite database file for session history.
	// Default: ~/.voice-ai/sessions.db
	DBPath string `mapstructure:"db_path"`

	// Debug enables the structured debug log file.
	Debug bool `mapstructure:"debug"`

	Worker  WorkerConfig  `mapstructure:"worker"`
	Buffers BufferConfig  `mapstructure:"buffers"`
	Streams StreamConfig  `mapstructure:"streams"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// WorkerConfig describes how the agent worker process is launched.
type WorkerConfig struct {
	// Command is the executable that runs the agent worker.
	Command string `mapstructure:"command"`

	// Args are passed to the command before any runtime arguments.
	Args []string `mapstructure:"args"`

	// WorkDir is the working directory for the worker process.
	// Empty means inherit the daemon's working directory.
	WorkDir string `mapstructure:"work_dir"`

	// Watch enables the file watcher on the worker program (first of
	// Args that exists as a file); changes are announced on the log stream.
	Watch bool `mapstructure:"watch"`

	// DefaultModel fills the model field of a start request that omits it.
	DefaultModel string `mapstructure:"default_model"`

	// DefaultVoice fills the voice field of a start request that omits it.
	DefaultVoice string `mapstructure:"default_voice"`

	// DefaultInstructions fills the instructions field of a start request
	// that omits it.
	DefaultInstructions string `mapstructure:"default_instructions"`

	// StopGraceSeconds is how long a graceful stop waits before the
	// process group is killed.
	StopGraceSeconds int `mapstructure:"stop_grace_seconds"`
}

// StopGrace returns the graceful-stop timeout as a duration.
func (w WorkerConfig) StopGrace() time.Duration {
	if w.StopGraceSeconds <= 0 {
		return 6 * time.Second
	}
	return time.Duration(w.StopGraceSeconds) * time.Second
}

// BufferConfig sizes the history ring buffers (and therefore each
// subscriber's queue).
type BufferConfig struct {
	Logs   int `mapstructure:"logs"`
	Events int `mapstructure:"events"`
}

// StreamConfig tunes the SSE endpoints.
type StreamConfig struct {
	// KeepAliveSeconds is the idle interval between SSE ping comments.
	KeepAliveSeconds int `mapstructure:"keep_alive_seconds"`
}

// KeepAlive returns the stream keep-alive interval as a duration.
func (s StreamConfig) KeepAlive() time.Duration {
	if s.KeepAliveSeconds <= 0 {
		return 25 * time.Second
	}
	return time.Duration(s.KeepAliveSeconds) * time.Second
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout", "otlp"
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for "file" exporter.
	// Default: ~/.config/voice-ai/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate"`
}

// DefaultTracesFilePath returns the default path for trace file export.
// Returns ~/.config/voice-ai/traces/traces.jsonl or empty string if home
// dir unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "voice-ai", "traces", "traces.jsonl")
}

// DefaultDBPath returns the default SQLite path for session history.
// Returns ~/.voice-ai/sessions.db or empty string if home dir unavailable.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".voice-ai", "sessions.db")
}

// DefaultInstructions is the fallback system prompt for the agent worker.
const DefaultInstructions = "You are a helpful and friendly AI voice assistant. " +
	"Listen carefully to what the user says and respond naturally."

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		ListenAddr: "0.0.0.0:8000",
		DBPath:     DefaultDBPath(),
		Worker: WorkerConfig{
			Command:             "python3",
			Args:                []string{"-u", "agent.py", "console"},
			Watch:               false,
			DefaultModel:        "gemini-2.5-flash-native-audio-preview-12-2025",
			DefaultVoice:        "Puck",
			DefaultInstructions: DefaultInstructions,
			StopGraceSeconds:    6,
		},
		Buffers: BufferConfig{
			Logs:   500,
			Events: 200,
		},
		Streams: StreamConfig{
			KeepAliveSeconds: 25,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     "", // Derived from config dir at runtime
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// Validate checks the configuration for errors. Empty values use defaults.
func (c Config) Validate() error {
	if c.Worker.Command == "" {
		return fmt.Errorf("worker.command is required")
	}
	if c.Buffers.Logs <= 0 {
		return fmt.Errorf("buffers.logs must be positive, got %d", c.Buffers.Logs)
	}
	if c.Buffers.Events <= 0 {
		return fmt.Errorf("buffers.events must be positive, got %d", c.Buffers.Events)
	}
	if c.Worker.StopGraceSeconds < 0 {
		return fmt.Errorf("worker.stop_grace_seconds must be non-negative, got %d", c.Worker.StopGraceSeconds)
	}
	if c.Streams.KeepAliveSeconds < 0 {
		return fmt.Errorf("streams.keep_alive_seconds must be non-negative, got %d", c.Streams.KeepAliveSeconds)
	}
	if c.Worker.WorkDir != "" && !filepath.IsAbs(c.Worker.WorkDir) {
		return fmt.Errorf("worker.work_dir must be an absolute path, got %q", c.Worker.WorkDir)
	}
	return ValidateTracing(c.Tracing)
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
			// Valid
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	// Only validate path requirements when tracing is enabled
	if tracing.Enabled {
		if tracing.Exporter == "file" && tracing.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// WorkerProgram returns the path of the worker program file, used by the
// change watcher: the first element of Worker.Args that names an existing
// file, resolved against WorkDir. Empty string when none is found.
func (c Config) WorkerProgram() string {
	for _, arg := range c.Worker.Args {
		candidate := arg
		if !filepath.IsAbs(candidate) && c.Worker.WorkDir != "" {
			candidate = filepath.Join(c.Worker.WorkDir, candidate)
		}
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# voice-ai Configuration

# Address the HTTP API binds to
listen_addr: 0.0.0.0:8000

# SQLite database for session history (default: ~/.voice-ai/sessions.db)
# db_path: /path/to/sessions.db

# Enable the structured debug log file
debug: false

# Agent worker process
worker:
  command: python3
  args: ["-u", "agent.py", "console"]
  # work_dir: /path/to/agent     # working directory for the worker
  watch: false                   # announce worker program changes on the log stream
  stop_grace_seconds: 6          # graceful stop timeout before SIGKILL

  # Defaults applied when a start request omits a field
  default_voice: Puck
  default_model: gemini-2.5-flash-native-audio-preview-12-2025
  # default_instructions: |
  #   You are a helpful and friendly AI voice assistant.

# History buffer capacities (also each subscriber's queue size)
buffers:
  logs: 500
  events: 200

# SSE stream tuning
streams:
  keep_alive_seconds: 25   # idle interval between ": ping" comments

# Distributed tracing
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.config/voice-ai/traces/traces.jsonl
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)
`
}

// WriteDefaultConfig creates a config file at the given path with default
// settings and comments. Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
