package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "0.0.0.0:8000", cfg.ListenAddr)
	assert.Equal(t, 500, cfg.Buffers.Logs)
	assert.Equal(t, 200, cfg.Buffers.Events)
	assert.Equal(t, "Puck", cfg.Worker.DefaultVoice)
	assert.Equal(t, "gemini-2.5-flash-native-audio-preview-12-2025", cfg.Worker.DefaultModel)
	assert.Equal(t, 6*time.Second, cfg.Worker.StopGrace())
	assert.Equal(t, 25*time.Second, cfg.Streams.KeepAlive())
	assert.NoError(t, cfg.Validate())
}

func TestDurationFallbacks(t *testing.T) {
	var w WorkerConfig
	assert.Equal(t, 6*time.Second, w.StopGrace())

	var s StreamConfig
	assert.Equal(t, 25*time.Second, s.KeepAlive())

	w.StopGraceSeconds = 2
	assert.Equal(t, 2*time.Second, w.StopGrace())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing worker command",
			mutate:  func(c *Config) { c.Worker.Command = "" },
			wantErr: "worker.command is required",
		},
		{
			name:    "negative log buffer",
			mutate:  func(c *Config) { c.Buffers.Logs = -1 },
			wantErr: "buffers.logs",
		},
		{
			name:    "zero log buffer",
			mutate:  func(c *Config) { c.Buffers.Logs = 0 },
			wantErr: "buffers.logs must be positive",
		},
		{
			name:    "zero event buffer",
			mutate:  func(c *Config) { c.Buffers.Events = 0 },
			wantErr: "buffers.events must be positive",
		},
		{
			name:    "relative work dir",
			mutate:  func(c *Config) { c.Worker.WorkDir = "relative/path" },
			wantErr: "work_dir must be an absolute path",
		},
		{
			name:    "sample rate out of range",
			mutate:  func(c *Config) { c.Tracing.SampleRate = 1.5 },
			wantErr: "sample_rate",
		},
		{
			name:    "unknown exporter",
			mutate:  func(c *Config) { c.Tracing.Exporter = "jaeger" },
			wantErr: "tracing.exporter",
		},
		{
			name: "file exporter needs path when enabled",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.Exporter = "file"
				c.Tracing.FilePath = ""
			},
			wantErr: "file_path is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestWorkerProgram(t *testing.T) {
	tempDir := t.TempDir()
	program := filepath.Join(tempDir, "agent.py")
	require.NoError(t, os.WriteFile(program, []byte("print('hi')\n"), 0644))

	cfg := Defaults()
	cfg.Worker.WorkDir = tempDir
	cfg.Worker.Args = []string{"-u", "agent.py", "console"}

	// "-u" is not a file; "agent.py" resolved against WorkDir is.
	assert.Equal(t, program, cfg.WorkerProgram())

	cfg.Worker.Args = []string{"-u", "missing.py"}
	assert.Equal(t, "", cfg.WorkerProgram())
}

func TestDefaultConfigTemplateParsesToDefaults(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	require.NoError(t, WriteDefaultConfig(configPath))

	v := viper.New()
	v.SetConfigFile(configPath)
	require.NoError(t, v.ReadInConfig())

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "0.0.0.0:8000", cfg.ListenAddr)
	assert.Equal(t, "python3", cfg.Worker.Command)
	assert.Equal(t, []string{"-u", "agent.py", "console"}, cfg.Worker.Args)
	assert.Equal(t, 500, cfg.Buffers.Logs)
	assert.Equal(t, 200, cfg.Buffers.Events)
	assert.Equal(t, 25, cfg.Streams.KeepAliveSeconds)
	assert.NoError(t, cfg.Validate())
}
