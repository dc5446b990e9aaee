package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/2811Yash/Voice-AI/internal/config"
)

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:     "voice-ai",
	Short:   "A supervisor and HTTP API for a voice agent worker process",
	Long: `voice-ai runs a single voice agent worker process and exposes an HTTP API
for starting and stopping it, streaming its output, and following its
transcript events over SSE.`,
	Version: version,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/voice-ai/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"enable debug logging")
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("listen_addr", defaults.ListenAddr)
	viper.SetDefault("db_path", defaults.DBPath)
	viper.SetDefault("worker.command", defaults.Worker.Command)
	viper.SetDefault("worker.args", defaults.Worker.Args)
	viper.SetDefault("worker.default_model", defaults.Worker.DefaultModel)
	viper.SetDefault("worker.default_voice", defaults.Worker.DefaultVoice)
	viper.SetDefault("worker.default_instructions", defaults.Worker.DefaultInstructions)
	viper.SetDefault("worker.stop_grace_seconds", defaults.Worker.StopGraceSeconds)
	viper.SetDefault("buffers.logs", defaults.Buffers.Logs)
	viper.SetDefault("buffers.events", defaults.Buffers.Events)
	viper.SetDefault("streams.keep_alive_seconds", defaults.Streams.KeepAliveSeconds)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .voice-ai/config.yaml (current directory)
		// 2. ~/.config/voice-ai/config.yaml (user config)
		if _, err := os.Stat(".voice-ai/config.yaml"); err == nil {
			viper.SetConfigFile(".voice-ai/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "voice-ai"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - continue with defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			cobra.CheckErr(err)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
