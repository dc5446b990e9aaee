package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/2811Yash/Voice-AI/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the server configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented default config file",
	Long: `Write a commented default configuration to .voice-ai/config.yaml in
the current directory (or the path given with --config).`,
	RunE: runConfigInit,
}

var configSetWorkerCmd = &cobra.Command{
	Use:   "set-worker",
	Short: "Update the worker section of the config file",
	Long: `Update the worker command in the config file, preserving comments and
unrelated settings.

Example:
  voice-ai config set-worker --command python3 --arg -u --arg agent.py --arg console`,
	RunE: runConfigSetWorker,
}

var (
	workerCommand string
	workerArgs    []string
	workerDir     string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetWorkerCmd)

	configSetWorkerCmd.Flags().StringVar(&workerCommand, "command", "", "worker executable (required)")
	configSetWorkerCmd.Flags().StringArrayVar(&workerArgs, "arg", nil, "worker argument (repeatable)")
	configSetWorkerCmd.Flags().StringVar(&workerDir, "workdir", "", "worker working directory")
	_ = configSetWorkerCmd.MarkFlagRequired("command")
}

// configFilePath resolves which config file commands should write to.
func configFilePath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return ".voice-ai/config.yaml"
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	path := configFilePath()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := config.WriteDefaultConfig(path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Wrote default config to %s\n", path)
	return nil
}

func runConfigSetWorker(_ *cobra.Command, _ []string) error {
	path := configFilePath()

	worker := cfg.Worker
	worker.Command = workerCommand
	worker.Args = workerArgs
	if workerDir != "" {
		worker.WorkDir = workerDir
	}

	if err := config.SaveWorker(path, worker); err != nil {
		return fmt.Errorf("saving worker config: %w", err)
	}

	fmt.Printf("Updated worker config in %s\n", path)
	return nil
}
