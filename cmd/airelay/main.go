// Package main provides the airelay server and its operator commands.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	airelay "github.com/ferro-labs/ai-relay"
	"github.com/ferro-labs/ai-relay/internal/logging"
	"github.com/ferro-labs/ai-relay/providers"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// options are the flags shared by every command.
type options struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "airelay",
		Short: "Relay browser chat requests to LLM providers",
		Long: `airelay serves a browser client and forwards its chat requests to
Mistral, Groq, DeepSeek or Gemini using credentials from the environment
(MISTRAL_KEY, GROQ_KEY, DEEPSEEK_KEY, GEMINI_KEY).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("RELAY_CONFIG"),
		"path to a JSON or YAML config file (env RELAY_CONFIG)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env",
		"dotenv file loaded into the environment if present; real environment values win")

	root.AddCommand(
		newServeCmd(opts),
		newProvidersCmd(opts),
		newCSPCmd(opts),
		newValidateCmd(),
		newVersionCmd(),
	)
	return root
}

// loadEnv seeds the process environment from the dotenv file. A missing file
// is not an error.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// loadConfig resolves the effective config: file, then environment, then
// defaults, then validation.
func loadConfig(opts *options) (airelay.Config, error) {
	var cfg airelay.Config
	if opts.configPath != "" {
		loaded, err := airelay.LoadConfig(opts.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = *loaded
	}
	cfg = airelay.WithDefaults(airelay.ApplyEnv(cfg, os.Getenv))
	if err := airelay.ValidateConfig(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

// loadRegistry builds the provider registry from the environment.
func loadRegistry() (*providers.Registry, error) {
	return providers.NewRegistry(providers.Descriptors(), os.Getenv)
}
