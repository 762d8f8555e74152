// Package cmd implements the cali CLI using cobra.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cali-dev/cali/internal/config"
	"github.com/cali-dev/cali/internal/dependency"
	"github.com/cali-dev/cali/internal/interaction"
	"github.com/cali-dev/cali/internal/ui"
)

const version = "0.1.0"

var (
	cfgFile    string
	projectDir string
	showLogs   bool
	debugLogs  bool
	logFile    string
)

// rootCmd runs an interactive session.
var rootCmd = &cobra.Command{
	Use:   "cali [task]",
	Short: "AI agent for building React Native apps",
	Long: `cali is a conversational agent that builds, runs and maintains React Native apps.
It drives the React Native CLI, Metro, adb, simulators and your package manager for you.`,
	Args:              cobra.ArbitraryArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
	RunE:              runSession,
}

// Execute runs the root command and exits on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	closeLogging()
	if err != nil {
		fmt.Fprintln(os.Stderr, ui.Error("Error: "+err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ~/.cali/config.yaml)")
	flags.StringVarP(&projectDir, "project", "C", "", "React Native project root (default: current directory)")
	flags.BoolVar(&showLogs, "logs", false, "show runtime logs")
	flags.BoolVar(&debugLogs, "debug", false, "show debug logs")
	flags.StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")

	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(statusCmd)
}

// loadConfig reads the config file, the project's .env files and the
// environment, in that order of increasing precedence.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if projectDir != "" {
		cfg.Tools.ProjectRoot = projectDir
	}
	if err := config.LoadDotEnv(cfg.ProjectRoot()); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func runSession(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	prompter, progress := ui.New(os.Stdin, os.Stdout)
	fmt.Fprintln(os.Stdout, ui.Banner(cfg.ProviderSpec().Label(), cfg.EffectiveModel()))

	if err := ensureAPIKey(ctx, cfg, prompter, false); err != nil {
		if errors.Is(err, interaction.ErrCancelled) || errors.Is(err, context.Canceled) {
			prompter.Step("Bye!")
			return nil
		}
		return err
	}

	container, err := dependency.New(cfg, dependency.Options{Progress: progress})
	if err != nil {
		return err
	}
	container.WatchProject(ctx)
	slog.Info("Session ready", "provider", container.Provider().Name(), "model", cfg.EffectiveModel(),
		"tools", container.Registry().Len(), "root", cfg.ProjectRoot())

	err = container.NewSession(prompter, strings.Join(args, " ")).Run(ctx)
	if store := container.TranscriptStore(); store != nil {
		slog.Info("Transcript saved", "dir", store.Dir())
	}
	return err
}

// ensureAPIKey asks for a key when none is configured, or always when force
// is set, and offers to save it to the project's .env.local.
func ensureAPIKey(ctx context.Context, cfg *config.Config, prompter ui.Prompter, force bool) error {
	spec := cfg.ProviderSpec()
	if spec.IsLocal || (cfg.APIKey != "" && !force) {
		return nil
	}

	var key string
	for key == "" {
		k, err := prompter.Password(ctx, fmt.Sprintf("Please provide your %s API key. To skip this message, set %s (for example in .env.local).", spec.Label(), spec.EnvKey))
		if err != nil {
			return err
		}
		key = strings.TrimSpace(k)
	}
	cfg.APIKey = key
	cfg.Provider = spec.Name

	save, err := prompter.Confirm(ctx, "Save the key to .env.local in this project?")
	if err != nil {
		return err
	}
	if !save {
		return nil
	}
	if err := config.PersistAPIKey(cfg.ProjectRoot(), spec.EnvKey, key); err != nil {
		return fmt.Errorf("save API key: %w", err)
	}
	prompter.Step(fmt.Sprintf("Saved %s to .env.local and added it to .gitignore", spec.EnvKey))
	return nil
}
