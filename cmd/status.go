package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cali-dev/cali/internal/config"
	"github.com/cali-dev/cali/internal/providers"
	"github.com/cali-dev/cali/internal/session"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cali configuration status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		printStatus(cmd.OutOrStdout(), cfg)
		return nil
	},
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func printStatus(w io.Writer, cfg *config.Config) {
	cfgPath := cfgFile
	if cfgPath == "" {
		cfgPath = config.ConfigPath()
	}
	_, statErr := os.Stat(cfgPath)
	fmt.Fprintf(w, "Config:    %s %s\n", cfgPath, mark(statErr == nil))

	root := cfg.ProjectRoot()
	_, pkgErr := os.Stat(filepath.Join(root, "package.json"))
	fmt.Fprintf(w, "Project:   %s %s\n", root, mark(pkgErr == nil))

	spec := cfg.ProviderSpec()
	fmt.Fprintf(w, "Provider:  %s\n", spec.Label())
	fmt.Fprintf(w, "Model:     %s\n", cfg.EffectiveModel())
	s := cfg.AgentSettings()
	fmt.Fprintf(w, "Agent:     %d steps per round, %d failures per tool, %d protocol retries, parallel tools %v\n",
		s.MaxSteps, s.MaxToolFailures, s.MaxProtocolRetries, s.ParallelTools)

	if cfg.Session.Transcripts {
		dir := cfg.TranscriptDir()
		count := 0
		if _, err := os.Stat(dir); err == nil {
			if store, err := session.NewStore(dir); err == nil {
				if list, err := store.List(); err == nil {
					count = len(list)
				}
			}
		}
		fmt.Fprintf(w, "Sessions:  %s (%d saved)\n", dir, count)
	} else {
		fmt.Fprintln(w, "Sessions:  not saved")
	}

	fmt.Fprintln(w, "\nAPI keys:")
	for _, p := range providers.Providers {
		switch {
		case p.IsLocal:
			fmt.Fprintf(w, "  %-20s local\n", p.Label())
		case p.Name == spec.Name && cfg.APIKey != "":
			fmt.Fprintf(w, "  %-20s ✓ (in use)\n", p.Label())
		case os.Getenv(p.EnvKey) != "":
			fmt.Fprintf(w, "  %-20s ✓ %s\n", p.Label(), p.EnvKey)
		default:
			fmt.Fprintf(w, "  %-20s (not set)\n", p.Label())
		}
	}
}
