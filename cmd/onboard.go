package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cali-dev/cali/internal/config"
	"github.com/cali-dev/cali/internal/interaction"
	"github.com/cali-dev/cali/internal/providers"
	"github.com/cali-dev/cali/internal/ui"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Create the config file and store an API key for this project",
	RunE:  runOnboard,
}

func runOnboard(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfgPath := cfgFile
	if cfgPath == "" {
		cfgPath = config.ConfigPath()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	prompter, _ := ui.New(os.Stdin, os.Stdout)

	names := make([]string, 0, len(providers.Providers))
	for _, spec := range providers.Providers {
		names = append(names, spec.Name)
	}
	name, err := prompter.Select(ctx, "Which model provider do you want to use?", names)
	if err != nil {
		return onboardCancelled(err, prompter)
	}
	cfg.Provider = name
	if spec := providers.FindByName(name); spec != nil && cfg.Model != "" && providers.FindByModel(cfg.Model) != spec {
		// A model from another provider would not work with the new one.
		cfg.Model = ""
	}

	if err := ensureAPIKey(ctx, cfg, prompter, true); err != nil {
		return onboardCancelled(err, prompter)
	}

	// The key lives in .env.local; keep it out of the shared config file.
	saved := *cfg
	saved.APIKey = ""
	if _, statErr := os.Stat(cfgPath); statErr == nil {
		if existing, loadErr := config.Load(cfgPath); loadErr == nil {
			saved.APIKey = existing.APIKey
		}
	}
	if err := config.Save(&saved, cfgPath); err != nil {
		return err
	}

	prompter.Step(fmt.Sprintf("Config written to %s (%s, %s). Run `cali` in your React Native project to start.",
		cfgPath, cfg.ProviderSpec().Label(), cfg.EffectiveModel()))
	return nil
}

func onboardCancelled(err error, prompter ui.Prompter) error {
	if errors.Is(err, interaction.ErrCancelled) {
		prompter.Step("Bye!")
		return nil
	}
	return err
}
