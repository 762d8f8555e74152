package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cali-dev/cali/internal/rnconfig"
	"github.com/cali-dev/cali/internal/runner"
	"github.com/cali-dev/cali/internal/tools"
	"github.com/cali-dev/cali/internal/ui"
)

var toolsVerbose bool

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools the agent can call",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		r := runner.New(cfg.Tools.CommandTimeout)
		registry := tools.NewBuiltinRegistry(tools.Env{
			Root:   cfg.ProjectRoot(),
			Runner: r,
			Config: rnconfig.NewCache(cfg.ProjectRoot(), rnconfig.NewCLILoader(r), cfg.Tools.ConfigCacheTTL),
		})
		printTools(cmd.OutOrStdout(), registry, toolsVerbose)
		return nil
	},
}

func init() {
	toolsCmd.Flags().BoolVarP(&toolsVerbose, "verbose", "v", false, "show full descriptions and parameters")
}

func printTools(w io.Writer, registry *tools.Registry, verbose bool) {
	for _, t := range registry.Tools() {
		desc, _, _ := strings.Cut(t.Description(), "\n")
		mark := " "
		if t.Disruptive() {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %-26s %s\n", mark, t.Name(), ui.Muted(desc))
		if !verbose {
			continue
		}
		for _, p := range t.Params() {
			req := ""
			if !p.Optional && p.Default == nil {
				req = " (required)"
			}
			fmt.Fprintf(w, "    %-34s %s%s\n", p.Name+" "+string(p.Type), p.Description, req)
		}
	}
	fmt.Fprintf(w, "\n%d tools, * takes over the terminal while running\n", registry.Len())
}
