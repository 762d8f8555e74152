package tools

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cali-dev/cali/internal/runner"
)

var packageManagers = []string{"yarn", "npm", "bun"}

// lockfiles decide the package manager when the model does not pick one.
var lockfiles = []struct{ file, manager string }{
	{"yarn.lock", "yarn"},
	{"bun.lockb", "bun"},
	{"bun.lock", "bun"},
	{"package-lock.json", "npm"},
}

func detectPackageManager(root string) string {
	for _, l := range lockfiles {
		if _, err := os.Stat(filepath.Join(root, l.file)); err == nil {
			return l.manager
		}
	}
	return "npm"
}

func installCommand(manager string, packages []string, dev bool) runner.Command {
	var args []string
	switch manager {
	case "yarn", "bun":
		args = []string{"add"}
		if dev {
			args = append(args, "--dev")
		}
	default:
		args = []string{"install"}
		if dev {
			args = append(args, "--save-dev")
		}
	}
	return runner.Command{Name: manager, Args: append(args, packages...)}
}

func uninstallCommand(manager string, packages []string) runner.Command {
	verb := "uninstall"
	if manager == "yarn" || manager == "bun" {
		verb = "remove"
	}
	return runner.Command{Name: manager, Args: append([]string{verb}, packages...)}
}

func npmTools(env Env) []Tool {
	managerParam := Enum("packageManager", "Package manager, detected from the lockfile when omitted", packageManagers...).Opt()

	run := func(ctx context.Context, cmd runner.Command) (any, error) {
		cmd.Dir = env.Root
		if err := env.Runner.Stream(ctx, cmd); err != nil {
			return nil, err
		}
		// Autolinking output depends on installed packages.
		env.Config.Invalidate()
		return success(), nil
	}

	manager := func(args Args) string {
		if m := args.String("packageManager"); m != "" {
			return m
		}
		return detectPackageManager(env.Root)
	}

	return []Tool{
		NewFunc(string(ToolInstallNpmPackage), "Install a package from npm by name",
			Params{
				StringList("packageNames", "Packages to install"),
				managerParam,
				Boolean("dev", "Install as dev dependencies").Opt(),
			},
			func(ctx context.Context, args Args) (any, error) {
				return run(ctx, installCommand(manager(args), args.Strings("packageNames"), args.Bool("dev")))
			}).Disrupting(),

		NewFunc(string(ToolUninstallNpmPackage), "Uninstall a package from npm by name",
			Params{
				StringList("packageNames", "Packages to uninstall"),
				managerParam,
			},
			func(ctx context.Context, args Args) (any, error) {
				return run(ctx, uninstallCommand(manager(args), args.Strings("packageNames")))
			}).Disrupting(),
	}
}
