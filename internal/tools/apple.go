package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cali-dev/cali/internal/rnconfig"
	"github.com/cali-dev/cali/internal/runner"
)

var applePlatforms = []string{"ios", "tvos", "visionos"}

// appleSDK maps a platform to its simctl runtime name and SDK.
var appleSDK = map[string]struct{ runtime, sdk string }{
	"ios":      {"iOS", "iphonesimulator"},
	"tvos":     {"tvOS", "appletvsimulator"},
	"visionos": {"xrOS", "xrsimulator"},
}

func platformParam() Param {
	return Enum("platform", "Apple platform", applePlatforms...)
}

func appleTools(env Env) []Tool {
	r := env.Runner

	return []Tool{
		NewFunc(string(ToolListAppleSimulators), `Gets available simulators.

Returns an array of simulators with "udid", "name", "state" and "runtime".`,
			Params{platformParam()},
			func(ctx context.Context, args Args) (any, error) {
				out, err := r.Output(ctx, runner.Command{
					Name: "xcrun",
					Args: []string{"simctl", "list", "devices", "available", "--json"},
				})
				if err != nil {
					return nil, err
				}
				return parseSimulators(out, args.String("platform"))
			}),

		NewFunc(string(ToolBootAppleSimulator), "Boots iOS simulator",
			Params{String("deviceId", "UDID of the simulator")},
			func(ctx context.Context, args Args) (any, error) {
				id := args.String("deviceId")
				if _, err := r.Output(ctx, runner.Command{Name: "xcrun", Args: []string{"simctl", "boot", id}}); err != nil {
					return nil, fmt.Errorf("failed to boot simulator with ID %s: %w", id, err)
				}
				_, _ = r.Output(ctx, runner.Command{Name: "open", Args: []string{"-a", "Simulator"}})
				return map[string]any{"success": fmt.Sprintf("Device %s booted successfully.", id)}, nil
			}),

		NewFunc(string(ToolBuildAppleApp), "Build application for Apple platforms without running it",
			Params{
				platformParam(),
				Enum("configuration", "Build configuration", "Debug", "Release"),
				String("scheme", "Xcode scheme, defaults to the project name").Opt(),
				String("destination", "xcodebuild destination specifier").Opt(),
				Boolean("clean", "Clean before building").Or(false),
			},
			func(ctx context.Context, args Args) (any, error) {
				platform := args.String("platform")
				cfg, err := env.Config.Get(ctx)
				if err != nil {
					return nil, err
				}
				project, err := cfg.Apple(platform)
				if err != nil {
					return nil, err
				}
				cmd, err := xcodebuild(project.SourceDir, project.XcodeProject, platform, args)
				if err != nil {
					return nil, err
				}
				if err := r.Stream(ctx, cmd); err != nil {
					return nil, err
				}
				return success(), nil
			}).Disrupting(),

		NewFunc(string(ToolStartAppleApp), "Build and start Apple application on simulator or device",
			Params{
				platformParam(),
				String("simulator", "Simulator name").Opt(),
				String("udid", "UDID of the simulator or device").Opt(),
				Integer("port", "Metro port").Or(8081),
				Enum("configuration", "Build configuration", "Debug", "Release").Or("Debug"),
			},
			func(ctx context.Context, args Args) (any, error) {
				cliArgs := []string{
					"react-native", "run-" + args.String("platform"),
					"--port", fmt.Sprint(args.Int("port")),
					"--mode", args.String("configuration"),
				}
				switch {
				case args.String("udid") != "":
					cliArgs = append(cliArgs, "--udid", args.String("udid"))
				case args.String("simulator") != "":
					cliArgs = append(cliArgs, "--simulator", args.String("simulator"))
				}
				if err := r.Stream(ctx, runner.Command{Name: "npx", Args: cliArgs, Dir: env.Root}); err != nil {
					return nil, err
				}
				return success(), nil
			}).Disrupting(),

		NewFunc(string(ToolInstallRubyGems), "Install Ruby gems, including CocoaPods", nil,
			func(ctx context.Context, _ Args) (any, error) {
				if err := r.Stream(ctx, runner.Command{Name: "bundle", Args: []string{"install"}, Dir: env.Root}); err != nil {
					return nil, err
				}
				return success(), nil
			}).Disrupting(),

		NewFunc(string(ToolInstallPods), "Install CocoaPods dependencies",
			Params{
				platformParam(),
				Boolean("clean", "Remove Pods, Podfile.lock and build before installing").Or(false),
				Boolean("newArchitecture", "Enable the New Architecture").Opt(),
			},
			func(ctx context.Context, args Args) (any, error) {
				dir := filepath.Join(env.Root, "ios")
				if cfg, err := env.Config.Get(ctx); err == nil {
					if p, err := cfg.Apple(args.String("platform")); err == nil && p.SourceDir != "" {
						dir = p.SourceDir
					}
				}
				if _, err := os.Stat(dir); err != nil {
					return nil, fmt.Errorf("project directory not found: %s", dir)
				}

				if args.Bool("clean") {
					for _, name := range []string{"Pods", "Podfile.lock", "build"} {
						if err := os.RemoveAll(filepath.Join(dir, name)); err != nil {
							return nil, err
						}
					}
				}

				cmd := runner.Command{Name: "bundle", Args: []string{"exec", "pod", "install"}, Dir: dir}
				if args.Bool("newArchitecture") {
					cmd.Env = []string{"RCT_NEW_ARCH_ENABLED=1"}
				}
				if err := r.Stream(ctx, cmd); err != nil {
					return nil, err
				}
				return success(), nil
			}).Disrupting(),

		NewFunc(string(ToolStartAppleLogging), "Start Apple gathering logs from simulator or device",
			Params{
				platformParam(),
				Boolean("interactive", "Let the user pick the device to log from").Or(true),
			},
			func(ctx context.Context, args Args) (any, error) {
				cliArgs := []string{"react-native", "log-" + args.String("platform")}
				if args.Bool("interactive") {
					cliArgs = append(cliArgs, "--interactive")
				}
				if err := r.Stream(ctx, runner.Command{Name: "npx", Args: cliArgs, Dir: env.Root}); err != nil {
					return nil, err
				}
				return success(), nil
			}).Disrupting(),
	}
}

type simulator struct {
	UDID    string `json:"udid"`
	Name    string `json:"name"`
	State   string `json:"state"`
	Runtime string `json:"runtime"`
}

// parseSimulators filters `simctl list devices --json` by platform.
func parseSimulators(out, platform string) ([]simulator, error) {
	var data struct {
		Devices map[string][]struct {
			UDID        string `json:"udid"`
			Name        string `json:"name"`
			State       string `json:"state"`
			IsAvailable *bool  `json:"isAvailable"`
		} `json:"devices"`
	}
	if err := json.Unmarshal([]byte(out), &data); err != nil {
		return nil, fmt.Errorf("parse simctl output: %w", err)
	}

	prefix := "com.apple.CoreSimulator.SimRuntime." + appleSDK[platform].runtime + "-"
	sims := make([]simulator, 0)
	for runtimeID, devices := range data.Devices {
		if !strings.HasPrefix(runtimeID, prefix) {
			continue
		}
		version := strings.ReplaceAll(strings.TrimPrefix(runtimeID, prefix), "-", ".")
		for _, d := range devices {
			if d.IsAvailable != nil && !*d.IsAvailable {
				continue
			}
			sims = append(sims, simulator{
				UDID:    d.UDID,
				Name:    d.Name,
				State:   d.State,
				Runtime: appleSDK[platform].runtime + " " + version,
			})
		}
	}
	sort.Slice(sims, func(i, j int) bool {
		if sims[i].Runtime != sims[j].Runtime {
			return sims[i].Runtime > sims[j].Runtime
		}
		return sims[i].Name < sims[j].Name
	})
	return sims, nil
}

func xcodebuild(sourceDir string, xp *rnconfig.XcodeProject, platform string, args Args) (runner.Command, error) {
	if xp == nil || xp.Name == "" {
		return runner.Command{}, fmt.Errorf("no Xcode project found for %s", platform)
	}

	projectPath := filepath.Join(sourceDir, xp.Path, xp.Name)
	flag := "-project"
	if xp.IsWorkspace {
		flag = "-workspace"
	}
	scheme := args.String("scheme")
	if scheme == "" {
		scheme = strings.TrimSuffix(strings.TrimSuffix(xp.Name, ".xcworkspace"), ".xcodeproj")
	}

	cmdArgs := []string{
		flag, projectPath,
		"-scheme", scheme,
		"-configuration", args.String("configuration"),
		"-sdk", appleSDK[platform].sdk,
	}
	if d := args.String("destination"); d != "" {
		cmdArgs = append(cmdArgs, "-destination", d)
	}
	if args.Bool("clean") {
		cmdArgs = append(cmdArgs, "clean")
	}
	cmdArgs = append(cmdArgs, "build")

	return runner.Command{Name: "xcodebuild", Args: cmdArgs, Dir: sourceDir}, nil
}
