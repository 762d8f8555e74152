package tools

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/cali-dev/cali/internal/runner"
)

const emulatorBootTimeout = 3 * time.Minute

// androidSDK resolves executables under ANDROID_HOME, falling back to PATH.
func androidSDK(sub, name string) string {
	for _, env := range []string{"ANDROID_HOME", "ANDROID_SDK_ROOT"} {
		home := os.Getenv(env)
		if home == "" {
			continue
		}
		p := filepath.Join(home, sub, name)
		if runtime.GOOS == "windows" {
			p += ".exe"
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	return name
}

func adbPath(args Args) string {
	if p := args.String("adbPath"); p != "" {
		return p
	}
	return androidSDK("platform-tools", "adb")
}

func androidTools(env Env) []Tool {
	r := env.Runner
	adbParam := String("adbPath", `Path to the adb executable, as returned by "getAdbPath"`)

	return []Tool{
		NewFunc(string(ToolGetAdbPath), "Returns path to ADB executable", nil,
			func(_ context.Context, _ Args) (any, error) {
				return androidSDK("platform-tools", "adb"), nil
			}),

		NewFunc(string(ToolGetAndroidDevices),
			`Gets available Android devices and emulators.

Returns an array of devices:
  - "id" - device ID
  - "name" - device name
  - "type" - device type ("device" or "emulator")
  - "booted" - whether the device is booted`,
			Params{adbParam},
			func(ctx context.Context, args Args) (any, error) {
				return listAndroidDevices(ctx, r, args.String("adbPath"))
			}),

		NewFunc(string(ToolBootAndroidEmulator), "Boots a given Android emulator and returns its ID",
			Params{adbParam, String("androidDevice_name", "Name of the emulator (AVD) to boot")},
			func(ctx context.Context, args Args) (any, error) {
				name := args.String("androidDevice_name")
				if _, err := r.Start(ctx, runner.Command{Name: androidSDK("emulator", "emulator"), Args: []string{"@" + name}}); err != nil {
					return nil, err
				}
				wait := runner.Command{
					Name:    args.String("adbPath"),
					Args:    []string{"wait-for-device", "shell", "while [ -z \"$(getprop sys.boot_completed)\" ]; do sleep 1; done"},
					Timeout: emulatorBootTimeout,
				}
				if _, err := r.Output(ctx, wait); err != nil {
					return nil, fmt.Errorf("emulator %s did not finish booting: %w", name, err)
				}
				return map[string]any{
					"success": "Device booted successfully.",
					"action":  fmt.Sprintf(`Re-run "getAndroidDevices" to verify %s is in the list, with "booted" set to true.`, name),
				}, nil
			}),

		NewFunc(string(ToolBuildAndroidApp), "Builds Android application and install it on a given device",
			Params{
				String("androidDevice_id", "ID of the target device"),
				Integer("metroPort", "Port Metro is running on"),
				String("reactNativeConfig_android_sourceDir", "Android source directory from the React Native config"),
				String("reactNativeConfig_android_appName", "Android app name from the React Native config"),
				Enum("mode", "Build variant", "debug", "release"),
			},
			func(ctx context.Context, args Args) (any, error) {
				sourceDir := args.String("reactNativeConfig_android_sourceDir")
				gradlew := "./gradlew"
				if runtime.GOOS == "windows" {
					gradlew = "gradlew.bat"
				}
				cmd := runner.Command{
					Name: gradlew,
					Args: []string{
						gradleTask(args.String("reactNativeConfig_android_appName"), args.String("mode")),
						"-x", "lint",
						fmt.Sprintf("-PreactNativeDevServerPort=%d", args.Int("metroPort")),
					},
					Dir: sourceDir,
					Env: []string{"ANDROID_SERIAL=" + args.String("androidDevice_id")},
				}
				if err := r.Stream(ctx, cmd); err != nil {
					return nil, err
				}
				return success(), nil
			}).Disrupting(),

		NewFunc(string(ToolRunAdbReverse), `Runs "adb reverse" to forward given port to a specified Android device`,
			Params{
				adbParam.Opt(),
				String("androidDevice_id", "ID of the target device"),
				Integer("port", "Port to forward").Or(8081),
			},
			func(ctx context.Context, args Args) (any, error) {
				tcp := fmt.Sprintf("tcp:%d", args.Int("port"))
				_, err := r.Output(ctx, runner.Command{
					Name: adbPath(args),
					Args: []string{"-s", args.String("androidDevice_id"), "reverse", tcp, tcp},
				})
				if err != nil {
					return nil, fmt.Errorf(`failed to run "adb reverse", port is not forwarded: %w`, err)
				}
				return success(), nil
			}),

		NewFunc(string(ToolLaunchAndroidApp), "Launches a given Android application on a specified device",
			Params{
				String("androidDevice_id", "ID of the target device"),
				adbParam,
				String("reactNativeConfig_android_packageName", "Android package name from the React Native config"),
				String("reactNativeConfig_android_mainActivity", "Main activity from the React Native config"),
				String("reactNativeConfig_android_applicationId", "Application ID from the React Native config"),
				Boolean("didForwardMetroPortToDevice", `Whether "runAdbReverse" succeeded for this device`),
			},
			func(ctx context.Context, args Args) (any, error) {
				if !args.Bool("didForwardMetroPortToDevice") {
					return nil, WithAction(`Run "runAdbReverse" to forward port to device and try again.`,
						"Port is not forwarded to device.")
				}
				component := launchComponent(
					args.String("reactNativeConfig_android_applicationId"),
					args.String("reactNativeConfig_android_packageName"),
					args.String("reactNativeConfig_android_mainActivity"),
				)
				err := r.Stream(ctx, runner.Command{
					Name: adbPath(args),
					Args: []string{
						"-s", args.String("androidDevice_id"),
						"shell", "am", "start",
						"-n", component,
						"-a", "android.intent.action.MAIN",
						"-c", "android.intent.category.LAUNCHER",
					},
				})
				if err != nil {
					return nil, err
				}
				return success(), nil
			}).Disrupting(),
	}
}

// listAndroidDevices merges attached devices from adb with AVDs that are not
// running yet.
func listAndroidDevices(ctx context.Context, r runner.Runner, adb string) ([]map[string]any, error) {
	out, err := r.Output(ctx, runner.Command{Name: adb, Args: []string{"devices"}})
	if err != nil {
		return nil, err
	}

	devices := make([]map[string]any, 0)
	running := make(map[string]bool)
	for _, id := range parseAdbDevices(out) {
		kind := "device"
		var name string
		if strings.HasPrefix(id, "emulator") {
			kind = "emulator"
			name = firstLine(ctx, r, runner.Command{Name: adb, Args: []string{"-s", id, "emu", "avd", "name"}})
		} else {
			name = firstLine(ctx, r, runner.Command{Name: adb, Args: []string{"-s", id, "shell", "getprop", "ro.product.model"}})
		}
		if name == "" {
			name = id
		}
		running[name] = true
		devices = append(devices, map[string]any{"id": id, "name": name, "type": kind, "booted": true})
	}

	avds, err := r.Output(ctx, runner.Command{Name: androidSDK("emulator", "emulator"), Args: []string{"-list-avds"}})
	if err == nil {
		for _, line := range strings.Split(avds, "\n") {
			name := strings.TrimSpace(line)
			if name == "" || running[name] || strings.HasPrefix(name, "INFO") {
				continue
			}
			devices = append(devices, map[string]any{"id": nil, "name": name, "type": "emulator", "booted": false})
		}
	}
	return devices, nil
}

// parseAdbDevices returns the serials listed as "device" by `adb devices`.
func parseAdbDevices(out string) []string {
	var ids []string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == "device" {
			ids = append(ids, fields[0])
		}
	}
	return ids
}

func firstLine(ctx context.Context, r runner.Runner, cmd runner.Command) string {
	out, err := r.Output(ctx, cmd)
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	return strings.TrimSpace(line)
}

// gradleTask returns e.g. "app:installDebug".
func gradleTask(appName, mode string) string {
	if mode == "" {
		mode = "debug"
	}
	return fmt.Sprintf("%s:install%s%s", appName, strings.ToUpper(mode[:1]), mode[1:])
}

// launchComponent builds the "applicationId/activity" argument for am start.
func launchComponent(applicationID, packageName, mainActivity string) string {
	activity := mainActivity
	if strings.HasPrefix(activity, ".") {
		activity = packageName + activity
	} else if !strings.Contains(activity, ".") {
		activity = packageName + "." + activity
	}
	if applicationID == "" {
		applicationID = packageName
	}
	return applicationID + "/" + activity
}
