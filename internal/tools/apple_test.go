package tools

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const simctlJSON = `{
  "devices": {
    "com.apple.CoreSimulator.SimRuntime.iOS-17-5": [
      {"udid": "A1", "name": "iPhone 15", "state": "Shutdown", "isAvailable": true},
      {"udid": "A2", "name": "iPad Air", "state": "Booted", "isAvailable": true}
    ],
    "com.apple.CoreSimulator.SimRuntime.iOS-18-0": [
      {"udid": "B1", "name": "iPhone 16", "state": "Shutdown", "isAvailable": true},
      {"udid": "B2", "name": "iPhone Broken", "state": "Shutdown", "isAvailable": false}
    ],
    "com.apple.CoreSimulator.SimRuntime.tvOS-18-0": [
      {"udid": "C1", "name": "Apple TV", "state": "Shutdown", "isAvailable": true}
    ]
  }
}`

func TestListAppleSimulators(t *testing.T) {
	env, fr, _ := testEnv(t)
	fr.on("xcrun simctl list devices available --json", simctlJSON)

	out, err := call(t, toolByName(t, appleTools(env), ToolListAppleSimulators), map[string]any{"platform": "ios"})
	require.NoError(t, err)

	sims := out.([]simulator)
	require.Len(t, sims, 3)
	assert.Equal(t, simulator{UDID: "B1", Name: "iPhone 16", State: "Shutdown", Runtime: "iOS 18.0"}, sims[0])
	assert.Equal(t, "iPad Air", sims[1].Name)

	tv, err := parseSimulators(simctlJSON, "tvos")
	require.NoError(t, err)
	require.Len(t, tv, 1)
	assert.Equal(t, "Apple TV", tv[0].Name)

	vision, err := parseSimulators(simctlJSON, "visionos")
	require.NoError(t, err)
	assert.Empty(t, vision)
}

func TestBuildAppleApp(t *testing.T) {
	env, fr, _ := testEnv(t)

	_, err := call(t, toolByName(t, appleTools(env), ToolBuildAppleApp), map[string]any{
		"platform":      "ios",
		"configuration": "Release",
		"clean":         true,
	})
	require.NoError(t, err)

	cmd := fr.last()
	assert.Equal(t, "xcodebuild", cmd.Name)
	assert.Equal(t, []string{
		"-workspace", filepath.Join(env.Root, "ios", "Example.xcworkspace"),
		"-scheme", "Example",
		"-configuration", "Release",
		"-sdk", "iphonesimulator",
		"clean", "build",
	}, cmd.Args)
}

func TestBuildAppleApp_MissingPlatform(t *testing.T) {
	env, _, _ := testEnv(t)

	_, err := call(t, toolByName(t, appleTools(env), ToolBuildAppleApp), map[string]any{
		"platform":      "visionos",
		"configuration": "Debug",
	})
	assert.ErrorContains(t, err, "no visionos configuration")
}

func TestInstallPods(t *testing.T) {
	env, fr, _ := testEnv(t)
	iosDir := filepath.Join(env.Root, "ios")
	for _, p := range []string{"Pods/RCT", "build"} {
		require.NoError(t, os.MkdirAll(filepath.Join(iosDir, p), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(iosDir, "Podfile.lock"), []byte("PODS:"), 0o644))

	_, err := call(t, toolByName(t, appleTools(env), ToolInstallPods), map[string]any{
		"platform":        "ios",
		"clean":           true,
		"newArchitecture": true,
	})
	require.NoError(t, err)

	for _, p := range []string{"Pods", "build", "Podfile.lock"} {
		assert.NoFileExists(t, filepath.Join(iosDir, p))
		assert.NoDirExists(t, filepath.Join(iosDir, p))
	}
	cmd := fr.last()
	assert.Equal(t, "bundle exec pod install", cmd.String())
	assert.Equal(t, iosDir, cmd.Dir)
	assert.Equal(t, []string{"RCT_NEW_ARCH_ENABLED=1"}, cmd.Env)
}

func TestInstallPods_MissingDirectory(t *testing.T) {
	env, fr, _ := testEnv(t)

	_, err := call(t, toolByName(t, appleTools(env), ToolInstallPods), map[string]any{"platform": "ios"})
	assert.ErrorContains(t, err, "project directory not found")
	assert.Empty(t, fr.calls)
}

func TestStartAppleApp(t *testing.T) {
	env, fr, _ := testEnv(t)

	_, err := call(t, toolByName(t, appleTools(env), ToolStartAppleApp), map[string]any{
		"platform":  "ios",
		"simulator": "iPhone 16",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"react-native", "run-ios", "--port", "8081", "--mode", "Debug", "--simulator", "iPhone 16"}, fr.last().Args)
	assert.Equal(t, env.Root, fr.last().Dir)
}
