package tools

import (
	"sort"

	"github.com/cali-dev/cali/internal/schema"
)

// ToolName is the model-facing name of a built-in tool.
type ToolName string

const (
	ToolGetAdbPath               ToolName = "getAdbPath"
	ToolGetAndroidDevices        ToolName = "getAndroidDevices"
	ToolBootAndroidEmulator      ToolName = "bootAndroidEmulator"
	ToolBuildAndroidApp          ToolName = "buildAndroidApp"
	ToolRunAdbReverse            ToolName = "runAdbReverse"
	ToolLaunchAndroidApp         ToolName = "launchAndroidAppOnDevice"
	ToolListAppleSimulators      ToolName = "listAppleSimulators"
	ToolBootAppleSimulator       ToolName = "bootAppleSimulator"
	ToolBuildAppleApp            ToolName = "buildAppleApp"
	ToolStartAppleApp            ToolName = "startAppleApp"
	ToolInstallRubyGems          ToolName = "installRubyGems"
	ToolInstallPods              ToolName = "installPods"
	ToolStartAppleLogging        ToolName = "startAppleLogging"
	ToolGetReactNativeConfig     ToolName = "getReactNativeConfig"
	ToolStartMetroDevServer      ToolName = "startMetroDevServer"
	ToolReloadApp                ToolName = "reloadApp"
	ToolListReactNativeLibraries ToolName = "listReactNativeLibraries"
	ToolGetLibraryDetails        ToolName = "getLibraryDetails"
	ToolInstallNpmPackage        ToolName = "installNpmPackage"
	ToolUninstallNpmPackage      ToolName = "uninstallNpmPackage"
	ToolGetFileTree              ToolName = "getFileTree"
	ToolReadFile                 ToolName = "readFile"
	ToolWriteFile                ToolName = "writeFile"
	ToolApplyDiff                ToolName = "applyDiff"
	ToolGetGitStatus             ToolName = "getGitStatus"
	ToolGetReleaseDiff           ToolName = "getReleaseDiff"
)

// Registry holds a fixed set of named tools. It is immutable once built.
type Registry struct {
	tools map[string]Tool
}

// Get returns the tool with the given name, or nil.
func (r *Registry) Get(name string) Tool {
	return r.tools[name]
}

func (r *Registry) Len() int { return len(r.tools) }

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for k := range r.tools {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Tools returns the registered tools sorted by name.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, name := range r.Names() {
		out = append(out, r.tools[name])
	}
	return out
}

// IsDisruptive reports whether any of the named tools is disruptive.
// Unknown names are ignored.
func (r *Registry) IsDisruptive(names ...string) bool {
	for _, n := range names {
		if t := r.tools[n]; t != nil && t.Disruptive() {
			return true
		}
	}
	return false
}

// Definitions returns the provider-neutral definitions, sorted by name so
// the prompt is stable between runs.
func (r *Registry) Definitions() []schema.ToolDefinition {
	list := make([]schema.ToolDefinition, 0, len(r.tools))
	for _, t := range r.Tools() {
		list = append(list, schema.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Params().JSONSchema(),
		})
	}
	return list
}
