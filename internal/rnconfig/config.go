// Package rnconfig loads and caches the output of `react-native config` for
// one project root.
package rnconfig

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Config is the subset of `react-native config` the tools rely on. Project
// and Platforms keep their raw form so they can be handed to the model as-is.
type Config struct {
	Root               string                     `json:"root"`
	ReactNativePath    string                     `json:"reactNativePath"`
	ReactNativeVersion string                     `json:"reactNativeVersion"`
	Project            map[string]json.RawMessage `json:"project"`
	Platforms          map[string]json.RawMessage `json:"platforms"`
}

type AndroidProject struct {
	SourceDir     string `json:"sourceDir"`
	AppName       string `json:"appName"`
	PackageName   string `json:"packageName"`
	ApplicationID string `json:"applicationId"`
	MainActivity  string `json:"mainActivity"`
}

type XcodeProject struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	IsWorkspace bool   `json:"isWorkspace"`
}

type AppleProject struct {
	SourceDir    string        `json:"sourceDir"`
	XcodeProject *XcodeProject `json:"xcodeProject"`
}

// Android returns the android project section.
func (c *Config) Android() (*AndroidProject, error) {
	var p AndroidProject
	if err := c.decodeProject("android", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Apple returns the project section for ios, tvos or visionos.
func (c *Config) Apple(platform string) (*AppleProject, error) {
	var p AppleProject
	if err := c.decodeProject(platform, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Config) decodeProject(platform string, v any) error {
	raw, ok := c.Project[platform]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("project has no %s configuration", platform)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s project config: %w", platform, err)
	}
	return nil
}

// PlatformNames returns the platforms the CLI knows about, sorted.
func (c *Config) PlatformNames() []string {
	names := make([]string, 0, len(c.Platforms))
	for k := range c.Platforms {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Summary is the shape returned to the model by getReactNativeConfig.
func (c *Config) Summary() map[string]any {
	return map[string]any{
		"root":      c.Root,
		"path":      c.ReactNativePath,
		"version":   c.ReactNativeVersion,
		"project":   c.Project,
		"platforms": c.PlatformNames(),
	}
}
