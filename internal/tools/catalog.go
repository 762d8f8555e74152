package tools

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/cali-dev/cali/internal/rnconfig"
	"github.com/cali-dev/cali/internal/runner"
)

const (
	httpTimeout = 30 * time.Second

	DefaultLibraryDirectoryURL = "https://reactnative.directory"
	DefaultReleaseDiffURL      = "https://raw.githubusercontent.com/react-native-community/rn-diff-purge/diffs/diffs"
)

// Env carries the host services the built-in tools run against.
type Env struct {
	// Root is the React Native project root.
	Root           string
	RestrictToRoot bool

	Runner runner.Runner
	Config *rnconfig.Cache
	HTTP   *http.Client

	MetroHost           string
	LibraryDirectoryURL string
	ReleaseDiffURL      string
}

func (e Env) metroHost() string {
	if e.MetroHost == "" {
		return "localhost"
	}
	return e.MetroHost
}

// invalidateIfConfigFile drops the cached project config when a tool edits
// a file that feeds it.
func (e Env) invalidateIfConfigFile(path string) {
	if e.Config != nil && rnconfig.IsConfigFile(filepath.Base(path)) {
		e.Config.Invalidate()
	}
}

func (e Env) withDefaults() Env {
	if e.HTTP == nil {
		e.HTTP = NewHTTPClient()
	}
	if e.LibraryDirectoryURL == "" {
		e.LibraryDirectoryURL = DefaultLibraryDirectoryURL
	}
	if e.ReleaseDiffURL == "" {
		e.ReleaseDiffURL = DefaultReleaseDiffURL
	}
	return e
}

// Builtin returns every built-in tool.
func Builtin(env Env) []Tool {
	env = env.withDefaults()

	var all []Tool
	all = append(all, androidTools(env)...)
	all = append(all, appleTools(env)...)
	all = append(all, reactNativeTools(env)...)
	all = append(all, libraryTools(env)...)
	all = append(all, npmTools(env)...)
	all = append(all, fileTools(env)...)
	all = append(all, gitTools(env)...)
	return all
}

// NewBuiltinRegistry builds a Registry holding every built-in tool.
func NewBuiltinRegistry(env Env) *Registry {
	return NewRegistryBuilder().WithTools(Builtin(env)...).Build()
}
