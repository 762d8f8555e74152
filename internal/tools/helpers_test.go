package tools

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cali-dev/cali/internal/rnconfig"
	"github.com/cali-dev/cali/internal/runner"
)

// fakeRunner records commands and answers Output from a table keyed by the
// command line.
type fakeRunner struct {
	mu       sync.Mutex
	outputs  map[string]string
	failures map[string]error
	calls    []runner.Command
	modes    []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{outputs: map[string]string{}, failures: map[string]error{}}
}

func (f *fakeRunner) on(cmdline, out string) *fakeRunner {
	f.outputs[cmdline] = out
	return f
}

func (f *fakeRunner) fail(cmdline string, err error) *fakeRunner {
	f.failures[cmdline] = err
	return f
}

func (f *fakeRunner) record(mode string, cmd runner.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd)
	f.modes = append(f.modes, mode)
	return f.failures[cmd.String()]
}

func (f *fakeRunner) Output(_ context.Context, cmd runner.Command) (string, error) {
	if err := f.record("output", cmd); err != nil {
		return "", err
	}
	return f.outputs[cmd.String()], nil
}

func (f *fakeRunner) Stream(_ context.Context, cmd runner.Command) error {
	return f.record("stream", cmd)
}

func (f *fakeRunner) Start(_ context.Context, cmd runner.Command) (*runner.Process, error) {
	if err := f.record("start", cmd); err != nil {
		return nil, err
	}
	return &runner.Process{PID: 4242, LogFile: cmd.LogFile}, nil
}

func (f *fakeRunner) last() runner.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func (f *fakeRunner) commandLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.String()
	}
	return out
}

type staticLoader struct {
	cfg   *rnconfig.Config
	loads int
}

func (l *staticLoader) Load(context.Context, string) (*rnconfig.Config, error) {
	l.loads++
	return l.cfg, nil
}

func testConfig(t *testing.T, root string) *rnconfig.Config {
	t.Helper()
	cfg, err := rnconfig.Decode([]byte(`{
		"root": "` + root + `",
		"reactNativePath": "` + root + `/node_modules/react-native",
		"reactNativeVersion": "0.76",
		"project": {
			"android": {"sourceDir": "` + root + `/android", "appName": "app", "packageName": "com.example.app", "applicationId": "com.example.app", "mainActivity": ".MainActivity"},
			"ios": {"sourceDir": "` + root + `/ios", "xcodeProject": {"name": "Example.xcworkspace", "path": ".", "isWorkspace": true}}
		},
		"platforms": {"android": {}, "ios": {}}
	}`))
	if err != nil {
		t.Fatalf("decode test config: %v", err)
	}
	return cfg
}

// testEnv returns an Env backed by a fake runner and a static project config.
func testEnv(t *testing.T) (Env, *fakeRunner, *staticLoader) {
	t.Helper()
	root := t.TempDir()
	fr := newFakeRunner()
	loader := &staticLoader{cfg: testConfig(t, root)}
	return Env{
		Root:   root,
		Runner: fr,
		Config: rnconfig.NewCache(root, loader, time.Minute),
	}.withDefaults(), fr, loader
}

func toolByName(t *testing.T, tools []Tool, name ToolName) Tool {
	t.Helper()
	for _, tl := range tools {
		if tl.Name() == string(name) {
			return tl
		}
	}
	t.Fatalf("tool %s not found", name)
	return nil
}

// call validates raw like the executor does, then runs the tool.
func call(t *testing.T, tl Tool, raw map[string]any) (any, error) {
	t.Helper()
	args, err := tl.Params().Validate(raw)
	if err != nil {
		t.Fatalf("validate %s: %v", tl.Name(), err)
	}
	return tl.Execute(context.Background(), args)
}
