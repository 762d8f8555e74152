// Package dependency wires core cali services using go.uber.org/dig.
package dependency

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/dig"

	"github.com/cali-dev/cali/internal/agent"
	"github.com/cali-dev/cali/internal/config"
	"github.com/cali-dev/cali/internal/interaction"
	"github.com/cali-dev/cali/internal/providers"
	"github.com/cali-dev/cali/internal/rnconfig"
	"github.com/cali-dev/cali/internal/runner"
	"github.com/cali-dev/cali/internal/schema"
	"github.com/cali-dev/cali/internal/session"
	"github.com/cali-dev/cali/internal/tools"
)

// Container holds the resolved core service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	cfg      *config.Config
	provider schema.LLMProvider
	registry *tools.Registry
	cache    *rnconfig.Cache
	invoker  *agent.Invoker
	store    *session.Store
	progress agent.Progress
}

func (c *Container) Provider() schema.LLMProvider    { return c.provider }
func (c *Container) Registry() *tools.Registry       { return c.registry }
func (c *Container) TranscriptStore() *session.Store { return c.store }

// Options lets callers replace pieces of the graph, mostly for tests.
type Options struct {
	Progress agent.Progress
	// Provider skips building a provider from the config.
	Provider schema.LLMProvider
	// Runner replaces the exec-based command runner.
	Runner runner.Runner
}

// transcripts is nil when persistence is disabled.
type transcripts struct{ *session.Store }

// New builds and wires all core services from cfg.
func New(cfg *config.Config, opts Options) (*Container, error) {
	d := dig.New()

	provides := []any{
		func() *config.Config { return cfg },
		func() agent.Progress { return opts.Progress },
		func() (schema.LLMProvider, error) {
			if opts.Provider != nil {
				return opts.Provider, nil
			}
			return newProvider(cfg)
		},
		func() runner.Runner {
			if opts.Runner != nil {
				return opts.Runner
			}
			return runner.New(cfg.Tools.CommandTimeout)
		},
		newConfigCache,
		newRegistry,
		newExecutor,
		newInvoker,
		newTranscriptStore,
	}
	for _, p := range provides {
		if err := d.Provide(p); err != nil {
			return nil, err
		}
	}

	var result *Container
	err := d.Invoke(func(
		provider schema.LLMProvider,
		registry *tools.Registry,
		cache *rnconfig.Cache,
		invoker *agent.Invoker,
		store transcripts,
	) {
		result = &Container{
			cfg:      cfg,
			provider: provider,
			registry: registry,
			cache:    cache,
			invoker:  invoker,
			store:    store.Store,
			progress: opts.Progress,
		}
	})
	if err != nil {
		return nil, dig.RootCause(err)
	}
	return result, nil
}

// NewSession creates the interactive session for task.
func (c *Container) NewSession(prompter interaction.Prompter, task string) *agent.Session {
	opts := agent.SessionOptions{
		Task:               task,
		MaxProtocolRetries: c.cfg.AgentSettings().MaxProtocolRetries,
	}
	if c.store != nil {
		opts.Store = c.store
		opts.Transcript = session.NewTranscript(c.provider.Name(), c.cfg.EffectiveModel(), c.cfg.ProjectRoot())
	}
	return agent.NewSession(c.invoker, prompter, c.progress, opts)
}

// WatchProject keeps the React Native config cache fresh until ctx is done.
func (c *Container) WatchProject(ctx context.Context) {
	go func() {
		if err := c.cache.Watch(ctx); err != nil {
			slog.Warn("Project watcher stopped", "err", err)
		}
	}()
}

func newProvider(cfg *config.Config) (schema.LLMProvider, error) {
	p, err := providers.New(cfg.ProviderParams())
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	return p, nil
}

func newConfigCache(cfg *config.Config, r runner.Runner) *rnconfig.Cache {
	return rnconfig.NewCache(cfg.ProjectRoot(), rnconfig.NewCLILoader(r), cfg.Tools.ConfigCacheTTL)
}

func newRegistry(cfg *config.Config, r runner.Runner, cache *rnconfig.Cache) *tools.Registry {
	return tools.NewBuiltinRegistry(tools.Env{
		Root:                cfg.ProjectRoot(),
		RestrictToRoot:      cfg.Tools.RestrictToProject,
		Runner:              r,
		Config:              cache,
		MetroHost:           cfg.Tools.MetroHost,
		LibraryDirectoryURL: cfg.Tools.LibraryDirectoryURL,
		ReleaseDiffURL:      cfg.Tools.ReleaseDiffURL,
	})
}

func newExecutor(cfg *config.Config, registry *tools.Registry) *tools.Executor {
	return tools.NewExecutor(registry, tools.NewFailureGuard(cfg.AgentSettings().MaxToolFailures))
}

func newInvoker(cfg *config.Config, p schema.LLMProvider, executor *tools.Executor, progress agent.Progress) *agent.Invoker {
	return agent.NewInvoker(p, executor, cfg.AgentSettings(), progress)
}

func newTranscriptStore(cfg *config.Config) transcripts {
	if !cfg.Session.Transcripts {
		return transcripts{}
	}
	store, err := session.NewStore(cfg.TranscriptDir())
	if err != nil {
		slog.Warn("Transcripts disabled", "err", err)
		return transcripts{}
	}
	return transcripts{store}
}
