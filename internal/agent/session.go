package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cali-dev/cali/internal/interaction"
	"github.com/cali-dev/cali/internal/protocol"
	"github.com/cali-dev/cali/internal/schema"
	"github.com/cali-dev/cali/internal/session"
)

// TranscriptStore persists the session history after every round.
type TranscriptStore interface {
	Save(t *session.Transcript) error
}

// SessionOptions configures a Session. Task may be empty, in which case the
// user is asked for it.
type SessionOptions struct {
	Task               string
	System             string
	MaxProtocolRetries int
	Transcript         *session.Transcript
	Store              TranscriptStore
}

// Session runs rounds until the user or the model ends the conversation.
type Session struct {
	invoker  *Invoker
	prompter interaction.Prompter
	resolver *interaction.Resolver
	progress Progress
	history  *schema.History
	opts     SessionOptions
}

// NewSession creates a Session. progress may be nil.
func NewSession(invoker *Invoker, prompter interaction.Prompter, progress Progress, opts SessionOptions) *Session {
	if progress == nil {
		progress = noProgress{}
	}
	if opts.System == "" {
		opts.System = SystemPrompt
	}
	if opts.MaxProtocolRetries < 0 {
		opts.MaxProtocolRetries = 0
	}
	return &Session{
		invoker:  invoker,
		prompter: prompter,
		resolver: interaction.NewResolver(prompter),
		progress: progress,
		history:  schema.NewHistory(),
		opts:     opts,
	}
}

// History returns a snapshot of the conversation so far.
func (s *Session) History() []schema.Turn { return s.history.Turns() }

// Run drives the conversation. It returns nil when the session ends normally
// or is cancelled by the user.
func (s *Session) Run(ctx context.Context) error {
	task := strings.TrimSpace(s.opts.Task)
	if task == "" {
		t, err := s.prompter.Text(ctx, Greeting, "e.g. run the app on an Android emulator")
		if err != nil {
			return s.finish(err)
		}
		task = t
	}

	s.history.Append(schema.NewSystemTurn(Greeting))
	s.history.Append(schema.NewUserTurn(task))

	for {
		msg, err := s.round(ctx)
		if err != nil {
			s.persist()
			return s.finish(err)
		}

		ans, err := s.resolver.Resolve(ctx, msg)
		if err != nil {
			s.persist()
			return s.finish(err)
		}
		if ans.Ended {
			s.persist()
			if ans.Cancelled {
				s.prompter.Step("Bye!")
			}
			return nil
		}

		s.history.Append(schema.NewUserTurn(ans.Text))
		s.persist()
	}
}

// round asks the model for the next structured message, re-asking with a
// corrective system turn when the reply is malformed.
func (s *Session) round(ctx context.Context) (protocol.Message, error) {
	for attempt := 0; ; attempt++ {
		s.progress.Start(thinking)
		round, err := s.invoker.Invoke(ctx, s.opts.System, s.history.Turns())
		for _, step := range round.Steps {
			for _, t := range step.Turns() {
				s.history.Append(t)
			}
		}
		if err != nil {
			s.progress.Stop("")
			return nil, err
		}

		if names := round.ToolNames(); len(names) > 0 {
			s.progress.Stop("Tools called: " + strings.Join(names, ", "))
		} else {
			s.progress.Stop("Done.")
		}

		msg, err := protocol.Parse(round.Text)
		if err == nil {
			return msg, nil
		}

		var perr *protocol.Error
		reason := err.Error()
		if errors.As(err, &perr) {
			reason = perr.Reason
		}
		if attempt >= s.opts.MaxProtocolRetries {
			return nil, fmt.Errorf("model reply rejected after %d retries: %w", attempt, err)
		}
		slog.Warn("Malformed model reply, retrying", "attempt", attempt+1, "reason", reason)
		s.history.Append(schema.NewSystemTurn(fmt.Sprintf(correction, reason)))
	}
}

// finish maps user cancellation to a clean exit.
func (s *Session) finish(err error) error {
	if errors.Is(err, interaction.ErrCancelled) || errors.Is(err, context.Canceled) {
		s.prompter.Step("Bye!")
		return nil
	}
	return err
}

func (s *Session) persist() {
	if s.opts.Store == nil || s.opts.Transcript == nil {
		return
	}
	s.opts.Transcript.Record(s.history.Turns())
	if err := s.opts.Store.Save(s.opts.Transcript); err != nil {
		slog.Warn("Failed to save transcript", "id", s.opts.Transcript.ID, "err", err)
	}
}
