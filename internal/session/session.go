package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cali-dev/cali/internal/schema"
)

// Transcript holds one conversation's turns and metadata.
type Transcript struct {
	ID        string
	Provider  string
	Model     string
	Root      string // project the session ran against
	CreatedAt time.Time
	UpdatedAt time.Time

	mu    sync.Mutex
	turns []schema.Turn
}

// NewTranscript creates an empty transcript with a fresh id.
func NewTranscript(provider, model, root string) *Transcript {
	now := time.Now()
	return &Transcript{
		ID:        uuid.NewString(),
		Provider:  provider,
		Model:     model,
		Root:      root,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Record replaces the stored turns with a snapshot of the session history.
func (t *Transcript) Record(turns []schema.Turn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = append(t.turns[:0:0], turns...)
	t.UpdatedAt = time.Now()
}

// Turns returns a copy of the recorded turns.
func (t *Transcript) Turns() []schema.Turn {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]schema.Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Len returns the number of recorded turns.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.turns)
}
