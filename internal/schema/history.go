package schema

// History is the ordered, append-only log of turns exchanged with the model.
// Turns are never edited, removed or reordered once appended.
type History struct {
	turns []Turn
}

// NewHistory returns a History seeded with the given turns.
func NewHistory(turns ...Turn) *History {
	h := &History{turns: make([]Turn, 0, len(turns)+8)}
	for _, t := range turns {
		h.Append(t)
	}
	return h
}

// Append adds t to the end of the history.
func (h *History) Append(t Turn) {
	if t.Role == RoleTool {
		t.ToolResults = NormalizeResults(t.ToolResults)
	}
	h.turns = append(h.turns, t)
}

// Len returns the number of turns.
func (h *History) Len() int { return len(h.turns) }

// Turns returns a snapshot of the history with an independent backing slice.
func (h *History) Turns() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}
