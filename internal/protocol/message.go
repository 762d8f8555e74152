// Package protocol parses the structured message the model must emit at the
// end of every round.
//
// The wire form is a single JSON object discriminated by "type":
//
//	{"type":"select","content":"Pick a platform","options":["ios","android"]}
//	{"type":"question","content":"Which port?"}
//	{"type":"confirmation","content":"Start Metro?"}
//	{"type":"end","content":"Build complete."}
package protocol

// Type is the discriminator of a structured message.
type Type string

const (
	TypeSelect       Type = "select"
	TypeQuestion     Type = "question"
	TypeConfirmation Type = "confirmation"
	TypeEnd          Type = "end"
)

// Message is the closed set of structured messages. The unexported method
// keeps implementations inside this package.
type Message interface {
	Type() Type
	Text() string
	sealed()
}

// Select asks the user to pick exactly one of Options.
type Select struct {
	Content string
	Options []string
}

// Question asks the user for free text.
type Question struct {
	Content string
}

// Confirmation asks a yes/no question.
type Confirmation struct {
	Content string
}

// End closes the session with a summary.
type End struct {
	Content string
}

func (Select) Type() Type       { return TypeSelect }
func (Question) Type() Type     { return TypeQuestion }
func (Confirmation) Type() Type { return TypeConfirmation }
func (End) Type() Type          { return TypeEnd }

func (m Select) Text() string       { return m.Content }
func (m Question) Text() string     { return m.Content }
func (m Confirmation) Text() string { return m.Content }
func (m End) Text() string          { return m.Content }

func (Select) sealed()       {}
func (Question) sealed()     {}
func (Confirmation) sealed() {}
func (End) sealed()          {}
