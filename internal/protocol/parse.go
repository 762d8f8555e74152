package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrProtocol is wrapped by every parse failure.
var ErrProtocol = errors.New("protocol violation")

// Error describes why a round-ending text was rejected.
type Error struct {
	Reason string
	Raw    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", ErrProtocol, e.Reason)
}

func (e *Error) Unwrap() error { return ErrProtocol }

func violation(raw, format string, args ...any) error {
	return &Error{Reason: fmt.Sprintf(format, args...), Raw: raw}
}

// Each variant has its own wire struct so DisallowUnknownFields rejects
// fields that do not belong to the declared type.
type envelope struct {
	Type Type `json:"type"`
}

type selectWire struct {
	Type    Type      `json:"type"`
	Content *string   `json:"content"`
	Options *[]string `json:"options"`
}

type textWire struct {
	Type    Type    `json:"type"`
	Content *string `json:"content"`
}

// Parse decodes text as exactly one structured message.
//
// The only leniency is framing: surrounding whitespace and a single fenced
// ```json block are removed. The object itself must be strict.
func Parse(text string) (Message, error) {
	raw := unfence(strings.TrimSpace(text))
	if raw == "" {
		return nil, violation(text, "empty response, expected a JSON object")
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, violation(text, "response is not a JSON object: %v", err)
	}

	switch env.Type {
	case TypeSelect:
		var w selectWire
		if err := decodeStrict(raw, &w); err != nil {
			return nil, violation(text, "invalid select message: %v", err)
		}
		if w.Content == nil {
			return nil, violation(text, "select message is missing \"content\"")
		}
		if w.Options == nil || len(*w.Options) == 0 {
			return nil, violation(text, "select message must have a non-empty \"options\" list")
		}
		return Select{Content: *w.Content, Options: append([]string(nil), (*w.Options)...)}, nil

	case TypeQuestion, TypeConfirmation, TypeEnd:
		var w textWire
		if err := decodeStrict(raw, &w); err != nil {
			return nil, violation(text, "invalid %s message: %v", env.Type, err)
		}
		if w.Content == nil {
			return nil, violation(text, "%s message is missing \"content\"", env.Type)
		}
		switch env.Type {
		case TypeQuestion:
			return Question{Content: *w.Content}, nil
		case TypeConfirmation:
			return Confirmation{Content: *w.Content}, nil
		default:
			return End{Content: *w.Content}, nil
		}

	case "":
		return nil, violation(text, "message is missing \"type\"")

	default:
		return nil, violation(text, "unknown message type %q", env.Type)
	}
}

func decodeStrict(raw string, v any) error {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON object")
	}
	return nil
}

// unfence strips one ```json ... ``` wrapper, if present.
func unfence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		lang := strings.TrimSpace(inner[:nl])
		if lang == "" || strings.EqualFold(lang, "json") {
			inner = inner[nl+1:]
		}
	}
	return strings.TrimSpace(inner)
}

// Encode returns the canonical wire form of m.
func Encode(m Message) ([]byte, error) {
	var v any
	switch msg := m.(type) {
	case Select:
		v = struct {
			Type    Type     `json:"type"`
			Content string   `json:"content"`
			Options []string `json:"options"`
		}{TypeSelect, msg.Content, msg.Options}
	case Question, Confirmation, End:
		v = struct {
			Type    Type   `json:"type"`
			Content string `json:"content"`
		}{msg.Type(), msg.Text()}
	default:
		return nil, fmt.Errorf("encode: unsupported message %T", m)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
