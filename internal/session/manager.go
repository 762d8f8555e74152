// Package session persists conversation transcripts as JSONL files.
//
// File format:
//
//	Line 1:  {"_type":"metadata","id":"…","provider":"…","model":"…","root":"…",
//	           "created_at":"…","updated_at":"…"}
//	Line 2+: one turn per line, as encoded by schema.Turn
//
// The whole file is rewritten on every save; turns are never edited.
package session

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cali-dev/cali/internal/schema"
)

// ErrNotFound is returned by Load for an unknown transcript id.
var ErrNotFound = errors.New("transcript not found")

// Store loads and persists transcripts under one directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir, creating it if necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcripts dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

type metadata struct {
	Type      string `json:"_type"`
	ID        string `json:"id"`
	Provider  string `json:"provider,omitempty"`
	Model     string `json:"model,omitempty"`
	Root      string `json:"root,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Save writes t to disk.
func (s *Store) Save(t *Transcript) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	turns := t.Turns()
	t.mu.Lock()
	meta := metadata{
		Type:      "metadata",
		ID:        t.ID,
		Provider:  t.Provider,
		Model:     t.Model,
		Root:      t.Root,
		CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: t.UpdatedAt.UTC().Format(time.RFC3339),
	}
	t.mu.Unlock()

	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	for _, turn := range turns {
		if err := enc.Encode(turn); err != nil {
			return fmt.Errorf("encode turn: %w", err)
		}
	}

	path := s.path(t.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write transcript %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write transcript %s: %w", path, err)
	}
	return nil
}

// Load reads the transcript with the given id.
func (s *Store) Load(id string) (*Transcript, error) {
	f, err := os.Open(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t := &Transcript{ID: id}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1<<20), 16<<20)
	first := true
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if first {
			first = false
			var meta metadata
			if json.Unmarshal(line, &meta) == nil && meta.Type == "metadata" {
				t.Provider, t.Model, t.Root = meta.Provider, meta.Model, meta.Root
				t.CreatedAt, _ = time.Parse(time.RFC3339, meta.CreatedAt)
				t.UpdatedAt, _ = time.Parse(time.RFC3339, meta.UpdatedAt)
				continue
			}
		}
		var turn schema.Turn
		if err := json.Unmarshal(line, &turn); err != nil {
			slog.Warn("skipping malformed transcript line", "id", id, "err", err)
			continue
		}
		t.turns = append(t.turns, turn)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read transcript %s: %w", id, err)
	}
	return t, nil
}

// Summary describes one stored transcript.
type Summary struct {
	ID        string
	Model     string
	Root      string
	UpdatedAt time.Time
	Path      string
}

// List returns the stored transcripts, newest first.
func (s *Store) List() ([]Summary, error) {
	entries, err := filepath.Glob(filepath.Join(s.dir, "*.jsonl"))
	if err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(entries))
	for _, path := range entries {
		meta, ok := readMetadata(path)
		if !ok {
			continue
		}
		updated, _ := time.Parse(time.RFC3339, meta.UpdatedAt)
		id := meta.ID
		if id == "" {
			id = strings.TrimSuffix(filepath.Base(path), ".jsonl")
		}
		out = append(out, Summary{ID: id, Model: meta.Model, Root: meta.Root, UpdatedAt: updated, Path: path})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func readMetadata(path string) (metadata, bool) {
	f, err := os.Open(path)
	if err != nil {
		return metadata{}, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return metadata{}, false
	}
	var meta metadata
	if json.Unmarshal(scanner.Bytes(), &meta) != nil || meta.Type != "metadata" {
		return metadata{}, false
	}
	return meta, true
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, safeFilename(id)+".jsonl")
}

// safeFilename replaces filesystem-unsafe characters with underscores.
func safeFilename(name string) string {
	const unsafe = `<>:"/\|?*`
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(unsafe, r) {
			b.WriteByte('_')
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
