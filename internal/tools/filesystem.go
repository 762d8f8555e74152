package tools

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/gobwas/glob"
)

// defaultIgnores are skipped by getFileTree.
var defaultIgnores = []string{"node_modules", ".git", "cache", "*.pyc", "Pods", "build", ".gradle", ".idea", "DerivedData"}

// resolvePath resolves a file path against workspace (if relative) and
// enforces directory restriction if allowedDir is non-empty.
func resolvePath(path, workspace, allowedDir string) (string, error) {
	p := path
	if !filepath.IsAbs(p) && workspace != "" {
		p = filepath.Join(workspace, p)
	}
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		// Path may not exist yet (for writes).
		resolved = filepath.Clean(p)
	}
	if allowedDir != "" {
		allowed := filepath.Clean(allowedDir)
		if r, err := filepath.EvalSymlinks(allowed); err == nil {
			allowed = r
		}
		if resolved != allowed && !strings.HasPrefix(resolved, allowed+string(filepath.Separator)) {
			return "", fmt.Errorf("path %s is outside allowed directory %s", path, allowedDir)
		}
	}
	return resolved, nil
}

func fileTools(env Env) []Tool {
	allowed := ""
	if env.RestrictToRoot {
		allowed = env.Root
	}
	resolve := func(p string) (string, error) { return resolvePath(p, env.Root, allowed) }

	ignores := make([]glob.Glob, 0, len(defaultIgnores))
	for _, p := range defaultIgnores {
		ignores = append(ignores, glob.MustCompile(p, '/'))
	}

	return []Tool{
		NewFunc(string(ToolGetFileTree), "Get user file tree, can be used to determine the package.json location, package manager, etc.",
			Params{
				Integer("depth", "How many directory levels to descend").Or(1),
				String("path", "Directory to list, relative to the project root").Or("."),
			},
			func(_ context.Context, args Args) (any, error) {
				dir, err := resolve(args.String("path"))
				if err != nil {
					return nil, err
				}
				info, err := os.Stat(dir)
				if err != nil {
					return nil, fmt.Errorf("directory not found: %s", args.String("path"))
				}
				if !info.IsDir() {
					return nil, fmt.Errorf("not a directory: %s", args.String("path"))
				}
				tree, err := buildTree(dir, info.Name(), args.Int("depth"), ignores)
				if err != nil {
					return nil, err
				}
				return success("fileTree", tree), nil
			}),

		NewFunc(string(ToolReadFile), "Read file, can be used to read package.json, etc.",
			Params{
				String("filePath", "Path of the file to read"),
				Enum("encoding", "Encoding of the returned content", "utf8", "base64").Or("utf8"),
			},
			func(_ context.Context, args Args) (any, error) {
				fp, err := resolve(args.String("filePath"))
				if err != nil {
					return nil, err
				}
				info, err := os.Stat(fp)
				if err != nil {
					return nil, fmt.Errorf("file not found: %s", args.String("filePath"))
				}
				if !info.Mode().IsRegular() {
					return nil, fmt.Errorf("not a file: %s", args.String("filePath"))
				}
				data, err := os.ReadFile(fp)
				if err != nil {
					return nil, fmt.Errorf("error reading file: %w", err)
				}
				content := string(data)
				if args.String("encoding") == "base64" {
					content = base64.StdEncoding.EncodeToString(data)
				}
				return success("file", content), nil
			}),

		NewFunc(string(ToolWriteFile), "Write content to a file. Creates parent directories if needed.",
			Params{
				String("filePath", "Path of the file to write"),
				String("content", "Full file content"),
			},
			func(_ context.Context, args Args) (any, error) {
				fp, err := resolve(args.String("filePath"))
				if err != nil {
					return nil, err
				}
				content := args.String("content")
				if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
					return nil, fmt.Errorf("error creating directories: %w", err)
				}
				if err := os.WriteFile(fp, []byte(content), 0o644); err != nil {
					return nil, fmt.Errorf("error writing file: %w", err)
				}
				env.invalidateIfConfigFile(fp)
				return success("path", fp, "bytes", len(content)), nil
			}),

		NewFunc(string(ToolApplyDiff), "Apply a diff/patch to a file",
			Params{
				String("filePath", "Path of the file to patch"),
				String("diff", "Unified diff to apply"),
			},
			func(_ context.Context, args Args) (any, error) {
				fp, err := resolve(args.String("filePath"))
				if err != nil {
					return nil, err
				}
				if err := applyDiff(fp, args.String("diff")); err != nil {
					return nil, err
				}
				env.invalidateIfConfigFile(fp)
				return success(), nil
			}),
	}
}

type treeNode struct {
	Name     string      `json:"name"`
	Type     string      `json:"type"`
	Contents []*treeNode `json:"contents,omitempty"`
}

func buildTree(dir, name string, depth int, ignores []glob.Glob) (*treeNode, error) {
	node := &treeNode{Name: name, Type: "directory"}
	if depth <= 0 {
		return node, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error listing directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if ignored(e.Name(), ignores) {
			continue
		}
		if e.IsDir() {
			child, err := buildTree(filepath.Join(dir, e.Name()), e.Name(), depth-1, ignores)
			if err != nil {
				return nil, err
			}
			node.Contents = append(node.Contents, child)
			continue
		}
		node.Contents = append(node.Contents, &treeNode{Name: e.Name(), Type: "file"})
	}
	return node, nil
}

func ignored(name string, ignores []glob.Glob) bool {
	for _, g := range ignores {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// applyDiff patches path in place with the section of diff that names it.
// A diff with a single section is applied whatever its name.
func applyDiff(path, diff string) error {
	original, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("file not found: %s", path)
	}

	files, _, err := gitdiff.Parse(strings.NewReader(diff))
	if err != nil {
		return fmt.Errorf("invalid diff: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("failed to apply patch - patch may be invalid or not applicable")
	}
	file, err := pickFile(files, path)
	if err != nil {
		return err
	}

	var patched bytes.Buffer
	if err := gitdiff.Apply(&patched, bytes.NewReader(original), file); err != nil {
		return fmt.Errorf("failed to apply patch - patch may be invalid or not applicable: %w", err)
	}
	return os.WriteFile(path, patched.Bytes(), 0o644)
}

// pickFile selects the section whose name matches path.
func pickFile(files []*gitdiff.File, path string) (*gitdiff.File, error) {
	target := filepath.ToSlash(path)
	for _, f := range files {
		for _, name := range []string{f.NewName, f.OldName} {
			if sameFile(target, name) {
				return f, nil
			}
		}
	}
	if len(files) == 1 {
		return files[0], nil
	}
	return nil, fmt.Errorf("diff has %d file sections and none is for %s", len(files), filepath.Base(path))
}

// sameFile reports whether the diff name refers to target, comparing whole
// path segments from the end.
func sameFile(target, name string) bool {
	name = strings.TrimPrefix(name, "./")
	if name == "" || name == "/dev/null" {
		return false
	}
	for _, n := range []string{name, strings.TrimPrefix(name, "a/"), strings.TrimPrefix(name, "b/")} {
		if target == n || strings.HasSuffix(target, "/"+n) {
			return true
		}
	}
	return false
}
