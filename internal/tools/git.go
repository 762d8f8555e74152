package tools

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	gogit "github.com/go-git/go-git/v5"

	"github.com/cali-dev/cali/internal/shared/llmutils"
)

const maxReleaseDiff = 60000

func gitTools(env Env) []Tool {
	return []Tool{
		NewFunc(string(ToolGetGitStatus), "Get the git branch and the list of changed files in the project",
			nil,
			func(_ context.Context, _ Args) (any, error) {
				return gitStatus(env.Root)
			}),

		NewFunc(string(ToolGetReleaseDiff), `Get the diff between two React Native versions of the template app (rn-diff-purge).
Use it to upgrade a project: it lists changed files and returns the unified diff.`,
			Params{
				String("fromVersion", "Current React Native version, e.g. 0.75.4"),
				String("toVersion", "Target React Native version, e.g. 0.76.1"),
			},
			func(ctx context.Context, args Args) (any, error) {
				return releaseDiff(ctx, env.HTTP, env.ReleaseDiffURL, args.String("fromVersion"), args.String("toVersion"))
			}),
	}
}

func gitStatus(root string) (map[string]any, error) {
	repo, err := gogit.PlainOpenWithOptions(root, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}

	branch := ""
	if head, err := repo.Head(); err == nil {
		branch = head.Name().Short()
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	status, err := wt.Status()
	if err != nil {
		return nil, err
	}

	files := make([]map[string]string, 0, len(status))
	for path, s := range status {
		files = append(files, map[string]string{
			"path":     path,
			"staging":  string(s.Staging),
			"worktree": string(s.Worktree),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i]["path"] < files[j]["path"] })

	return success("branch", branch, "clean", status.IsClean(), "files", files), nil
}

func releaseDiff(ctx context.Context, client *http.Client, base, from, to string) (map[string]any, error) {
	from = strings.TrimPrefix(from, "v")
	to = strings.TrimPrefix(to, "v")
	url := fmt.Sprintf("%s/%s..%s.diff", strings.TrimRight(base, "/"), from, to)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, WithAction("Ask the user to double check both versions.",
			"no release diff between %s and %s", from, to)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release diff service returned %s", resp.Status)
	}

	body, err := readBody(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("release diff: %w", err)
	}

	files, _, err := gitdiff.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse release diff: %w", err)
	}

	changed := make([]map[string]any, 0, len(files))
	for _, f := range files {
		added, deleted := 0, 0
		for _, frag := range f.TextFragments {
			added += int(frag.LinesAdded)
			deleted += int(frag.LinesDeleted)
		}
		name := f.NewName
		if f.IsDelete {
			name = f.OldName
		}
		changed = append(changed, map[string]any{
			"file":    strings.TrimPrefix(name, "RnDiffApp/"),
			"new":     f.IsNew,
			"deleted": f.IsDelete,
			"renamed": f.IsRename,
			"added":   added,
			"removed": deleted,
		})
	}

	diff := string(body)
	truncated := len(diff) > maxReleaseDiff
	if truncated {
		diff = llmutils.Clip(diff, maxReleaseDiff)
	}

	return success(
		"from", from,
		"to", to,
		"files", changed,
		"diff", diff,
		"truncated", truncated,
		"action", `Template paths use the "RnDiffApp" placeholder. Map them to the project's app name before applying with "applyDiff".`,
	), nil
}
