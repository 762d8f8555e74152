package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-shiori/go-readability"

	"github.com/cali-dev/cali/internal/shared/llmutils"
)

const (
	webUserAgent       = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_7_2) AppleWebKit/537.36"
	maxRedirects       = 5
	defaultDetailChars = 20000
	// maxResponseBody bounds every HTTP body a tool reads.
	maxResponseBody = 8 << 20
)

const librariesAction = `Ask user to pick a library from the list.
Offer user an option to try different search query.
Offer user an option to cancel the operation and proceed with something else.

For each library, you can use "installNpmPackage" tool to install it.
You can also offer to display package description with "getLibraryDetails" or visit Github repository.`

// validateURL checks that url is http(s) with a valid domain.
func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("only http/https allowed, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing domain in URL")
	}
	return nil
}

// NewHTTPClient returns the client used by network tools.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: httpTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}

func libraryTools(env Env) []Tool {
	return []Tool{
		NewFunc(string(ToolListReactNativeLibraries), `List React Native libraries from reactnative.directory.
Can be used to search for libraries by name or category.

Returns:
  - "name" - library name with stars count, show only this in the list.
  - "description" - library description
  - "npmPackageName" - npm package name to use with "npm install"
  - "score" - library score
  - "url" - library GitHub repository URL`,
			Params{String("search", "Search query").Opt()},
			func(ctx context.Context, args Args) (any, error) {
				libs, err := searchLibraries(ctx, env.HTTP, env.LibraryDirectoryURL, args.String("search"))
				if err != nil {
					return nil, err
				}
				return success("action", librariesAction, "libraries", libs), nil
			}),

		NewFunc(string(ToolGetLibraryDetails), "Fetch a library page (usually its GitHub repository) and return its readable content, such as the README.",
			Params{
				String("url", "Library URL, e.g. the \"url\" returned by listReactNativeLibraries"),
				Integer("maxChars", "Maximum characters to return").Or(defaultDetailChars),
			},
			func(ctx context.Context, args Args) (any, error) {
				return fetchReadable(ctx, env.HTTP, args.String("url"), args.Int("maxChars"))
			}),
	}
}

type library struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	NpmPackageName string  `json:"npmPackageName"`
	Score          float64 `json:"score"`
	URL            string  `json:"url"`
}

func searchLibraries(ctx context.Context, client *http.Client, base, search string) ([]library, error) {
	endpoint := strings.TrimRight(base, "/") + "/api/libraries"
	if search != "" {
		endpoint += "?search=" + url.QueryEscape(search)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("library directory returned %s", resp.Status)
	}

	var data struct {
		Libraries []struct {
			NpmPkg      string  `json:"npmPkg"`
			Description string  `json:"description"`
			Score       float64 `json:"score"`
			GitHubURL   string  `json:"githubUrl"`
			GitHub      struct {
				Name        string `json:"name"`
				Description string `json:"description"`
				Stats       struct {
					Stars int `json:"stars"`
				} `json:"stats"`
				URLs struct {
					Repo string `json:"repo"`
				} `json:"urls"`
			} `json:"github"`
		} `json:"libraries"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&data); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}

	out := make([]library, 0, len(data.Libraries))
	for _, l := range data.Libraries {
		name := l.GitHub.Name
		if name == "" {
			name = l.NpmPkg
		}
		desc := l.Description
		if desc == "" {
			desc = l.GitHub.Description
		}
		repo := l.GitHub.URLs.Repo
		if repo == "" {
			repo = l.GitHubURL
		}
		out = append(out, library{
			Name:           fmt.Sprintf("%s (★ %d)", name, l.GitHub.Stats.Stars),
			Description:    desc,
			NpmPackageName: l.NpmPkg,
			Score:          l.Score,
			URL:            repo,
		})
	}
	return out, nil
}

// fetchReadable downloads rawURL and extracts its main content as markdown.
func fetchReadable(ctx context.Context, client *http.Client, rawURL string, maxChars int) (map[string]any, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, fmt.Errorf("URL validation failed: %w", err)
	}
	if maxChars <= 0 {
		maxChars = defaultDetailChars
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", webUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rawURL, err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s returned %s", rawURL, resp.Status)
	}

	ctype := resp.Header.Get("Content-Type")
	var text, title string

	switch {
	case strings.Contains(ctype, "application/json"):
		var v any
		if err := json.Unmarshal(body, &v); err == nil {
			formatted, _ := json.MarshalIndent(v, "", "  ")
			text = string(formatted)
		} else {
			text = string(body)
		}

	case strings.Contains(ctype, "text/html") || isHTMLPrefix(body):
		parsed, _ := url.Parse(rawURL)
		article, err := readability.FromReader(bytes.NewReader(body), parsed)
		if err == nil {
			text = htmlToMarkdown(article.Content)
			title = article.Title
		} else {
			text = stripHTMLTags(string(body))
		}

	default:
		text = string(body)
	}

	truncated := len(text) > maxChars
	if truncated {
		text = llmutils.Clip(text, maxChars)
	}

	return success(
		"url", rawURL,
		"finalUrl", resp.Request.URL.String(),
		"title", title,
		"truncated", truncated,
		"content", text,
	), nil
}

// readBody reads at most maxResponseBody bytes and fails on anything larger.
func readBody(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxResponseBody+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxResponseBody {
		return nil, fmt.Errorf("response is larger than %d bytes", maxResponseBody)
	}
	return body, nil
}

// isHTMLPrefix returns true if the body starts with an HTML declaration.
func isHTMLPrefix(b []byte) bool {
	prefix := strings.ToLower(strings.TrimSpace(string(b[:min(256, len(b))])))
	return strings.HasPrefix(prefix, "<!doctype") || strings.HasPrefix(prefix, "<html")
}

var (
	reScript    = regexp.MustCompile(`(?is)<script[\s\S]*?</script>`)
	reStyle     = regexp.MustCompile(`(?is)<style[\s\S]*?</style>`)
	reTags      = regexp.MustCompile(`<[^>]+>`)
	reSpaces    = regexp.MustCompile(`[ \t]+`)
	reNewlines  = regexp.MustCompile(`\n{3,}`)
	reLinks     = regexp.MustCompile(`(?is)<a\s+[^>]*href=["']([^"']+)["'][^>]*>([\s\S]*?)</a>`)
	reHeadings  = regexp.MustCompile(`(?is)<h([1-6])[^>]*>([\s\S]*?)</h[1-6]>`)
	reListItems = regexp.MustCompile(`(?is)<li[^>]*>([\s\S]*?)</li>`)
	reCode      = regexp.MustCompile(`(?is)<pre[^>]*>([\s\S]*?)</pre>`)
	reBlockEnd  = regexp.MustCompile(`(?is)</(p|div|section|article)>`)
	reLineBreak = regexp.MustCompile(`(?is)<(br|hr)\s*/?>`)
)

// stripHTMLTags removes all HTML tags and normalizes whitespace.
func stripHTMLTags(text string) string {
	text = reScript.ReplaceAllString(text, "")
	text = reStyle.ReplaceAllString(text, "")
	text = reTags.ReplaceAllString(text, "")
	text = reSpaces.ReplaceAllString(text, " ")
	text = reNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// htmlToMarkdown converts README-style HTML to light markdown. Code blocks
// matter most here since they hold install and usage snippets.
func htmlToMarkdown(htmlText string) string {
	text := reCode.ReplaceAllStringFunc(htmlText, func(m string) string {
		parts := reCode.FindStringSubmatch(m)
		if len(parts) < 2 {
			return m
		}
		return "\n```\n" + reTags.ReplaceAllString(parts[1], "") + "\n```\n"
	})
	text = reLinks.ReplaceAllStringFunc(text, func(m string) string {
		parts := reLinks.FindStringSubmatch(m)
		if len(parts) < 3 {
			return m
		}
		return fmt.Sprintf("[%s](%s)", stripHTMLTags(parts[2]), parts[1])
	})
	text = reHeadings.ReplaceAllStringFunc(text, func(m string) string {
		parts := reHeadings.FindStringSubmatch(m)
		if len(parts) < 3 {
			return m
		}
		level := int(parts[1][0] - '0')
		return fmt.Sprintf("\n%s %s\n", strings.Repeat("#", level), stripHTMLTags(parts[2]))
	})
	text = reListItems.ReplaceAllStringFunc(text, func(m string) string {
		parts := reListItems.FindStringSubmatch(m)
		if len(parts) < 2 {
			return m
		}
		return "\n- " + stripHTMLTags(parts[1])
	})
	text = reBlockEnd.ReplaceAllString(text, "\n\n")
	text = reLineBreak.ReplaceAllString(text, "\n")
	return stripHTMLTags(text)
}
