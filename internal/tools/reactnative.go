package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cali-dev/cali/internal/runner"
)

const (
	metroRunning      = "packager-status:running"
	metroPortAttempts = 10
	metroStartTimeout = time.Minute
)

type metroStatus int

const (
	portFree metroStatus = iota
	portMetro
	portTaken
)

func reactNativeTools(env Env) []Tool {
	return []Tool{
		NewFunc(string(ToolGetReactNativeConfig), `Get React Native configuration.

Returns:
  - "root" - root directory of the project
  - "path" - path to React Native CLI installation
  - "version" - React Native version
  - "platforms" - available platforms
  - "project" - project configuration per platform

Apple project configuration:
  - "sourceDir" - iOS source directory
  - "xcodeProject" - Xcode project configuration
    - "name" - iOS project name
    - "path" - path to the Xcode project
    - "isWorkspace" - whether the project is a workspace

Android project configuration:
  - "sourceDir" - Android source directory
  - "appName" - Android app name
  - "packageName" - Android package name
  - "applicationId" - Android application ID
  - "mainActivity" - Android main activity`,
			nil,
			func(ctx context.Context, _ Args) (any, error) {
				cfg, err := env.Config.Get(ctx)
				if err != nil {
					return nil, err
				}
				return cfg.Summary(), nil
			}),

		NewFunc(string(ToolStartMetroDevServer), `Starts Metro development server on a given port or a different available port.
Returns port Metro server started on.`,
			Params{
				Integer("port", "Preferred port").Or(8081),
				String("reactNativeConfig_root", "Project root from the React Native config"),
				String("reactNativeConfig_reactNativePath", "React Native path from the React Native config"),
			},
			func(ctx context.Context, args Args) (any, error) {
				return startMetro(ctx, env, args.Int("port"), args.String("reactNativeConfig_root"), args.String("reactNativeConfig_reactNativePath"))
			}),

		NewFunc(string(ToolReloadApp), "Reloads the app connected to Metro on the given port",
			Params{Integer("port", "Metro port").Or(8081)},
			func(ctx context.Context, args Args) (any, error) {
				if err := reloadApp(ctx, env.metroHost(), args.Int("port")); err != nil {
					return nil, err
				}
				return success(), nil
			}),
	}
}

func startMetro(ctx context.Context, env Env, port int, root, reactNativePath string) (any, error) {
	host := env.metroHost()
	for range metroPortAttempts {
		switch probeMetro(ctx, env.HTTP, host, port) {
		case portMetro:
			return map[string]any{"success": fmt.Sprintf("Metro server already running on port %d.", port), "port": port}, nil
		case portTaken:
			slog.Info("Port in use, trying next", "port", port)
			port++
			continue
		}

		logFile := filepath.Join(os.TempDir(), fmt.Sprintf("cali-metro-%d.log", port))
		_, err := env.Runner.Start(ctx, runner.Command{
			Name:    "node",
			Args:    []string{filepath.Join(reactNativePath, "cli.js"), "start", "--port", fmt.Sprint(port)},
			Dir:     root,
			LogFile: logFile,
		})
		if err != nil {
			return nil, err
		}
		if err := waitForMetro(ctx, env.HTTP, host, port, metroStartTimeout); err != nil {
			return nil, fmt.Errorf("%w (see %s)", err, logFile)
		}
		return map[string]any{
			"success": fmt.Sprintf("Metro server started on port %d.", port),
			"port":    port,
			"logFile": logFile,
		}, nil
	}
	return nil, fmt.Errorf("no free port found after %d attempts", metroPortAttempts)
}

// probeMetro reports whether port is free, serving Metro, or used by
// something else.
func probeMetro(ctx context.Context, client *http.Client, host string, port int) metroStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s:%d/status", host, port), nil)
	if err != nil {
		return portTaken
	}
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return portTaken
		}
		return portFree
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	if strings.TrimSpace(string(body)) == metroRunning {
		return portMetro
	}
	return portTaken
}

func waitForMetro(ctx context.Context, client *http.Client, host string, port int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if probeMetro(ctx, client, host, port) == portMetro {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return fmt.Errorf("metro did not start on port %d within %s", port, timeout)
}

// reloadApp sends the reload command over Metro's message socket.
func reloadApp(ctx context.Context, host string, port int) error {
	url := fmt.Sprintf("ws://%s:%d/message", host, port)
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return WithAction(`Run "startMetroDevServer" first.`, "could not connect to Metro on port %d: %v", port, err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"version": 2, "method": "reload"}); err != nil {
		return fmt.Errorf("send reload: %w", err)
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return nil
}
