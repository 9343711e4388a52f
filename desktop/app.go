package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/livetemplate/jsblock/internal/config"
	"github.com/livetemplate/jsblock/internal/server"
)

// site is a folder being served to the window.
type site struct {
	dir    string
	srv    *server.Server
	http   *http.Server
	url    string
	cancel context.CancelFunc
}

func (s *site) close() {
	s.http.Close()
	if err := s.srv.StopWatch(); err != nil {
		log.Printf("[Desktop] Failed to stop watcher: %v", err)
	}
	s.cancel()
}

// App is bound to the window's JavaScript as window.go.main.App.
type App struct {
	ctx        context.Context
	initialDir string

	mu   sync.RWMutex
	site *site
}

// NewApp creates an App with nothing open.
func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	if a.initialDir != "" {
		if err := a.load(a.initialDir); err != nil {
			log.Printf("[Desktop] Failed to open %s: %v", a.initialDir, err)
		}
	}
}

func (a *App) shutdown(context.Context) {
	a.swap(nil)
}

// swap replaces the open site, closing the previous one.
func (a *App) swap(next *site) {
	a.mu.Lock()
	prev := a.site
	a.site = next
	a.mu.Unlock()
	if prev != nil {
		prev.close()
	}
}

func (a *App) current() *site {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.site
}

// OpenFile asks for a markdown page and opens the folder containing it.
func (a *App) OpenFile() (string, error) {
	selection, err := runtime.OpenFileDialog(a.ctx, runtime.OpenDialogOptions{
		Title:            "Open Markdown Page",
		DefaultDirectory: defaultDirectory(),
		Filters: []runtime.FileFilter{
			{DisplayName: "Markdown Files (*.md)", Pattern: "*.md"},
		},
	})
	if err != nil || selection == "" {
		return "", err
	}
	dir := selection
	if !isDir(selection) {
		dir = filepath.Dir(selection)
	}
	return dir, a.load(dir)
}

// OpenDirectory asks for a folder of pages and opens it.
func (a *App) OpenDirectory() (string, error) {
	selection, err := runtime.OpenDirectoryDialog(a.ctx, runtime.OpenDialogOptions{
		Title:            "Open Folder of Pages",
		DefaultDirectory: defaultDirectory(),
	})
	if err != nil || selection == "" {
		return "", err
	}
	return selection, a.load(selection)
}

// CloseDirectory stops serving the open folder and shows the welcome screen.
func (a *App) CloseDirectory() {
	a.swap(nil)
	runtime.WindowSetTitle(a.ctx, appTitle)
	runtime.WindowReloadApp(a.ctx)
}

// load starts a server for dir on a loopback port and points the window
// at it.
func (a *App) load(dir string) error {
	s, err := startSite(a.ctx, dir)
	if err != nil {
		return err
	}
	a.swap(s)

	runtime.WindowSetTitle(a.ctx, fmt.Sprintf("%s - %s", appTitle, filepath.Base(s.dir)))
	a.navigate(s.url)
	return nil
}

// startSite serves dir with running and live reload enabled. The window
// belongs to whoever opened the folder, so its blocks may run.
func startSite(parent context.Context, dir string) (*site, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if !isDir(absDir) {
		return nil, fmt.Errorf("directory does not exist: %s", absDir)
	}

	cfg, err := config.LoadFromDir(absDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Features.HotReload = true
	cfg.Features.AllowRun = true

	srv := server.NewWithConfig(absDir, cfg)
	if err := srv.Discover(); err != nil {
		return nil, fmt.Errorf("failed to discover pages: %w", err)
	}
	if err := srv.EnableWatch(cfg.Server.Debug); err != nil {
		return nil, fmt.Errorf("failed to enable watch mode: %w", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		srv.StopWatch()
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	ctx, cancel := context.WithCancel(parent)
	httpServer := &http.Server{Handler: srv.Handler(ctx)}
	go func() {
		if err := httpServer.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[Desktop] HTTP server error: %v", err)
		}
	}()

	return &site{
		dir:    absDir,
		srv:    srv,
		http:   httpServer,
		url:    fmt.Sprintf("http://%s/", listener.Addr()),
		cancel: cancel,
	}, nil
}

// navigate points the window at url. Pages served from a folder do not
// carry the Wails runtime, so this goes through the webview directly.
func (a *App) navigate(url string) {
	runtime.WindowExecJS(a.ctx, "window.location.href = "+strconv.Quote(url))
}

// Reload re-reads the open folder and reloads the window.
func (a *App) Reload() {
	if s := a.current(); s != nil {
		if err := s.srv.Discover(); err != nil {
			runtime.LogErrorf(a.ctx, "failed to re-discover pages: %v", err)
		}
	}
	runtime.WindowReload(a.ctx)
}

// Home navigates to the open folder's index, or the welcome screen.
func (a *App) Home() {
	if url := a.GetServerURL(); url != "" {
		a.navigate(url)
		return
	}
	runtime.WindowReloadApp(a.ctx)
}

// Quit closes the window.
func (a *App) Quit() {
	runtime.Quit(a.ctx)
}

// GetCurrentDirectory returns the open folder, or "".
func (a *App) GetCurrentDirectory() string {
	if s := a.current(); s != nil {
		return s.dir
	}
	return ""
}

// GetServerURL returns the URL of the open folder's server, or "".
func (a *App) GetServerURL() string {
	if s := a.current(); s != nil {
		return s.url
	}
	return ""
}

// RouteInfo describes a page for the window's JavaScript.
type RouteInfo struct {
	Pattern  string `json:"pattern"`
	FilePath string `json:"filePath"`
	Title    string `json:"title,omitempty"`
	Blocks   int    `json:"blocks"`
	Error    string `json:"error,omitempty"`
}

// GetRoutes lists the open folder's pages.
func (a *App) GetRoutes() []RouteInfo {
	s := a.current()
	if s == nil {
		return nil
	}

	routes := s.srv.Routes()
	infos := make([]RouteInfo, len(routes))
	for i, r := range routes {
		infos[i] = RouteInfo{Pattern: r.Pattern, FilePath: r.FilePath}
		if r.Page != nil {
			infos[i].Title = r.Page.Title
			infos[i].Blocks = len(r.Page.Blocks)
		}
		if r.Err != nil {
			infos[i].Error = r.Err.Error()
		}
	}
	return infos
}

// Handler serves the welcome screen to the window's asset server. Pages are
// served by the folder's own server, which the window navigates to.
func (a *App) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(welcomeHTML))
	})
}

const welcomeHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>jsblock</title>
<style>
  body { margin: 0; min-height: 100vh; display: grid; place-items: center;
         background: #fbfaf6; color: #2d2b26;
         font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; }
  main { max-width: 520px; text-align: center; }
  h1 { font-family: Menlo, Consolas, monospace; font-weight: normal; }
  p { color: #6b675c; line-height: 1.6; }
  button { margin: 0 .4rem; padding: .7rem 1.4rem; border: 0; border-radius: 4px;
           background: #3b6ea5; color: #fff; font-size: 1rem; cursor: pointer; }
  kbd { padding: .1rem .4rem; border-radius: 3px; background: #e7e3d8; }
  #status.error { color: #b3261e; }
</style>
</head>
<body>
<main>
  <h1>{ jsblock }</h1>
  <p>Open a folder of markdown pages to edit and run their JavaScript examples.</p>
  <button data-open="OpenFile">Open Page</button>
  <button data-open="OpenDirectory">Open Folder</button>
  <p><kbd>Ctrl/Cmd+O</kbd> page &middot; <kbd>Ctrl/Cmd+Shift+O</kbd> folder</p>
  <p id="status"></p>
</main>
<script>
  function ready() {
    var status = document.getElementById("status");
    function show(text, cls) {
      status.textContent = text;
      status.className = cls || "";
    }
    document.querySelectorAll("button[data-open]").forEach(function (btn) {
      btn.addEventListener("click", function () {
        show("Opening...");
        window.go.main.App[btn.dataset.open]().then(function (dir) {
          show(dir ? "Loading " + dir + "..." : "");
        }, function (err) {
          show("Error: " + err, "error");
        });
      });
    });
  }

  (function wait() {
    if (window.go && window.runtime) {
      ready();
    } else {
      setTimeout(wait, 50);
    }
  })();
</script>
</body>
</html>`
