package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/livetemplate/jsblock"
	"github.com/livetemplate/jsblock/internal/assets"
	"github.com/livetemplate/jsblock/internal/cache"
	"github.com/livetemplate/jsblock/internal/config"
	"github.com/livetemplate/jsblock/internal/jsrun"
)

// defaultRunTimeout bounds browser-triggered runs when the site config does
// not set widget.run_timeout.
const defaultRunTimeout = "5s"

// Compiled block scripts are kept this long after their last compile, and
// expired ones are dropped every programPruneInterval.
const (
	programTTL           = 10 * time.Minute
	programPruneInterval = time.Minute
)

// Route represents a discovered page route.
type Route struct {
	Pattern  string        // URL pattern (e.g., "/counter")
	FilePath string        // Relative file path (e.g., "counter.md")
	Page     *jsblock.Page // Parsed page, nil when Err is set
	Err      error         // Parse failure shown in place of the page
}

// Server is the jsblock development server.
type Server struct {
	fsys     fs.FS
	rootDir  string // empty when serving an fs.FS that is not a directory
	config   *config.Config
	routes   []*Route
	mu       sync.RWMutex
	sessions map[*Session]bool // Connected WebSocket clients
	connMu   sync.RWMutex      // Separate mutex for sessions
	watcher  *Watcher          // File watcher for live reload
	programs *cache.MemoryCache[*goja.Program]
	runner   *jsrun.Runner // Shared by every session
}

// New creates a new server for the given root directory.
func New(rootDir string) *Server {
	return NewWithConfig(rootDir, config.DefaultConfig())
}

// NewWithConfig creates a new server for a directory with a specific configuration.
func NewWithConfig(rootDir string, cfg *config.Config) *Server {
	srv := NewFS(os.DirFS(rootDir), cfg)
	srv.rootDir = rootDir
	return srv
}

// NewFS creates a server over an arbitrary file system, such as an embed.FS.
// Such a server cannot watch for changes.
func NewFS(fsys fs.FS, cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	programs := cache.NewMemoryCache[*goja.Program]()
	return &Server{
		fsys:     fsys,
		config:   cfg,
		routes:   make([]*Route, 0),
		sessions: make(map[*Session]bool),
		programs: programs,
		runner:   jsrun.New(jsrun.WithProgramCache(programs, programTTL)),
	}
}

// Config returns the server configuration.
func (s *Server) Config() *config.Config {
	return s.config
}

func (s *Server) debug() bool {
	return s.config.Server.Debug || config.IsDebug()
}

// runAllowed reports whether browsers may execute blocks.
func (s *Server) runAllowed() bool {
	return s.config.Features.AllowRun || config.IsRunAllowed()
}

// widgetDefaults returns the options every page starts from.
func (s *Server) widgetDefaults() (jsblock.Options, error) {
	opts, err := s.config.WidgetOptions()
	if err != nil {
		return opts, err
	}
	if opts.RunTimeout == "" {
		opts.RunTimeout = defaultRunTimeout
	}
	return opts, nil
}

// Discover scans the file system for .md files and creates routes.
// Pages that fail to parse keep their route and show the error.
func (s *Server) Discover() error {
	defaults, err := s.widgetDefaults()
	if err != nil {
		return err
	}

	routes := make([]*Route, 0)
	err = fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			// Skip directories starting with _ or .
			name := d.Name()
			if p != "." && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return fs.SkipDir
			}
			return nil
		}

		if path.Ext(p) != ".md" || s.config.IsIgnored(p) {
			return nil
		}

		route := &Route{
			Pattern:  mdToPattern(p),
			FilePath: p,
		}
		route.Page, route.Err = s.parse(p, defaults)
		if route.Err != nil {
			log.Printf("[Server] Warning: failed to parse %s: %v", p, route.Err)
		}
		routes = append(routes, route)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk directory: %w", err)
	}

	sortRoutes(routes)

	s.mu.Lock()
	s.routes = routes
	s.mu.Unlock()
	return nil
}

func (s *Server) parse(rel string, defaults jsblock.Options) (*jsblock.Page, error) {
	data, err := fs.ReadFile(s.fsys, rel)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	// Name the source by its disk path when there is one so parse errors
	// can quote the offending lines.
	source := rel
	if s.rootDir != "" {
		source = filepath.Join(s.rootDir, filepath.FromSlash(rel))
	}
	return jsblock.ParseSource(source, data, defaults)
}

// Routes returns the discovered routes.
func (s *Server) Routes() []*Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.routes
}

// Route returns the route for a URL path, or nil.
func (s *Server) Route(pattern string) *Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, route := range s.routes {
		if route.Pattern == pattern {
			return route
		}
	}
	return nil
}

// Handler wraps the server with the middleware stack: rate limiting,
// security headers and gzip compression. Cancelling ctx stops the rate
// limiter's cleanup goroutine and the compiled program pruning.
func (s *Server) Handler(ctx context.Context) http.Handler {
	rl := s.config.RateLimit
	limit, _ := RateLimitMiddleware(ctx, rl.GetRateLimitRPS(), rl.GetRateLimitBurst(), rl.GetMaxTrackedIPs())
	go s.programs.PruneEvery(ctx, programPruneInterval)
	return limit(SecurityHeadersMiddleware()(WithCompression(s)))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Serve WebSocket endpoint
	if r.URL.Path == "/ws" {
		s.serveWebSocket(w, r)
		return
	}

	// Serve assets
	if strings.HasPrefix(r.URL.Path, "/assets/") {
		s.serveAsset(w, r)
		return
	}

	if route := s.Route(r.URL.Path); route != nil {
		s.servePage(w, r, route)
		return
	}

	// No route found - redirect to home page instead of 404
	if r.URL.Path != "/" && s.Route("/") != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.NotFound(w, r)
}

// serveAsset serves embedded client assets.
func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/assets/")
	data, err := fs.ReadFile(assets.ClientFS(), name)
	if err != nil {
		http.Error(w, "Asset not found", http.StatusNotFound)
		return
	}

	ctype := mime.TypeByExtension(path.Ext(name))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

// pageData feeds pageTemplate.
type pageData struct {
	Title       string
	Description string
	Pattern     string
	Content     template.HTML
	RunAllowed  bool
	HotReload   bool
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    {{- if .Description}}
    <meta name="description" content="{{.Description}}">
    {{- end}}
    <link rel="stylesheet" href="/assets/jsblock-client.css">
</head>
<body data-page="{{.Pattern}}"{{if .RunAllowed}} data-run-allowed="true"{{end}}{{if .HotReload}} data-hot-reload="true"{{end}}>
    <main class="jsblock-page">
{{.Content}}
    </main>
    <script src="/assets/jsblock-client.js"></script>
</body>
</html>
`))

var errorTemplate = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>{{.File}}: parse error</title>
    <link rel="stylesheet" href="/assets/jsblock-client.css">
</head>
<body>
    <main class="jsblock-page jsblock-error">
        <h1>Failed to parse {{.File}}</h1>
        <pre>{{.Message}}</pre>
    </main>
</body>
</html>
`))

// servePage renders a page with every block already scaffolded, so the
// first paint shows editors, consoles and buttons. The widgets built here
// only produce HTML; the WebSocket session owns the live ones.
func (s *Server) servePage(w http.ResponseWriter, r *http.Request, route *Route) {
	if route.Err != nil {
		s.serveParseError(w, route)
		return
	}

	doc, _, err := route.Page.Mount(jsblock.NewRegistry())
	if err != nil {
		log.Printf("[Server] Failed to mount %s: %v", route.FilePath, err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	data := pageData{
		Title:       route.Page.Title,
		Description: s.config.Description,
		Pattern:     route.Pattern,
		Content:     template.HTML(doc.Body().HTML()),
		RunAllowed:  s.runAllowed(),
		HotReload:   s.watcher != nil,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		log.Printf("[Server] Failed to render %s: %v", route.FilePath, err)
	}
}

func (s *Server) serveParseError(w http.ResponseWriter, route *Route) {
	msg := route.Err.Error()
	var perr *jsblock.ParseError
	if errors.As(route.Err, &perr) {
		msg = perr.Format()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	if err := errorTemplate.Execute(w, map[string]string{"File": route.FilePath, "Message": msg}); err != nil {
		log.Printf("[Server] Failed to render error page: %v", err)
	}
}

// mdToPattern converts a markdown file path to a URL pattern.
// Examples:
//   - "index.md" → "/"
//   - "counter.md" → "/counter"
//   - "tutorials/intro.md" → "/tutorials/intro"
//   - "tutorials/index.md" → "/tutorials/"
func mdToPattern(relPath string) string {
	p := filepath.ToSlash(strings.TrimSuffix(relPath, ".md"))

	if p == "index" {
		return "/"
	}
	if strings.HasSuffix(p, "/index") {
		return "/" + strings.TrimSuffix(p, "index")
	}
	return "/" + p
}

// sortRoutes orders routes: "/" first, then directory indexes, then the
// rest, each group alphabetically.
func sortRoutes(routes []*Route) {
	rank := func(r *Route) int {
		switch {
		case r.Pattern == "/":
			return 0
		case strings.HasSuffix(r.Pattern, "/"):
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(routes, func(i, j int) bool {
		ri, rj := rank(routes[i]), rank(routes[j])
		if ri != rj {
			return ri < rj
		}
		return routes[i].Pattern < routes[j].Pattern
	})
}

// RegisterSession adds a WebSocket session to the tracked connections.
func (s *Server) RegisterSession(sess *Session) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.sessions[sess] = true
	log.Printf("[Server] WebSocket connection registered: %d active connections", len(s.sessions))
}

// UnregisterSession removes a WebSocket session from tracked connections.
func (s *Server) UnregisterSession(sess *Session) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	delete(s.sessions, sess)
	log.Printf("[Server] WebSocket connection unregistered: %d active connections", len(s.sessions))
}

// SessionCount returns the number of connected WebSocket clients.
func (s *Server) SessionCount() int {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return len(s.sessions)
}

// BroadcastReload sends a reload message to all connected WebSocket clients.
func (s *Server) BroadcastReload(filePath string) {
	s.connMu.RLock()
	defer s.connMu.RUnlock()

	if len(s.sessions) == 0 {
		return
	}

	data, err := json.Marshal(map[string]string{
		"action":   "reload",
		"filePath": filePath,
	})
	if err != nil {
		log.Printf("[Server] Failed to marshal reload message: %v", err)
		return
	}

	log.Printf("[Server] Broadcasting reload for %s to %d connections", filePath, len(s.sessions))

	for sess := range s.sessions {
		if err := sess.write(data); err != nil {
			log.Printf("[Server] Failed to send reload to connection: %v", err)
		}
	}
}

// EnableWatch enables file watching for live reload.
func (s *Server) EnableWatch(debug bool) error {
	if s.rootDir == "" {
		return errors.New("watching requires a directory root")
	}

	watcher, err := NewWatcher(s.rootDir, func(filePath string) error {
		log.Printf("[Watch] File changed: %s", filePath)

		// Re-discover pages so new and removed files are picked up too
		if err := s.Discover(); err != nil {
			return fmt.Errorf("failed to re-discover pages: %w", err)
		}

		s.BroadcastReload(filePath)
		return nil
	}, debug)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	s.watcher = watcher
	s.watcher.Start()

	log.Printf("[Watch] File watcher started for %s", s.rootDir)
	return nil
}

// StopWatch stops the file watcher if it's running.
func (s *Server) StopWatch() error {
	if s.watcher != nil {
		err := s.watcher.Stop()
		s.watcher = nil
		return err
	}
	return nil
}
