package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/livetemplate/jsblock/internal/config"
	"github.com/livetemplate/jsblock/internal/server"
)

type serveFlags struct {
	port       int
	host       string
	configPath string
	watch      bool
	allowRun   bool
	debug      bool
}

func newServeCommand() *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve [directory]",
		Short: "Start the development server",
		Example: "  jsblock serve                 # Serve current directory\n" +
			"  jsblock serve ./examples --watch --allow-run",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return serve(cmd, dir, f)
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&f.port, "port", "p", 0, "port to listen on (default from config, 8080)")
	flags.StringVar(&f.host, "host", "", "host to bind (default from config, localhost)")
	flags.StringVarP(&f.configPath, "config", "c", "", "config file (default jsblock.yaml in the directory)")
	flags.BoolVarP(&f.watch, "watch", "w", false, "reload pages when markdown files change")
	flags.BoolVar(&f.allowRun, "allow-run", false, "let browsers run blocks on this server")
	flags.BoolVar(&f.debug, "debug", false, "verbose logging")
	return cmd
}

// loadServeConfig resolves the configuration for dir with flags applied.
func loadServeConfig(cmd *cobra.Command, dir string, f serveFlags) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if f.configPath != "" {
		cfg, err = config.Load(f.configPath)
	} else {
		cfg, err = config.LoadFromDir(dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// CLI flags override config
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port = f.port
	}
	if flags.Changed("host") {
		cfg.Server.Host = f.host
	}
	if flags.Changed("watch") {
		cfg.Features.HotReload = f.watch
	}
	if flags.Changed("debug") {
		cfg.Server.Debug = f.debug
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serve(cmd *cobra.Command, dir string, f serveFlags) error {
	out := cmd.OutOrStdout()

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("directory does not exist: %s", dir)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	cfg, err := loadServeConfig(cmd, absDir, f)
	if err != nil {
		return err
	}
	config.SetAllowRun(f.allowRun)
	config.SetDebug(cfg.Server.Debug)

	fmt.Fprintf(out, "📚 jsblock development server\n\n")
	fmt.Fprintf(out, "Serving: %s\n", absDir)

	srv := server.NewWithConfig(absDir, cfg)
	if err := srv.Discover(); err != nil {
		return fmt.Errorf("failed to discover pages: %w", err)
	}
	printRoutes(out, srv.Routes())

	if cfg.Features.HotReload {
		if err := srv.EnableWatch(cfg.Server.Debug); err != nil {
			return fmt.Errorf("failed to enable watch mode: %w", err)
		}
		defer srv.StopWatch()
		fmt.Fprintf(out, "\n👀 Watch mode enabled - pages reload when files change\n")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cfg.Server.Addr()
	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv.Handler(ctx),
	}

	fmt.Fprintf(out, "\n🌐 Server running at http://%s\n", addr)
	if cfg.Features.AllowRun || config.IsRunAllowed() {
		fmt.Fprintf(out, "⚠️  Running blocks from the browser is enabled\n")
	}
	fmt.Fprintf(out, "Press Ctrl+C to stop\n\n")

	errc := make(chan error, 1)
	go func() {
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	fmt.Fprintf(out, "\n🛑 Shutting down gracefully...\n")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Server] Shutdown error: %v", err)
	}
	return nil
}

func printRoutes(out io.Writer, routes []*server.Route) {
	fmt.Fprintf(out, "\nPages discovered:\n")
	for _, route := range routes {
		var status string
		if route.Err != nil {
			status = "  (parse error)"
		} else {
			status = fmt.Sprintf("  %d block(s)", len(route.Page.Blocks))
		}
		fmt.Fprintf(out, "  %-30s %s%s\n", route.Pattern, route.FilePath, status)
	}
}
