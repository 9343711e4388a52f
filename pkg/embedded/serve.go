// Package embedded serves jsblock pages from a file system such as an
// embed.FS, for programs that ship their examples inside the binary.
package embedded

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/livetemplate/jsblock/internal/config"
	"github.com/livetemplate/jsblock/internal/server"
)

// Serve starts a server for the pages below rootPath in contentFS and
// blocks until it is interrupted.
//
// Example usage:
//
//	//go:embed content/*
//	var contentFS embed.FS
//
//	func main() {
//	    embedded.Serve(contentFS, "content", "localhost:8080")
//	}
func Serve(contentFS fs.FS, rootPath string, addr string) error {
	return ServeWithOptions(Options{
		ContentFS: contentFS,
		RootPath:  rootPath,
		Addr:      addr,
	})
}

// Options provides configuration for the embedded server.
type Options struct {
	// ContentFS holds the markdown files and an optional jsblock.yaml
	ContentFS fs.FS

	// RootPath is the path prefix within the ContentFS (e.g., "content")
	RootPath string

	// Addr is the address to listen on (e.g., "localhost:8080")
	Addr string

	// Config overrides the embedded config (optional)
	Config *config.Config

	// OnReady is called when the server is ready to accept connections (optional)
	OnReady func()

	// Quiet suppresses startup messages when true
	Quiet bool
}

// NewServer builds a server over the options' content and discovers its
// pages.
func NewServer(opts Options) (*server.Server, error) {
	if opts.ContentFS == nil {
		return nil, errors.New("no content file system")
	}

	srcFS := opts.ContentFS
	if opts.RootPath != "" && opts.RootPath != "." {
		sub, err := fs.Sub(opts.ContentFS, opts.RootPath)
		if err != nil {
			return nil, fmt.Errorf("failed to get sub-filesystem at %q: %w", opts.RootPath, err)
		}
		srcFS = sub
	}

	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = config.LoadFromFS(srcFS); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	srv := server.NewFS(srcFS, cfg)
	if err := srv.Discover(); err != nil {
		return nil, fmt.Errorf("failed to discover pages: %w", err)
	}
	return srv, nil
}

// ServeWithOptions starts a server with more configuration options.
func ServeWithOptions(opts Options) error {
	srv, err := NewServer(opts)
	if err != nil {
		return err
	}

	if !opts.Quiet {
		fmt.Printf("\nPages discovered:\n")
		for _, route := range srv.Routes() {
			fmt.Printf("  %-30s %s\n", route.Pattern, route.FilePath)
		}
		fmt.Println()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpServer := &http.Server{
		Addr:    opts.Addr,
		Handler: srv.Handler(ctx),
	}

	// Handle shutdown signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}

		if !opts.Quiet {
			fmt.Printf("\n🛑 Shutting down gracefully...\n")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Warning: HTTP server shutdown error: %v\n", err)
		}
	}()

	if opts.OnReady != nil {
		opts.OnReady()
	}

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
