package config

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/jsblock"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
	assert.True(t, cfg.Features.HotReload)
	assert.False(t, cfg.Features.AllowRun)
	assert.Equal(t, 10.0, cfg.RateLimit.GetRateLimitRPS())
	assert.Equal(t, 20, cfg.RateLimit.GetRateLimitBurst())
	assert.Equal(t, 10000, cfg.RateLimit.GetMaxTrackedIPs())

	opts, err := cfg.WidgetOptions()
	require.NoError(t, err)
	assert.Equal(t, jsblock.DefaultOptions(), opts)
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jsblock.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
title: Examples
server:
  port: 9000
widget:
  line_numbers: false
  runTimeout: 3s
features:
  allow_run: true
rate_limit:
  requests_per_second: 2.5
  max_tracked_ips: 500
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Examples", cfg.Title)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host, "unset fields keep defaults")
	assert.True(t, cfg.Features.AllowRun)
	assert.True(t, cfg.Features.HotReload)
	assert.Equal(t, 2.5, cfg.RateLimit.GetRateLimitRPS())
	assert.Equal(t, 20, cfg.RateLimit.GetRateLimitBurst())
	assert.Equal(t, 500, cfg.RateLimit.GetMaxTrackedIPs())

	opts, err := cfg.WidgetOptions()
	require.NoError(t, err)
	assert.False(t, opts.LineNumbers)
	assert.Equal(t, "3s", opts.RunTimeout)
	assert.True(t, opts.Editable)
}

func TestLoadMissingAndEmpty(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "bad yaml", content: "server: [", want: "failed to parse config file"},
		{name: "bad widget option", content: "widget:\n  editable: sometimes\n", want: "invalid widget config"},
		{name: "bad port", content: "server:\n  port: 70000\n", want: "out of range"},
		{name: "bad ignore pattern", content: "ignore: ['[']\n", want: "invalid ignore pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "jsblock.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := Load(path)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "jsblock", cfg.Title)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".jsblock.yaml"), []byte("title: hidden\n"), 0o644))
	cfg, err = LoadFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "hidden", cfg.Title)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "jsblock.yaml"), []byte("title: visible\n"), 0o644))
	cfg, err = LoadFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "visible", cfg.Title, "jsblock.yaml wins")
}

func TestLoadFromFS(t *testing.T) {
	cfg, err := LoadFromFS(fstest.MapFS{})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = LoadFromFS(fstest.MapFS{
		".jsblock.yaml": {Data: []byte("title: embedded\nwidget:\n  console: false\n")},
	})
	require.NoError(t, err)
	assert.Equal(t, "embedded", cfg.Title)
	assert.Equal(t, false, cfg.Widget["console"])

	_, err = LoadFromFS(fstest.MapFS{
		"jsblock.yaml": {Data: []byte("server:\n  port: -1\n")},
	})
	assert.ErrorContains(t, err, "invalid config file jsblock.yaml")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jsblock.yaml")
	cfg := DefaultConfig()
	cfg.Title = "Saved"
	cfg.Widget = map[string]any{"console": false}

	require.NoError(t, cfg.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestIsIgnored(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Ignore = append(cfg.Ignore, "notes/*.md")

	tests := []struct {
		path string
		want bool
	}{
		{"index.md", false},
		{"_partial.md", true},
		{"guide/_hidden.md", true},
		{"drafts/wip.md", true},
		{"drafts/deep/wip.md", true},
		{"drafts.md", false},
		{"notes/todo.md", true},
		{"notes/deep/todo.md", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.IsIgnored(tt.path))
		})
	}
}
