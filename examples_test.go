package jsblock

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExamplesParse keeps the example site valid.
func TestExamplesParse(t *testing.T) {
	var files []string
	err := filepath.WalkDir("examples", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".md" {
			files = append(files, path)
		}
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(filepath.ToSlash(file), func(t *testing.T) {
			page, err := ParseFile(file)
			require.NoError(t, err)
			assert.NotEmpty(t, page.Title)
			assert.NotEmpty(t, page.Blocks)

			_, widgets, err := page.Mount(NewRegistry())
			require.NoError(t, err)
			assert.Len(t, widgets, len(page.Blocks))
		})
	}
}

func TestExampleOptions(t *testing.T) {
	page, err := ParseFile(filepath.Join("examples", "guide", "options.md"))
	require.NoError(t, err)

	custom := page.Block("custom")
	require.NotNil(t, custom)
	assert.Equal(t, "Go", custom.Options.RunButtonText)
	assert.Equal(t, "Waiting...", custom.Options.ConsoleText)

	bare := page.Block("bare")
	require.NotNil(t, bare)
	assert.False(t, bare.Options.Console)
	assert.False(t, bare.Options.Resetable)
	assert.False(t, bare.Options.LineNumbers)

	assert.Equal(t, "Run it", page.Block("readonly").Options.RunButtonText)
}
