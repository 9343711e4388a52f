package jsblock

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrontmatter(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantFM   Frontmatter
		wantBody string
	}{
		{
			name: "complete frontmatter",
			content: `---
title: "Closures"
jsblock:
  console_text: "Press run"
  line_numbers: false
---

# Hello World`,
			wantFM: Frontmatter{
				Title:   "Closures",
				JSBlock: map[string]any{"console_text": "Press run", "line_numbers": false},
			},
			wantBody: "\n# Hello World",
		},
		{
			name: "no frontmatter",
			content: `# Hello World

Some content`,
			wantFM:   Frontmatter{},
			wantBody: "# Hello World\n\nSome content",
		},
		{
			name: "minimal frontmatter",
			content: `---
title: "Simple"
---
Content`,
			wantFM:   Frontmatter{Title: "Simple"},
			wantBody: "Content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, body, err := extractFrontmatter([]byte(tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.wantFM, *fm)
			assert.Equal(t, tt.wantBody, string(body))
		})
	}
}

func TestParseFrontmatterErrors(t *testing.T) {
	_, _, err := extractFrontmatter([]byte("---\ntitle: x\n"))
	assert.ErrorContains(t, err, "unclosed frontmatter")

	_, _, err = extractFrontmatter([]byte("---\ntitle: [\n---\n"))
	assert.ErrorContains(t, err, "failed to parse YAML")
}

const samplePage = "---\n" +
	"title: Basics\n" +
	"---\n" +
	"# Basics\n" +
	"\n" +
	"Some prose.\n" +
	"\n" +
	"```js jsblock id=hello\n" +
	"console.log(\"hi\")\n" +
	"```\n" +
	"\n" +
	"```js\n" +
	"plain <code>\n" +
	"```\n" +
	"\n" +
	"```javascript jsblock readonly norun run_timeout=2s\n" +
	"let a = 1\n" +
	"let b = 2\n" +
	"let c = 3\n" +
	"console.log(a + b + c)\n" +
	"```\n" +
	"\n" +
	"```jsblock noconsole console_text='quiet'\n" +
	"1\n" +
	"```\n"

func TestParseMarkdownBlocks(t *testing.T) {
	fm, blocks, html, err := ParseMarkdown([]byte(samplePage))
	require.NoError(t, err)
	assert.Equal(t, "Basics", fm.Title)
	require.Len(t, blocks, 3)

	hello := blocks[0]
	assert.Equal(t, "hello", hello.ID)
	assert.Equal(t, "js", hello.Language)
	assert.Equal(t, `console.log("hi")`, hello.Content)
	assert.Equal(t, DefaultOptions(), hello.Options)
	assert.Equal(t, 8, hello.Line)

	second := blocks[1]
	assert.Equal(t, "block-1", second.ID)
	assert.Equal(t, "javascript", second.Language)
	assert.Equal(t, []string{"readonly", "norun"}, second.Flags)
	assert.False(t, second.Options.Editable)
	assert.False(t, second.Options.Runnable)
	assert.Equal(t, "2s", second.Options.RunTimeout)
	assert.Equal(t, 16, second.Line)

	third := blocks[2]
	assert.Equal(t, "block-2", third.ID)
	assert.Equal(t, "js", third.Language)
	assert.False(t, third.Options.Console)
	assert.Equal(t, "quiet", third.Options.ConsoleText)

	assert.Contains(t, html, `<h1 id="basics">Basics</h1>`)
	assert.Contains(t, html, `<pre class="jsblock" id="hello" style="width: 640px; height: 54px">console.log(&quot;hi&quot;)</pre>`)
	assert.Contains(t, html, `<pre><code class="language-js">plain &lt;code&gt;`+"\n</code></pre>")
	assert.Contains(t, html, `<pre class="jsblock" id="block-1" style="width: 640px; height: 72px" data-editable="false" data-run-timeout="2s" data-runnable="false">`)
	assert.Contains(t, html, `data-console="false" data-console-text="quiet"`)
}

func TestParseMarkdownPageOptions(t *testing.T) {
	content := "---\njsblock:\n  editable: false\n---\n```js jsblock id=a\nx\n```\n\n```js jsblock id=b editable=true\ny\n```\n"

	_, blocks, html, err := ParseMarkdown([]byte(content))
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	assert.False(t, blocks[0].Options.Editable)
	assert.True(t, blocks[1].Options.Editable, "fence overrides page options")
	assert.Contains(t, html, `id="a" style="width: 640px; height: 54px" data-editable="false">`)
	assert.Contains(t, html, `id="b" style="width: 640px; height: 54px">`)
}

func TestParseMarkdownIgnoresOtherFences(t *testing.T) {
	content := "```python jsblock\nprint(1)\n```\n\n```\nno info\n```\n\n    indented\n"

	_, blocks, html, err := ParseMarkdown([]byte(content))
	require.NoError(t, err)
	assert.Empty(t, blocks)
	assert.Contains(t, html, `<pre><code class="language-python">print(1)`)
	assert.Contains(t, html, "<pre><code>no info\n</code></pre>")
	assert.NotContains(t, html, `class="jsblock"`)
}

func TestParseMarkdownErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		line    int
		message string
	}{
		{
			name:    "bad option value",
			content: "# T\n\n```js jsblock editable=perhaps\nx\n```\n",
			line:    3,
			message: `option "editable" wants a boolean`,
		},
		{
			name:    "bad duration",
			content: "```js jsblock run_timeout=soon\nx\n```\n",
			line:    1,
			message: `option "run_timeout"`,
		},
		{
			name:    "duplicate id",
			content: "```js jsblock id=a\nx\n```\n\n```js jsblock id=a\ny\n```\n",
			line:    5,
			message: `duplicate block id "a"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := ParseMarkdown([]byte(tt.content))
			require.Error(t, err)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.line, perr.Line)
			assert.Contains(t, perr.Message, tt.message)
			assert.NotEmpty(t, perr.Hint)
		})
	}
}

func TestParseMarkdownBadFrontmatterOptions(t *testing.T) {
	_, _, _, err := ParseMarkdown([]byte("---\njsblock:\n  console: sometimes\n---\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadArgument)
	assert.True(t, strings.HasPrefix(err.Error(), "invalid jsblock frontmatter"))
}

func TestBlockHeight(t *testing.T) {
	assert.Equal(t, 54, (&Block{Content: "one"}).height())
	assert.Equal(t, 54, (&Block{Content: "1\n2\n3"}).height())
	assert.Equal(t, 90, (&Block{Content: "1\n2\n3\n4\n5"}).height())
}
