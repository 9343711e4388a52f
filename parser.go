package jsblock

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"gopkg.in/yaml.v3"
)

// Frontmatter represents the YAML frontmatter at the top of a markdown file.
type Frontmatter struct {
	Title string `yaml:"title"`
	// JSBlock holds option overrides applied to every block of the page.
	JSBlock map[string]any `yaml:"jsblock"`
}

// Fence flags and the option each one switches off.
var blockFlags = map[string]string{
	"readonly":  "editable",
	"norun":     "runnable",
	"noconsole": "console",
	"noreset":   "resetable",
	"nolines":   "line_numbers",
}

const blockMarker = "jsblock"

// Rendered size of a block: fixed width, height from the line count.
const (
	blockWidth      = 640
	blockLineHeight = 18
	blockMinLines   = 3
)

// ParseMarkdown parses a markdown file, extracts frontmatter and jsblock
// fences, and renders the page. Fences are rendered as
// <pre class="jsblock" id="..."> elements carrying their options as data-*
// attributes; other fences render as regular code.
func ParseMarkdown(content []byte) (*Frontmatter, []*Block, string, error) {
	return ParseMarkdownWithDefaults(content, DefaultOptions())
}

// ParseMarkdownWithDefaults is ParseMarkdown with site wide widget options
// below the page frontmatter.
func ParseMarkdownWithDefaults(content []byte, defaults Options) (*Frontmatter, []*Block, string, error) {
	frontmatter, remaining, err := extractFrontmatter(content)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to parse frontmatter: %w", err)
	}
	pageOpts, err := MergeOptions(defaults, frontmatter.JSBlock)
	if err != nil {
		return nil, nil, "", fmt.Errorf("invalid jsblock frontmatter: %w", err)
	}

	lineOffset := bytes.Count(content[:len(content)-len(remaining)], []byte("\n"))

	rendered := &blockRenderer{blocks: make(map[ast.Node]*Block), base: DefaultOptions()}
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			renderer.WithNodeRenderers(util.Prioritized(rendered, 100)),
		),
	)
	doc := md.Parser().Parse(text.NewReader(remaining))

	var blocks []*Block
	seen := make(map[string]int)
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		block := parseCodeBlock(fenced, remaining, lineOffset)
		if block == nil {
			return ast.WalkContinue, nil
		}
		if err := block.resolve(len(blocks), pageOpts); err != nil {
			return ast.WalkStop, err
		}
		if line, dup := seen[block.ID]; dup {
			return ast.WalkStop, NewParseError("", block.Line, fmt.Sprintf("duplicate block id %q", block.ID)).
				WithHint(fmt.Sprintf("first used on line %d", line))
		}
		seen[block.ID] = block.Line
		blocks = append(blocks, block)
		rendered.blocks[n] = block
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, nil, "", err
	}

	var htmlBuf bytes.Buffer
	if err := md.Renderer().Render(&htmlBuf, remaining, doc); err != nil {
		return nil, nil, "", fmt.Errorf("failed to render HTML: %w", err)
	}

	return frontmatter, blocks, htmlBuf.String(), nil
}

// extractFrontmatter extracts YAML frontmatter from the beginning of content.
// Returns the parsed frontmatter and the remaining content.
func extractFrontmatter(content []byte) (*Frontmatter, []byte, error) {
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return &Frontmatter{}, content, nil
	}

	endIdx := bytes.Index(content[4:], []byte("\n---\n"))
	if endIdx == -1 {
		return nil, nil, fmt.Errorf("unclosed frontmatter")
	}

	yamlContent := content[4 : 4+endIdx]
	remaining := content[4+endIdx+5:] // Skip "\n---\n"

	var fm Frontmatter
	if err := yaml.Unmarshal(yamlContent, &fm); err != nil {
		return nil, nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &fm, remaining, nil
}

// parseCodeBlock returns the jsblock fence described by fenced, or nil for
// any other code block. Info string format: "js jsblock readonly id=hello".
// A bare "jsblock" language is also accepted.
func parseCodeBlock(fenced *ast.FencedCodeBlock, source []byte, lineOffset int) *Block {
	if fenced.Info == nil {
		return nil
	}
	parts := strings.Fields(string(fenced.Info.Segment.Value(source)))
	if len(parts) == 0 {
		return nil
	}

	language := parts[0]
	rest := parts[1:]
	isBlock := language == blockMarker
	if isBlock {
		language = "js"
	}

	flags := []string{}
	metadata := make(map[string]string)
	for _, part := range rest {
		if key, val, ok := strings.Cut(part, "="); ok {
			metadata[key] = strings.Trim(val, `"'`)
			continue
		}
		switch {
		case part == blockMarker:
			isBlock = true
		case blockFlags[part] != "":
			flags = append(flags, part)
		default:
			// Unknown flag, ignore
		}
	}

	if !isBlock || (language != "js" && language != "javascript") {
		return nil
	}

	var buf bytes.Buffer
	lines := fenced.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}

	return &Block{
		Language: language,
		Flags:    flags,
		Metadata: metadata,
		Content:  strings.TrimRight(buf.String(), "\n"),
		Line:     lineOffset + bytes.Count(source[:fenced.Info.Segment.Start], []byte("\n")) + 1,
	}
}

// resolve sets the block's id and merges its fence options over the page
// options.
func (b *Block) resolve(index int, pageOpts Options) error {
	overrides := make(map[string]any, len(b.Metadata)+len(b.Flags))
	for key, val := range b.Metadata {
		if key == "id" {
			continue
		}
		overrides[key] = val
	}
	for _, flag := range b.Flags {
		overrides[blockFlags[flag]] = false
	}

	opts, err := MergeOptions(pageOpts, overrides)
	if err != nil {
		return NewParseError("", b.Line, err.Error()).
			WithHint("boolean options take true or false, run_timeout takes a duration such as 2s")
	}
	b.Options = opts

	b.ID = b.Metadata["id"]
	if b.ID == "" {
		b.ID = fmt.Sprintf("block-%d", index)
	}
	return nil
}

// blockRenderer renders fenced code blocks: jsblock fences as host elements
// for widgets, every other fence like goldmark's default renderer.
type blockRenderer struct {
	blocks map[ast.Node]*Block
	base   Options
}

func (r *blockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCodeBlock)
}

func (r *blockRenderer) renderFencedCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)

	if block, ok := r.blocks[node]; ok {
		_, _ = w.WriteString(block.openTag(r.base))
		_, _ = w.Write(util.EscapeHTML([]byte(block.Content)))
		_, _ = w.WriteString("</pre>\n")
		return ast.WalkSkipChildren, nil
	}

	_, _ = w.WriteString("<pre><code")
	if lang := n.Language(source); lang != nil {
		_, _ = w.WriteString(` class="language-`)
		_, _ = w.Write(util.EscapeHTML(lang))
		_, _ = w.WriteString(`"`)
	}
	_ = w.WriteByte('>')
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		_, _ = w.Write(util.EscapeHTML(line.Value(source)))
	}
	_, _ = w.WriteString("</code></pre>\n")
	return ast.WalkSkipChildren, nil
}

// openTag renders the <pre> start tag of a block. Options that differ from
// base are written as data-* attributes.
func (b *Block) openTag(base Options) string {
	var sb strings.Builder
	sb.WriteString(`<pre class="jsblock" id="`)
	sb.Write(util.EscapeHTML([]byte(b.ID)))
	fmt.Fprintf(&sb, `" style="width: %dpx; height: %dpx"`, blockWidth, b.height())

	attrs := b.Options.DataAttributes(base)
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(" " + k + `="`)
		sb.Write(util.EscapeHTML([]byte(attrs[k])))
		sb.WriteString(`"`)
	}
	sb.WriteString(">")
	return sb.String()
}

func (b *Block) height() int {
	lines := strings.Count(b.Content, "\n") + 1
	return max(lines, blockMinLines) * blockLineHeight
}
