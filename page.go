package jsblock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/livetemplate/jsblock/pkg/dom"
)

// Page is a parsed markdown page whose jsblock fences become widgets.
type Page struct {
	ID         string
	Title      string
	SourceFile string
	StaticHTML string
	Blocks     []*Block
}

// ParseFile parses a markdown file and creates a Page.
func ParseFile(path string) (*Page, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// Get absolute path for better error messages
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	return ParseSource(absPath, content, DefaultOptions())
}

// ParseString parses markdown content that did not come from a file.
func ParseString(content string) (*Page, error) {
	return ParseSource("inline", []byte(content), DefaultOptions())
}

// ParseSource parses markdown content with defaults as the widget options
// below the frontmatter. source names the content in errors and becomes the
// page id without its extension.
func ParseSource(source string, content []byte, defaults Options) (*Page, error) {
	fm, blocks, staticHTML, err := ParseMarkdownWithDefaults(content, defaults)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.File = source
			return nil, perr
		}
		return nil, NewParseError(source, 1, fmt.Sprintf("Failed to parse markdown: %v", err))
	}

	base := filepath.Base(source)
	page := &Page{
		ID:         strings.TrimSuffix(base, filepath.Ext(base)),
		Title:      fm.Title,
		SourceFile: source,
		StaticHTML: staticHTML,
		Blocks:     blocks,
	}
	if page.Title == "" {
		page.Title = page.ID
	}
	return page, nil
}

// Block returns the block with the given id, or nil.
func (p *Page) Block(id string) *Block {
	for _, b := range p.Blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// Document builds a fresh document from the page's HTML. Every call returns
// an independent document.
func (p *Page) Document() (*dom.Document, error) {
	doc, err := dom.ParseBody(p.StaticHTML)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", p.ID, err)
	}
	doc.Head().Append(doc.CreateElement("title").SetText(p.Title))
	return doc, nil
}

// Mount builds a document for the page and attaches a widget to every block
// in it, reading each block's options from its data-* attributes.
func (p *Page) Mount(reg *Registry) (*dom.Document, []*Widget, error) {
	doc, err := p.Document()
	if err != nil {
		return nil, nil, err
	}

	var widgets []*Widget
	for _, b := range p.Blocks {
		el := doc.GetElementByID(b.ID)
		if el == nil {
			return nil, nil, fmt.Errorf("page %s: block %s missing from rendered HTML", p.ID, b.ID)
		}
		opts, err := OptionsFromElement(el, DefaultOptions())
		if err != nil {
			return nil, nil, fmt.Errorf("page %s: block %s: %w", p.ID, b.ID, err)
		}
		attached, err := reg.Attach([]*dom.Element{el}, &opts)
		if err != nil {
			return nil, nil, fmt.Errorf("page %s: block %s: %w", p.ID, b.ID, err)
		}
		widgets = append(widgets, attached...)
	}
	return doc, widgets, nil
}
