package editor

import (
	"fmt"
	"path"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/livetemplate/jsblock/pkg/dom"
)

// Position is a zero-based row/column location; columns count runes.
type Position struct {
	Row    int
	Column int
}

// Range is a selection between two positions.
type Range struct {
	Start Position
	End   Position
}

// Empty reports whether the range selects nothing.
func (r Range) Empty() bool { return r.Start == r.End }

// Buffer is an in-memory Editor. It mirrors its state onto the element it
// is attached to: the element text is the document, the "ace_editor" and
// theme classes are applied, and data attributes expose the mode, the
// read-only flag and gutter visibility.
type Buffer struct {
	el          *dom.Element
	value       string
	readOnly    bool
	theme       string
	mode        string
	useWorker   bool
	foldWidgets bool
	gutter      bool
	selection   Range
	cursor      Position
	searchBox   string
	platform    string
	commands    []Command
	destroyed   bool
}

var _ Editor = (*Buffer)(nil)

// Attach is a Factory that attaches a Buffer to the element with the given
// id. The element's current text becomes the initial document.
func Attach(doc *dom.Document, id string) (Editor, error) {
	el := doc.GetElementByID(id)
	if el == nil {
		return nil, fmt.Errorf("%w: #%s", ErrNotFound, id)
	}
	return NewBuffer(el), nil
}

// NewBuffer attaches a Buffer to el.
func NewBuffer(el *dom.Element) *Buffer {
	b := &Buffer{
		el:          el,
		value:       el.Text(),
		theme:       "ace/theme/textmate",
		mode:        "ace/mode/text",
		useWorker:   true,
		foldWidgets: true,
		gutter:      true,
		platform:    "win",
	}
	if runtime.GOOS == "darwin" {
		b.platform = "mac"
	}
	b.AddCommands(
		Command{
			Name:     "find",
			BindKey:  KeyBinding{Win: "Ctrl-F", Mac: "Command-F"},
			Exec:     func(Editor) bool { b.searchBox = "find"; return true },
			ReadOnly: true,
		},
		Command{
			Name:    "replace",
			BindKey: KeyBinding{Win: "Ctrl-R", Mac: "Command-R"},
			Exec:    func(Editor) bool { b.searchBox = "replace"; return true },
		},
	)
	b.el.AddClass("ace_editor")
	b.render()
	return b
}

// SetPlatform selects which side of a KeyBinding ExecKey matches: "win" or "mac".
func (b *Buffer) SetPlatform(platform string) {
	b.platform = platform
}

func (b *Buffer) Value() string { return b.value }

func (b *Buffer) SetValue(text string) {
	if b.destroyed {
		return
	}
	b.value = text
	end := b.endPosition()
	b.selection = Range{Start: Position{}, End: end}
	b.cursor = end
	b.render()
}

func (b *Buffer) ReadOnly() bool { return b.readOnly }

func (b *Buffer) SetReadOnly(readOnly bool) {
	b.readOnly = readOnly
	b.render()
}

func (b *Buffer) ClearSelection() {
	b.selection = Range{Start: b.cursor, End: b.cursor}
}

func (b *Buffer) NavigateFileStart() {
	b.cursor = Position{}
	b.selection = Range{}
}

// Selection returns the current selection.
func (b *Buffer) Selection() Range { return b.selection }

// Cursor returns the cursor position.
func (b *Buffer) Cursor() Position { return b.cursor }

func (b *Buffer) Theme() string { return b.theme }

func (b *Buffer) SetTheme(theme string) {
	b.el.RemoveClass(themeClass(b.theme))
	b.theme = theme
	b.render()
}

// Mode returns the language mode.
func (b *Buffer) Mode() string { return b.mode }

func (b *Buffer) SetMode(mode string) {
	b.mode = mode
	b.render()
}

// UseWorker reports whether background syntax checking is enabled.
func (b *Buffer) UseWorker() bool { return b.useWorker }

func (b *Buffer) SetUseWorker(useWorker bool) { b.useWorker = useWorker }

// ShowFoldWidgets reports whether code folding widgets are shown.
func (b *Buffer) ShowFoldWidgets() bool { return b.foldWidgets }

func (b *Buffer) SetShowFoldWidgets(show bool) { b.foldWidgets = show }

func (b *Buffer) ShowGutter() bool { return b.gutter }

func (b *Buffer) SetShowGutter(show bool) {
	b.gutter = show
	b.render()
}

// SearchBox returns which search box a key command opened, if any.
func (b *Buffer) SearchBox() string { return b.searchBox }

func (b *Buffer) AddCommands(cmds ...Command) {
	b.commands = append(b.commands, cmds...)
}

func (b *Buffer) ExecKey(key string) bool {
	if b.destroyed {
		return false
	}
	cmd, ok := b.lookup(key)
	if !ok {
		return false
	}
	if b.readOnly && !cmd.ReadOnly {
		return false
	}
	if cmd.Exec != nil {
		cmd.Exec(b)
	}
	return true
}

// Destroyed reports whether Destroy was called.
func (b *Buffer) Destroyed() bool { return b.destroyed }

func (b *Buffer) Destroy() {
	b.destroyed = true
	b.commands = nil
}

// lookup finds the most recently added command bound to key on the
// current platform.
func (b *Buffer) lookup(key string) (Command, bool) {
	for i := len(b.commands) - 1; i >= 0; i-- {
		bound := b.commands[i].BindKey.Win
		if b.platform == "mac" {
			bound = b.commands[i].BindKey.Mac
		}
		if bound != "" && strings.EqualFold(bound, key) {
			return b.commands[i], true
		}
	}
	return Command{}, false
}

func (b *Buffer) endPosition() Position {
	lines := strings.Split(b.value, "\n")
	last := lines[len(lines)-1]
	return Position{Row: len(lines) - 1, Column: utf8.RuneCountInString(last)}
}

func (b *Buffer) render() {
	if b.destroyed {
		return
	}
	b.el.SetText(b.value)
	b.el.AddClass(themeClass(b.theme))
	b.el.SetAttr("data-mode", b.mode)
	if b.readOnly {
		b.el.SetAttr("data-readonly", "true")
	} else {
		b.el.RemoveAttr("data-readonly")
	}
	if b.gutter {
		b.el.RemoveAttr("data-gutter")
	} else {
		b.el.SetAttr("data-gutter", "false")
	}
}

// themeClass turns "ace/theme/dawn" into "ace-dawn".
func themeClass(theme string) string {
	name := path.Base(theme)
	if name == "." || name == "/" {
		return ""
	}
	return "ace-" + strings.ReplaceAll(name, "_", "-")
}
