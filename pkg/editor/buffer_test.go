package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/jsblock/pkg/dom"
)

func newTestBuffer(t *testing.T, body string) (*dom.Document, *Buffer) {
	t.Helper()
	doc, err := dom.ParseBody(body)
	require.NoError(t, err)
	ed, err := Attach(doc, "ed")
	require.NoError(t, err)
	b := ed.(*Buffer)
	b.SetPlatform("win")
	return doc, b
}

func TestAttachReadsElementText(t *testing.T) {
	doc, b := newTestBuffer(t, `<pre id="ed">var a = 1;</pre>`)
	assert.Equal(t, "var a = 1;", b.Value())

	el := doc.GetElementByID("ed")
	assert.True(t, el.HasClass("ace_editor"))
	assert.True(t, el.HasClass("ace-textmate"))
}

func TestAttachMissingElement(t *testing.T) {
	doc := dom.NewDocument()
	_, err := Attach(doc, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetValueSelectsAll(t *testing.T) {
	doc, b := newTestBuffer(t, `<pre id="ed"></pre>`)

	b.SetValue("ab\ncdé")
	assert.Equal(t, "ab\ncdé", doc.GetElementByID("ed").Text())
	assert.Equal(t, Range{Start: Position{}, End: Position{Row: 1, Column: 3}}, b.Selection())
	assert.Equal(t, Position{Row: 1, Column: 3}, b.Cursor())

	b.ClearSelection()
	assert.True(t, b.Selection().Empty())
	assert.Equal(t, Position{Row: 1, Column: 3}, b.Cursor())

	b.NavigateFileStart()
	assert.Equal(t, Position{}, b.Cursor())
	assert.True(t, b.Selection().Empty())
}

func TestThemeAndFlagsRender(t *testing.T) {
	doc, b := newTestBuffer(t, `<pre id="ed">x</pre>`)
	el := doc.GetElementByID("ed")

	b.SetTheme("ace/theme/solarized_dark")
	assert.Equal(t, "ace/theme/solarized_dark", b.Theme())
	assert.True(t, el.HasClass("ace-solarized-dark"))
	assert.False(t, el.HasClass("ace-textmate"))

	b.SetMode("ace/mode/javascript")
	mode, _ := el.Attr("data-mode")
	assert.Equal(t, "ace/mode/javascript", mode)

	b.SetReadOnly(true)
	_, ok := el.Attr("data-readonly")
	assert.True(t, ok)
	b.SetReadOnly(false)
	_, ok = el.Attr("data-readonly")
	assert.False(t, ok)

	b.SetShowGutter(false)
	assert.False(t, b.ShowGutter())
	gutter, _ := el.Attr("data-gutter")
	assert.Equal(t, "false", gutter)

	b.SetUseWorker(false)
	b.SetShowFoldWidgets(false)
	assert.False(t, b.UseWorker())
	assert.False(t, b.ShowFoldWidgets())
}

func TestKeyCommands(t *testing.T) {
	_, b := newTestBuffer(t, `<pre id="ed">x</pre>`)

	assert.True(t, b.ExecKey("ctrl-f"))
	assert.Equal(t, "find", b.SearchBox())

	// later bindings win
	b.searchBox = ""
	b.AddCommands(Command{
		Name:     "unfind",
		BindKey:  KeyBinding{Win: "Ctrl-F", Mac: "Command-F"},
		Exec:     func(Editor) bool { return false },
		ReadOnly: true,
	})
	assert.True(t, b.ExecKey("Ctrl-F"))
	assert.Equal(t, "", b.SearchBox())

	// non read-only commands are skipped in read-only mode
	b.SetReadOnly(true)
	assert.False(t, b.ExecKey("Ctrl-R"))
	assert.True(t, b.ExecKey("Ctrl-F"))

	assert.False(t, b.ExecKey("Ctrl-Q"))
}

func TestMacBindings(t *testing.T) {
	_, b := newTestBuffer(t, `<pre id="ed">x</pre>`)
	b.SetPlatform("mac")
	b.AddCommands(Command{
		Name:    "mark",
		BindKey: KeyBinding{Win: "Ctrl-M", Mac: "Command-M"},
	})
	assert.True(t, b.ExecKey("Command-M"))
	assert.False(t, b.ExecKey("Ctrl-M"))
}

func TestDestroy(t *testing.T) {
	doc, b := newTestBuffer(t, `<pre id="ed">x</pre>`)
	b.Destroy()
	assert.True(t, b.Destroyed())

	b.SetValue("changed")
	assert.Equal(t, "x", b.Value())
	assert.Equal(t, "x", doc.GetElementByID("ed").Text())
	assert.False(t, b.ExecKey("Ctrl-F"))
}
