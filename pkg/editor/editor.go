// Package editor defines the code editor component a jsblock widget embeds,
// together with Buffer, an in-memory implementation that renders its text
// into the element it is attached to.
package editor

import (
	"errors"

	"github.com/livetemplate/jsblock/pkg/dom"
)

// ErrReadOnly is returned by editing operations on a read-only editor.
var ErrReadOnly = errors.New("editor is read-only")

// ErrNotFound is returned when no element matches the requested id.
var ErrNotFound = errors.New("editor element not found")

// Editor is the editing component attached to a widget's editable surface.
type Editor interface {
	Value() string
	// SetValue replaces the whole document and selects it.
	SetValue(text string)
	ReadOnly() bool
	SetReadOnly(readOnly bool)
	ClearSelection()
	NavigateFileStart()
	Theme() string
	SetTheme(theme string)
	SetMode(mode string)
	SetUseWorker(useWorker bool)
	SetShowFoldWidgets(show bool)
	ShowGutter() bool
	SetShowGutter(show bool)
	AddCommands(cmds ...Command)
	// ExecKey runs the command bound to key, reporting whether one ran.
	ExecKey(key string) bool
	Destroy()
}

// Factory attaches a new editor to the element with the given id.
type Factory func(doc *dom.Document, id string) (Editor, error)

// KeyBinding maps a command to a key chord per platform.
type KeyBinding struct {
	Win string
	Mac string
}

// Command is a named editor command bound to a key.
type Command struct {
	Name    string
	BindKey KeyBinding
	Exec    func(ed Editor) bool
	// ReadOnly commands also run while the editor is read-only.
	ReadOnly bool
}
