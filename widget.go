package jsblock

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/livetemplate/jsblock/pkg/dom"
	"github.com/livetemplate/jsblock/pkg/editor"
)

// State is the lifecycle state of a widget.
type State int

const (
	StateUnattached State = iota
	StateAttached
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUnattached:
		return "unattached"
	case StateAttached:
		return "attached"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Widget is an interactive code block attached to one element.
//
// Attaching replaces the original element in the document with a container
// holding an editor wrapper (with the editable surface, a clone of the
// original), an optional console line with a run button and an optional
// reset button. Destroy puts the original element back.
type Widget struct {
	registry *Registry
	doc      *dom.Document

	original     *dom.Element
	container    *dom.Element
	base         *dom.Element
	originalText string

	editor      editor.Editor
	console     *dom.Element
	runButton   *dom.Element
	resetButton *dom.Element
	enabled     bool

	options Options
	actions map[string]action
	state   State
}

// newWidget builds the scaffolding around original. On failure the document
// is left as it was.
func newWidget(reg *Registry, original *dom.Element, opts Options) (*Widget, error) {
	w := &Widget{
		registry: reg,
		doc:      original.Document(),
		original: original,
		options:  opts,
		enabled:  true,
	}
	w.actions = w.actionTable()

	w.setUpDOM()
	if err := w.setUpEditor(); err != nil {
		w.rollback()
		return nil, err
	}
	if opts.Console {
		w.createConsole()
	}
	if opts.Resetable {
		w.createResetButton()
	}
	w.state = StateAttached
	return w, nil
}

func (w *Widget) setUpDOM() {
	w.container = w.doc.CreateElement("div").AddClass(ClassContainer)
	inner := w.doc.CreateElement("div").AddClass(ClassEditorWrapper)
	w.base = w.original.Clone()

	w.container.SetWidth(w.original.Width())
	inner.SetHeight(w.original.Height() * heightFactor)

	trimmed := strings.TrimSpace(w.base.HTML())
	if err := w.base.SetHTML(trimmed); err != nil {
		// re-parsing our own rendering only fails on pathological input
		w.base.SetText(strings.TrimSpace(w.base.Text()))
	}
	w.base.AddClass(ClassEditor)
	w.originalText = w.base.Text()

	w.container.InsertBefore(w.original)
	w.container.Append(inner)
	inner.Append(w.base)
	w.original.Remove()
}

func (w *Widget) setUpEditor() error {
	if w.base.ID() == "" {
		w.base.SetAttr("id", editorIDPrefix+uuid.NewString())
	}

	ed, err := w.registry.newEditor(w.doc, w.base.ID())
	if err != nil {
		return fmt.Errorf("failed to attach editor: %w", err)
	}
	ed.SetTheme(w.options.EditorTheme)
	ed.SetUseWorker(false)
	ed.SetMode(editorMode)
	ed.SetShowFoldWidgets(false)
	ed.AddCommands(
		editor.Command{
			Name:     "unfind",
			BindKey:  editor.KeyBinding{Win: "Ctrl-F", Mac: "Command-F"},
			Exec:     func(editor.Editor) bool { return false },
			ReadOnly: true,
		},
		editor.Command{
			Name:     "unreplace",
			BindKey:  editor.KeyBinding{Win: "Ctrl-R", Mac: "Command-R"},
			Exec:     func(editor.Editor) bool { return false },
			ReadOnly: true,
		},
	)
	ed.SetReadOnly(!w.options.Editable)
	ed.SetShowGutter(w.options.LineNumbers)
	w.editor = ed
	return nil
}

func (w *Widget) createConsole() {
	wrapper := w.doc.CreateElement("div").AddClass(ClassConsole)
	w.console = w.doc.CreateElement("span").
		AddClass(w.options.ConsoleClass).
		AddClass(ClassPlaceholder).
		SetText(w.options.ConsoleText)
	w.console.SetWidth(w.container.Width() - consoleInset)
	wrapper.Append(w.console)

	if w.options.Runnable {
		w.runButton = w.doc.CreateElement("span").
			AddClass(w.options.RunButtonClass).
			SetText(w.options.RunButtonText)
		w.runButton.On("click", func(dom.Event) {
			if w.state == StateAttached && w.enabled {
				w.Run()
			}
		})
		wrapper.Append(w.runButton)
	}

	w.container.Append(wrapper)
}

func (w *Widget) createResetButton() {
	w.resetButton = w.doc.CreateElement("i").
		AddClass(ClassReset).
		SetAttr("title", "Reset")
	w.resetButton.On("click", func(dom.Event) {
		if w.state == StateAttached {
			w.Reset()
		}
	})
	w.base.After(w.resetButton)
}

// rollback undoes setUpDOM after a failed attach.
func (w *Widget) rollback() {
	w.original.InsertBefore(w.container)
	w.container.Remove()
	w.doc.Forget(w.container)
	w.container = nil
	w.base = nil
}

// State returns the lifecycle state.
func (w *Widget) State() State {
	return w.state
}

// Original returns the element the widget was attached to.
func (w *Widget) Original() *dom.Element {
	return w.original
}

// Container returns the outer scaffolding element, or nil once destroyed.
func (w *Widget) Container() *dom.Element {
	return w.container
}

// Base returns the editable surface, or nil once destroyed.
func (w *Widget) Base() *dom.Element {
	return w.base
}

// ConsoleElement returns the console text element, or nil when the console
// is disabled or the widget destroyed.
func (w *Widget) ConsoleElement() *dom.Element {
	return w.console
}

// RunButton returns the run trigger, or nil when there is none.
func (w *Widget) RunButton() *dom.Element {
	return w.runButton
}

// ResetButton returns the reset trigger, or nil when there is none.
func (w *Widget) ResetButton() *dom.Element {
	return w.resetButton
}

// OriginalText returns the trimmed text captured at attach time.
func (w *Widget) OriginalText() string {
	return w.originalText
}

// Options returns the options the widget was attached with.
func (w *Widget) Options() Options {
	return w.options
}

// Destroy tears the widget down: the editor is released, the original
// element returns to where the container was and the registry forgets both
// the original element and the editable surface.
func (w *Widget) Destroy() error {
	if w.state != StateAttached {
		return ErrDestroyed
	}

	w.editor.Destroy()
	w.original.InsertBefore(w.container)
	w.registry.forget(w)

	w.base.Remove()
	w.container.Remove()
	w.doc.Forget(w.base)
	w.doc.Forget(w.container)

	w.editor = nil
	w.console = nil
	w.runButton = nil
	w.resetButton = nil
	w.base = nil
	w.container = nil
	w.originalText = ""
	w.options = Options{}
	w.state = StateDestroyed
	return nil
}
