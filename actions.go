package jsblock

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/livetemplate/jsblock/pkg/editor"
)

// action is one entry of a widget's action table. A nil result is dropped
// from Invoke's collected results.
type action func(args []any) (any, error)

// Action names understood by Invoke.
const (
	ActionRun      = "run"
	ActionReset    = "reset"
	ActionDestroy  = "destroy"
	ActionEditor   = "editor"
	ActionText     = "text"
	ActionRunnable = "runnable"
	ActionEditable = "editable"
)

func (w *Widget) actionTable() map[string]action {
	return map[string]action{
		ActionRun: func([]any) (any, error) {
			return w.Run()
		},
		ActionReset: func([]any) (any, error) {
			return w.Reset()
		},
		ActionDestroy: func([]any) (any, error) {
			return nil, w.Destroy()
		},
		ActionEditor: func([]any) (any, error) {
			return w.Editor()
		},
		ActionText: func(args []any) (any, error) {
			if len(args) == 0 {
				return w.Text()
			}
			text, err := toString(ActionText, args[0])
			if err != nil {
				return nil, err
			}
			return w.SetText(text)
		},
		ActionRunnable: func(args []any) (any, error) {
			if len(args) == 0 {
				return w.Runnable()
			}
			on, err := boolArg(ActionRunnable, args[0])
			if err != nil {
				return nil, err
			}
			return w.SetRunnable(on)
		},
		ActionEditable: func(args []any) (any, error) {
			if len(args) == 0 {
				return w.Editable()
			}
			on, err := boolArg(ActionEditable, args[0])
			if err != nil {
				return nil, err
			}
			return w.SetEditable(on)
		},
	}
}

// Actions returns the names in the widget's action table, sorted.
func (w *Widget) Actions() []string {
	names := make([]string, 0, len(w.actions))
	for name := range w.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call runs the named action on this widget alone.
func (w *Widget) Call(name string, args ...any) (any, error) {
	act, ok := w.actions[name]
	if !ok {
		return nil, &UnknownActionError{Action: name}
	}
	return act(args)
}

// Editor returns the embedded editor.
func (w *Widget) Editor() (editor.Editor, error) {
	if w.state != StateAttached {
		return nil, ErrDestroyed
	}
	return w.editor, nil
}

// Text returns the editor's current text.
func (w *Widget) Text() (string, error) {
	if w.state != StateAttached {
		return "", ErrDestroyed
	}
	return w.editor.Value(), nil
}

// SetText replaces the editor's text.
func (w *Widget) SetText(text string) (*Widget, error) {
	if w.state != StateAttached {
		return nil, ErrDestroyed
	}
	w.editor.SetValue(text)
	return w, nil
}

// Runnable reports whether the widget may be run: the runnable option was
// set and running has not been disabled with SetRunnable(false).
func (w *Widget) Runnable() (bool, error) {
	if w.state != StateAttached {
		return false, ErrDestroyed
	}
	return w.options.Runnable && w.enabled, nil
}

// SetRunnable enables or disables the run button. A disabled button carries
// the "disabled" class and ignores clicks.
func (w *Widget) SetRunnable(on bool) (*Widget, error) {
	if w.state != StateAttached {
		return nil, ErrDestroyed
	}
	w.enabled = on
	if w.runButton != nil {
		w.runButton.ToggleClass(ClassDisabled, !on)
	}
	return w, nil
}

// Editable reports whether the editor accepts edits.
func (w *Widget) Editable() (bool, error) {
	if w.state != StateAttached {
		return false, ErrDestroyed
	}
	return !w.editor.ReadOnly(), nil
}

// SetEditable toggles the editor's read-only state.
func (w *Widget) SetEditable(on bool) (*Widget, error) {
	if w.state != StateAttached {
		return nil, ErrDestroyed
	}
	w.editor.SetReadOnly(!on)
	return w, nil
}

func boolArg(name string, v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, fmt.Errorf("%w: %s wants a boolean, got %q", ErrBadArgument, name, b)
		}
		return parsed, nil
	default:
		return false, fmt.Errorf("%w: %s wants a boolean, got %T", ErrBadArgument, name, v)
	}
}
