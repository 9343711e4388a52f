package jsblock

import "context"

// Output receives console lines from executed code.
type Output interface {
	Log(string)
	Warn(string)
	Error(string)
}

// capture renders console lines into the widget's console and announces
// each one with EventConsole.
type capture struct {
	w *Widget
}

func (c capture) Log(text string) {
	w := c.w
	if w.state != StateAttached {
		return
	}
	if w.console != nil {
		w.console.AppendText(text).Append(w.doc.CreateElement("br"))
	}
	w.base.Trigger(EventConsole, text)
	w.original.Trigger(EventConsole, text)
}

func (c capture) Warn(text string)  { c.Log(text) }
func (c capture) Error(text string) { c.Log(text) }

// Run executes the editor's current text. See RunContext.
func (w *Widget) Run() (*Widget, error) {
	return w.RunContext(context.Background())
}

// RunContext fires EventRun, clears the console and executes the editor's
// current text with console output captured into the console. A script that
// throws is reported in the console as "Error: <message>"; the failure is
// not returned. The only error is ErrDestroyed.
//
// When the widget has a run timeout the script is interrupted after it.
func (w *Widget) RunContext(ctx context.Context) (*Widget, error) {
	if w.state != StateAttached {
		return nil, ErrDestroyed
	}

	w.base.Trigger(EventRun)
	w.original.Trigger(EventRun)
	if w.state != StateAttached {
		// a listener destroyed the widget
		return nil, ErrDestroyed
	}

	src := w.editor.Value()
	if w.console != nil {
		w.console.SetText("")
		w.console.RemoveClass(ClassPlaceholder)
	}

	if d := w.options.GetRunTimeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	out := capture{w: w}
	if err := w.registry.executor.Execute(ctx, src, out); err != nil {
		out.Log("Error: " + errorMessage(err))
	}
	return w, nil
}

// Reset fires EventReset, restores the editor to the text captured at attach
// time with the cursor at the start and puts the console placeholder back.
func (w *Widget) Reset() (*Widget, error) {
	if w.state != StateAttached {
		return nil, ErrDestroyed
	}

	w.base.Trigger(EventReset)
	w.original.Trigger(EventReset)
	if w.state != StateAttached {
		return nil, ErrDestroyed
	}

	w.editor.SetValue(w.originalText)
	w.editor.ClearSelection()
	w.editor.NavigateFileStart()
	if w.console != nil {
		w.console.SetText(w.options.ConsoleText)
		w.console.AddClass(ClassPlaceholder)
	}
	return w, nil
}
