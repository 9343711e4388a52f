// Package jsblock turns a static markup element into an interactive, editable
// code block: an embedded editor, an optional "run" trigger that executes the
// code and captures its console output into an on-page console, and an
// optional "reset" trigger that restores the original text.
//
// Widgets are attached to elements of a dom.Document through a Registry:
//
//	doc, _ := dom.ParseBody(`<pre class="example">console.log("hi")</pre>`)
//	blocks, _ := doc.Query("pre.example")
//	widgets, err := jsblock.Attach(blocks, nil)
//	...
//	res, err := jsblock.Invoke(blocks, "run")
//
// A Document and the widgets attached to it are not safe for concurrent use;
// drive them from one goroutine at a time.
package jsblock

// Class names applied to the scaffolding.
const (
	ClassContainer     = "jsblock-container"
	ClassEditorWrapper = "jsblock-editor-wrapper"
	ClassEditor        = "jsblock-editor"
	ClassConsole       = "jsblock-console"
	ClassReset         = "jsblock-reset"
	ClassPlaceholder   = "placeholder"
	ClassDisabled      = "disabled"
)

// Events triggered on both the editable surface and the original element.
const (
	// EventRun fires before the code is executed. No arguments.
	EventRun = "jsblock.run"
	// EventConsole fires for every console line. The only argument is the text.
	EventConsole = "jsblock.console"
	// EventReset fires before the editor is restored. No arguments.
	EventReset = "jsblock.reset"
)

const (
	editorMode     = "ace/mode/javascript"
	editorIDPrefix = "jsblock-editor-"
	// consoleInset is how much narrower the console is than the container.
	consoleInset = 70
	// heightFactor scales the original element's height for the editor.
	heightFactor = 1.1
)
