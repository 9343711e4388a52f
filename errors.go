package jsblock

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrDestroyed is returned by every operation on a destroyed widget.
var ErrDestroyed = errors.New("jsblock: widget has been destroyed")

// ErrBadArgument is returned when an action or option gets a value of the
// wrong type.
var ErrBadArgument = errors.New("jsblock: bad argument")

// UnknownActionError is returned by Invoke for an action name that is not
// in the widget's action table.
type UnknownActionError struct {
	Action string
}

func (e *UnknownActionError) Error() string {
	return "codeblock has no method " + e.Action
}

// ScriptError wraps an error raised by executed code with the message that
// is shown in the console.
type ScriptError struct {
	Message string
	Err     error
}

func (e *ScriptError) Error() string { return e.Message }

func (e *ScriptError) Unwrap() error { return e.Err }

// errorMessage is the text rendered after "Error:" for a failed run.
func errorMessage(err error) string {
	var se *ScriptError
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}

// ParseError is a markdown page parsing error with source context.
type ParseError struct {
	File    string // Source file path
	Line    int    // Line number (1-indexed)
	Column  int    // Column number (1-indexed, optional)
	Message string
	Hint    string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return e.Format()
}

// Format returns the message with the offending source lines, when the file
// can be read.
func (e *ParseError) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d: %s\n", e.File, e.Line, e.Message)
	b.WriteString(e.sourceContext())
	if e.Hint != "" {
		fmt.Fprintf(&b, "hint: %s\n", e.Hint)
	}
	return b.String()
}

// sourceContext shows the error line with one line on either side.
func (e *ParseError) sourceContext() string {
	if e.File == "" {
		return ""
	}
	f, err := os.Open(e.File)
	if err != nil {
		return ""
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if e.Line < 1 || e.Line > len(lines) {
		return ""
	}

	var b strings.Builder
	for i := max(1, e.Line-1); i <= min(len(lines), e.Line+1); i++ {
		prefix := fmt.Sprintf("  %3d | ", i)
		b.WriteString(prefix + lines[i-1] + "\n")
		if i == e.Line && e.Column > 0 {
			b.WriteString(strings.Repeat(" ", len(prefix)+e.Column-1) + "^\n")
		}
	}
	return b.String()
}

// NewParseError creates a ParseError.
func NewParseError(file string, line int, message string) *ParseError {
	return &ParseError{File: file, Line: line, Message: message}
}

// WithColumn adds column information to the error.
func (e *ParseError) WithColumn(col int) *ParseError {
	e.Column = col
	return e
}

// WithHint adds a suggestion to the error.
func (e *ParseError) WithHint(hint string) *ParseError {
	e.Hint = hint
	return e
}
