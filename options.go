package jsblock

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/livetemplate/jsblock/pkg/dom"
)

// Options configures a widget.
//
// A struct is a complete configuration for the flags: a false bool turns
// that feature off. Empty string fields fall back to DefaultOptions. To
// change a few settings and keep every other default, start from
// DefaultOptions or pass a map through MergeOptions (Dispatch does this).
type Options struct {
	Editable       bool   `yaml:"editable" json:"editable"`
	Console        bool   `yaml:"console" json:"console"`
	ConsoleText    string `yaml:"console_text" json:"consoleText"`
	ConsoleClass   string `yaml:"console_class" json:"consoleClass"`
	RunButtonText  string `yaml:"run_button_text" json:"runButtonText"`
	RunButtonClass string `yaml:"run_button_class" json:"runButtonClass"`
	Resetable      bool   `yaml:"resetable" json:"resetable"`
	Runnable       bool   `yaml:"runnable" json:"runnable"`
	EditorTheme    string `yaml:"editor_theme" json:"editorTheme"`
	LineNumbers    bool   `yaml:"line_numbers" json:"lineNumbers"`
	RunTimeout     string `yaml:"run_timeout,omitempty" json:"runTimeout,omitempty"` // e.g. "2s"; empty means no limit
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Editable:       true,
		Console:        true,
		ConsoleText:    "Output from the example appears here",
		ConsoleClass:   "jsblock-console-text",
		RunButtonText:  "run",
		RunButtonClass: "jsblock-console-run",
		Resetable:      true,
		Runnable:       true,
		EditorTheme:    "ace/theme/dawn",
		LineNumbers:    true,
	}
}

// withDefaults fills empty string fields from DefaultOptions.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	for _, f := range []struct {
		dst *string
		src string
	}{
		{&o.ConsoleText, def.ConsoleText},
		{&o.ConsoleClass, def.ConsoleClass},
		{&o.RunButtonText, def.RunButtonText},
		{&o.RunButtonClass, def.RunButtonClass},
		{&o.EditorTheme, def.EditorTheme},
	} {
		if *f.dst == "" {
			*f.dst = f.src
		}
	}
	return o
}

// GetRunTimeout returns the parsed run timeout (0 = no limit).
func (o Options) GetRunTimeout() time.Duration {
	if o.RunTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(o.RunTimeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// optionKeys lists the recognised option names in their data attribute form.
var optionKeys = []string{
	"editable", "console", "console-text", "console-class",
	"run-button-text", "run-button-class", "resetable", "runnable",
	"editor-theme", "line-numbers", "run-timeout",
}

// MergeOptions applies overrides on top of base. Keys may be written in
// camelCase ("consoleText"), snake_case or kebab-case; unknown keys are
// ignored. Boolean options accept bools or strings understood by
// strconv.ParseBool.
func MergeOptions(base Options, overrides map[string]any) (Options, error) {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	o := base
	for _, key := range keys {
		val := overrides[key]
		name := "option " + strconv.Quote(key)
		var err error
		switch normalizeKey(key) {
		case "editable":
			o.Editable, err = boolArg(name, val)
		case "console":
			o.Console, err = boolArg(name, val)
		case "consoletext":
			o.ConsoleText, err = toString(name, val)
		case "consoleclass":
			o.ConsoleClass, err = toString(name, val)
		case "runbuttontext":
			o.RunButtonText, err = toString(name, val)
		case "runbuttonclass":
			o.RunButtonClass, err = toString(name, val)
		case "resetable":
			o.Resetable, err = boolArg(name, val)
		case "runnable":
			o.Runnable, err = boolArg(name, val)
		case "editortheme":
			o.EditorTheme, err = toString(name, val)
		case "linenumbers":
			o.LineNumbers, err = boolArg(name, val)
		case "runtimeout":
			o.RunTimeout, err = toString(name, val)
			if err == nil && o.RunTimeout != "" {
				if _, perr := time.ParseDuration(o.RunTimeout); perr != nil {
					err = fmt.Errorf("%w: %s: %v", ErrBadArgument, name, perr)
				}
			}
		}
		if err != nil {
			return base, err
		}
	}
	return o, nil
}

// OptionsFromElement merges the data-* attributes of el (data-editable,
// data-console-text, ...) over base.
func OptionsFromElement(el *dom.Element, base Options) (Options, error) {
	overrides := make(map[string]any)
	for _, key := range optionKeys {
		if v, ok := el.Attr("data-" + key); ok {
			overrides[key] = v
		}
	}
	return MergeOptions(base, overrides)
}

// DataAttributes returns the data-* attributes that encode o relative to
// base, so OptionsFromElement(el, base) yields o again.
func (o Options) DataAttributes(base Options) map[string]string {
	attrs := make(map[string]string)
	set := func(key string, v, def any) {
		if v != def {
			attrs["data-"+key] = fmt.Sprint(v)
		}
	}
	set("editable", o.Editable, base.Editable)
	set("console", o.Console, base.Console)
	set("console-text", o.ConsoleText, base.ConsoleText)
	set("console-class", o.ConsoleClass, base.ConsoleClass)
	set("run-button-text", o.RunButtonText, base.RunButtonText)
	set("run-button-class", o.RunButtonClass, base.RunButtonClass)
	set("resetable", o.Resetable, base.Resetable)
	set("runnable", o.Runnable, base.Runnable)
	set("editor-theme", o.EditorTheme, base.EditorTheme)
	set("line-numbers", o.LineNumbers, base.LineNumbers)
	set("run-timeout", o.RunTimeout, base.RunTimeout)
	return attrs
}

func normalizeKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "_", "")
	return strings.ReplaceAll(key, "-", "")
}

func toString(name string, v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	case nil:
		return "", fmt.Errorf("%w: %s wants a string, got nil", ErrBadArgument, name)
	default:
		return fmt.Sprint(v), nil
	}
}
