package jsblock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/livetemplate/jsblock/internal/jsrun"
	"github.com/livetemplate/jsblock/pkg/dom"
	"github.com/livetemplate/jsblock/pkg/editor"
)

// Executor runs widget code, sending console output to out.
type Executor interface {
	Execute(ctx context.Context, src string, out Output) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, src string, out Output) error

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, src string, out Output) error {
	return f(ctx, src, out)
}

// scriptExecutor runs code with goja, exposing out as the global console.
type scriptExecutor struct {
	runner *jsrun.Runner
}

func (e scriptExecutor) Execute(ctx context.Context, src string, out Output) error {
	if err := e.runner.Run(ctx, src, out); err != nil {
		return &ScriptError{Message: jsrun.Message(err), Err: err}
	}
	return nil
}

// Registry associates elements with their widgets. Both the original element
// and the editable surface of a widget map to it until it is destroyed.
type Registry struct {
	mu        sync.RWMutex
	widgets   map[*dom.Element]*Widget
	newEditor editor.Factory
	executor  Executor
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithEditorFactory sets how editors are attached. The default is
// editor.Attach.
func WithEditorFactory(f editor.Factory) RegistryOption {
	return func(r *Registry) {
		r.newEditor = f
	}
}

// WithExecutor sets what runs widget code. The default runs JavaScript with
// goja.
func WithExecutor(e Executor) RegistryOption {
	return func(r *Registry) {
		r.executor = e
	}
}

// WithRunner runs widget code with r, letting registries share one runner
// and its compiled program cache.
func WithRunner(r *jsrun.Runner) RegistryOption {
	return func(reg *Registry) {
		reg.executor = scriptExecutor{runner: r}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		widgets:   make(map[*dom.Element]*Widget),
		newEditor: editor.Attach,
		executor:  scriptExecutor{runner: jsrun.New()},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the registry used by the package level functions.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Lookup returns the widget associated with el (its original element or
// editable surface), if any.
func (r *Registry) Lookup(el *dom.Element) (*Widget, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.widgets[el]
	return w, ok
}

// Len returns the number of live widgets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for el, w := range r.widgets {
		if el == w.original {
			n++
		}
	}
	return n
}

func (r *Registry) add(w *Widget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.widgets[w.original] = w
	r.widgets[w.base] = w
}

func (r *Registry) forget(w *Widget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.widgets[w.original] == w {
		delete(r.widgets, w.original)
	}
	if r.widgets[w.base] == w {
		delete(r.widgets, w.base)
	}
}

// Attach creates a widget for every element that has none, configured by
// opts (nil means DefaultOptions). Empty string fields of opts take their
// defaults; bool fields are used as given, see Options. Elements that already
// have a widget are left untouched. The returned slice holds the widget of
// each element that has one after the call, in selection order.
//
// Attaching continues past failing elements; their errors are joined.
func (r *Registry) Attach(elems []*dom.Element, opts *Options) ([]*Widget, error) {
	o := DefaultOptions()
	if opts != nil {
		o = opts.withDefaults()
	}

	var (
		widgets []*Widget
		errs    []error
	)
	for _, el := range elems {
		if el == nil {
			continue
		}
		if w, ok := r.Lookup(el); ok {
			widgets = append(widgets, w)
			continue
		}
		w, err := newWidget(r, el, o)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		r.add(w)
		widgets = append(widgets, w)
	}
	return widgets, errors.Join(errs...)
}

// Result is what Invoke returns. Getter calls (editor, and runnable, editable
// or text without arguments) set IsValue and carry Value; every other call
// returns the selection for chaining.
type Result struct {
	Value     any
	Selection []*dom.Element
	IsValue   bool
}

// Text returns Value as a string, or "" when it is not one.
func (r Result) Text() string {
	s, _ := r.Value.(string)
	return s
}

// Bool returns Value as a bool, or false when it is not one.
func (r Result) Bool() bool {
	b, _ := r.Value.(bool)
	return b
}

// Invoke runs action on the widget of every element that has one, in
// selection order. Elements without a widget are skipped. An action missing
// from a widget's action table fails with *UnknownActionError; an action
// error stops the call and is returned.
//
// The editor action, and runnable or editable without arguments, return the
// first collected result. text without arguments returns the collected texts
// joined with ",". Everything else returns the selection.
func (r *Registry) Invoke(elems []*dom.Element, name string, args ...any) (Result, error) {
	var results []any
	for _, el := range elems {
		if el == nil {
			continue
		}
		w, ok := r.Lookup(el)
		if !ok {
			continue
		}
		act, ok := w.actions[name]
		if !ok {
			return Result{}, &UnknownActionError{Action: name}
		}
		res, err := act(args)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", name, err)
		}
		if res != nil {
			results = append(results, res)
		}
	}

	switch {
	case name == ActionEditor || (len(args) == 0 && (name == ActionRunnable || name == ActionEditable)):
		var first any
		if len(results) > 0 {
			first = results[0]
		}
		return Result{Value: first, IsValue: true}, nil
	case name == ActionText && len(args) == 0:
		texts := make([]string, 0, len(results))
		for _, res := range results {
			texts = append(texts, fmt.Sprint(res))
		}
		return Result{Value: strings.Join(texts, ","), IsValue: true}, nil
	default:
		return Result{Selection: elems}, nil
	}
}

// Dispatch keeps the single entry point convention: no arguments, or one
// Options, *Options or map[string]any argument, attaches; otherwise the
// first argument names the action to invoke with the rest.
func (r *Registry) Dispatch(elems []*dom.Element, args ...any) (Result, error) {
	if len(args) <= 1 {
		opts, ok, err := optionsArg(args)
		if err != nil {
			return Result{}, err
		}
		if ok {
			_, err := r.Attach(elems, opts)
			return Result{Selection: elems}, err
		}
	}

	name, ok := args[0].(string)
	if !ok {
		return Result{}, fmt.Errorf("%w: dispatch wants options or an action name, got %T", ErrBadArgument, args[0])
	}
	return r.Invoke(elems, name, args[1:]...)
}

// optionsArg reports whether args select construct mode and returns the
// options to attach with.
func optionsArg(args []any) (*Options, bool, error) {
	if len(args) == 0 {
		return nil, true, nil
	}
	switch v := args[0].(type) {
	case Options:
		return &v, true, nil
	case *Options:
		return v, true, nil
	case map[string]any:
		o, err := MergeOptions(DefaultOptions(), v)
		if err != nil {
			return nil, false, err
		}
		return &o, true, nil
	case nil:
		return nil, true, nil
	default:
		return nil, false, nil
	}
}

// Attach attaches widgets using the default registry.
func Attach(elems []*dom.Element, opts *Options) ([]*Widget, error) {
	return defaultRegistry.Attach(elems, opts)
}

// Invoke runs an action using the default registry.
func Invoke(elems []*dom.Element, name string, args ...any) (Result, error) {
	return defaultRegistry.Invoke(elems, name, args...)
}

// Dispatch uses the default registry.
func Dispatch(elems []*dom.Element, args ...any) (Result, error) {
	return defaultRegistry.Dispatch(elems, args...)
}

// Lookup finds a widget in the default registry.
func Lookup(el *dom.Element) (*Widget, bool) {
	return defaultRegistry.Lookup(el)
}
