// Package jsrun executes user supplied JavaScript with goja.
//
// Every Run gets a fresh runtime with a global "console" whose log, info,
// debug, warn and error functions join their arguments with a single space
// and hand the line to the caller's Printer. No printf style formatting is
// applied; scripts that want it can call require("util").format.
package jsrun

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
	_ "github.com/dop251/goja_nodejs/util"

	"github.com/livetemplate/jsblock/internal/cache"
)

// scriptName is the file name compiled scripts report in stack traces.
const scriptName = "jsblock.js"

// Printer receives formatted console output. console.log, info and debug go
// to Log; warn to Warn; error to Error.
type Printer interface {
	Log(string)
	Warn(string)
	Error(string)
}

// Runner runs scripts. The zero value is ready to use.
type Runner struct {
	runs     atomic.Int64
	compiles atomic.Int64
	programs *cache.MemoryCache[*goja.Program]
	ttl      time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithProgramCache keeps compiled scripts in programs for ttl, so the same
// source run again (by another session, say) is not recompiled.
func WithProgramCache(programs *cache.MemoryCache[*goja.Program], ttl time.Duration) Option {
	return func(r *Runner) {
		r.programs = programs
		r.ttl = ttl
	}
}

// New returns a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Compiles returns how many scripts the runner has compiled.
func (r *Runner) Compiles() int64 {
	return r.compiles.Load()
}

func (r *Runner) compile(src string) (*goja.Program, error) {
	if r.programs == nil {
		r.compiles.Add(1)
		return goja.Compile(scriptName, src, false)
	}

	sum := sha256.Sum256([]byte(src))
	key := hex.EncodeToString(sum[:])
	if prog, ok := r.programs.Get(key); ok {
		return prog, nil
	}
	r.compiles.Add(1)
	prog, err := goja.Compile(scriptName, src, false)
	if err != nil {
		return nil, err
	}
	r.programs.Set(key, prog, r.ttl)
	return prog, nil
}

// Runs returns how many scripts the runner has started.
func (r *Runner) Runs() int64 {
	return r.runs.Load()
}

// Run executes src. Cancelling ctx interrupts the script; the returned error
// is then a *goja.InterruptedError wrapping ctx.Err(). Exceptions thrown by
// the script are returned as *goja.Exception.
func (r *Runner) Run(ctx context.Context, src string, out Printer) error {
	r.runs.Add(1)

	prog, err := r.compile(src)
	if err != nil {
		return err
	}

	vm := goja.New()
	require.NewRegistry().Enable(vm)
	if err := vm.Set("console", newConsole(vm, out)); err != nil {
		return err
	}

	if ctx.Done() != nil {
		stop := context.AfterFunc(ctx, func() {
			vm.Interrupt(ctx.Err())
		})
		defer stop()
	}

	_, err = vm.RunProgram(prog)
	return err
}

// newConsole builds the console object for one runtime. Undefined and null
// arguments print as empty strings, the way Array.prototype.join treats them.
func newConsole(vm *goja.Runtime, out Printer) *goja.Object {
	line := func(print func(string)) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				if goja.IsUndefined(arg) || goja.IsNull(arg) {
					continue
				}
				parts[i] = arg.String()
			}
			print(strings.Join(parts, " "))
			return goja.Undefined()
		}
	}

	obj := vm.NewObject()
	_ = obj.Set("log", line(out.Log))
	_ = obj.Set("info", line(out.Log))
	_ = obj.Set("debug", line(out.Log))
	_ = obj.Set("warn", line(out.Warn))
	_ = obj.Set("error", line(out.Error))
	return obj
}

// Message extracts a human readable message from a Run error. For thrown
// Error objects it is the message property; for other thrown values it is
// their string form.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var exc *goja.Exception
	if errors.As(err, &exc) {
		v := exc.Value()
		if obj, ok := v.(*goja.Object); ok {
			if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) && !goja.IsNull(msg) {
				return msg.String()
			}
		}
		if v != nil {
			return v.String()
		}
		return exc.Error()
	}

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok {
			return fmt.Sprintf("interrupted: %v", cause)
		}
		return fmt.Sprintf("interrupted: %v", interrupted.Value())
	}

	return err.Error()
}
