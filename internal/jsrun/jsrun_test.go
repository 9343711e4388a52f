package jsrun

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/jsblock/internal/cache"
)

type recorder struct {
	lines []string
}

func (r *recorder) Log(s string)   { r.lines = append(r.lines, "log:"+s) }
func (r *recorder) Warn(s string)  { r.lines = append(r.lines, "warn:"+s) }
func (r *recorder) Error(s string) { r.lines = append(r.lines, "error:"+s) }

func TestRunConsoleOutput(t *testing.T) {
	out := &recorder{}
	r := New()

	err := r.Run(context.Background(), `
		console.log("a", 1);
		console.warn("careful");
		console.error("bad", true);
	`, out)
	require.NoError(t, err)
	assert.Equal(t, []string{"log:a 1", "warn:careful", "error:bad true"}, out.lines)
	assert.EqualValues(t, 1, r.Runs())
}

func TestRunConsoleJoinsArguments(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "verb is not a format", src: `console.log("%d items", 5)`, want: "log:%d items 5"},
		{name: "percent kept", src: `console.log("50%", "done")`, want: "log:50% done"},
		{name: "missing verb argument", src: `console.log("%s-%s", "a")`, want: "log:%s-%s a"},
		{name: "undefined and null are empty", src: `console.log("a", undefined, null)`, want: "log:a  "},
		{name: "no arguments", src: `console.log()`, want: "log:"},
		{name: "object", src: `console.info({})`, want: "log:[object Object]"},
		{name: "array", src: `console.debug([1, 2], "x")`, want: "log:1,2 x"},
		{name: "warn", src: `console.warn("%o", 1)`, want: "warn:%o 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &recorder{}
			require.NoError(t, New().Run(context.Background(), tt.src, out))
			assert.Equal(t, []string{tt.want}, out.lines)
		})
	}
}

func TestRunUtilFormatAvailable(t *testing.T) {
	out := &recorder{}
	err := New().Run(context.Background(), `console.log(require("util").format("%d items", 5))`, out)
	require.NoError(t, err)
	assert.Equal(t, []string{"log:5 items"}, out.lines)
}

func TestRunIsolatesRuntimes(t *testing.T) {
	out := &recorder{}
	r := New()

	require.NoError(t, r.Run(context.Background(), `var leaked = 42;`, out))
	err := r.Run(context.Background(), `console.log(typeof leaked);`, out)
	require.NoError(t, err)
	assert.Equal(t, []string{"log:undefined"}, out.lines)
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "error object", src: `throw new Error("boom")`, want: "boom"},
		{name: "reference error", src: `missing()`, want: "missing is not defined"},
		{name: "thrown string", src: `throw "plain"`, want: "plain"},
		{name: "thrown number", src: `throw 7`, want: "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New().Run(context.Background(), tt.src, &recorder{})
			require.Error(t, err)
			assert.Equal(t, tt.want, Message(err))
		})
	}
}

func TestMessagePlainError(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "other", Message(errors.New("other")))
}

func TestSyntaxError(t *testing.T) {
	err := New().Run(context.Background(), `function (`, &recorder{})
	require.Error(t, err)
	assert.NotEmpty(t, Message(err))
}

func TestRunInterruptedByContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := New().Run(ctx, `for (;;) {}`, &recorder{})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Contains(t, Message(err), "interrupted")
	assert.Contains(t, Message(err), context.DeadlineExceeded.Error())
}

func TestRunProgramCache(t *testing.T) {
	programs := cache.NewMemoryCache[*goja.Program]()
	r := New(WithProgramCache(programs, time.Minute))

	for i := 0; i < 3; i++ {
		out := &recorder{}
		require.NoError(t, r.Run(context.Background(), `console.log("cached")`, out))
		assert.Equal(t, []string{"log:cached"}, out.lines)
	}
	require.NoError(t, r.Run(context.Background(), `console.log("other")`, &recorder{}))

	assert.EqualValues(t, 4, r.Runs())
	assert.EqualValues(t, 2, r.Compiles())
	assert.Equal(t, 2, programs.Len())

	// runners sharing the cache share compiled programs
	other := New(WithProgramCache(programs, time.Minute))
	require.NoError(t, other.Run(context.Background(), `console.log("cached")`, &recorder{}))
	assert.EqualValues(t, 0, other.Compiles())
}

func TestRunWithoutCacheCompilesEveryTime(t *testing.T) {
	r := New()
	for i := 0; i < 2; i++ {
		require.NoError(t, r.Run(context.Background(), `1 + 1`, &recorder{}))
	}
	assert.EqualValues(t, 2, r.Compiles())
}

func TestSyntaxErrorNotCached(t *testing.T) {
	programs := cache.NewMemoryCache[*goja.Program]()
	r := New(WithProgramCache(programs, time.Minute))

	require.Error(t, r.Run(context.Background(), `function (`, &recorder{}))
	assert.Equal(t, 0, programs.Len())
}
