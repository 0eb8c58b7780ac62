package script

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/livedoc/internal/engine/content"
	"github.com/dshills/livedoc/internal/engine/model"
	"github.com/dshills/livedoc/internal/event"
)

// Default limits for a script run.
const (
	DefaultTimeout   = 5 * time.Second
	DefaultCallLimit = 100_000
)

// State runs Lua scripts against one model.
//
// A State is not goroutine-safe in the Lua sense: gopher-lua executes on
// the calling goroutine. The mutex only keeps concurrent Run calls from
// interleaving.
type State struct {
	L *lua.LState

	mu sync.Mutex

	model  *model.Model
	logger *slog.Logger
	out    io.Writer

	timeout   time.Duration
	callLimit int
	calls     int
	limitHit  bool

	// lastErr is the most recent error raised by a doc binding.
	lastErr error

	unit           content.Unit
	wordBoundaries string

	subs   []event.Subscription
	closed bool
}

// Option configures a State.
type Option func(*State)

// WithTimeout bounds each Run. Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *State) {
		s.timeout = d
	}
}

// WithCallLimit caps the doc module calls of each Run. Zero disables the cap.
func WithCallLimit(n int) Option {
	return func(s *State) {
		s.callLimit = n
	}
}

// WithLogger sets the logger used by doc.log and for callback failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *State) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithOutput redirects print.
func WithOutput(w io.Writer) Option {
	return func(s *State) {
		s.out = w
	}
}

// WithEditing sets the defaults for doc.modify.
func WithEditing(unit content.Unit, wordBoundaries string) Option {
	return func(s *State) {
		if unit != "" {
			s.unit = unit
		}
		if wordBoundaries != "" {
			s.wordBoundaries = wordBoundaries
		}
	}
}

// New creates a sandboxed Lua state bound to m. Scripts see m through the
// global doc table, also available as require("livedoc").
func New(m *model.Model, opts ...Option) *State {
	s := &State{
		model:          m,
		logger:         m.Logger(),
		out:            os.Stdout,
		timeout:        DefaultTimeout,
		callLimit:      DefaultCallLimit,
		unit:           content.UnitCharacter,
		wordBoundaries: content.DefaultWordBoundaries,
	}
	for _, opt := range opts {
		opt(s)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	s.L = L
	openSafeLibraries(L)
	s.installPrint()

	mod := L.SetFuncs(L.NewTable(), s.docFunctions())
	L.SetGlobal("doc", mod)
	L.PreloadModule("livedoc", func(L *lua.LState) int {
		L.Push(mod)
		return 1
	})

	return s
}

// openSafeLibraries opens the libraries scripts may use. io, os and debug
// are left out, as are the loaders that read files.
func openSafeLibraries(L *lua.LState) {
	lua.OpenPackage(L)
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
	if pkg, ok := L.GetGlobal("package").(*lua.LTable); ok {
		L.SetField(pkg, "path", lua.LString(""))
		L.SetField(pkg, "cpath", lua.LString(""))
	}
}

func (s *State) installPrint() {
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, n)
		for i := 1; i <= n; i++ {
			parts[i-1] = L.ToStringMeta(L.Get(i)).String()
		}
		fmt.Fprintln(s.out, strings.Join(parts, "\t"))
		return 0
	}))
}

// Run executes source. name identifies the chunk in error messages.
func (s *State) Run(ctx context.Context, name, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	fn, err := s.L.Load(strings.NewReader(source), name)
	if err != nil {
		return fmt.Errorf("script %s: %w", name, err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	s.calls = 0
	s.limitHit = false
	s.lastErr = nil

	s.L.Push(fn)
	err = s.L.PCall(0, lua.MultRet, nil)
	s.L.SetTop(0)
	if err == nil {
		return nil
	}

	switch {
	case s.limitHit:
		return fmt.Errorf("script %s: %w", name, ErrCallLimit)
	case ctx.Err() != nil:
		return fmt.Errorf("script %s: %w: %w", name, ErrExecutionTimeout, ctx.Err())
	case s.lastErr != nil && strings.Contains(err.Error(), s.lastErr.Error()):
		return fmt.Errorf("script %s: %w", name, s.lastErr)
	}
	return fmt.Errorf("script %s: %w", name, err)
}

// RunFile executes the script at path.
func (s *State) RunFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading script %s: %w", path, err)
	}
	return s.Run(ctx, path, string(data))
}

// Calls returns the number of doc module calls made by the last Run.
func (s *State) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Close releases the Lua state and drops the listeners scripts registered
// on the model.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	for _, sub := range s.subs {
		sub.Cancel()
	}
	s.subs = nil
	s.L.Close()
	s.closed = true
	return nil
}

// enter counts a doc module call and raises a Lua error past the limit.
func (s *State) enter(L *lua.LState) {
	s.calls++
	if s.callLimit > 0 && s.calls > s.callLimit {
		s.limitHit = true
		L.RaiseError("%s", ErrCallLimit.Error())
	}
}

// fail raises err as a Lua error and remembers it so Run can return it
// unflattened.
func (s *State) fail(L *lua.LState, err error) int {
	s.lastErr = err
	L.RaiseError("%s", err.Error())
	return 0
}
