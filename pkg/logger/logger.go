// Package logger holds the process-wide zerolog logger. main builds it once
// with Init; subsystems take a tagged child with Component.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Options describes the root logger.
type Options struct {
	// Level accepts any zerolog level name plus "warning". Unknown or empty
	// values fall back to info.
	Level string
	// Pretty switches to coloured console output for local runs.
	Pretty bool
	// Output defaults to os.Stdout.
	Output io.Writer
	// Service and Env are stamped on every entry when set.
	Service string
	Env     string
}

var (
	root atomic.Pointer[zerolog.Logger]
	once sync.Once
)

// Init builds the root logger from opts. Only the first call configures it;
// later calls return the logger already in place.
func Init(opts Options) zerolog.Logger {
	once.Do(func() {
		l := build(opts)
		root.Store(&l)
	})
	return *root.Load()
}

func build(opts Options) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	lvl := ParseLevel(opts.Level)
	zerolog.SetGlobalLevel(lvl)

	ctx := zerolog.New(out).Level(lvl).With().Timestamp().Caller()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	if opts.Env != "" {
		ctx = ctx.Str("env", opts.Env)
	}
	return ctx.Logger()
}

// Get returns the root logger. It panics when Init has not run.
func Get() zerolog.Logger {
	l := root.Load()
	if l == nil {
		panic("logger: Get() called before Init()")
	}
	return *l
}

// Component returns a child of the root logger tagged with name, so entries
// from the HTTP layer, the auth use cases and the login workers can be told
// apart.
func Component(name string) zerolog.Logger {
	l := Get()
	return l.With().Str("component", name).Logger()
}

// Reset drops the root logger so tests can call Init again.
func Reset() {
	once = sync.Once{}
	root.Store(nil)
}

// ParseLevel maps a level name onto zerolog, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		return zerolog.WarnLevel
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || s == "" || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
