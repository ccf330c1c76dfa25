package securelog

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = zerolog.Nop()
)

// SetLogger routes Error output to log.
func SetLogger(log zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = log
}

// Error logs an error without including user-provided data such as message
// text or file paths. It records the caller location and error type chain.
func Error(context string, err error) {
	if err == nil {
		return
	}
	mu.RLock()
	log := logger
	mu.RUnlock()

	ev := log.Error().
		Str("at", callerLocation(2)).
		Str("types", strings.Join(errorTypes(err), "->"))
	if context != "" {
		ev = ev.Str("context", context)
	}
	ev.Msg("error")
}

func callerLocation(skip int) string {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	fn := runtime.FuncForPC(pc)
	name := "unknown"
	if fn != nil {
		name = fn.Name()
	}
	return fmt.Sprintf("%s:%d %s", file, line, name)
}

// errorTypes walks the wrap tree depth first, following joined errors too.
func errorTypes(err error) []string {
	types := []string{}
	seen := map[string]struct{}{}
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		name := fmt.Sprintf("%T", err)
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			types = append(types, name)
		}
		switch u := err.(type) {
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		}
	}
	walk(err)
	return types
}
