// Package starhook loads a user-supplied Starlark naming hook and adapts
// it to the naming.Hook interface.
//
// The hook file must define a function `rename(kind, name)`. Returning a
// string overrides the exported name; returning None falls through to the
// built-in prefix stripping.
package starhook

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"go.starlark.net/starlark"

	"github.com/leapstack-labs/luadecl/internal/naming"
	"github.com/leapstack-labs/luadecl/pkg/decl"
)

// LoadError represents a failure to load or execute the hook file.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("naming hook %s: %s", e.File, e.Message)
}

// Load executes a Starlark hook file once and returns a naming.Hook bound
// to its rename function. Hook invocations are serialized; Starlark
// threads are not safe for concurrent calls.
func Load(path string, logger *slog.Logger) (naming.Hook, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("failed to read file: %v", err)}
	}

	thread := &starlark.Thread{
		Name: "naming-hook",
		Print: func(_ *starlark.Thread, _ string) {
			// Ignore prints during hook loading
		},
	}

	globals, err := starlark.ExecFile(thread, path, content, nil) //nolint:staticcheck // SA1019: will migrate to ExecFileOptions later
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("Starlark execution error: %v", err)}
	}

	fn, ok := globals["rename"]
	if !ok {
		return nil, &LoadError{File: path, Message: "hook must define a rename(kind, name) function"}
	}
	callable, ok := fn.(starlark.Callable)
	if !ok {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("rename is %s, not a function", fn.Type())}
	}

	var mu sync.Mutex
	hook := func(kind decl.Kind, rawName string) (string, bool) {
		mu.Lock()
		defer mu.Unlock()

		args := starlark.Tuple{starlark.String(kind.String()), starlark.String(rawName)}
		result, err := starlark.Call(thread, callable, args, nil)
		if err != nil {
			// A hook that errors falls through rather than aborting the
			// run; the built-in transformation still applies.
			logger.Warn("naming hook call failed", "kind", kind.String(), "name", rawName, "error", err)
			return "", false
		}

		switch v := result.(type) {
		case starlark.NoneType:
			return "", false
		case starlark.String:
			name := string(v)
			return name, name != ""
		default:
			return "", false
		}
	}

	return hook, nil
}
