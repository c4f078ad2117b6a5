package sandbox

import (
	"context"
	"reflect"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// Symbols holds the entry points a compiled source declared: only "render"
// and "transform" are collected; other package-level functions and vars are
// not. CardRunner and TransformRunner look up the one entry point the
// contract names by typed Lookup.
type Symbols struct {
	values map[string]reflect.Value
}

// Lookup returns the named symbol asserted to type T, or false if the name
// is undeclared or declared with an incompatible type — the Go analogue of
// "contract violation: missing or wrong-signature entry point".
func Lookup[T any](s *Symbols, name string) (T, bool) {
	var zero T
	v, ok := s.values[name]
	if !ok {
		return zero, false
	}
	fn, ok := v.Interface().(T)
	if !ok {
		return zero, false
	}
	return fn, true
}

// Sandbox compiles and evaluates a single source string in a fresh,
// restricted interpreter instance and returns the recognized entry points
// (render, transform) it declared; other declarations are not returned. Each
// call gets its own interpreter: no state, and no symbol table, is ever
// shared across invocations.
type Sandbox interface {
	Execute(ctx context.Context, source string, extras Extras) (*Symbols, error)
}

// YaegiSandbox is the Sandbox implementation backed by traefik/yaegi. It
// interprets source directly and hands back live Go values, so the runner
// layers never have to marshal tables across a process or WASM boundary.
type YaegiSandbox struct {
	imports *ImportGuard
	names   *NameGuard
}

// NewYaegiSandbox wires a Sandbox to the process-wide guards.
func NewYaegiSandbox(imports *ImportGuard, names *NameGuard) *YaegiSandbox {
	return &YaegiSandbox{imports: imports, names: names}
}

// Execute scans source for blocked imports, then compiles and evaluates it
// in a fresh interpreter seeded with only the NameGuard's allowed stdlib
// packages plus the fixed host packages (bi/guard, bi/table) and any
// caller-supplied extras, in that order.
func (s *YaegiSandbox) Execute(ctx context.Context, source string, extras Extras) (*Symbols, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewError(KindTimeout, "context already expired before compile: %v", err)
	}

	if blocked, err := s.imports.ScanImports(source); err != nil {
		return nil, NewError(KindCompileError, "parse error: %v", err)
	} else if blocked != "" {
		return nil, NewError(KindImportBlocked, "import %q is not permitted", blocked)
	}

	i := interp.New(interp.Options{})

	if err := i.Use(s.allowedStdlib()); err != nil {
		return nil, NewError(KindRuntimeError, "failed to seed standard library: %v", err)
	}
	if err := i.Use(guardExports); err != nil {
		return nil, NewError(KindRuntimeError, "failed to seed guard package: %v", err)
	}
	if err := i.Use(tableExports); err != nil {
		return nil, NewError(KindRuntimeError, "failed to seed table package: %v", err)
	}
	if extras != nil {
		if err := i.Use(extras); err != nil {
			return nil, NewError(KindRuntimeError, "failed to seed extras: %v", err)
		}
	}

	if _, err := i.EvalWithContext(ctx, wrapForParse(source)); err != nil {
		if ctx.Err() != nil {
			return nil, NewError(KindTimeout, "compile canceled: %v", ctx.Err())
		}
		return nil, NewError(KindCompileError, "%v", err)
	}

	return s.collectSymbols(i)
}

// allowedStdlib builds the subset of yaegi's standard-library symbol table
// that NameGuard permits, keyed the way yaegi's stdlib.Symbols keys its
// entries ("<import path>/<package name>").
func (s *YaegiSandbox) allowedStdlib() interp.Exports {
	allowed := s.names.AllowedPackages()
	out := make(interp.Exports, len(allowed))
	for pkgKey, symbols := range stdlib.Symbols {
		if allowed[importPathOf(pkgKey)] {
			out[pkgKey] = symbols
		}
	}
	return out
}

// importPathOf strips yaegi's trailing "/<package name>" suffix from a
// stdlib.Symbols key, e.g. "encoding/json/json" -> "encoding/json".
func importPathOf(pkgKey string) string {
	slash := -1
	for i := len(pkgKey) - 1; i >= 0; i-- {
		if pkgKey[i] == '/' {
			slash = i
			break
		}
	}
	if slash < 0 {
		return pkgKey
	}
	return pkgKey[:slash]
}

// collectSymbols walks the interpreter's top-level scope and returns every
// recognized entry-point name as a reflect.Value, so the runner layer can
// look up the one named function the contract requires without yaegi-
// specific knowledge leaking past this package.
func (s *YaegiSandbox) collectSymbols(i *interp.Interpreter) (*Symbols, error) {
	values := map[string]reflect.Value{}
	for _, name := range []string{"render", "transform"} {
		v, err := i.Eval("main." + name)
		if err != nil {
			continue
		}
		values[name] = v
	}
	if len(values) == 0 {
		return nil, NewError(KindContractViolation, "source declared no recognized entry point (render/transform)")
	}
	return &Symbols{values: values}, nil
}
