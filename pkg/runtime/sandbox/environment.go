package sandbox

import (
	"reflect"

	"github.com/traefik/yaegi/interp"

	"github.com/tndhk/No42-work-bi-CC-sub001/pkg/table"
)

// Extras are caller-supplied symbols injected last into a sandbox
// environment, after the stdlib subset and the always-on guard/table
// packages. CardRunner uses this to offer a convenience Result type; other
// callers may pass nil.
type Extras = interp.Exports

// openStub stands in for a filesystem open() call: Go has no bare `open`
// builtin to shadow, so user code reaches it via the always-registered
// "bi/guard" import instead (see guardExports) — ImportGuard never blocks
// this host-provided path, since it carries no real filesystem access.
//
// It panics rather than returning an error so that calling it is fatal
// regardless of whether the caller checks the returned error: CardRunner and
// TransformRunner recover this specific panic value (via limiter.Error's
// Cause) and classify it as KindPermissionDenied before the generic
// panic-to-runtime-error path ever sees it.
func openStub(name string) (string, error) {
	panic(NewError(KindPermissionDenied, "permission denied: filesystem access is not permitted"))
}

// Result is the convenience card-render return type made available to user
// code under "bi/rr". User code may also return any struct exposing the
// same three exported fields — CardRunner normalizes by duck-typed
// reflection, not by exact type identity, since a yaegi-interpreted type and
// a host Go type are not guaranteed to compare equal via reflect.
type Result struct {
	HTML             string
	UsedColumns      []string
	FilterApplicable []string
}

// guardExports exposes the open() permission stub under a fixed import path
// that ImportGuard never denies and Execute always registers, regardless
// of which stdlib packages the NameGuard allow-lists.
var guardExports = interp.Exports{
	"bi/guard/guard": {
		"Open": reflect.ValueOf(openStub),
	},
}

// tableExports exposes pkg/table under "bi/table", the conventional short
// name every sandbox environment binds the tabular value under. No
// third-party dataframe library for Go appears anywhere in the example pack
// (see DESIGN.md), so this is the project's own minimal tabular type.
var tableExports = interp.Exports{
	"bi/table/table": {
		"Table":    reflect.ValueOf((*table.Table)(nil)),
		"Row":      reflect.ValueOf((*table.Row)(nil)),
		"New":      reflect.ValueOf(table.New),
		"FromRows": reflect.ValueOf(table.FromRows),
	},
}

// rrExports exposes the card Result convenience type under "bi/rr".
var rrExports = interp.Exports{
	"bi/rr/rr": {
		"Result": reflect.ValueOf((*Result)(nil)),
	},
}

// RenderResultExtras is the extras value CardRunner passes to
// Sandbox.Execute so card source can construct a bi/rr.Result directly.
func RenderResultExtras() Extras {
	return rrExports
}
