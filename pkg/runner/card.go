// Package runner wires the sandbox and limiter together into the two
// contracts user code fulfills: card rendering and dataset transformation.
package runner

import (
	"context"
	"reflect"
	"time"

	"github.com/tndhk/No42-work-bi-CC-sub001/pkg/runtime/limiter"
	"github.com/tndhk/No42-work-bi-CC-sub001/pkg/runtime/sandbox"
	"github.com/tndhk/No42-work-bi-CC-sub001/pkg/table"
)

// RenderResult is a card's rendered output, normalized from whatever shape
// user code returned it in.
type RenderResult struct {
	HTML             string
	UsedColumns      []string
	FilterApplicable []string
}

// CardFunc is the signature a compiled source's render entry point must
// satisfy. It is an alias, not a defined type, so that sandbox.Lookup's type
// assertion matches the unnamed func type of an interpreted function.
type CardFunc = func(data table.Table, filters map[string]any, params map[string]any) any

// CardRunner compiles and executes a card's render function against a
// dataset, bounded by a timeout and memory cap.
type CardRunner struct {
	sandbox        sandbox.Sandbox
	timeout        time.Duration
	maxMemoryBytes int64
}

// NewCardRunner constructs a CardRunner. Callers typically pass the
// card-contract defaults (10s / 2048MB).
func NewCardRunner(sb sandbox.Sandbox, timeoutSeconds int, maxMemoryMB int) *CardRunner {
	return &CardRunner{
		sandbox:        sb,
		timeout:        time.Duration(timeoutSeconds) * time.Second,
		maxMemoryBytes: int64(maxMemoryMB) * 1024 * 1024,
	}
}

// Run compiles source, locates its render function, and calls it with the
// dataset, filters, and params, returning the normalized RenderResult. Nil
// filters or params are replaced with empty maps. The
// whole call — compile included — happens inside the limiter's scope, since
// an infinite loop at package-init time is just as much a timeout hazard as
// one inside render itself.
func (r *CardRunner) Run(ctx context.Context, source string, data table.Table, filters map[string]any, params map[string]any) (*RenderResult, error) {
	if filters == nil {
		filters = map[string]any{}
	}
	if params == nil {
		params = map[string]any{}
	}
	var result *RenderResult

	err := limiter.Scope(ctx, r.timeout, r.maxMemoryBytes, func(scopeCtx context.Context) error {
		symbols, err := r.sandbox.Execute(scopeCtx, source, sandbox.RenderResultExtras())
		if err != nil {
			return err
		}

		render, ok := sandbox.Lookup[CardFunc](symbols, "render")
		if !ok {
			return sandbox.NewError(sandbox.KindContractViolation, "source does not declare a render function with the expected signature")
		}

		raw := render(data, filters, params)
		normalized, normErr := normalizeRenderResult(raw)
		if normErr != nil {
			return normErr
		}
		result = normalized
		return nil
	})
	if err != nil {
		return nil, classifyLimiterError(err)
	}
	return result, nil
}

// classifyLimiterError translates a limiter.Error into the sandbox.Kind
// taxonomy so callers only ever deal with one error vocabulary. Errors that
// already are a *sandbox.Error (compile/import/contract failures raised from
// inside the Scope body) pass through unchanged. A panic whose recovered
// value was itself a *sandbox.Error — notably the permission stub in
// bi/guard.Open — keeps that original classification instead of collapsing
// to a generic runtime error.
func classifyLimiterError(err error) error {
	le, ok := err.(*limiter.Error)
	if !ok {
		return err
	}
	if se, ok := le.Cause.(*sandbox.Error); ok {
		return se
	}
	switch le.Kind {
	case limiter.KindTimeout:
		return sandbox.NewError(sandbox.KindTimeout, "%s", le.Message)
	default:
		return sandbox.NewError(sandbox.KindRuntimeError, "%s", le.Message)
	}
}

// normalizeRenderResult accepts either a bare string or any struct exposing
// HTML/UsedColumns/FilterApplicable fields, duck-typed via reflection: a
// yaegi-interpreted struct and sandbox.Result are not guaranteed to be the
// exact same reflect.Type, so field-name matching is used instead of a type
// assertion.
func normalizeRenderResult(raw any) (*RenderResult, error) {
	if s, ok := raw.(string); ok {
		return &RenderResult{HTML: s}, nil
	}

	v := reflect.ValueOf(raw)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, sandbox.NewError(sandbox.KindContractViolation, "render returned a nil result")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, sandbox.NewError(sandbox.KindContractViolation, "render must return a string or a struct with an Html field")
	}

	htmlField := v.FieldByName("HTML")
	if !htmlField.IsValid() {
		htmlField = v.FieldByName("Html")
	}
	if !htmlField.IsValid() || htmlField.Kind() != reflect.String {
		return nil, sandbox.NewError(sandbox.KindContractViolation, "render must return a string or a struct with an Html field")
	}

	return &RenderResult{
		HTML:             htmlField.String(),
		UsedColumns:      stringSliceField(v, "UsedColumns"),
		FilterApplicable: stringSliceField(v, "FilterApplicable"),
	}, nil
}

func stringSliceField(v reflect.Value, name string) []string {
	f := v.FieldByName(name)
	if !f.IsValid() || f.Kind() != reflect.Slice {
		return []string{}
	}
	out := make([]string, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		elem := f.Index(i)
		if elem.Kind() == reflect.String {
			out = append(out, elem.String())
		}
	}
	return out
}
