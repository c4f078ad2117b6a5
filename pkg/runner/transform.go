package runner

import (
	"context"
	"time"

	"github.com/tndhk/No42-work-bi-CC-sub001/pkg/runtime/limiter"
	"github.com/tndhk/No42-work-bi-CC-sub001/pkg/runtime/sandbox"
	"github.com/tndhk/No42-work-bi-CC-sub001/pkg/table"
)

// TransformFunc is the signature a compiled source's transform entry point
// must satisfy: a map of named input datasets and a params bag, producing a
// single output table. Like CardFunc it is an alias, so that sandbox.Lookup's
// type assertion matches the unnamed func type of an interpreted function.
type TransformFunc = func(inputs map[string]table.Table, params map[string]any) table.Table

// TransformResult is a completed transform's output plus the wall-clock
// time it took to run, reported with sub-millisecond precision as a float.
type TransformResult struct {
	Output          table.Table
	ExecutionTimeMs float64
}

// TransformRunner compiles and executes a transform's entry point against a
// set of named input datasets, bounded by a timeout and memory cap.
type TransformRunner struct {
	sandbox        sandbox.Sandbox
	timeout        time.Duration
	maxMemoryBytes int64
}

// NewTransformRunner constructs a TransformRunner. Callers typically pass
// the transform-contract defaults (300s / 4096MB) — far looser than a
// card's, since transforms are expected to reshape larger datasets.
func NewTransformRunner(sb sandbox.Sandbox, timeoutSeconds int, maxMemoryMB int) *TransformRunner {
	return &TransformRunner{
		sandbox:        sb,
		timeout:        time.Duration(timeoutSeconds) * time.Second,
		maxMemoryBytes: int64(maxMemoryMB) * 1024 * 1024,
	}
}

// Run compiles source, locates its transform function, and calls it with
// the input datasets and params. The reported time covers the whole scoped
// run, compilation included, measured with Go's monotonic clock.
func (r *TransformRunner) Run(ctx context.Context, source string, inputs map[string]table.Table, params map[string]any) (*TransformResult, error) {
	started := time.Now()
	var output table.Table

	err := limiter.Scope(ctx, r.timeout, r.maxMemoryBytes, func(scopeCtx context.Context) error {
		symbols, err := r.sandbox.Execute(scopeCtx, source, nil)
		if err != nil {
			return err
		}

		transform, ok := sandbox.Lookup[TransformFunc](symbols, "transform")
		if !ok {
			return sandbox.NewError(sandbox.KindContractViolation, "source does not declare a transform function with the expected signature")
		}

		output = transform(inputs, params)
		return nil
	})
	if err != nil {
		return nil, classifyLimiterError(err)
	}

	elapsedMs := float64(time.Since(started)) / float64(time.Millisecond)
	return &TransformResult{Output: output, ExecutionTimeMs: elapsedMs}, nil
}
