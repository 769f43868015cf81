// Package enrich provides a small, generic pipeline abstraction: an ordered
// list of stages, each made of steps, applied to every item in turn.
package enrich

import (
	"context"
	"errors"
)

// ErrStop may be returned by a step to end processing of the current item
// without it being reported as a failure. Later stages are skipped for that
// item only.
var ErrStop = errors.New("enrich: stop item")

// Step represents a single enrichment operation that mutates the given item.
// If a step fails it should return an error; the pipeline reports it and
// carries on with the next step. The context can be used to observe
// cancellation or timeouts.
//
// Example:
//
//	func addTitle(ctx context.Context, m *MyType) error { m.Title = "..."; return nil }
type Step[T any] func(ctx context.Context, item *T) error

// Stage groups steps that run one after another for a single item. The name
// is passed to the error handler.
type Stage[T any] struct {
	name  string
	steps []Step[T]
}

// NewStage constructs a Stage from the provided steps.
func NewStage[T any](name string, steps ...Step[T]) Stage[T] {
	return Stage[T]{name: name, steps: steps}
}
