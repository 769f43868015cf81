package enrich

import (
	"context"
	"errors"

	"github.com/apex/log"
)

// ErrorHandler receives every step error other than ErrStop.
type ErrorHandler[T any] func(item *T, stage string, err error)

// Pipeline applies its stages, in order, to each item, in order. Items are
// processed one at a time on the calling goroutine. Step errors never stop
// the pipeline: they go to the error handler and the next step runs.
//
// Pipeline is generic over the item type T.
type Pipeline[T any] struct {
	stages  []Stage[T]
	onError ErrorHandler[T]
}

// NewPipeline constructs a Pipeline from the provided stages. Errors are
// logged through the apex/log default logger until OnError replaces the
// handler.
func NewPipeline[T any](stages ...Stage[T]) *Pipeline[T] {
	return &Pipeline[T]{
		stages: stages,
		onError: func(_ *T, stage string, err error) {
			log.WithError(err).WithField("stage", stage).Warn("step failed")
		},
	}
}

// OnError sets the error handler and returns the pipeline.
func (p *Pipeline[T]) OnError(h ErrorHandler[T]) *Pipeline[T] {
	p.onError = h
	return p
}

// Process runs every stage over each item and returns the items in their
// input order.
func (p *Pipeline[T]) Process(ctx context.Context, items []*T) []*T {
	for _, item := range items {
		p.apply(ctx, item)
	}
	return items
}

func (p *Pipeline[T]) apply(ctx context.Context, item *T) {
	for _, stage := range p.stages {
		for _, step := range stage.steps {
			err := step(ctx, item)
			if err == nil {
				continue
			}
			if errors.Is(err, ErrStop) {
				return
			}
			p.onError(item, stage.name, err)
		}
	}
}
