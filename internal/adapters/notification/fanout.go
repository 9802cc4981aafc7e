package notification

import (
	"context"
	"errors"
)

// FanOut delivers each event to every publisher. One failing transport does not stop
// delivery to the others; the failures are joined.
type FanOut struct {
	publishers []Publisher
}

func NewFanOut(publishers ...Publisher) *FanOut {
	return &FanOut{publishers: publishers}
}

func (f *FanOut) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *FanOut) Close() error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
