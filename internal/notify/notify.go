// Package notify delivers newly available slots to people.
package notify

import (
	"context"
	"errors"

	"nyurban_tracker/internal/filter"
	"nyurban_tracker/internal/model"
)

// Notifier delivers one message describing slots. Implementations log
// per-recipient failures themselves and only return errors that stopped
// delivery as a whole.
type Notifier interface {
	Notify(ctx context.Context, slots []model.Slot) error
}

// Multi sends to every notifier, even when earlier ones fail.
type Multi []Notifier

// Notify calls each notifier in order and joins their errors.
func (m Multi) Notify(ctx context.Context, slots []model.Slot) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, slots); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Filtered passes only slots matching Rules on to Next.
type Filtered struct {
	Next  Notifier
	Rules []filter.Rule
}

// Notify drops non-matching slots and skips delivery when none are left.
func (f Filtered) Notify(ctx context.Context, slots []model.Slot) error {
	kept := filter.Apply(slots, f.Rules)
	if len(kept) == 0 {
		return nil
	}
	return f.Next.Notify(ctx, kept)
}
