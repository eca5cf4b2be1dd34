package core

import (
	"context"
	"errors"

	"attendance.tracker/internal/core/model"
)

// PunchNotifier is told about every successful punch. It is how the rest of
// the app learns that attendance data changed.
type PunchNotifier interface {
	PunchRecorded(ctx context.Context, event model.PunchEvent) error
}

// Notifiers fans a punch event out to several notifiers.
type Notifiers []PunchNotifier

func (n Notifiers) PunchRecorded(ctx context.Context, event model.PunchEvent) error {
	var errs []error
	for _, notifier := range n {
		if notifier == nil {
			continue
		}
		if err := notifier.PunchRecorded(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PunchJournal stores every punch attempt locally.
type PunchJournal interface {
	RecordPunch(ctx context.Context, entry model.PunchLogEntry) error
}

// LocationSource yields the coordinates submitted with a punch.
type LocationSource interface {
	Acquire(ctx context.Context) (model.Coordinates, error)
}
