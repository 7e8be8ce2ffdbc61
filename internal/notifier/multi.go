package notifier

import (
	"context"
	"errors"

	"github.com/amishk599/jobmarket/internal/model"
)

// Multi fans a report out to several notifiers. Every notifier is called;
// their errors are joined.
type Multi []model.Notifier

func (m Multi) Notify(ctx context.Context, r model.RunReport) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
