package worker

import (
	"context"
	"errors"

	"example.com/minitweet/internal/models"
	"example.com/minitweet/internal/store"
)

// Local records activity events in-process. It stands in for the Kafka round trip when
// the server runs on the memory store, where no separate worker can share the data.
type Local struct {
	store store.StoreInterface
}

func NewLocal(st store.StoreInterface) *Local {
	return &Local{store: st}
}

// Publish records ev directly in the recipient's activity log.
func (l *Local) Publish(ctx context.Context, ev models.Event) error {
	err := record(ctx, l.store, ev)
	observe(err)
	if errors.Is(err, errSelfActivity) {
		return nil
	}
	return err
}
