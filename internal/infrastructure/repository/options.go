package repository

import "time"

// StoreOption customises a ticket store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	now func() time.Time
}

func defaultStoreOptions() storeOptions {
	return storeOptions{now: time.Now}
}

// WithClock replaces the time source used to stamp tickets and messages.
func WithClock(now func() time.Time) StoreOption {
	return func(o *storeOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func applyStoreOptions(opts []StoreOption) storeOptions {
	o := defaultStoreOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// clock returns UTC time truncated to milliseconds, the precision every
// backend can round-trip.
func (o storeOptions) clock() time.Time {
	return o.now().UTC().Truncate(time.Millisecond)
}
