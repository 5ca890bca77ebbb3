package repository

import "time"

const defaultKeyPrefix = "courtmatch:"

type storeOptions struct {
	now       func() time.Time
	keyPrefix string
}

func defaultOptions() storeOptions {
	return storeOptions{
		now:       time.Now,
		keyPrefix: defaultKeyPrefix,
	}
}

// Option applies a configuration option to a store.
type Option func(*storeOptions)

// WithClock sets the clock used for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *storeOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithKeyPrefix sets the key namespace used by RedisStore.
func WithKeyPrefix(prefix string) Option {
	return func(o *storeOptions) {
		if prefix != "" {
			o.keyPrefix = prefix
		}
	}
}
