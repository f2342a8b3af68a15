package memstore

import "time"

type options struct {
	lockTimeout time.Duration
	now         func() time.Time
}

type Option func(*options)

// WithLockTimeout bounds how long a transaction waits for a row lock before
// failing with a transient conflict.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.lockTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
