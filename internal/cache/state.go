// Package cache mirrors remote project and estimation collections in memory
// and keeps them consistent with the outcome of gateway calls.
package cache

import (
	"errors"

	"estimator/internal/log"
)

// State of a collection's last load.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// InsertPosition decides where a newly created record lands in the cache.
type InsertPosition int

const (
	InsertFirst InsertPosition = iota
	InsertLast
)

// ErrSuperseded is returned by a load whose response arrived after a newer
// load was issued. Its data is not applied to the cache.
var ErrSuperseded = errors.New("load superseded by a newer request")

type options struct {
	insert    InsertPosition
	insertSet bool
	logger    *log.Logger
}

// Option configures a store.
type Option func(*options)

// WithInsertPosition overrides where created records are inserted.
func WithInsertPosition(p InsertPosition) Option {
	return func(o *options) {
		o.insert = p
		o.insertSet = true
	}
}

// WithLogger sets the logger used for consistency warnings.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(def InsertPosition, opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.insertSet {
		o.insert = def
	}
	if o.logger == nil {
		o.logger = log.Default(log.ComponentCache)
	}
	return o
}
