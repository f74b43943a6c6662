package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrConfig marks errors caused by a bad destination descriptor or an
// unreachable target. They are fatal at construction and never retried.
var ErrConfig = errors.New("relay configuration error")

// Sink hands off one serialized record per call.
type Sink interface {
	Send(ctx context.Context, payload []byte) error
	Close() error
}

// NewSink resolves a scheme-prefixed destination descriptor:
//
//	file://<path>[?<opts>]
//	redis://<host>[:<port>][?list=<name>]
func NewSink(ctx context.Context, descriptor string) (Sink, error) {
	scheme, target, ok := strings.Cut(descriptor, "://")
	if !ok || scheme == "" {
		return nil, fmt.Errorf("%w: destination %q has no scheme", ErrConfig, descriptor)
	}
	switch scheme {
	case "file":
		return NewFileSink(target)
	case "redis":
		return NewRedisSink(ctx, target)
	default:
		return nil, fmt.Errorf("%w: unknown destination scheme %q", ErrConfig, scheme)
	}
}
