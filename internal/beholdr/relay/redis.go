package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/vaibhaw-/beholdr/internal/beholdr/logger"
)

const (
	DefaultRedisPort = "6379"
	DefaultRedisList = "beholder_redis_list"
)

var errNilReply = errors.New("redis server replied with nil")

// RedisSink pushes payloads onto a remote list over one persistent connection.
type RedisSink struct {
	addr   string
	list   string
	client *redis.Client
}

// parseRedisTarget splits host[:port][?list=<name>] into an address and a
// list name. Any option other than list is rejected.
func parseRedisTarget(target string) (addr, list string, err error) {
	hostport, rawOpts, _ := strings.Cut(target, "?")
	if hostport == "" {
		return "", "", fmt.Errorf("%w: redis destination has no host", ErrConfig)
	}
	addr = hostport
	if _, _, splitErr := net.SplitHostPort(hostport); splitErr != nil {
		addr = net.JoinHostPort(hostport, DefaultRedisPort)
	}

	list = DefaultRedisList
	if rawOpts == "" {
		return addr, list, nil
	}
	opts, err := url.ParseQuery(rawOpts)
	if err != nil {
		return "", "", fmt.Errorf("%w: redis options %q: %v", ErrConfig, rawOpts, err)
	}
	for k := range opts {
		if k != "list" {
			return "", "", fmt.Errorf("%w: unknown redis option %q", ErrConfig, k)
		}
	}
	if v := opts.Get("list"); v != "" {
		list = v
	}
	return addr, list, nil
}

// NewRedisSink connects to target and checks it with PING. An unreachable
// target is a configuration error.
func NewRedisSink(ctx context.Context, target string) (*RedisSink, error) {
	addr, list, err := parseRedisTarget(target)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:            addr,
		PoolSize:        1,
		MaxRetries:      -1,
		DisableIdentity: true,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: connect to redis %s: %v", ErrConfig, addr, err)
	}

	logger.L().Infow("Redis sink connected", "addr", addr, "list", list)
	return &RedisSink{addr: addr, list: list, client: client}, nil
}

func (s *RedisSink) Addr() string { return s.addr }
func (s *RedisSink) List() string { return s.list }

// Send issues LPUSH list payload. Only an integer reply is success.
func (s *RedisSink) Send(ctx context.Context, payload []byte) error {
	v, err := s.client.Do(ctx, "LPUSH", s.list, payload).Result()
	return classifyReply(v, err)
}

// classifyReply maps a command result to success or failure. A reply of a
// shape LPUSH can never produce is a programming defect and panics.
func classifyReply(v interface{}, err error) error {
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return errNilReply
		}
		var rerr redis.Error
		if errors.As(err, &rerr) {
			return fmt.Errorf("redis server replied with an error: %w", err)
		}
		return fmt.Errorf("lpush: %w", err)
	}

	switch r := v.(type) {
	case int64:
		return nil
	case string:
		return fmt.Errorf("redis server replied with a message: %s", r)
	case []interface{}:
		return fmt.Errorf("redis server replied with an array of %d elements", len(r))
	case nil:
		return errNilReply
	default:
		panic(fmt.Sprintf("unexpected redis reply of type %T", v))
	}
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
