package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/ligandscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscope/pkg/errors"
)

var (
	ErrLeaseNotAcquired = errors.New(errors.ErrCodeConflict, "job lease already held")
	ErrLeaseNotHeld     = errors.New(errors.ErrCodeConflict, "job lease not held by this owner")
)

// JobLease guards an analysis job so only one worker processes it at a time.
// The lease value is unique per holder, so a worker can never release or
// extend a lease another worker has since acquired.
type JobLease interface {
	Acquire(ctx context.Context) error
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
	Extend(ctx context.Context, ttl time.Duration) (bool, error)
	TTL(ctx context.Context) (time.Duration, error)
}

// LeaseFactory creates leases bound to a shared Redis client.
type LeaseFactory interface {
	JobLease(jobID string, opts ...LeaseOption) JobLease
}

type LeaseOption func(*leaseConfig)

// WithLeaseTTL sets how long the lease lives without an extension.  It should
// comfortably exceed the expected analysis duration unless the keepalive is
// enabled.
func WithLeaseTTL(ttl time.Duration) LeaseOption {
	return func(c *leaseConfig) { c.ttl = ttl }
}

func WithAcquireRetryDelay(delay time.Duration) LeaseOption {
	return func(c *leaseConfig) { c.retryDelay = delay }
}

func WithAcquireRetryCount(count int) LeaseOption {
	return func(c *leaseConfig) { c.retryCount = count }
}

// WithKeepalive extends the lease in the background until Release.  Long
// analyses use this instead of guessing an upper bound for the TTL.
func WithKeepalive(enabled bool) LeaseOption {
	return func(c *leaseConfig) { c.keepalive = enabled }
}

func WithKeepaliveInterval(interval time.Duration) LeaseOption {
	return func(c *leaseConfig) { c.keepaliveInterval = interval }
}

type leaseConfig struct {
	ttl               time.Duration
	retryDelay        time.Duration
	retryCount        int
	keepalive         bool
	keepaliveInterval time.Duration
}

type redisLeaseFactory struct {
	client *Client
	log    logging.Logger
}

func NewLeaseFactory(client *Client, log logging.Logger) LeaseFactory {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &redisLeaseFactory{client: client, log: log}
}

func (f *redisLeaseFactory) JobLease(jobID string, opts ...LeaseOption) JobLease {
	cfg := leaseConfig{
		ttl:        30 * time.Second,
		retryDelay: 100 * time.Millisecond,
		retryCount: 30,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.keepalive && cfg.keepaliveInterval == 0 {
		cfg.keepaliveInterval = cfg.ttl / 3
	}

	return &jobLease{
		client: f.client,
		key:    leaseKey(jobID),
		value:  uuid.New().String(),
		config: cfg,
		logger: f.log,
	}
}

type jobLease struct {
	client          *Client
	key             string
	value           string
	config          leaseConfig
	logger          logging.Logger
	keepaliveCancel context.CancelFunc
	keepaliveDone   chan struct{}
}

// Release and Extend must verify ownership atomically, otherwise a worker
// whose lease expired could delete the lease a second worker now holds.
var leaseReleaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

var leaseExtendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

func (l *jobLease) Acquire(ctx context.Context) error {
	for i := 0; i < l.config.retryCount; i++ {
		ok, err := l.TryAcquire(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.config.retryDelay):
		}
	}
	return ErrLeaseNotAcquired
}

func (l *jobLease) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.value, l.config.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to acquire job lease")
	}
	if ok && l.config.keepalive {
		l.startKeepalive()
	}
	return ok, nil
}

func (l *jobLease) Release(ctx context.Context) error {
	l.stopKeepalive()
	res, err := leaseReleaseScript.Run(ctx, l.client.Underlying(), []string{l.key}, l.value).Result()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to release job lease")
	}
	if res.(int64) == 0 {
		return ErrLeaseNotHeld
	}
	return nil
}

func (l *jobLease) Extend(ctx context.Context, ttl time.Duration) (bool, error) {
	res, err := leaseExtendScript.Run(ctx, l.client.Underlying(), []string{l.key}, l.value, ttl.Milliseconds()).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to extend job lease")
	}
	return res.(int64) == 1, nil
}

func (l *jobLease) TTL(ctx context.Context) (time.Duration, error) {
	return l.client.PTTL(ctx, l.key).Result()
}

func (l *jobLease) startKeepalive() {
	ctx, cancel := context.WithCancel(context.Background())
	l.keepaliveCancel = cancel
	l.keepaliveDone = make(chan struct{})

	go func() {
		defer close(l.keepaliveDone)
		ticker := time.NewTicker(l.config.keepaliveInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ok, err := l.Extend(ctx, l.config.ttl)
				if err != nil {
					l.logger.Error("job lease keepalive failed", logging.String("key", l.key), logging.Err(err))
					return
				}
				if !ok {
					l.logger.Warn("job lease lost", logging.String("key", l.key))
					return
				}
			}
		}
	}()
}

func (l *jobLease) stopKeepalive() {
	if l.keepaliveCancel != nil {
		l.keepaliveCancel()
		<-l.keepaliveDone
		l.keepaliveCancel = nil
	}
}

func leaseKey(jobID string) string {
	return "ligandscope:lease:job:" + jobID
}
