package retry

import (
	"context"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Sleep       SleepFunc
	// ShouldRetry filters which failures are worth another attempt. Nil
	// retries every failure.
	ShouldRetry func(err error) bool
}

type Option func(*Config)

func WithMaxAttempts(n int) Option {
	return func(c *Config) { c.MaxAttempts = n }
}

func WithBaseDelay(d time.Duration) Option {
	return func(c *Config) { c.BaseDelay = d }
}

func WithSleep(s SleepFunc) Option {
	return func(c *Config) { c.Sleep = s }
}

func WithShouldRetry(f func(err error) bool) Option {
	return func(c *Config) { c.ShouldRetry = f }
}

func defaultConfig() Config {
	return Config{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Sleep:       Sleep,
	}
}

// Sleep is the wall-clock SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Backoff returns the wait after failed attempt n (0-indexed): base * 2^n.
func Backoff(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(1<<uint(attempt))
}

// Do runs op up to MaxAttempts times, sleeping Backoff(BaseDelay, i) after
// failed attempt i. The last failure is returned unchanged.
func Do[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Sleep == nil {
		cfg.Sleep = Sleep
	}

	var (
		result T
		err    error
	)
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err = op(ctx)
		if err == nil {
			return result, nil
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}
		if cfg.ShouldRetry != nil && !cfg.ShouldRetry(err) {
			break
		}
		if sleepErr := cfg.Sleep(ctx, Backoff(cfg.BaseDelay, attempt)); sleepErr != nil {
			break
		}
	}
	return result, err
}

// Run is Do for operations without a result.
func Run(ctx context.Context, op func(ctx context.Context) error, opts ...Option) error {
	_, err := Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, opts...)
	return err
}
