package connection

import (
	"math/rand/v2"
	"time"
)

// Association polling defaults.
const (
	InitialBackoff    = 250 * time.Millisecond
	MaxBackoff        = 4 * time.Second
	BackoffMultiplier = 2.0

	// JitterFactor bounds the random extra delay as a fraction of the base.
	JitterFactor = 0.25
)

// BackoffConfig tunes a Backoff. Zero fields take the package defaults,
// except Jitter where zero means no jitter.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

func (c BackoffConfig) withDefaults() BackoffConfig {
	if c.Initial <= 0 {
		c.Initial = InitialBackoff
	}
	if c.Max <= 0 {
		c.Max = MaxBackoff
	}
	if c.Multiplier <= 1 {
		c.Multiplier = BackoffMultiplier
	}
	c.Jitter = max(c.Jitter, 0)
	return c
}

// Backoff hands out the delays between two association checks. It belongs
// to a single polling loop and is not safe for concurrent use.
type Backoff struct {
	cfg      BackoffConfig
	base     time.Duration
	attempts int
}

// NewBackoff returns a Backoff with the default schedule and jitter.
func NewBackoff() *Backoff {
	return NewBackoffWithConfig(BackoffConfig{Jitter: JitterFactor})
}

// NewBackoffWithConfig returns a Backoff following cfg.
func NewBackoffWithConfig(cfg BackoffConfig) *Backoff {
	cfg = cfg.withDefaults()
	return &Backoff{cfg: cfg, base: cfg.Initial}
}

// Next returns the delay before the next check and grows the base delay.
func (b *Backoff) Next() time.Duration {
	d := b.base
	if b.cfg.Jitter > 0 {
		d += time.Duration(float64(d) * b.cfg.Jitter * rand.Float64())
	}
	b.attempts++
	b.base = min(time.Duration(float64(b.base)*b.cfg.Multiplier), b.cfg.Max)
	return d
}

// Reset starts the schedule over, e.g. after the link dropped again.
func (b *Backoff) Reset() {
	b.base = b.cfg.Initial
	b.attempts = 0
}

// Attempts returns the number of delays handed out since the last reset.
func (b *Backoff) Attempts() int { return b.attempts }

// Current returns the base delay Next will jitter.
func (b *Backoff) Current() time.Duration { return b.base }
