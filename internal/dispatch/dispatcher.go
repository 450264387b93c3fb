package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"scan-alert-relay/internal/ratelimit"
)

// Policy tunes the dispatcher's admission and retry behaviour.
type Policy struct {
	AcquireTimeout time.Duration
	AttemptTimeout time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultPolicy mirrors the messaging endpoint's published limits.
func DefaultPolicy() Policy {
	return Policy{
		AcquireTimeout: 30 * time.Second,
		AttemptTimeout: 10 * time.Second,
		MaxRetries:     3,
		InitialBackoff: time.Second,
		MaxBackoff:     10 * time.Second,
	}
}

// Dispatcher serialises deliveries against the shared RateBudget and
// retries rate-limit rejections with exponential backoff. One permit is
// consumed per Send, never released early; the budget's replenisher is the
// only thing that restores permits, so the ceiling bounds admissions per
// second rather than completions.
type Dispatcher struct {
	transport Transport
	budget    *ratelimit.Budget
	policy    Policy
	logger    zerolog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewDispatcher constructs a dispatcher around the shared budget.
func NewDispatcher(transport Transport, budget *ratelimit.Budget, policy Policy, logger zerolog.Logger) *Dispatcher {
	if policy.AcquireTimeout <= 0 {
		policy.AcquireTimeout = 30 * time.Second
	}
	if policy.AttemptTimeout <= 0 {
		policy.AttemptTimeout = 10 * time.Second
	}
	if policy.InitialBackoff <= 0 {
		policy.InitialBackoff = time.Second
	}
	if policy.MaxBackoff < policy.InitialBackoff {
		policy.MaxBackoff = policy.InitialBackoff
	}

	return &Dispatcher{
		transport: transport,
		budget:    budget,
		policy:    policy,
		logger:    logger.With().Str("component", "dispatcher").Logger(),
		sleep:     sleepCtx,
	}
}

// Send delivers one message. The returned Ack carries the attempt count on
// both the success and failure paths. Failure of one Send never affects
// other in-flight sends.
func (d *Dispatcher) Send(ctx context.Context, req Request) (Ack, error) {
	if err := d.budget.Acquire(ctx, d.policy.AcquireTimeout); err != nil {
		if errors.Is(err, ratelimit.ErrAcquireTimeout) {
			d.logger.Error().Dur("timeout", d.policy.AcquireTimeout).Msg("no send permit within bound")
		}
		return Ack{}, err
	}

	backoff := d.policy.InitialBackoff
	attempts := 0
	for {
		attempts++

		ack, err := d.attempt(ctx, req)
		if err == nil {
			ack.Attempts = attempts
			return ack, nil
		}

		var rateLimited *RateLimitedError
		if !errors.As(err, &rateLimited) {
			// Network errors, timeouts, and non-429 rejections are
			// terminal for this message.
			return Ack{Attempts: attempts}, err
		}

		if attempts > d.policy.MaxRetries {
			d.logger.Error().Int("attempts", attempts).Msg("retries exhausted on rate-limit rejections")
			return Ack{Attempts: attempts}, err
		}

		d.logger.Warn().Int("attempt", attempts).Dur("backoff", backoff).Msg("endpoint rate limited, backing off")
		if err := d.sleep(ctx, backoff); err != nil {
			return Ack{Attempts: attempts}, err
		}

		backoff *= 2
		if backoff > d.policy.MaxBackoff {
			backoff = d.policy.MaxBackoff
		}
	}
}

func (d *Dispatcher) attempt(ctx context.Context, req Request) (Ack, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, d.policy.AttemptTimeout)
	defer cancel()
	return d.transport.Deliver(attemptCtx, req)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
