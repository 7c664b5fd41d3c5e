// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package storage

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/strongbox/internal/config"
	"github.com/tomtom215/strongbox/internal/faults"
	"github.com/tomtom215/strongbox/internal/logging"
	"github.com/tomtom215/strongbox/internal/metrics"
)

// ResilientConfig tunes the Resilient decorator.
type ResilientConfig struct {
	// Timeout bounds a single attempt. Zero disables the per-call timeout.
	Timeout time.Duration

	// MaxRetries bounds retries after the first attempt.
	MaxRetries int

	InitialInterval time.Duration
	MaxInterval     time.Duration

	// BreakerFailures consecutive transport failures open the breaker.
	BreakerFailures uint32

	// BreakerTimeout is how long the breaker stays open before probing.
	BreakerTimeout time.Duration
}

// ResilientConfigFrom extracts decorator settings from storage config.
func ResilientConfigFrom(cfg *config.StorageConfig) ResilientConfig {
	return ResilientConfig{
		Timeout:         cfg.Timeout,
		MaxRetries:      cfg.MaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		BreakerFailures: cfg.BreakerFailures,
		BreakerTimeout:  cfg.BreakerTimeout,
	}
}

// Resilient wraps a Backend with per-call timeouts, bounded exponential
// retries of transport failures and a circuit breaker. Integrity and
// configuration errors pass through on the first attempt.
type Resilient struct {
	inner Backend
	cfg   ResilientConfig
	cb    *gobreaker.CircuitBreaker[struct{}]
	name  string
}

// NewResilient wraps inner.
func NewResilient(inner Backend, cfg ResilientConfig) *Resilient {
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 30 * time.Second
	}

	name := "storage-" + inner.ID()

	// Initialize circuit breaker state metrics
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	r := &Resilient{inner: inner, cfg: cfg, name: name}
	r.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		// Only transport failures say anything about backend health.
		IsSuccessful: func(err error) bool {
			return err == nil || !faults.IsTransport(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("Storage circuit breaker state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, stateToString(from), stateToString(to)).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})
	return r
}

func (r *Resilient) ID() string   { return r.inner.ID() }
func (r *Resilient) Kind() string { return r.inner.Kind() }

// Unwrap returns the decorated backend.
func (r *Resilient) Unwrap() Backend { return r.inner }

// BreakerState reports the circuit breaker state as a string.
func (r *Resilient) BreakerState() string { return stateToString(r.cb.State()) }

func (r *Resilient) Upload(ctx context.Context, localPath string) (string, error) {
	var location string
	err := r.do(ctx, "upload", func(callCtx context.Context) error {
		loc, err := r.inner.Upload(callCtx, localPath)
		location = loc
		return err
	})
	return location, err
}

func (r *Resilient) Download(ctx context.Context, location, dest string, sizeHint int64) error {
	return r.do(ctx, "download", func(callCtx context.Context) error {
		return r.inner.Download(callCtx, location, dest, sizeHint)
	})
}

func (r *Resilient) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	err := r.do(ctx, "list", func(callCtx context.Context) error {
		objs, err := r.inner.List(callCtx, prefix)
		objects = objs
		return err
	})
	return objects, err
}

func (r *Resilient) Delete(ctx context.Context, location string) error {
	return r.do(ctx, "delete", func(callCtx context.Context) error {
		return r.inner.Delete(callCtx, location)
	})
}

// do runs fn through the breaker, retrying transport failures.
func (r *Resilient) do(ctx context.Context, op string, fn func(context.Context) error) error {
	attempt := func() error {
		start := time.Now()
		_, err := r.cb.Execute(func() (struct{}, error) {
			return struct{}{}, r.call(ctx, op, fn)
		})
		metrics.RecordStorageOperation(r.inner.ID(), op, time.Since(start), err)
		r.recordBreakerResult(err)

		switch {
		case err == nil:
			return nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return backoff.Permanent(faults.Transport(op, err))
		case faults.IsTransport(err):
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialInterval
	b.MaxInterval = r.cfg.MaxInterval
	b.MaxElapsedTime = 0

	var policy backoff.BackOff = b
	if r.cfg.MaxRetries >= 0 {
		policy = backoff.WithMaxRetries(b, uint64(r.cfg.MaxRetries))
	}

	notify := func(err error, wait time.Duration) {
		metrics.RecordStorageRetry(r.inner.ID(), op)
		logging.Warn().
			Err(err).
			Str("backend_id", r.inner.ID()).
			Str("op", op).
			Dur("wait", wait).
			Msg("Retrying storage operation")
	}

	err := backoff.RetryNotify(attempt, backoff.WithContext(policy, ctx), notify)
	if err != nil && ctx.Err() != nil && !faults.IsTransport(err) && !faults.IsIntegrity(err) {
		return faults.FromContext(op, ctx.Err())
	}
	return err
}

// call applies the per-attempt timeout.
func (r *Resilient) call(ctx context.Context, op string, fn func(context.Context) error) error {
	if r.cfg.Timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	err := fn(callCtx)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil && !faults.IsTransport(err) {
		return faults.Transport(op, context.DeadlineExceeded)
	}
	return faults.FromContext(op, err)
}

func (r *Resilient) recordBreakerResult(err error) {
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(r.name, "success").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(r.name).Set(0)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(r.name, "rejected").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(r.name, "failure").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(r.name).Set(float64(r.cb.Counts().ConsecutiveFailures))
	}
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
