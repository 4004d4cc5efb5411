package reliability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vodgate/internal/core/domain"
	"vodgate/internal/core/ports"
	"vodgate/pkg/retry"
	"vodgate/pkg/tracing"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerConfig controls the store circuit breaker.
type BreakerConfig struct {
	Enabled          bool
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// StoreGuard wraps store reads with a circuit breaker, a short retry and
// latency metrics. Absent records are answers, not failures, and never
// trip the breaker or get retried.
type StoreGuard struct {
	store   string
	cb      *gobreaker.CircuitBreaker[any]
	retry   retry.Config
	metrics ports.MetricsRecorder // Optional, can be nil
	logger  *zap.SugaredLogger
}

var notFoundErrors = []error{
	domain.ErrContentNotFound,
	domain.ErrCredentialNotFound,
	domain.ErrUserNotFound,
}

func NewStoreGuard(store string, cfg BreakerConfig, metrics ports.MetricsRecorder, logger *zap.SugaredLogger) *StoreGuard {
	g := &StoreGuard{
		store:   store,
		metrics: metrics,
		logger:  logger,
		retry: retry.Config{
			Enabled:            true,
			MaxAttempts:        1,
			InitialDelay:       50 * time.Millisecond,
			MaxDelay:           50 * time.Millisecond,
			Multiplier:         1,
			NonRetryableErrors: append([]error{gobreaker.ErrOpenState, gobreaker.ErrTooManyRequests}, notFoundErrors...),
		},
	}

	if cfg.Enabled {
		g.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:        store,
			MaxRequests: 1,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.FailureThreshold
			},
			IsSuccessful: func(err error) bool {
				return err == nil || isNotFound(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warnw("store circuit breaker state changed",
					"store", name,
					"from", from.String(),
					"to", to.String(),
				)
				if r, ok := metrics.(breakerRecorder); ok {
					r.RecordBreakerTransition(name, to.String())
				}
			},
		})
	}

	return g
}

type breakerRecorder interface {
	RecordBreakerTransition(name, to string)
}

func isNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// State reports the breaker state, "disabled" when there is none.
func (g *StoreGuard) State() string {
	if g.cb == nil {
		return "disabled"
	}
	return g.cb.State().String()
}

func guarded[T any](ctx context.Context, g *StoreGuard, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, span := tracing.TraceStoreOperation(ctx, g.store, op, "")
	defer span.End()

	start := time.Now()
	defer func() {
		if g.metrics != nil {
			g.metrics.RecordStoreLookup(g.store, op, time.Since(start))
		}
	}()

	result, err := retry.RetryWithResult(ctx, g.retry, func() (T, error) {
		if g.cb == nil {
			return fn(ctx)
		}
		v, err := g.cb.Execute(func() (any, error) {
			return fn(ctx)
		})
		if err != nil {
			var zero T
			return zero, err
		}
		return v.(T), nil
	})
	if err != nil && !isNotFound(err) {
		tracing.RecordError(ctx, err)
		return result, fmt.Errorf("%s %s: %w", g.store, op, err)
	}
	return result, err
}

// Content wraps a content repository. Writes pass through unguarded.
func (g *StoreGuard) Content(repo ports.ContentRepository) ports.ContentRepository {
	return &guardedContentRepository{ContentRepository: repo, guard: g}
}

// Users wraps a user repository. Writes pass through unguarded.
func (g *StoreGuard) Users(repo ports.UserRepository) ports.UserRepository {
	return &guardedUserRepository{UserRepository: repo, guard: g}
}

type guardedContentRepository struct {
	ports.ContentRepository
	guard *StoreGuard
}

func (r *guardedContentRepository) GetContent(ctx context.Context, kind domain.ContentKind, id domain.ContentID) (*domain.ContentItem, error) {
	return guarded(ctx, r.guard, "get_content", func(ctx context.Context) (*domain.ContentItem, error) {
		return r.ContentRepository.GetContent(ctx, kind, id)
	})
}

func (r *guardedContentRepository) GetCredential(ctx context.Context, kind domain.ContentKind, id domain.ContentID) (*domain.DeliveryCredential, error) {
	return guarded(ctx, r.guard, "get_credential", func(ctx context.Context) (*domain.DeliveryCredential, error) {
		return r.ContentRepository.GetCredential(ctx, kind, id)
	})
}

type guardedUserRepository struct {
	ports.UserRepository
	guard *StoreGuard
}

func (r *guardedUserRepository) GetUser(ctx context.Context, id domain.UserID) (*domain.User, error) {
	return guarded(ctx, r.guard, "get_user", func(ctx context.Context) (*domain.User, error) {
		return r.UserRepository.GetUser(ctx, id)
	})
}
