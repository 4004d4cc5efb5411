// Package playback drives an HLS engine against a signed, time-boxed
// source and recovers from stream failures without ever re-deriving the
// delivery authorization itself.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"vodgate/pkg/retry"

	"go.uber.org/zap"
)

const (
	// DefaultLiveBackoff is the fixed wait before the single retry of a
	// failed live manifest load.
	DefaultLiveBackoff = 5 * time.Second
	// DefaultStableAfter is how long playback must run cleanly before a
	// new error gets a fresh recovery budget.
	DefaultStableAfter = 2 * time.Minute

	maxNetworkReloads  = 1
	maxMediaRecoveries = 1
)

// Engine loads and decodes a source. Implementations must not call back
// into the controller synchronously from any of these methods.
type Engine interface {
	Load(ctx context.Context, media MediaElement, sourceURL string) (*Manifest, error)
	EnableRepresentations(indices []int) error
	SetNextRepresentation(index int) error
	RecoverMediaError(ctx context.Context) error
	Stop()
}

// MediaElement is the output surface the engine renders into.
type MediaElement interface {
	Play() error
	Reset()
}

// TransitionRecorder is implemented by metrics collectors that count
// controller state transitions.
type TransitionRecorder interface {
	RecordPlaybackTransition(to string)
}

type Option func(*Controller)

// WithLiveMode makes manifest load failures and mid-stream reloads wait
// backoff before their single retry.
func WithLiveMode(backoff time.Duration) Option {
	return func(c *Controller) {
		c.live = true
		c.liveBackoff = backoff
	}
}

// WithStableReset clears the recovery counters once playback has run
// without error for d. Zero or less keeps them for the whole attempt.
func WithStableReset(d time.Duration) Option {
	return func(c *Controller) {
		c.stableAfter = d
	}
}

func WithHysteresis(factor float64) Option {
	return func(c *Controller) {
		if factor < 0 {
			factor = 0
		}
		if factor > 1 {
			factor = 1
		}
		c.hysteresis = factor
	}
}

func WithMetrics(rec TransitionRecorder) Option {
	return func(c *Controller) {
		c.metrics = rec
	}
}

// Controller is the playback state machine. Every attempt started by
// Attach owns one cancellable context and one generation number; async
// completions from an older generation are dropped.
type Controller struct {
	engine      Engine
	logger      *zap.SugaredLogger
	metrics     TransitionRecorder
	live        bool
	liveBackoff time.Duration
	stableAfter time.Duration
	hysteresis  float64
	now         func() time.Time

	mu      sync.Mutex
	state   State
	gen     uint64
	ctx     context.Context
	cancel  context.CancelFunc
	media   MediaElement
	source  string
	err     error
	pending []func()

	reps            []Representation
	auto            bool
	current         int
	networkReloads  int
	mediaRecoveries int
	playingSince    time.Time

	onState   []func(from, to State)
	onFailure []func(err error)
}

func NewController(engine Engine, logger *zap.SugaredLogger, opts ...Option) *Controller {
	c := &Controller{
		engine:      engine,
		logger:      logger,
		liveBackoff: DefaultLiveBackoff,
		stableAfter: DefaultStableAfter,
		hysteresis:  DefaultHysteresis,
		now:         time.Now,
		state:       StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// unlock releases the mutex and then runs the callbacks queued while it
// was held, so callbacks may call back into the controller.
func (c *Controller) unlock() {
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

func (c *Controller) OnStateChange(fn func(from, to State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = append(c.onState, fn)
}

// OnFailure registers fn to receive the error of every transition into
// Failed. The caller must authorize again before the next Attach.
func (c *Controller) OnFailure(fn func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFailure = append(c.onFailure, fn)
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the failure that moved the controller to Failed, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Attach starts loading sourceURL into media. It returns once the attempt
// is started; the outcome is reported through state changes.
func (c *Controller) Attach(ctx context.Context, media MediaElement, sourceURL string) error {
	if media == nil || sourceURL == "" {
		return errors.New("attach: media element and source url are required")
	}

	c.mu.Lock()
	defer c.unlock()

	switch c.state {
	case StateDisposed:
		return ErrDisposed
	case StateIdle, StateFailed:
	default:
		return ErrNotIdle
	}

	c.beginAttemptLocked(ctx)
	c.media = media
	c.source = sourceURL
	c.err = nil
	c.reps = nil
	c.auto = true
	c.current = 0
	c.networkReloads = 0
	c.mediaRecoveries = 0
	c.setStateLocked(StateAttached)

	go c.load(c.ctx, c.gen, media, sourceURL)
	return nil
}

// Detach cancels the current attempt and returns to Idle.
func (c *Controller) Detach() {
	c.mu.Lock()
	defer c.unlock()

	if c.state == StateDisposed || c.state == StateIdle {
		return
	}
	c.teardownLocked()
	c.err = nil
	c.setStateLocked(StateIdle)
}

// Dispose cancels everything and makes the controller terminal. No later
// completion can move it out of Disposed.
func (c *Controller) Dispose() {
	c.mu.Lock()
	defer c.unlock()

	if c.state == StateDisposed {
		return
	}
	c.teardownLocked()
	c.setStateLocked(StateDisposed)
	c.onState = nil
	c.onFailure = nil
}

// HandleError routes an engine error to its recovery tier. Errors that
// arrive while no stream is playing are dropped.
func (c *Controller) HandleError(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.unlock()
	c.handleErrorLocked(err)
}

func (c *Controller) handleErrorLocked(err error) {
	if c.state != StatePlaying && c.state != StateRecovering {
		c.logger.Debugw("Dropping playback error outside of playback",
			"state", c.state.String(),
			"error", err,
		)
		return
	}

	kind := Classify(err)
	c.logger.Infow("Handling playback error",
		"kind", kind.String(),
		"state", c.state.String(),
		"source", c.source,
		"error", err,
	)

	// One recovery at a time per attempt.
	if c.state == StateRecovering {
		c.failLocked(fmt.Errorf("error during recovery: %w", err))
		return
	}

	if c.stableAfter > 0 && c.now().Sub(c.playingSince) >= c.stableAfter &&
		(c.networkReloads > 0 || c.mediaRecoveries > 0) {
		c.logger.Debugw("Resetting recovery counters after stable playback",
			"source", c.source,
			"network_reloads", c.networkReloads,
			"media_recoveries", c.mediaRecoveries,
		)
		c.networkReloads = 0
		c.mediaRecoveries = 0
	}

	switch kind {
	case KindNetwork:
		if c.networkReloads >= maxNetworkReloads {
			c.failLocked(fmt.Errorf("network recovery exhausted: %w", err))
			return
		}
		c.networkReloads++
		c.setStateLocked(StateRecovering)
		go c.reload(c.ctx, c.gen, c.media, c.source)
	case KindMedia:
		if c.mediaRecoveries >= maxMediaRecoveries {
			c.failLocked(fmt.Errorf("media recovery exhausted: %w", err))
			return
		}
		c.mediaRecoveries++
		c.setStateLocked(StateRecovering)
		go c.recoverMedia(c.ctx, c.gen)
	case KindAuthorization, KindFatal:
		c.failLocked(err)
	}
}

func (c *Controller) load(ctx context.Context, gen uint64, media MediaElement, source string) {
	policy := retry.Fixed(0, 1)
	if c.live {
		policy = retry.Fixed(c.liveBackoff, 1)
	}
	policy.RetryableErrors = []error{ErrTransientNetwork}

	attempt := 0
	manifest, err := retry.RetryWithResult(ctx, policy, func() (*Manifest, error) {
		attempt++
		if attempt > 1 {
			c.logger.Infow("Retrying manifest load",
				"source", source,
				"live", c.live,
			)
		}
		return c.engine.Load(ctx, media, source)
	})

	c.mu.Lock()
	defer c.unlock()

	if gen != c.gen {
		return
	}
	if err != nil {
		c.failLocked(fmt.Errorf("load %s: %w", source, err))
		return
	}
	c.applyManifestLocked(manifest)
}

func (c *Controller) reload(ctx context.Context, gen uint64, media MediaElement, source string) {
	if c.live && c.liveBackoff > 0 {
		c.logger.Infow("Waiting before live reload",
			"source", source,
			"backoff", c.liveBackoff,
		)
		timer := time.NewTimer(c.liveBackoff)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}

	manifest, err := c.engine.Load(ctx, media, source)

	c.mu.Lock()
	defer c.unlock()

	if gen != c.gen {
		return
	}
	if err != nil {
		c.failLocked(fmt.Errorf("reload %s: %w", source, err))
		return
	}
	c.applyManifestLocked(manifest)
}

func (c *Controller) recoverMedia(ctx context.Context, gen uint64) {
	err := c.engine.RecoverMediaError(ctx)

	c.mu.Lock()
	defer c.unlock()

	if gen != c.gen {
		return
	}
	if err != nil {
		c.failLocked(MediaError("recover", err))
		return
	}
	c.enterPlayingLocked()
}

func (c *Controller) applyManifestLocked(m *Manifest) {
	if m == nil || len(m.Representations) == 0 {
		c.failLocked(MediaError("load", errors.New("manifest has no representations")))
		return
	}

	reps := ladder(m.Representations)
	if !c.auto && c.current < len(reps) && len(reps) == len(c.reps) {
		if err := c.engine.EnableRepresentations([]int{reps[c.current].Index}); err != nil {
			c.failLocked(err)
			return
		}
	} else {
		c.auto = true
		c.current = 0
		if err := c.engine.EnableRepresentations(indices(reps)); err != nil {
			c.failLocked(err)
			return
		}
	}
	c.reps = reps
	c.enterPlayingLocked()
}

func (c *Controller) enterPlayingLocked() {
	c.playingSince = c.now()
	c.setStateLocked(StatePlaying)
	if err := c.media.Play(); err != nil {
		c.handleErrorLocked(err)
	}
}

func (c *Controller) failLocked(err error) {
	c.teardownLocked()
	c.err = err
	c.setStateLocked(StateFailed)

	c.logger.Warnw("Playback failed",
		"source", c.source,
		"kind", Classify(err).String(),
		"error", err,
	)

	callbacks := append([]func(error){}, c.onFailure...)
	c.pending = append(c.pending, func() {
		for _, fn := range callbacks {
			fn(err)
		}
	})
}

func (c *Controller) beginAttemptLocked(parent context.Context) {
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	c.ctx, c.cancel = context.WithCancel(parent)
}

// teardownLocked invalidates the current attempt and releases the engine.
func (c *Controller) teardownLocked() {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.state.active() {
		c.engine.Stop()
		if c.media != nil {
			c.media.Reset()
		}
	}
}

func (c *Controller) setStateLocked(to State) {
	from := c.state
	if from == to {
		return
	}
	if !canTransition(from, to) {
		c.logger.Errorw("Rejected playback state transition",
			"from", from.String(),
			"to", to.String(),
		)
		return
	}
	c.state = to

	c.logger.Debugw("Playback state changed",
		"from", from.String(),
		"to", to.String(),
	)
	if c.metrics != nil {
		c.metrics.RecordPlaybackTransition(to.String())
	}

	callbacks := append([]func(from, to State){}, c.onState...)
	c.pending = append(c.pending, func() {
		for _, fn := range callbacks {
			fn(from, to)
		}
	})
}

// Representations returns the loaded ladder, lowest bitrate first.
func (c *Controller) Representations() []Representation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Representation(nil), c.reps...)
}

// SelectQuality pins playback to the representation at position i of
// Representations. On engine error the previous selection stays enabled.
func (c *Controller) SelectQuality(i int) error {
	c.mu.Lock()
	defer c.unlock()

	if c.state == StateDisposed {
		return ErrDisposed
	}
	if len(c.reps) == 0 {
		return ErrNotPlaying
	}
	if i < 0 || i >= len(c.reps) {
		return fmt.Errorf("%w: %d of %d", ErrInvalidQuality, i, len(c.reps))
	}
	if err := c.engine.EnableRepresentations([]int{c.reps[i].Index}); err != nil {
		return fmt.Errorf("select quality %s: %w", c.reps[i], err)
	}
	c.auto = false
	c.current = i
	return nil
}

// SelectAuto enables every representation and lets bandwidth reports
// pick the active one.
func (c *Controller) SelectAuto() error {
	c.mu.Lock()
	defer c.unlock()

	if c.state == StateDisposed {
		return ErrDisposed
	}
	if len(c.reps) == 0 {
		return ErrNotPlaying
	}
	if err := c.engine.EnableRepresentations(indices(c.reps)); err != nil {
		return fmt.Errorf("select auto: %w", err)
	}
	c.auto = true
	return nil
}

// Auto reports whether automatic selection is on.
func (c *Controller) Auto() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.auto
}

// CurrentQuality returns the active representation.
func (c *Controller) CurrentQuality() (Representation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.reps) == 0 {
		return Representation{}, false
	}
	return c.reps[c.current], true
}

// ReportBandwidth feeds a throughput estimate in kbit/s to auto selection.
// It is ignored while a quality is pinned.
func (c *Controller) ReportBandwidth(kbps float64) {
	c.mu.Lock()
	defer c.unlock()

	if !c.auto || len(c.reps) == 0 || c.state != StatePlaying {
		return
	}
	next := pickWithHysteresis(c.reps, c.current, kbps*1000, c.hysteresis)
	if next == c.current {
		return
	}

	c.logger.Infow("Quality switch triggered",
		"from", c.reps[c.current].String(),
		"to", c.reps[next].String(),
		"bandwidth_kbps", kbps,
	)
	if err := c.engine.SetNextRepresentation(c.reps[next].Index); err != nil {
		c.logger.Warnw("Engine rejected quality switch",
			"to", c.reps[next].String(),
			"error", err,
		)
		return
	}
	c.current = next
}

func indices(reps []Representation) []int {
	out := make([]int, len(reps))
	for i, r := range reps {
		out[i] = r.Index
	}
	return out
}
