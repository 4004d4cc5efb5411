package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vodgate/internal/core/domain"
	"vodgate/internal/playback"
	"vodgate/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	playDuration  time.Duration
	playQuality   int
	playBandwidth float64
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Authorize and play an HLS source",
	Long: `Authorize against the gateway, load the returned HLS source with the
signed cookie and keep the session alive until interrupted.

When playback fails the session authorizes once more and reattaches.
A second failure ends the command.`,
	Args: cobra.NoArgs,
	RunE: runPlay,
}

func init() {
	addTargetFlags(playCmd)
	playCmd.Flags().DurationVar(&playDuration, "duration", 0, "stop after this long (0 = until interrupted)")
	playCmd.Flags().IntVar(&playQuality, "quality", -1, "pin a representation by ladder position (-1 = auto)")
	playCmd.Flags().Float64Var(&playBandwidth, "bandwidth", 0, "bandwidth estimate in kbit/s to feed auto selection")
}

func runPlay(cmd *cobra.Command, args []string) error {
	t, err := targetFromFlags()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if playDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, playDuration)
		defer cancel()
	}

	log := logger.New(logLevel, "console").Sugar()
	s := &playSession{
		gateway:   newGatewayClient(gatewayURL),
		target:    t,
		out:       cmd.OutOrStdout(),
		logger:    log,
		quality:   playQuality,
		bandwidth: playBandwidth,
	}
	return s.run(ctx)
}

// playSession owns one controller across at most one re-authorization.
type playSession struct {
	gateway   *gatewayClient
	target    target
	out       io.Writer
	logger    *zap.SugaredLogger
	quality   int
	bandwidth float64

	client     *http.Client
	controller *playback.Controller
	failures   chan error
}

func (s *playSession) run(ctx context.Context) error {
	g, err := s.gateway.authorize(ctx, s.target)
	if err != nil {
		return err
	}

	s.client, err = playback.NewCookieClient(g.SrcURL, g.Cookies, 10*time.Second)
	if err != nil {
		return err
	}

	var opts []playback.Option
	if s.target.Kind == domain.KindLivestreaming {
		opts = append(opts, playback.WithLiveMode(playback.DefaultLiveBackoff))
	}
	s.controller = playback.NewController(playback.NewHLSEngine(s.client, s.logger), s.logger, opts...)
	defer s.controller.Dispose()

	s.failures = make(chan error, 1)
	s.controller.OnStateChange(s.onStateChange)
	s.controller.OnFailure(func(err error) {
		select {
		case s.failures <- err:
		default:
		}
	})

	if err := s.controller.Attach(ctx, &terminalMedia{out: s.out}, g.SrcURL); err != nil {
		return err
	}

	reauthorized := false
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out, "Stopped.")
			return nil
		case err := <-s.failures:
			if reauthorized {
				return fmt.Errorf("playback failed after re-authorization: %w", err)
			}
			reauthorized = true
			fmt.Fprintf(s.out, "Playback failed (%v); authorizing again\n", err)
			if err := s.reattach(ctx); err != nil {
				return err
			}
		}
	}
}

// reattach runs the authorization flow again before attaching; the old
// cookie is never reused.
func (s *playSession) reattach(ctx context.Context) error {
	g, err := s.gateway.authorize(ctx, s.target)
	if err != nil {
		if errors.Is(err, errAccessDenied) || errors.Is(err, errNotFound) {
			return fmt.Errorf("no longer entitled: %w", err)
		}
		return err
	}
	if err := playback.SetDeliveryCookies(s.client.Jar, g.SrcURL, g.Cookies); err != nil {
		return err
	}
	return s.controller.Attach(ctx, &terminalMedia{out: s.out}, g.SrcURL)
}

func (s *playSession) onStateChange(from, to playback.State) {
	fmt.Fprintf(s.out, "[%s] %s -> %s\n", time.Now().Format("15:04:05"), from, to)
	if to != playback.StatePlaying || from != playback.StateAttached {
		return
	}

	reps := s.controller.Representations()
	for i, r := range reps {
		fmt.Fprintf(s.out, "  %d: %s\n", i, r)
	}
	if s.quality >= 0 {
		if err := s.controller.SelectQuality(s.quality); err != nil {
			fmt.Fprintf(s.out, "  cannot select quality %d: %v\n", s.quality, err)
		}
	} else if s.bandwidth > 0 {
		s.controller.ReportBandwidth(s.bandwidth)
	}
	if cur, ok := s.controller.CurrentQuality(); ok {
		fmt.Fprintf(s.out, "  active: %s (auto=%t)\n", cur, s.controller.Auto())
	}
}

// terminalMedia stands in for a video element and reports what it would
// render.
type terminalMedia struct {
	out io.Writer
}

func (m *terminalMedia) Play() error {
	fmt.Fprintln(m.out, "  media: playing")
	return nil
}

func (m *terminalMedia) Reset() {
	fmt.Fprintln(m.out, "  media: reset")
}
