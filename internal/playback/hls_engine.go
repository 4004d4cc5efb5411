package playback

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grafov/m3u8"
	"go.uber.org/zap"
)

// NewCookieClient returns an HTTP client whose jar holds the signed
// delivery cookies for sourceURL.
func NewCookieClient(sourceURL string, cookies []*http.Cookie, timeout time.Duration) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if err := SetDeliveryCookies(jar, sourceURL, cookies); err != nil {
		return nil, err
	}
	return &http.Client{Jar: jar, Timeout: timeout}, nil
}

// SetDeliveryCookies stores freshly issued cookies in jar, replacing any
// earlier ones of the same name. Cookies are stored exactly as issued, so
// their expiry, path and secure scope are enforced by the jar.
func SetDeliveryCookies(jar http.CookieJar, sourceURL string, cookies []*http.Cookie) error {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return fmt.Errorf("parse source url: %w", err)
	}
	jar.SetCookies(u, cookies)
	return nil
}

// HLSEngine loads HLS playlists over HTTP. It validates access to the
// master and the active variant playlist; segment decoding is left to the
// media element.
type HLSEngine struct {
	client *http.Client
	logger *zap.SugaredLogger

	mu       sync.Mutex
	source   *url.URL
	variants []Representation
	enabled  map[int]bool
	next     int
}

func NewHLSEngine(client *http.Client, logger *zap.SugaredLogger) *HLSEngine {
	if client == nil {
		client = http.DefaultClient
	}
	return &HLSEngine{
		client: client,
		logger: logger,
	}
}

var _ Engine = (*HLSEngine)(nil)

func (e *HLSEngine) Load(ctx context.Context, _ MediaElement, sourceURL string) (*Manifest, error) {
	src, err := url.Parse(sourceURL)
	if err != nil {
		return nil, &Error{Kind: KindFatal, Op: "load", Err: err}
	}

	playlist, listType, err := e.fetch(ctx, src)
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	switch listType {
	case m3u8.MASTER:
		master := playlist.(*m3u8.MasterPlaylist)
		for i, v := range master.Variants {
			if v == nil {
				continue
			}
			ref, err := src.Parse(v.URI)
			if err != nil {
				return nil, MediaError("parse variant", err)
			}
			w, h := parseResolution(v.Resolution)
			manifest.Representations = append(manifest.Representations, Representation{
				Index:   i,
				Bitrate: int(v.Bandwidth),
				Width:   w,
				Height:  h,
				Codecs:  v.Codecs,
				URI:     ref.String(),
			})
		}
		if len(manifest.Representations) == 0 {
			return nil, MediaError("parse manifest", errors.New("master playlist has no variants"))
		}
		live, err := e.probe(ctx, manifest.Representations[0].URI)
		if err != nil {
			return nil, err
		}
		manifest.Live = live
	case m3u8.MEDIA:
		manifest.Live = !playlist.(*m3u8.MediaPlaylist).Closed
		manifest.Representations = []Representation{{Index: 0, URI: src.String()}}
	}

	e.mu.Lock()
	e.source = src
	e.variants = manifest.Representations
	e.enabled = make(map[int]bool, len(manifest.Representations))
	for _, r := range manifest.Representations {
		e.enabled[r.Index] = true
	}
	e.next = manifest.Representations[0].Index
	e.mu.Unlock()

	e.logger.Infow("Loaded HLS manifest",
		"source", sourceURL,
		"representations", len(manifest.Representations),
		"live", manifest.Live,
	)
	return &manifest, nil
}

// probe fetches a media playlist and reports whether it is still open.
func (e *HLSEngine) probe(ctx context.Context, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, MediaError("parse variant", err)
	}
	playlist, listType, err := e.fetch(ctx, u)
	if err != nil {
		return false, err
	}
	if listType != m3u8.MEDIA {
		return false, MediaError("parse variant", fmt.Errorf("%s is not a media playlist", rawURL))
	}
	return !playlist.(*m3u8.MediaPlaylist).Closed, nil
}

func (e *HLSEngine) fetch(ctx context.Context, u *url.URL) (m3u8.Playlist, m3u8.ListType, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, &Error{Kind: KindFatal, Op: "fetch", Err: err}
	}
	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, NetworkError("fetch "+u.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, StatusError("fetch "+u.Path, resp.StatusCode)
	}

	playlist, listType, err := m3u8.DecodeFrom(resp.Body, false)
	if err != nil {
		return nil, 0, MediaError("decode "+u.Path, err)
	}
	return playlist, listType, nil
}

func (e *HLSEngine) EnableRepresentations(indices []int) error {
	if len(indices) == 0 {
		return errors.New("at least one representation must stay enabled")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	enabled := make(map[int]bool, len(indices))
	for _, i := range indices {
		if !e.known(i) {
			return fmt.Errorf("unknown representation %d", i)
		}
		enabled[i] = true
	}
	e.enabled = enabled
	if !enabled[e.next] {
		e.next = indices[0]
	}
	return nil
}

func (e *HLSEngine) SetNextRepresentation(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled[index] {
		return fmt.Errorf("representation %d is not enabled", index)
	}
	e.next = index
	return nil
}

// RecoverMediaError refetches the active variant playlist.
func (e *HLSEngine) RecoverMediaError(ctx context.Context) error {
	e.mu.Lock()
	var uri string
	for _, r := range e.variants {
		if r.Index == e.next {
			uri = r.URI
		}
	}
	e.mu.Unlock()

	if uri == "" {
		return errors.New("nothing loaded")
	}
	_, err := e.probe(ctx, uri)
	return err
}

func (e *HLSEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.source = nil
	e.variants = nil
	e.enabled = nil
	e.next = 0
}

// NextRepresentation returns the engine index the next fragment is
// fetched from.
func (e *HLSEngine) NextRepresentation() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.next
}

func (e *HLSEngine) known(index int) bool {
	for _, r := range e.variants {
		if r.Index == index {
			return true
		}
	}
	return false
}

func parseResolution(s string) (int, int) {
	w, h, ok := strings.Cut(s, "x")
	if !ok {
		return 0, 0
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return 0, 0
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return 0, 0
	}
	return width, height
}
